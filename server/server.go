package server

import (
	"context"
	"github.com/gorilla/mux"
	"go.uber.org/fx"
	"net"
	"net/http"
	"strconv"
	"weibo_relay/shared"
)

func NewHTTPServer(cfg *shared.Config, logger shared.ILogger, lc fx.Lifecycle, router *mux.Router) *http.Server {
	addStr := ":" + strconv.FormatUint(uint64(cfg.ServicePort), 10)
	srv := &http.Server{Addr: addStr, Handler: allowOriginHandler(router)}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			listener, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			logger.Printf("Starting HTTP server at %v", srv.Addr)
			go srv.Serve(listener)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Printf("Shutting down HTTP server")
			return srv.Shutdown(ctx)
		},
	})
	return srv
}

// Every response carries the wildcard origin, including ones no branch of the edge router produced.
func allowOriginHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(allowOriginHdr, "*")
		next.ServeHTTP(w, r)
	})
}

func NewMux(groups []IHandlerGroup, edge IEdgeRouter) *mux.Router {
	// Forwarded paths must reach upstream verbatim: no cleaning, no redirects
	router := mux.NewRouter().SkipClean(true)
	for _, group := range groups {
		defs := group.GroupDefs()
		if len(defs) == 0 {
			continue
		}
		subRouter := router.PathPrefix(group.Prefix()).Subrouter()
		subRouter.Use(group.AuthMW())
		for _, def := range defs {
			subRouter.HandleFunc(def.pattern, def.handler).Methods(def.method)
		}
	}
	// Everything else, including preflights for the routes above, belongs to the edge router
	router.PathPrefix("/").Handler(edge)
	router.NotFoundHandler = edge
	router.MethodNotAllowedHandler = edge
	return router
}
