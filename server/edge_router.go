package server

import (
	"errors"
	"github.com/google/uuid"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"weibo_relay/dto"
	"weibo_relay/logic"
	"weibo_relay/shared"
	"weibo_relay/texts"
)

const (
	allowMethods      = "GET, POST, OPTIONS"
	allowHeaders      = "Content-Type"
	preflightMaxAge   = "86400"
	imageCacheControl = "public, max-age=31536000"
	defaultImageType  = "image/jpeg"
)

const (
	errApiProxyFailed   = "API proxy failed"
	errMissingImageUrl  = "Missing image URL parameter"
	errInvalidDomain    = "Invalid image domain"
	errImageFetchFailed = "Failed to fetch image"
	errImageProxyFailed = "Image proxy failed"
	errNotFound         = "Not Found"
)

// Headers that describe one connection, or the upstream body encoding, and must not be relayed
var skippedResponseHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Proxy-Connection":    true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
	"Content-Length":      true,
	"Content-Encoding":    true,
}

// IEdgeRouter serves every request that no other handler group claims.
type IEdgeRouter interface {
	http.Handler
}

type edgeRouter struct {
	cfg       *shared.Config
	logger    shared.ILogger
	metrics   logic.IMetrics
	forwarder logic.IForwarder
	txt       texts.ITexts
}

func NewEdgeRouter(
	cfg *shared.Config,
	logger shared.ILogger,
	metrics logic.IMetrics,
	forwarder logic.IForwarder,
	txt texts.ITexts,
) IEdgeRouter {
	return &edgeRouter{
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
		forwarder: forwarder,
		txt:       txt,
	}
}

type edgeRequest struct {
	id    string
	kind  routeKind
	w     *statusRecorder
	r     *http.Request
	fetch error
}

func (er *edgeRouter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := edgeRequest{
		id:   uuid.NewString(),
		kind: classifyRoute(r.Method, r.URL.Path),
		w:    &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK},
		r:    r,
	}
	observer := er.metrics.StartEdgeRequestIn(req.kind.String())
	defer observer.Finish()

	er.logger.Debug("Edge request", "id", req.id, "method", r.Method, "path", r.URL.Path, "route", req.kind)
	w.Header().Set(allowOriginHdr, "*")

	switch req.kind {
	case routePreflight:
		er.handlePreflight(&req)
	case routeApiForward:
		er.handleApiForward(&req)
	case routeImageForward:
		er.handleImageForward(&req)
	case routeInfo:
		er.handleInfo(&req)
	default:
		er.handleNotFound(&req)
	}

	if req.fetch != nil {
		er.logger.Warn("Upstream fetch failed", "id", req.id, "route", req.kind, "err", req.fetch)
	} else if req.w.statusCode >= 400 {
		er.logger.Info("Edge request not OK", "id", req.id, "method", r.Method,
			"path", r.URL.Path, "query", r.URL.RawQuery, "status", req.w.statusCode)
	}
}

func (er *edgeRouter) handlePreflight(req *edgeRequest) {
	hdr := req.w.Header()
	hdr.Set("Access-Control-Allow-Methods", allowMethods)
	hdr.Set("Access-Control-Allow-Headers", allowHeaders)
	hdr.Set("Access-Control-Max-Age", preflightMaxAge)
	req.w.WriteHeader(http.StatusNoContent)
}

func (er *edgeRouter) handleApiForward(req *edgeRequest) {
	r := req.r
	pathAndQuery := r.URL.EscapedPath()
	if r.URL.RawQuery != "" {
		pathAndQuery += "?" + r.URL.RawQuery
	}
	var body io.Reader
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		body = r.Body
	}

	resp, err := er.forwarder.ForwardApi(r.Context(), r.Method, pathAndQuery, body, r.Header.Get(contentTypeHdr))
	if err != nil {
		req.fetch = err
		writeErrorResponse(er.logger, req.w, http.StatusInternalServerError, errApiProxyFailed, err.Error())
		return
	}
	defer resp.Body.Close()

	hdr := req.w.Header()
	for key, vals := range resp.Header {
		if skippedResponseHeaders[http.CanonicalHeaderKey(key)] {
			continue
		}
		hdr[key] = vals
	}
	hdr.Set(allowOriginHdr, "*")
	hdr.Set("Access-Control-Allow-Methods", allowMethods)
	hdr.Set("Access-Control-Allow-Headers", allowHeaders)
	req.w.WriteHeader(resp.StatusCode)
	if _, err = io.Copy(req.w, resp.Body); err != nil {
		// Headers are out; all we can do is cut the response short
		er.logger.Warn("Failed to relay API response", "id", req.id, "err", err)
	}
}

func (er *edgeRouter) handleImageForward(req *edgeRequest) {
	imageUrl := req.r.URL.Query().Get("url")
	if imageUrl == "" {
		writeErrorResponse(er.logger, req.w, http.StatusBadRequest, errMissingImageUrl, "")
		return
	}
	if !er.isAllowedImage(imageUrl) {
		writeErrorResponse(er.logger, req.w, http.StatusForbidden, errInvalidDomain, "")
		return
	}

	resp, err := er.forwarder.FetchImage(req.r.Context(), imageUrl)
	if err != nil {
		req.fetch = err
		if errors.Is(err, logic.ErrRedirectNotAllowed) {
			writeErrorResponse(er.logger, req.w, http.StatusForbidden, errInvalidDomain, "")
			return
		}
		writeErrorResponse(er.logger, req.w, http.StatusInternalServerError, errImageProxyFailed, err.Error())
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errResp := dto.ErrorResp{Error: errImageFetchFailed, Status: resp.StatusCode}
		writeJsonResponse(er.logger, req.w, resp.StatusCode, errResp)
		return
	}

	contentType := resp.Header.Get(contentTypeHdr)
	if contentType == "" {
		contentType = defaultImageType
	}
	hdr := req.w.Header()
	hdr.Set(contentTypeHdr, contentType)
	hdr.Set("Cache-Control", imageCacheControl)
	hdr.Set("CDN-Cache-Control", imageCacheControl)
	if resp.ContentLength >= 0 {
		hdr.Set("Content-Length", strconv.FormatInt(resp.ContentLength, 10))
	}
	req.w.WriteHeader(http.StatusOK)
	n, err := io.Copy(req.w, resp.Body)
	er.metrics.ImageBytesRelayed(n)
	if err != nil {
		er.logger.Warn("Failed to relay image", "id", req.id, "url", imageUrl, "err", err)
	}
}

// Unparsable URLs, and URLs that are not plain web addresses, count as outside the allowed domains.
func (er *edgeRouter) isAllowedImage(imageUrl string) bool {
	parsed, err := url.Parse(imageUrl)
	if err != nil || parsed.Hostname() == "" {
		return false
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return false
	}
	return shared.HostMatchesDomains(parsed.Hostname(), er.cfg.ImageDomains)
}

func (er *edgeRouter) handleInfo(req *edgeRequest) {
	info := er.txt.WithVals("info.json", map[string]string{"version": shared.ServiceVersion})
	writeRawJson(er.logger, req.w, http.StatusOK, []byte(info))
}

func (er *edgeRouter) handleNotFound(req *edgeRequest) {
	msg := strings.TrimSpace(er.txt.Get("not_found.txt"))
	writeErrorResponse(er.logger, req.w, http.StatusNotFound, errNotFound, msg)
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

// Flush lets streamed image bodies reach the client as they arrive.
func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
