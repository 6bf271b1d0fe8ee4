package server

import (
	"encoding/json"
	"net/http"
	"weibo_relay/dto"
	"weibo_relay/shared"
)

const (
	metricsAuthHeader = "Authorization"
	badAuthorization  = "Missing or invalid authorization"
	allowOriginHdr    = "Access-Control-Allow-Origin"
	contentTypeHdr    = "Content-Type"
	jsonContentType   = "application/json"
)

// Defines a single HTTP handler (endpoint)
type handlerDef struct {
	method  string
	pattern string
	handler func(http.ResponseWriter, *http.Request)
}

// IHandlerGroup groups together multiple HTTP handler definitions.
type IHandlerGroup interface {
	Prefix() string
	GroupDefs() []handlerDef
	AuthMW() func(next http.Handler) http.Handler
}

// Serializes resp as the response body with the given status; handles errors.
func writeJsonResponse(logger shared.ILogger, w http.ResponseWriter, code int, resp interface{}) {
	respJson, err := json.Marshal(resp)
	if err != nil {
		logger.Warnf("Failed to serialize response: %v", err)
		respJson = []byte(`{"error":"Internal Server Error"}`)
		code = http.StatusInternalServerError
	}
	writeRawJson(logger, w, code, respJson)
}

func writeRawJson(logger shared.ILogger, w http.ResponseWriter, code int, body []byte) {
	w.Header().Set(allowOriginHdr, "*")
	w.Header().Set(contentTypeHdr, jsonContentType)
	w.WriteHeader(code)
	if _, err := w.Write(body); err != nil {
		logger.Warnf("Failed to write response: %v", err)
	}
}

func writeErrorResponse(logger shared.ILogger, w http.ResponseWriter, code int, errStr, msg string) {
	writeJsonResponse(logger, w, code, dto.ErrorResp{Error: errStr, Message: msg})
}
