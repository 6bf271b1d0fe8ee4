package server

import (
	"net/http"
	"strings"
)

type routeKind int

const (
	routeNotFound routeKind = iota
	routePreflight
	routeApiForward
	routeImageForward
	routeInfo
)

func (rk routeKind) String() string {
	switch rk {
	case routePreflight:
		return "preflight"
	case routeApiForward:
		return "api"
	case routeImageForward:
		return "image"
	case routeInfo:
		return "info"
	default:
		return "not_found"
	}
}

const apiPrefix = "/api/"

// classifyRoute picks the edge branch for a request. First match wins, in the order of the checks below.
func classifyRoute(method, path string) routeKind {
	if method == http.MethodOptions {
		return routePreflight
	}
	if strings.HasPrefix(path, apiPrefix) {
		return routeApiForward
	}
	if path == "/image" || path == "/img" {
		return routeImageForward
	}
	if path == "/" || path == "" {
		return routeInfo
	}
	return routeNotFound
}
