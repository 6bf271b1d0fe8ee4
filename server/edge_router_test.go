package server

import (
	"encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"weibo_relay/dto"
	"weibo_relay/logic"
	"weibo_relay/shared"
	"weibo_relay/test"
	"weibo_relay/test/mocks"
	"weibo_relay/texts"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type seenRequest struct {
	method   string
	path     string
	rawQuery string
	header   http.Header
	body     string
}

type upstreamFake struct {
	mu      sync.Mutex
	seen    []seenRequest
	handler http.HandlerFunc
}

func (uf *upstreamFake) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	uf.mu.Lock()
	uf.seen = append(uf.seen, seenRequest{r.Method, r.URL.EscapedPath(), r.URL.RawQuery, r.Header.Clone(), string(body)})
	uf.mu.Unlock()
	uf.handler(w, r)
}

func (uf *upstreamFake) requests() []seenRequest {
	uf.mu.Lock()
	defer uf.mu.Unlock()
	return append([]seenRequest{}, uf.seen...)
}

type edgeEnv struct {
	cfg      *shared.Config
	upstream *httptest.Server
	fake     *upstreamFake
	handler  http.Handler
}

func (env *edgeEnv) serve(method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	return rr
}

// setupEdge wires the router against a fake upstream. expect, if given, registers
// metrics expectations ahead of the catch-all stubs.
func setupEdge(t *testing.T, secret string, handler http.HandlerFunc, expect func(*mocks.MockIMetrics)) *edgeEnv {
	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockILogger(ctrl)
	test.StubLogger(mockLogger)
	mockMetrics := mocks.NewMockIMetrics(ctrl)
	if expect != nil {
		expect(mockMetrics)
	}
	test.StubMetrics(mockMetrics)

	fake := &upstreamFake{handler: handler}
	upstream := httptest.NewServer(fake)
	t.Cleanup(upstream.Close)

	cfg := &shared.Config{
		UpstreamApiBase: upstream.URL,
		ImageDomains:    append([]string{"127.0.0.1"}, shared.DefaultImageDomains...),
	}
	cfg.Secrets.MetricsAuth = secret
	cfg.ApplyDefaults()

	userAgent := shared.NewUserAgent(cfg)
	forwarder := logic.NewForwarder(cfg, mockLogger, userAgent, mockMetrics)
	edge := NewEdgeRouter(cfg, mockLogger, mockMetrics, forwarder, texts.NewTexts())
	groups := []IHandlerGroup{NewMetricsHandlerGroup(cfg, mockLogger)}
	return &edgeEnv{
		cfg:      cfg,
		upstream: upstream,
		fake:     fake,
		handler:  allowOriginHandler(NewMux(groups, edge)),
	}
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) dto.ErrorResp {
	t.Helper()
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var res dto.ErrorResp
	require.Nil(t, json.Unmarshal(rr.Body.Bytes(), &res))
	return res
}

func jsonUpstream(code int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(code)
		io.WriteString(w, body)
	}
}

func TestClassifyRoute(t *testing.T) {
	cases := []struct {
		method string
		path   string
		want   routeKind
	}{
		{"OPTIONS", "/anything", routePreflight},
		{"OPTIONS", "/api/container/getIndex", routePreflight},
		{"OPTIONS", "*", routePreflight},
		{"GET", "/api/container/getIndex", routeApiForward},
		{"POST", "/api/", routeApiForward},
		{"GET", "/api", routeNotFound},
		{"GET", "/apix/y", routeNotFound},
		{"GET", "/image", routeImageForward},
		{"GET", "/img", routeImageForward},
		{"GET", "/image/", routeNotFound},
		{"GET", "/images", routeNotFound},
		{"GET", "/", routeInfo},
		{"POST", "/", routeInfo},
		{"GET", "", routeInfo},
		{"GET", "/favicon.ico", routeNotFound},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, classifyRoute(c.method, c.path), "%s %s", c.method, c.path)
	}
}

func TestEdge_Preflight(t *testing.T) {
	env := setupEdge(t, "s3cret", jsonUpstream(200, "{}"), nil)

	for _, target := range []string{"/", "/api/container/getIndex", "/image?url=x", "/metrics", "/nope"} {
		rr := env.serve("OPTIONS", target, nil)
		assert.Equal(t, http.StatusNoContent, rr.Code, target)
		assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "GET, POST, OPTIONS", rr.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "Content-Type", rr.Header().Get("Access-Control-Allow-Headers"))
		assert.Equal(t, "86400", rr.Header().Get("Access-Control-Max-Age"))
		assert.Equal(t, 0, rr.Body.Len())
	}
	assert.Empty(t, env.fake.requests())
}

func TestEdge_ApiForward(t *testing.T) {
	env := setupEdge(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("X-Log-Uuid", "abc")
		w.Header().Set("Keep-Alive", "timeout=5")
		w.Header().Set("Access-Control-Allow-Origin", "https://m.weibo.cn")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, `{"ok":1,"data":{}}`)
	}, nil)

	target := "/api/container/getIndex?type=uid&value=6052726496&containerid=1005056052726496"
	rr := env.serve("GET", target, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `{"ok":1,"data":{}}`, rr.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, "abc", rr.Header().Get("X-Log-Uuid"))
	assert.Empty(t, rr.Header().Get("Keep-Alive"))
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, OPTIONS", rr.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", rr.Header().Get("Access-Control-Allow-Headers"))

	seen := env.fake.requests()
	require.Len(t, seen, 1)
	assert.Equal(t, "GET", seen[0].method)
	assert.Equal(t, "/api/container/getIndex", seen[0].path)
	assert.Equal(t, "type=uid&value=6052726496&containerid=1005056052726496", seen[0].rawQuery)
	assert.Equal(t, shared.BrowserUserAgent, seen[0].header.Get("User-Agent"))
	assert.Equal(t, "https://m.weibo.cn/", seen[0].header.Get("Referer"))
	assert.Equal(t, "application/json, text/plain, */*", seen[0].header.Get("Accept"))
	assert.Equal(t, "zh-CN,zh;q=0.9,en;q=0.8", seen[0].header.Get("Accept-Language"))
}

func TestEdge_ApiForward_VerbatimPath(t *testing.T) {
	env := setupEdge(t, "", jsonUpstream(200, "{}"), nil)

	env.serve("GET", "/api/a//b/../c", nil)
	env.serve("GET", "/api/x%2Fy?q=%E5%BE%AE%E5%8D%9A", nil)
	seen := env.fake.requests()
	require.Len(t, seen, 2)
	assert.Equal(t, "/api/a//b/../c", seen[0].path)
	assert.Equal(t, "/api/x%2Fy", seen[1].path)
	assert.Equal(t, "q=%E5%BE%AE%E5%8D%9A", seen[1].rawQuery)
}

func TestEdge_ApiForward_StatusAndBody(t *testing.T) {
	env := setupEdge(t, "", jsonUpstream(http.StatusTeapot, `{"ok":0,"msg":"nope"}`), func(m *mocks.MockIMetrics) {
		m.EXPECT().UpstreamStatus(logic.LabelApi, http.StatusTeapot).Times(1)
	})

	rr := env.serve("GET", "/api/container/getIndex?x=1", nil)
	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, `{"ok":0,"msg":"nope"}`, rr.Body.String())
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestEdge_ApiForward_Post(t *testing.T) {
	env := setupEdge(t, "", jsonUpstream(200, "{}"), nil)

	rr := env.serve("POST", "/api/comments/create", strings.NewReader("content=hi&mid=1"))
	assert.Equal(t, http.StatusOK, rr.Code)

	req := httptest.NewRequest("POST", "/api/config", strings.NewReader(`{"a":1}`))
	req.Header.Set("Content-Type", "application/json")
	rr = httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	seen := env.fake.requests()
	require.Len(t, seen, 2)
	assert.Equal(t, "POST", seen[0].method)
	assert.Equal(t, "content=hi&mid=1", seen[0].body)
	assert.Equal(t, `{"a":1}`, seen[1].body)
	assert.Equal(t, "application/json", seen[1].header.Get("Content-Type"))
}

func TestEdge_ApiForward_TransportFailure(t *testing.T) {
	env := setupEdge(t, "", jsonUpstream(200, "{}"), nil)
	env.upstream.Close()

	rr := env.serve("GET", "/api/container/getIndex?x=1", nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	errResp := decodeError(t, rr)
	assert.Equal(t, "API proxy failed", errResp.Error)
	assert.NotEmpty(t, errResp.Message)
}

func imageTarget(rawUrl string) string {
	return "/image?url=" + url.QueryEscape(rawUrl)
}

func TestEdge_Image_Missing(t *testing.T) {
	env := setupEdge(t, "", jsonUpstream(200, "{}"), nil)

	for _, target := range []string{"/image", "/img", "/image?url=", "/img?other=1"} {
		rr := env.serve("GET", target, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code, target)
		assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, dto.ErrorResp{Error: "Missing image URL parameter"}, decodeError(t, rr))
	}
	assert.Empty(t, env.fake.requests())
}

func TestEdge_Image_Forbidden(t *testing.T) {
	env := setupEdge(t, "", jsonUpstream(200, "{}"), nil)

	for _, rawUrl := range []string{
		"https://evil.example/x.jpg",
		"https://example.com/sinaimg.jpg",
		"not a url at all",
		"http://[::1",
		"ftp://wx1.sinaimg.cn/x.jpg",
		"/large/x.jpg",
	} {
		rr := env.serve("GET", imageTarget(rawUrl), nil)
		assert.Equal(t, http.StatusForbidden, rr.Code, rawUrl)
		assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, dto.ErrorResp{Error: "Invalid image domain"}, decodeError(t, rr))
	}
	assert.Empty(t, env.fake.requests())
}

func TestEdge_Image_AllowList(t *testing.T) {
	er := &edgeRouter{cfg: &shared.Config{ImageDomains: shared.DefaultImageDomains}}
	assert.True(t, er.isAllowedImage("https://wx1.sinaimg.cn/large/x.jpg"))
	assert.True(t, er.isAllowedImage("https://n.sinaimg.cn/x.jpg"))
	assert.True(t, er.isAllowedImage("http://www.sina.cn/x.png"))
	assert.True(t, er.isAllowedImage("https://weibo.com/x.png"))
	assert.True(t, er.isAllowedImage("https://f.video.weibocdn.com/x.jpg"))
	assert.True(t, er.isAllowedImage("https://WX1.SINAIMG.CN/x.jpg"))
	assert.False(t, er.isAllowedImage("https://sinaimg.example/x.jpg"))
	assert.False(t, er.isAllowedImage("https://example.com/?h=sinaimg.cn"))
}

func TestEdge_Image_Success(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\nfakeimage")
	env := setupEdge(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Set-Cookie", "tracking=1")
		w.Write(png)
	}, func(m *mocks.MockIMetrics) {
		m.EXPECT().ImageBytesRelayed(int64(len(png))).Times(1)
	})

	rr := env.serve("GET", imageTarget(env.upstream.URL+"/large/x.png?a=1"), nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, png, rr.Body.Bytes())
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=31536000", rr.Header().Get("Cache-Control"))
	assert.Equal(t, "public, max-age=31536000", rr.Header().Get("CDN-Cache-Control"))
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rr.Header().Get("Set-Cookie"))

	seen := env.fake.requests()
	require.Len(t, seen, 1)
	assert.Equal(t, "GET", seen[0].method)
	assert.Equal(t, "/large/x.png", seen[0].path)
	assert.Equal(t, "a=1", seen[0].rawQuery)
	assert.Equal(t, "https://weibo.com/", seen[0].header.Get("Referer"))
	assert.Equal(t, shared.BrowserUserAgent, seen[0].header.Get("User-Agent"))
}

func TestEdge_Image_DefaultContentType(t *testing.T) {
	env := setupEdge(t, "", func(w http.ResponseWriter, r *http.Request) {
		// Suppress content sniffing
		w.Header()["Content-Type"] = nil
		w.Write([]byte("rawbytes"))
	}, nil)

	rr := env.serve("GET", "/img?url="+url.QueryEscape(env.upstream.URL+"/x"), nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/jpeg", rr.Header().Get("Content-Type"))
	assert.Equal(t, "rawbytes", rr.Body.String())
}

func TestEdge_Image_UpstreamError(t *testing.T) {
	env := setupEdge(t, "", jsonUpstream(http.StatusNotFound, `{"gone":true}`), nil)

	rr := env.serve("GET", imageTarget(env.upstream.URL+"/missing.jpg"), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, dto.ErrorResp{Error: "Failed to fetch image", Status: 404}, decodeError(t, rr))
}

func TestEdge_Image_TransportFailure(t *testing.T) {
	env := setupEdge(t, "", jsonUpstream(200, "{}"), nil)
	env.upstream.Close()

	rr := env.serve("GET", imageTarget(env.upstream.URL+"/x.jpg"), nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	errResp := decodeError(t, rr)
	assert.Equal(t, "Image proxy failed", errResp.Error)
	assert.NotEmpty(t, errResp.Message)
}

func TestEdge_Image_RedirectOffAllowList(t *testing.T) {
	var offListHits sync.Map
	offList := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offListHits.Store(r.URL.Path, true)
		w.Write([]byte("internal"))
	}))
	t.Cleanup(offList.Close)
	_, port, _ := strings.Cut(strings.TrimPrefix(offList.URL, "http://"), ":")

	env := setupEdge(t, "", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/moved.jpg" {
			http.Redirect(w, r, "/large/x.jpg", http.StatusFound)
			return
		}
		if r.URL.Path == "/escape.jpg" {
			http.Redirect(w, r, "http://localhost:"+port+"/secret", http.StatusFound)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("img"))
	}, func(m *mocks.MockIMetrics) {
		m.EXPECT().ImageBytesRelayed(int64(3)).Times(1)
	})

	rr := env.serve("GET", imageTarget(env.upstream.URL+"/moved.jpg"), nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "img", rr.Body.String())

	rr = env.serve("GET", imageTarget(env.upstream.URL+"/escape.jpg"), nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, dto.ErrorResp{Error: "Invalid image domain"}, decodeError(t, rr))
	_, hit := offListHits.Load("/secret")
	assert.False(t, hit)
}

func TestEdge_Info(t *testing.T) {
	env := setupEdge(t, "", jsonUpstream(200, "{}"), nil)

	for _, method := range []string{"GET", "POST"} {
		rr := env.serve(method, "/", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
		assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rr.Body.String(), "\n  \"name\"")

		var info struct {
			Name      string `json:"name"`
			Version   string `json:"version"`
			Endpoints map[string]struct {
				Path        string `json:"path"`
				Description string `json:"description"`
				Example     string `json:"example"`
			} `json:"endpoints"`
		}
		require.Nil(t, json.Unmarshal(rr.Body.Bytes(), &info))
		assert.Equal(t, "Weibo Proxy Service", info.Name)
		assert.Equal(t, "1.0.0", info.Version)
		assert.Equal(t, "/api/*", info.Endpoints["api"].Path)
		assert.Equal(t, "/image?url=<image_url>", info.Endpoints["image"].Path)
		assert.NotEmpty(t, info.Endpoints["image"].Example)
	}
	assert.Empty(t, env.fake.requests())
}

func TestEdge_NotFound(t *testing.T) {
	env := setupEdge(t, "", jsonUpstream(200, "{}"), nil)

	for _, target := range []string{"/favicon.ico", "/api", "/image/x", "/metrics"} {
		rr := env.serve("GET", target, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code, target)
		assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, dto.ErrorResp{
			Error:   "Not Found",
			Message: "Invalid endpoint. Use /api/* for API proxy or /image?url=<url> for image proxy.",
		}, decodeError(t, rr))
	}
	assert.Empty(t, env.fake.requests())
}

func TestMetrics_Auth(t *testing.T) {
	env := setupEdge(t, "s3cret", jsonUpstream(200, "{}"), nil)

	rr := env.serve("GET", "/metrics", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest("GET", "/metrics", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rr = httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req = httptest.NewRequest("GET", "/metrics", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rr = httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))

	// Other methods on the path are the edge router's
	rr = env.serve("POST", "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
