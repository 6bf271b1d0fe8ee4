package logic

import (
	"github.com/prometheus/client_golang/prometheus"
	"strconv"
	"time"
	"weibo_relay/shared"
)

//go:generate mockgen --build_flags=--mod=mod -destination ../test/mocks/mock_metrics.go -package mocks weibo_relay/logic IMetrics

type IMetrics interface {
	StartEdgeRequestIn(label string) IRequestObserver
	StartUpstreamRequestOut(label string) IRequestObserver
	UpstreamStatus(label string, code int)
	ImageBytesRelayed(count int64)
	ServiceStarted()
}

type IRequestObserver interface {
	Finish()
}

type metrics struct {
	cfg                *shared.Config
	edgeRequestsIn     *prometheus.HistogramVec
	upstreamRequestOut *prometheus.HistogramVec
	upstreamStatuses   *prometheus.CounterVec
	imageBytesRelayed  prometheus.Counter
	serviceStarted     prometheus.Counter
}

func NewMetrics(cfg *shared.Config) IMetrics {

	res := metrics{}
	res.cfg = cfg

	res.edgeRequestsIn = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "edge_requests_in_duration",
		Help: "Duration in seconds of edge requests served, by route.",
	}, []string{"label"})
	prometheus.Register(res.edgeRequestsIn)

	res.upstreamRequestOut = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "upstream_requests_out_duration",
		Help: "Duration in seconds until upstream response headers arrived.",
	}, []string{"label"})
	prometheus.Register(res.upstreamRequestOut)

	res.upstreamStatuses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_responses",
		Help: "Upstream responses relayed, by kind and status code",
	}, []string{"label", "code"})
	prometheus.Register(res.upstreamStatuses)

	res.imageBytesRelayed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "image_bytes_relayed",
		Help: "Bytes of image data streamed to clients",
	})
	prometheus.Register(res.imageBytesRelayed)

	res.serviceStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "service_started",
		Help: "Service has started up",
	})
	prometheus.Register(res.serviceStarted)

	return &res
}

type requestObserver struct {
	label string
	start time.Time
	hgvec *prometheus.HistogramVec
}

func (ro *requestObserver) Finish() {
	elapsed := time.Since(ro.start).Seconds()
	ro.hgvec.WithLabelValues(ro.label).Observe(elapsed)
}

func (m *metrics) StartEdgeRequestIn(label string) IRequestObserver {
	return &requestObserver{label, time.Now(), m.edgeRequestsIn}
}

func (m *metrics) StartUpstreamRequestOut(label string) IRequestObserver {
	return &requestObserver{label, time.Now(), m.upstreamRequestOut}
}

func (m *metrics) UpstreamStatus(label string, code int) {
	m.upstreamStatuses.WithLabelValues(label, strconv.Itoa(code)).Add(1)
}

func (m *metrics) ImageBytesRelayed(count int64) {
	m.imageBytesRelayed.Add(float64(count))
}

func (m *metrics) ServiceStarted() {
	m.serviceStarted.Add(1)
}
