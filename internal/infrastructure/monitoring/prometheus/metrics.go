package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds the metrics shared by the patentdoc binaries.
type AppMetrics struct {
	// HTTP
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPRequestSize     HistogramVec

	// gRPC
	GRPCRequestsTotal   CounterVec
	GRPCRequestDuration HistogramVec

	// Corpus
	DocumentsParsedTotal     CounterVec
	ParseDuration            HistogramVec
	FieldWarningsTotal       CounterVec
	ClassificationMatchTotal CounterVec
	SinkErrorsTotal          CounterVec

	// Infrastructure
	CacheRequestsTotal     CounterVec
	MessageProcessDuration HistogramVec
	HealthCheckStatus      GaugeVec
}

var (
	DefaultHTTPDurationBuckets  = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultParseDurationBuckets = []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1}
	DefaultSizeBuckets          = []float64{1 << 10, 16 << 10, 128 << 10, 1 << 20, 4 << 20, 16 << 20}
)

// NewAppMetrics registers every metric on collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPRequestSize = collector.RegisterHistogram("http_request_size_bytes", "HTTP request size", DefaultSizeBuckets, "method", "path")

	m.GRPCRequestsTotal = collector.RegisterCounter("grpc_requests_total", "Total gRPC calls", "service", "method", "code")
	m.GRPCRequestDuration = collector.RegisterHistogram("grpc_request_duration_seconds", "gRPC call duration", DefaultHTTPDurationBuckets, "service", "method")

	m.DocumentsParsedTotal = collector.RegisterCounter("documents_parsed_total", "Documents run through a format parser", "format", "status")
	m.ParseDuration = collector.RegisterHistogram("parse_duration_seconds", "Time spent parsing one document", DefaultParseDurationBuckets, "format")
	m.FieldWarningsTotal = collector.RegisterCounter("field_warnings_total", "Fields left absent because their value was invalid", "format", "field")
	m.ClassificationMatchTotal = collector.RegisterCounter("classification_matches_total", "Documents selected by the classification matcher", "provenance")
	m.SinkErrorsTotal = collector.RegisterCounter("sink_errors_total", "Failed writes of matched documents", "sink")

	m.CacheRequestsTotal = collector.RegisterCounter("cache_requests_total", "Parse cache lookups", "cache", "result")
	m.MessageProcessDuration = collector.RegisterHistogram("mq_process_duration_seconds", "Message processing duration", DefaultHTTPDurationBuckets, "topic", "status")
	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")

	return m
}

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(metrics *AppMetrics, method, path string, statusCode int, duration time.Duration, reqSize int64) {
	metrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	if reqSize >= 0 {
		metrics.HTTPRequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	}
}

// RecordGRPCRequest records one finished unary call or stream.
func RecordGRPCRequest(metrics *AppMetrics, service, method, code string, duration time.Duration) {
	metrics.GRPCRequestsTotal.WithLabelValues(service, method, code).Inc()
	metrics.GRPCRequestDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

func RecordCacheAccess(metrics *AppMetrics, cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	metrics.CacheRequestsTotal.WithLabelValues(cache, result).Inc()
}

func RecordMessage(metrics *AppMetrics, topic string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.MessageProcessDuration.WithLabelValues(topic, status).Observe(duration.Seconds())
}

func RecordHealth(metrics *AppMetrics, component string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	metrics.HealthCheckStatus.WithLabelValues(component).Set(v)
}

// CorpusMetrics feeds corpus builder counters into AppMetrics.
type CorpusMetrics struct {
	m *AppMetrics
}

func NewCorpusMetrics(m *AppMetrics) *CorpusMetrics {
	return &CorpusMetrics{m: m}
}

func (c *CorpusMetrics) ObserveParse(format, status string, d time.Duration) {
	c.m.DocumentsParsedTotal.WithLabelValues(format, status).Inc()
	c.m.ParseDuration.WithLabelValues(format).Observe(d.Seconds())
}

func (c *CorpusMetrics) IncFieldWarning(format, field string) {
	c.m.FieldWarningsTotal.WithLabelValues(format, field).Inc()
}

func (c *CorpusMetrics) IncMatch(provenance string) {
	c.m.ClassificationMatchTotal.WithLabelValues(provenance).Inc()
}

func (c *CorpusMetrics) IncSinkError(sink string) {
	c.m.SinkErrorsTotal.WithLabelValues(sink).Inc()
}

//Personal.AI order the ending
