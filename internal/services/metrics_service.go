package services

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsService 管线运行指标
type MetricsService struct {
	documentsIngested  prometheus.Counter
	passagesIngested   prometheus.Counter
	ingestionFailures  *prometheus.CounterVec
	ingestionDuration  prometheus.Histogram
	retrievalRequests  prometheus.Counter
	retrievalEmpty     prometheus.Counter
	retrievalFailures  prometheus.Counter
	governorYields     prometheus.Counter
}

var (
	metricsOnce     sync.Once
	metricsInstance *MetricsService
)

// NewMetricsService 返回进程级单例，指标只注册一次
func NewMetricsService() *MetricsService {
	metricsOnce.Do(func() {
		metricsInstance = &MetricsService{
			documentsIngested: promauto.NewCounter(prometheus.CounterOpts{
				Name: "rag_documents_ingested_total",
				Help: "Total number of documents ingested successfully.",
			}),
			passagesIngested: promauto.NewCounter(prometheus.CounterOpts{
				Name: "rag_passages_ingested_total",
				Help: "Total number of passages embedded and persisted.",
			}),
			ingestionFailures: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "rag_ingestion_failures_total",
				Help: "Total number of ingestion failures by reason.",
			}, []string{"reason"}),
			ingestionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "rag_ingestion_duration_seconds",
				Help:    "Wall-clock duration of document ingestion.",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
			}),
			retrievalRequests: promauto.NewCounter(prometheus.CounterOpts{
				Name: "rag_retrieval_requests_total",
				Help: "Total number of similarity retrieval requests.",
			}),
			retrievalEmpty: promauto.NewCounter(prometheus.CounterOpts{
				Name: "rag_retrieval_empty_total",
				Help: "Retrieval requests where nothing cleared the threshold.",
			}),
			retrievalFailures: promauto.NewCounter(prometheus.CounterOpts{
				Name: "rag_retrieval_failures_total",
				Help: "Retrieval requests that failed at the search backend.",
			}),
			governorYields: promauto.NewCounter(prometheus.CounterOpts{
				Name: "rag_governor_yields_total",
				Help: "Times the memory governor forced a reclamation yield.",
			}),
		}
	})
	return metricsInstance
}

// RecordDocumentIngested 记录一次成功摄取
func (m *MetricsService) RecordDocumentIngested(passages int, duration time.Duration) {
	if m == nil {
		return
	}
	m.documentsIngested.Inc()
	m.passagesIngested.Add(float64(passages))
	m.ingestionDuration.Observe(duration.Seconds())
}

// RecordIngestionFailure 记录摄取失败
func (m *MetricsService) RecordIngestionFailure(reason string) {
	if m == nil {
		return
	}
	m.ingestionFailures.WithLabelValues(reason).Inc()
}

// RecordRetrieval 记录一次检索
func (m *MetricsService) RecordRetrieval(resultCount int) {
	if m == nil {
		return
	}
	m.retrievalRequests.Inc()
	if resultCount == 0 {
		m.retrievalEmpty.Inc()
	}
}

// RecordRetrievalFailure 记录检索失败
func (m *MetricsService) RecordRetrievalFailure() {
	if m == nil {
		return
	}
	m.retrievalFailures.Inc()
}

// RecordGovernorYield 记录一次内存压力让步
func (m *MetricsService) RecordGovernorYield() {
	if m == nil {
		return
	}
	m.governorYields.Inc()
}
