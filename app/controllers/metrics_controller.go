package controllers

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/docuchat/backend-go/app/bootstrap"
	"github.com/docuchat/backend-go/internal/di"
	"github.com/docuchat/backend-go/internal/rag"
)

// MetricsController 指标与健康检查控制器
type MetricsController struct {
	BaseController
}

// Metrics 返回Prometheus格式的指标
func (c *MetricsController) Metrics() {
	promhttp.Handler().ServeHTTP(c.Ctx.ResponseWriter, c.Ctx.Request)
}

// Health 健康检查：数据库、向量化服务、向量存储与内存压力
func (c *MetricsController) Health() {
	status := map[string]interface{}{
		"status": "ok",
	}

	if app := bootstrap.GetApp(); app != nil {
		dbHealth := app.HealthStatus()
		status["database"] = map[string]interface{}{
			"healthy":      dbHealth.Healthy,
			"last_checked": dbHealth.LastChecked,
		}
		if !dbHealth.Healthy {
			status["status"] = "degraded"
		}
	}

	_ = di.Invoke(func(embedder rag.Embedder, store rag.VectorStore, governor *rag.Governor) {
		status["embedder_ready"] = embedder.Ready()
		status["vector_store_ready"] = store.Ready()
		status["memory_pressure"] = governor.Pressure().String()
		if !store.Ready() {
			status["status"] = "degraded"
		}
	})

	code := http.StatusOK
	if status["status"] != "ok" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}
