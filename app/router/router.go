package router

import (
	"github.com/beego/beego/v2/server/web"

	"github.com/docuchat/backend-go/app/controllers"
)

// Init registers all routes. Must be called after config is loaded.
func Init() {
	metricsController := &controllers.MetricsController{}
	web.Router("/health", metricsController, "get:Health")
	web.Router("/metrics", metricsController, "get:Metrics")

	documentController := &controllers.DocumentController{}
	web.Router("/api/documents", documentController, "get:List;post:Ingest")
	// 注意：具体路由必须在参数路由之前注册
	web.Router("/api/documents/upload", documentController, "post:Upload")
	web.Router("/api/documents/:id", documentController, "get:Get;delete:Delete")
	web.Router("/api/documents/:id/status", documentController, "get:Status")

	retrievalController := &controllers.RetrievalController{}
	web.Router("/api/retrieve", retrievalController, "post:Retrieve")
	web.Router("/api/citations/render", retrievalController, "post:RenderCitations")
}
