package main

import (
	"log"
	"os"
	"strconv"

	"github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"

	"github.com/docuchat/backend-go/app/bootstrap"
	"github.com/docuchat/backend-go/app/router"
	"github.com/docuchat/backend-go/internal/logger"
)

func main() {
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	if p, err := strconv.Atoi(port); err == nil {
		web.BConfig.Listen.HTTPPort = p
	} else {
		web.BConfig.Listen.HTTPPort = 8080
	}

	app, err := bootstrap.Init()
	if err != nil {
		log.Fatalf("failed to bootstrap application: %v", err)
	}
	defer app.Shutdown()
	bootstrap.SetGlobalApp(app)

	router.Init()

	web.BConfig.AppName = "Document Retrieval Service"
	web.BConfig.CopyRequestBody = true

	logger.Info("starting document retrieval service", zap.Int("port", web.BConfig.Listen.HTTPPort))
	web.Run()
}
