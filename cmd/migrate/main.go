package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"

	"github.com/sirupsen/logrus"

	"github.com/docuchat/backend-go/internal/config"
	"github.com/docuchat/backend-go/internal/database"

	_ "github.com/lib/pq" // PostgreSQL driver
)

func main() {
	var action = flag.String("action", "up", "Migration action: up, down, version, force")
	var version = flag.Int("version", 0, "Target version for -action=force")
	var path = flag.String("path", "./migrations", "Path to migration files")
	flag.Parse()

	// 初始化配置
	if err := config.LoadConfig(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg := config.AppConfig

	// 连接数据库
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	// 创建日志器
	migrationLogger := logrus.New()
	migrationLogger.SetLevel(logrus.InfoLevel)

	// 创建迁移管理器
	migrationManager, err := database.NewMigrationManager(db, *path, migrationLogger)
	if err != nil {
		log.Fatalf("Failed to create migration manager: %v", err)
	}
	defer migrationManager.Close()

	switch *action {
	case "up":
		fmt.Println("Running migrations up...")
		if err := migrationManager.Up(); err != nil {
			log.Fatalf("Migration up failed: %v", err)
		}
		fmt.Println("Migrations applied successfully")
	case "down":
		fmt.Println("Rolling back last migration...")
		if err := migrationManager.Down(); err != nil {
			log.Fatalf("Migration down failed: %v", err)
		}
		fmt.Println("Rollback completed")
	case "version":
		v, dirty, err := migrationManager.Version()
		if err != nil {
			log.Fatalf("Failed to get migration version: %v", err)
		}
		fmt.Printf("Current version: %d (dirty: %v)\n", v, dirty)
	case "force":
		fmt.Printf("Forcing version to %d...\n", *version)
		if err := migrationManager.Force(*version); err != nil {
			log.Fatalf("Force version failed: %v", err)
		}
		fmt.Println("Version forced")
	default:
		log.Fatalf("Unknown action: %s", *action)
	}
}
