package di

import (
	"fmt"
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/docuchat/backend-go/internal/config"
	"github.com/docuchat/backend-go/internal/database"
	"github.com/docuchat/backend-go/internal/kafka"
	"github.com/docuchat/backend-go/internal/logger"
	"github.com/docuchat/backend-go/internal/rag"
	"github.com/docuchat/backend-go/internal/services"
	"github.com/docuchat/backend-go/internal/storage"
)

// RegisterProviders 注册所有依赖提供者
func RegisterProviders(container *dig.Container) error {
	// 注册配置
	if err := container.Provide(func() (*config.Config, error) {
		cfg := config.AppConfig
		if cfg == nil {
			return nil, fmt.Errorf("config not loaded")
		}
		return cfg, nil
	}); err != nil {
		return err
	}

	// 注册数据库连接
	if err := container.Provide(func() (*gorm.DB, error) {
		if database.DB == nil {
			return nil, fmt.Errorf("database not initialized")
		}
		return database.DB, nil
	}); err != nil {
		return err
	}

	// 注册内存压力调节器
	if err := container.Provide(func(cfg *config.Config) *rag.Governor {
		return rag.NewGovernor(rag.GovernorOptions{
			WorkingSetBytes: cfg.Governor.WorkingSetBytes,
			ElevatedRatio:   cfg.Governor.ElevatedRatio,
			CriticalRatio:   cfg.Governor.CriticalRatio,
			YieldDelay:      time.Duration(cfg.Governor.YieldMilliseconds) * time.Millisecond,
		})
	}); err != nil {
		return err
	}

	// 注册分块器
	if err := container.Provide(func(cfg *config.Config) *rag.Chunker {
		return rag.NewChunker(cfg.Ingestion.ChunkSize, cfg.Ingestion.ChunkOverlap)
	}); err != nil {
		return err
	}

	// 注册向量化服务
	if err := container.Provide(func(cfg *config.Config) rag.Embedder {
		return rag.NewOpenAIEmbedder(cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.Dimensions)
	}); err != nil {
		return err
	}

	// 注册向量存储：milvus不可用时退回数据库实现
	if err := container.Provide(func(cfg *config.Config, db *gorm.DB, embedder rag.Embedder) rag.VectorStore {
		if cfg.VectorStore.Provider == "milvus" {
			store, err := rag.NewMilvusVectorStore(rag.MilvusOptions{
				Address:    cfg.VectorStore.Milvus.Address,
				Username:   cfg.VectorStore.Milvus.Username,
				Password:   cfg.VectorStore.Milvus.Password,
				Collection: cfg.VectorStore.Milvus.Collection,
				Database:   cfg.VectorStore.Milvus.Database,
				UseTLS:     cfg.VectorStore.Milvus.TLS,
				VectorSize: embedder.Dimensions(),
				Distance:   cfg.VectorStore.Milvus.Distance,
			})
			if err != nil {
				logger.Warn("Milvus unavailable, falling back to database vector store", zap.Error(err))
			} else {
				return store
			}
		}
		return rag.NewDatabaseVectorStore(db)
	}); err != nil {
		return err
	}

	// 注册PDF解析器
	if err := container.Provide(func(chunker *rag.Chunker, governor *rag.Governor) rag.Extractor {
		return rag.NewPDFExtractor(chunker, governor)
	}); err != nil {
		return err
	}

	// 注册对象存储（可选，失败时为nil）
	if err := container.Provide(func(cfg *config.Config) *storage.ObjectStore {
		store, err := storage.NewObjectStore(cfg.Storage)
		if err != nil {
			logger.Warn("Object storage unavailable", zap.Error(err))
			return nil
		}
		return store
	}); err != nil {
		return err
	}

	// 注册Kafka生产者（未启用时为nil，服务层对nil安全）
	if err := container.Provide(func(cfg *config.Config) *kafka.Producer {
		if !cfg.Kafka.Enabled {
			return nil
		}
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			logger.Warn("Kafka unavailable, document events disabled", zap.Error(err))
			return nil
		}
		return producer
	}); err != nil {
		return err
	}

	// 注册状态缓存与指标
	if err := container.Provide(func(cfg *config.Config) *services.StatusCache {
		return services.NewStatusCache(database.RedisClient, time.Duration(cfg.Redis.TTL)*time.Second)
	}); err != nil {
		return err
	}

	if err := container.Provide(services.NewMetricsService); err != nil {
		return err
	}

	// 注册业务服务
	if err := container.Provide(func(cfg *config.Config, db *gorm.DB, embedder rag.Embedder, store rag.VectorStore, governor *rag.Governor, chunker *rag.Chunker, producer *kafka.Producer, status *services.StatusCache, metrics *services.MetricsService) *services.IngestService {
		return services.NewIngestService(services.IngestServiceOptions{
			DB:          db,
			Embedder:    embedder,
			VectorStore: store,
			Governor:    governor,
			Chunker:     chunker,
			Producer:    producer,
			Status:      status,
			Metrics:     metrics,
			BatchSize:   cfg.Ingestion.BatchSize,
			Timeout:     time.Duration(cfg.Ingestion.TimeoutSec) * time.Second,
		})
	}); err != nil {
		return err
	}

	if err := container.Provide(func(cfg *config.Config, db *gorm.DB, embedder rag.Embedder, store rag.VectorStore, status *services.StatusCache, metrics *services.MetricsService) *services.RetrievalService {
		return services.NewRetrievalService(db, embedder, store, status, metrics, cfg.Retrieval)
	}); err != nil {
		return err
	}

	if err := container.Provide(func(db *gorm.DB, store rag.VectorStore, producer *kafka.Producer, status *services.StatusCache) *services.DocumentService {
		return services.NewDocumentService(db, store, producer, status)
	}); err != nil {
		return err
	}

	return nil
}
