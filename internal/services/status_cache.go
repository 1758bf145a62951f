package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DocumentStatus 文档处理状态
type DocumentStatus struct {
	Status       string `json:"status"` // processing | completed | failed
	PassageCount int    `json:"passage_count,omitempty"`
	Error        string `json:"error,omitempty"`
	UpdatedAt    string `json:"updated_at"`
}

// StatusCache 基于Redis的文档处理状态缓存。client为nil时所有操作静默跳过。
type StatusCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStatusCache 创建状态缓存
func NewStatusCache(client *redis.Client, ttl time.Duration) *StatusCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &StatusCache{client: client, ttl: ttl}
}

func statusKey(documentID uint) string {
	return fmt.Sprintf("rag:doc:status:%d", documentID)
}

// SetStatus 写入文档状态
func (c *StatusCache) SetStatus(ctx context.Context, documentID uint, status DocumentStatus) {
	if c == nil || c.client == nil {
		return
	}
	status.UpdatedAt = time.Now().Format(time.RFC3339)
	data, err := json.Marshal(status)
	if err != nil {
		return
	}
	c.client.SetEx(ctx, statusKey(documentID), string(data), c.ttl)
}

// GetStatus 读取文档状态，不存在时返回nil
func (c *StatusCache) GetStatus(ctx context.Context, documentID uint) *DocumentStatus {
	if c == nil || c.client == nil {
		return nil
	}
	val, err := c.client.Get(ctx, statusKey(documentID)).Result()
	if err != nil {
		return nil
	}
	var status DocumentStatus
	if err := json.Unmarshal([]byte(val), &status); err != nil {
		return nil
	}
	return &status
}

// Delete 删除文档状态
func (c *StatusCache) Delete(ctx context.Context, documentID uint) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Del(ctx, statusKey(documentID))
}

// CacheResults 缓存任意JSON可序列化的检索结果
func (c *StatusCache) CacheResults(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if c == nil || c.client == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.client.SetEx(ctx, key, string(data), ttl)
}

// GetResults 读取缓存的检索结果到dest
func (c *StatusCache) GetResults(ctx context.Context, key string, dest interface{}) bool {
	if c == nil || c.client == nil {
		return false
	}
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(val), dest) == nil
}
