package models

import "time"

// Document 已摄取的文档
type Document struct {
	DocumentID uint      `gorm:"primaryKey;column:document_id" json:"document_id"`
	Title      string    `gorm:"size:500;not null" json:"title"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Source     string    `gorm:"size:500" json:"source"`
	Metadata   string    `gorm:"type:json" json:"metadata"`
	OwnerID    uint      `gorm:"column:owner_id;not null;index" json:"owner_id"`
	Status     string    `gorm:"size:20;default:processing" json:"status"`
	CreateTime time.Time `gorm:"column:create_time" json:"create_time"`
	UpdateTime time.Time `gorm:"column:update_time" json:"update_time"`

	// 关系：删除文档时级联删除段落
	Passages []Passage `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE"`
}

func (Document) TableName() string {
	return "documents"
}

// Passage 文档段落（向量化与检索的最小单元）
type Passage struct {
	PassageID  uint      `gorm:"primaryKey;column:passage_id" json:"passage_id"`
	DocumentID uint      `gorm:"column:document_id;not null;index" json:"document_id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	ChunkIndex int       `gorm:"column:chunk_index;not null;index" json:"chunk_index"`
	Embedding  string    `gorm:"type:json" json:"embedding"`
	VectorID   string    `gorm:"size:255" json:"vector_id"`
	Metadata   string    `gorm:"type:json" json:"metadata"`
	CreateTime time.Time `gorm:"column:create_time" json:"create_time"`
}

func (Passage) TableName() string {
	return "passages"
}
