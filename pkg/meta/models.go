package meta

import (
	"time"

	"gorm.io/datatypes"
)

// NodeRecord 是 core.Node 在关系型数据库中的投影
type NodeRecord struct {
	// ID 是主键；主键冲突就是“已存在”，由数据库保证同一 ID 只写一次
	ID string `gorm:"primaryKey;type:char(64)"`

	Type string `gorm:"type:varchar(32);not null"`

	// Blobs 是有序的 Blob ID 列表 ["hash1", "hash2", ...]
	Blobs datatypes.JSON `gorm:"not null"`

	CreatedAt time.Time
}

// TableName 强制指定表名
func (NodeRecord) TableName() string {
	return "nodes"
}
