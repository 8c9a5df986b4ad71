package model

import (
	"time"
)

// BaseModel 替代 gorm.Model，方便自定义 JSON tag
// 注意：这里不带软删除，Upload 删除是真删（级联清掉转写结果）
type BaseModel struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
