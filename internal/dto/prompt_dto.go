package dto

import (
	"time"
)

type PromptOut struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Content   string    `json:"content"`
	IsDefault bool      `json:"is_default"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PromptUpdateReq 三个字段都可选，nil 表示不改
type PromptUpdateReq struct {
	Name      *string `json:"name"`
	Content   *string `json:"content"`
	IsDefault *bool   `json:"is_default"`
}
