package model

import (
	"gorm.io/datatypes"
)

// Upload 一条上传的音频记录，转写/摘要结果回填到这里
type Upload struct {
	BaseModel
	OriginalFilename string `gorm:"not null" json:"original_filename"`
	DisplayName      string `gorm:"not null" json:"display_name"`

	// 落盘路径：<upload_dir>/<id>/<uuid>.<ext>，建行时先留空，写完字节再回填
	StoredPath  string `gorm:"not null" json:"-"`
	ContentType string `json:"content_type"`
	SizeBytes   *int64 `json:"size_bytes"`

	// 流水线回填字段
	DurationSeconds *float64 `json:"duration_seconds"`
	Language        *string  `json:"language"`

	// LLM 结果（可选）
	Summary *string `json:"summary"`
	// 动作项：要么是 JSON 数组，要么是 {"raw": "..."} 兜底
	ActionItems datatypes.JSON `json:"action_items"`

	Jobs       []Job               `gorm:"foreignKey:UploadID;constraint:OnDelete:CASCADE" json:"-"`
	Transcript *Transcript         `gorm:"foreignKey:UploadID;constraint:OnDelete:CASCADE" json:"-"`
	Segments   []TranscriptSegment `gorm:"foreignKey:UploadID;constraint:OnDelete:CASCADE" json:"-"`
}
