package dto

import (
	"encoding/json"
	"time"
)

// UploadListItem 列表页只给轻量字段
type UploadListItem struct {
	ID               uint      `json:"id"`
	DisplayName      string    `json:"display_name"`
	OriginalFilename string    `json:"original_filename"`
	CreatedAt        time.Time `json:"created_at"`
	DurationSeconds  *float64  `json:"duration_seconds"`
	Language         *string   `json:"language"`
}

// UploadDetail 详情页带上转写全文和 LLM 结果
type UploadDetail struct {
	ID               uint            `json:"id"`
	DisplayName      string          `json:"display_name"`
	OriginalFilename string          `json:"original_filename"`
	CreatedAt        time.Time       `json:"created_at"`
	DurationSeconds  *float64        `json:"duration_seconds"`
	Language         *string         `json:"language"`
	Summary          *string         `json:"summary"`
	ActionItems      json.RawMessage `json:"action_items"`
	TranscriptText   *string         `json:"transcript_text"`
}

type UploadCreateResp struct {
	UploadID uint `json:"upload_id"`
	JobID    uint `json:"job_id"`
}

type UploadRenameReq struct {
	DisplayName string `json:"display_name" binding:"required"`
}

type UploadReprocessReq struct {
	Summarize   bool   `json:"summarize"`
	ActionItems bool   `json:"action_items"`
	LLMModel    string `json:"llm_model"`
}

type UploadReprocessResp struct {
	UploadID uint `json:"upload_id"`
	JobID    uint `json:"job_id"`
}

type TranscriptSegmentOut struct {
	ID        uint    `json:"id"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Text      string  `json:"text"`
}
