package model

import (
	"time"
)

// Job 状态机：queued → processing → completed|failed
const (
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// 流水线阶段标签（processing 状态下的子状态）
const (
	PhaseChunking     = "chunking"
	PhaseTranscribing = "transcribing"
	PhaseSummarizing  = "summarizing"
	PhaseActionItems  = "action_items"
)

// Job 流水线的一次执行，始终挂在一个 Upload 下
type Job struct {
	BaseModel
	UploadID uint `gorm:"index;not null" json:"upload_id"`

	Status string  `gorm:"default:'queued';index" json:"status"`
	Phase  *string `json:"phase"`
	// 0-100，单调递增，终态时钉在 100
	Progress int `gorm:"default:0" json:"progress"`

	// 切片完成后才有值
	TotalChunks  *int `json:"total_chunks"`
	CurrentChunk *int `json:"current_chunk"`

	// 两个独立的富化意图
	Summarize           bool `gorm:"default:false" json:"summarize"`
	GenerateActionItems bool `gorm:"default:false" json:"generate_action_items"`

	// 模型覆盖：为空时用配置的默认模型
	LLMModel *string `gorm:"column:llm_model" json:"llm_model"`

	PromptSummaryID     *uint `json:"prompt_summary_id"`
	PromptActionItemsID *uint `json:"prompt_action_items_id"`

	// 仅失败时有值
	Error *string `json:"error"`

	StartedAt  *time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
}

// IsTerminal 终态后按约定不再写这行
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
