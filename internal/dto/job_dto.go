package dto

import (
	"time"
)

// JobStatusResp 轮询 Job 用的状态快照
type JobStatusResp struct {
	ID           uint       `json:"id"`
	UploadID     uint       `json:"upload_id"`
	Status       string     `json:"status"`
	Phase        *string    `json:"phase"`
	Progress     int        `json:"progress"`
	TotalChunks  *int       `json:"total_chunks"`
	CurrentChunk *int       `json:"current_chunk"`
	Error        *string    `json:"error"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at"`
}

type JobStats struct {
	Queued     int64 `json:"queued"`
	Processing int64 `json:"processing"`
	Active     int64 `json:"active"`
}
