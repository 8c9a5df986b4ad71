package model

// Transcript 每个 Upload 至多一条，存拼接后的全文
type Transcript struct {
	BaseModel
	UploadID uint   `gorm:"uniqueIndex;not null" json:"upload_id"`
	Text     string `gorm:"type:text;not null" json:"text"`
}

// TranscriptSegment 一段识别出的语音，时间已换算成整条音频的绝对秒数
type TranscriptSegment struct {
	BaseModel
	UploadID  uint    `gorm:"index;not null" json:"upload_id"`
	StartTime float64 `gorm:"not null" json:"start_time"`
	EndTime   float64 `gorm:"not null" json:"end_time"`
	Text      string  `gorm:"type:text;not null" json:"text"`
}
