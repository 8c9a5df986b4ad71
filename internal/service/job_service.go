package service

import (
	"listen/internal/data"
	"listen/internal/dto"
	"listen/internal/model"
)

// JobService 只读查询，给轮询接口用
type JobService struct {
	Data *data.Data
}

func NewJobService(d *data.Data) *JobService {
	return &JobService{Data: d}
}

func (s *JobService) Get(id uint) (*dto.JobStatusResp, error) {
	var j model.Job
	if err := s.Data.DB.First(&j, id).Error; err != nil {
		return nil, err
	}
	out := toJobStatus(&j)
	return &out, nil
}

// Active queued + processing，老的在前
func (s *JobService) Active() ([]dto.JobStatusResp, error) {
	var rows []model.Job
	err := s.Data.DB.
		Where("status IN ?", []string{model.JobStatusQueued, model.JobStatusProcessing}).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]dto.JobStatusResp, 0, len(rows))
	for i := range rows {
		out = append(out, toJobStatus(&rows[i]))
	}
	return out, nil
}

func (s *JobService) Stats() (*dto.JobStats, error) {
	var queued, processing int64
	if err := s.Data.DB.Model(&model.Job{}).Where("status = ?", model.JobStatusQueued).Count(&queued).Error; err != nil {
		return nil, err
	}
	if err := s.Data.DB.Model(&model.Job{}).Where("status = ?", model.JobStatusProcessing).Count(&processing).Error; err != nil {
		return nil, err
	}
	return &dto.JobStats{Queued: queued, Processing: processing, Active: queued + processing}, nil
}

func toJobStatus(j *model.Job) dto.JobStatusResp {
	return dto.JobStatusResp{
		ID:           j.ID,
		UploadID:     j.UploadID,
		Status:       j.Status,
		Phase:        j.Phase,
		Progress:     j.Progress,
		TotalChunks:  j.TotalChunks,
		CurrentChunk: j.CurrentChunk,
		Error:        j.Error,
		CreatedAt:    j.CreatedAt,
		StartedAt:    j.StartedAt,
		FinishedAt:   j.FinishedAt,
	}
}
