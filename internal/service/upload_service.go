package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"listen/internal/conf"
	"listen/internal/data"
	"listen/internal/dto"
	"listen/internal/model"
	"listen/internal/queue"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrNoIntent = errors.New("至少要选一个：summarize 或 action_items")
var ErrBadPromptID = errors.New("提示词 id 不存在或 kind 不匹配")

// UploadService 上传的全生命周期：建档、落盘、派发流水线、删除级联
type UploadService struct {
	Data       *data.Data
	Cfg        *conf.Config
	Dispatcher *queue.Dispatcher
}

func NewUploadService(d *data.Data, cfg *conf.Config, dispatcher *queue.Dispatcher) *UploadService {
	return &UploadService{Data: d, Cfg: cfg, Dispatcher: dispatcher}
}

// CreateOptions 创建上传时的流水线意图
type CreateOptions struct {
	DisplayName         string
	Summarize           bool
	GenerateActionItems bool
	LLMModel            string
	PromptSummaryID     *uint
	PromptActionItemsID *uint
}

// Create 收文件 + 建 Job + 入队
func (s *UploadService) Create(ctx context.Context, file *multipart.FileHeader, opts CreateOptions) (*dto.UploadCreateResp, error) {
	// 1. 先建行拿到 id，存储路径要用它
	name := strings.TrimSpace(opts.DisplayName)
	if name == "" {
		name = file.Filename
	}
	u := model.Upload{
		OriginalFilename: file.Filename,
		DisplayName:      name,
		StoredPath:       "",
		ContentType:      file.Header.Get("Content-Type"),
	}
	if err := s.Data.DB.Create(&u).Error; err != nil {
		return nil, err
	}

	// 2. 字节落盘到 <upload_dir>/<id>/<uuid>.<ext>
	uploadDir := filepath.Join(s.Cfg.Data.UploadDir, fmt.Sprint(u.ID))
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	storedPath := filepath.Join(uploadDir, strings.ReplaceAll(uuid.New().String(), "-", "")+ext)

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()
	dst, err := os.Create(storedPath)
	if err != nil {
		return nil, err
	}
	size, err := io.Copy(dst, src)
	dst.Close()
	if err != nil {
		return nil, err
	}

	u.StoredPath = storedPath
	u.SizeBytes = &size
	if err := s.Data.DB.Save(&u).Error; err != nil {
		return nil, err
	}

	// 3. 校验指定的提示词 id（kind 必须对得上）
	if err := s.validatePromptID(opts.PromptSummaryID, model.PromptKindSummary); err != nil {
		return nil, err
	}
	if err := s.validatePromptID(opts.PromptActionItemsID, model.PromptKindActionItems); err != nil {
		return nil, err
	}

	// 4. 建 Job 并派发全量流水线
	job := model.Job{
		UploadID:            u.ID,
		Status:              model.JobStatusQueued,
		Phase:               ptr(model.PhaseChunking),
		Progress:            0,
		Summarize:           opts.Summarize,
		GenerateActionItems: opts.GenerateActionItems,
		PromptSummaryID:     opts.PromptSummaryID,
		PromptActionItemsID: opts.PromptActionItemsID,
	}
	if m := strings.TrimSpace(opts.LLMModel); m != "" {
		job.LLMModel = &m
	}
	if err := s.Data.DB.Create(&job).Error; err != nil {
		return nil, err
	}
	if err := s.Dispatcher.Enqueue(ctx, queue.TaskProcessUpload, job.ID); err != nil {
		return nil, err
	}

	return &dto.UploadCreateResp{UploadID: u.ID, JobID: job.ID}, nil
}

func (s *UploadService) validatePromptID(id *uint, kind string) error {
	if id == nil {
		return nil
	}
	var p model.Prompt
	if err := s.Data.DB.Where("id = ? AND kind = ?", *id, kind).First(&p).Error; err != nil {
		return ErrBadPromptID
	}
	return nil
}

// List 按创建时间倒序
func (s *UploadService) List() ([]dto.UploadListItem, error) {
	var rows []model.Upload
	if err := s.Data.DB.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]dto.UploadListItem, 0, len(rows))
	for _, u := range rows {
		out = append(out, dto.UploadListItem{
			ID:               u.ID,
			DisplayName:      u.DisplayName,
			OriginalFilename: u.OriginalFilename,
			CreatedAt:        u.CreatedAt,
			DurationSeconds:  u.DurationSeconds,
			Language:         u.Language,
		})
	}
	return out, nil
}

// Get 详情，带上转写全文
func (s *UploadService) Get(id uint) (*dto.UploadDetail, error) {
	var u model.Upload
	if err := s.Data.DB.First(&u, id).Error; err != nil {
		return nil, err
	}

	detail := &dto.UploadDetail{
		ID:               u.ID,
		DisplayName:      u.DisplayName,
		OriginalFilename: u.OriginalFilename,
		CreatedAt:        u.CreatedAt,
		DurationSeconds:  u.DurationSeconds,
		Language:         u.Language,
		Summary:          u.Summary,
		ActionItems:      []byte(u.ActionItems),
	}
	var tr model.Transcript
	if err := s.Data.DB.Where("upload_id = ?", id).First(&tr).Error; err == nil {
		detail.TranscriptText = &tr.Text
	}
	return detail, nil
}

// Segments 按开始时间升序
func (s *UploadService) Segments(id uint) ([]dto.TranscriptSegmentOut, error) {
	var rows []model.TranscriptSegment
	if err := s.Data.DB.Where("upload_id = ?", id).Order("start_time ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]dto.TranscriptSegmentOut, 0, len(rows))
	for _, seg := range rows {
		out = append(out, dto.TranscriptSegmentOut{
			ID:        seg.ID,
			StartTime: seg.StartTime,
			EndTime:   seg.EndTime,
			Text:      seg.Text,
		})
	}
	return out, nil
}

// AudioPath 返回原始音频的落盘路径和下载名
func (s *UploadService) AudioPath(id uint) (path, filename string, err error) {
	var u model.Upload
	if err := s.Data.DB.First(&u, id).Error; err != nil {
		return "", "", err
	}
	if u.StoredPath == "" {
		return "", "", gorm.ErrRecordNotFound
	}
	if _, err := os.Stat(u.StoredPath); err != nil {
		return "", "", gorm.ErrRecordNotFound
	}
	return u.StoredPath, u.OriginalFilename, nil
}

// Rename 只改展示名
func (s *UploadService) Rename(id uint, displayName string) error {
	var u model.Upload
	if err := s.Data.DB.First(&u, id).Error; err != nil {
		return err
	}
	return s.Data.DB.Model(&u).Update("display_name", strings.TrimSpace(displayName)).Error
}

// Delete 删上传：级联清掉 Job/Transcript/Segment，然后尽力删目录
// 目录删不掉不算失败（落盘清理只是 advisory），重复删也返回成功
func (s *UploadService) Delete(id uint) error {
	var u model.Upload
	if err := s.Data.DB.First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	err := s.Data.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("upload_id = ?", id).Delete(&model.TranscriptSegment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("upload_id = ?", id).Delete(&model.Transcript{}).Error; err != nil {
			return err
		}
		if err := tx.Where("upload_id = ?", id).Delete(&model.Job{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Upload{}, id).Error
	})
	if err != nil {
		return err
	}

	// best-effort：目录不存在或删不掉都无所谓
	os.RemoveAll(filepath.Join(s.Cfg.Data.UploadDir, fmt.Sprint(id)))
	return nil
}

// Reprocess 只重跑摘要/动作项（不重新转写），建新 Job 走 LLM 快路径
func (s *UploadService) Reprocess(ctx context.Context, id uint, req dto.UploadReprocessReq) (*dto.UploadReprocessResp, error) {
	var u model.Upload
	if err := s.Data.DB.First(&u, id).Error; err != nil {
		return nil, err
	}
	if !req.Summarize && !req.ActionItems {
		return nil, ErrNoIntent
	}

	phase := model.PhaseSummarizing
	if !req.Summarize {
		phase = model.PhaseActionItems
	}
	job := model.Job{
		UploadID:            u.ID,
		Status:              model.JobStatusQueued,
		Phase:               &phase,
		Progress:            0,
		Summarize:           req.Summarize,
		GenerateActionItems: req.ActionItems,
	}
	if m := strings.TrimSpace(req.LLMModel); m != "" {
		job.LLMModel = &m
	}
	if err := s.Data.DB.Create(&job).Error; err != nil {
		return nil, err
	}
	if err := s.Dispatcher.Enqueue(ctx, queue.TaskProcessLLM, job.ID); err != nil {
		return nil, err
	}
	return &dto.UploadReprocessResp{UploadID: u.ID, JobID: job.ID}, nil
}

func ptr(s string) *string {
	return &s
}
