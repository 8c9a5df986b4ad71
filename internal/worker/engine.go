package worker

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"listen/internal/conf"
	"listen/internal/data"
	"listen/internal/llm"
	"listen/internal/logger"
	"listen/internal/media"
	"listen/internal/model"
	"listen/internal/transcribe"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Transcriber 转写能力（进程级 ModelPool 实现）
type Transcriber interface {
	TranscribeChunk(path string) (transcribe.Result, error)
}

// Completer 富化能力（chat completions 客户端实现）
type Completer interface {
	Complete(model, systemPrompt, userText string) (string, error)
}

// Media 外部媒体工具（ffmpeg/ffprobe 实现）
type Media interface {
	Normalize(inputPath, outputPath string) error
	Chunkify(inputWav, chunkDir string, chunkSeconds int) ([]string, error)
	ProbeDuration(path string) (float64, error)
}

// ffmpegMedia 默认实现，直接转发到 media 包
type ffmpegMedia struct{}

func (ffmpegMedia) Normalize(inputPath, outputPath string) error {
	return media.Normalize(inputPath, outputPath)
}

func (ffmpegMedia) Chunkify(inputWav, chunkDir string, chunkSeconds int) ([]string, error) {
	return media.Chunkify(inputWav, chunkDir, chunkSeconds)
}

func (ffmpegMedia) ProbeDuration(path string) (float64, error) {
	return media.ProbeDuration(path)
}

// Engine 驱动一个 Job 走完各阶段，每次改状态都落库
// 它是唯一的恢复边界：阶段逻辑里跑出来的任何错误在入口处收口成 failed 终态
type Engine struct {
	data  *data.Data
	cfg   *conf.Config
	pool  Transcriber
	llm   Completer
	media Media
	log   *logger.Logger
}

func NewEngine(d *data.Data, cfg *conf.Config, pool Transcriber, completer Completer, log *logger.Logger) *Engine {
	return &Engine{
		data:  d,
		cfg:   cfg,
		pool:  pool,
		llm:   completer,
		media: ffmpegMedia{},
		log:   log,
	}
}

// progressForChunk 转写阶段的进度：10 + floor(70*i/N)，整段覆盖 (10,80]
func progressForChunk(index, total int) int {
	if total < 1 {
		total = 1
	}
	return 10 + 70*index/total
}

// RunFullPipeline 全量流水线：规范化 → 切片 → 逐片转写 → 落库 → 富化
func (e *Engine) RunFullPipeline(jobID uint) {
	var job model.Job
	if err := e.data.DB.First(&job, jobID).Error; err != nil {
		e.log.WithJob(jobID).Errorf("❌ 加载 Job 失败: %v", err)
		return
	}

	var upload model.Upload
	if err := e.data.DB.First(&upload, job.UploadID).Error; err != nil {
		// Upload 没了：不进任何阶段，直接终态
		e.failJob(jobID, errors.New("upload not found"))
		return
	}

	// 条件转移 queued → processing：派发层是至少一次送达，
	// 同一个 Job 被投两次时第二次在这里被挡住，不能把已完成的结果冲掉
	if !e.markProcessing(&job, model.PhaseChunking, 5) {
		return
	}

	if err := e.runFull(&job, &upload); err != nil {
		e.failJob(jobID, err)
		return
	}
	e.finishJob(&job)
}

// runFull 全量流水线的阶段逻辑，任何错误交给上面的守卫收口
func (e *Engine) runFull(job *model.Job, upload *model.Upload) error {
	log := e.log.WithJob(job.ID)

	// 1. 准备路径：所有中间产物都放在这个 Upload 自己的目录下
	uploadDir := filepath.Join(e.cfg.Data.UploadDir, fmt.Sprint(upload.ID))
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return err
	}
	normWav := filepath.Join(uploadDir, "normalized.wav")
	chunkDir := filepath.Join(uploadDir, "chunks")

	// 2. 规范化 + 切片
	if err := e.media.Normalize(upload.StoredPath, normWav); err != nil {
		return err
	}

	// 顺手补上总时长，失败不致命
	var duration *float64
	if d, err := e.media.ProbeDuration(normWav); err == nil {
		duration = &d
	} else {
		log.Warnf("⚠️ ffprobe 读时长失败: %v", err)
	}

	chunks, err := e.media.Chunkify(normWav, chunkDir, e.cfg.Whisper.ChunkSeconds)
	if err != nil {
		return err
	}

	total := len(chunks)
	zero := 0
	job.TotalChunks = &total
	job.CurrentChunk = &zero
	job.Progress = 10
	job.Phase = strPtr(model.PhaseTranscribing)
	if err := e.data.DB.Save(job).Error; err != nil {
		return err
	}
	log.Infof("🎬 切片完成，共 %d 片", total)

	// 3. 逐片转写：先落进度再调模型，崩了也能看出卡在第几片
	var textParts []string
	var segRows []model.TranscriptSegment
	var language *string

	for i, chunkPath := range chunks {
		idx := i + 1
		job.CurrentChunk = &idx
		job.Progress = progressForChunk(idx, total)
		if err := e.data.DB.Save(job).Error; err != nil {
			return err
		}

		res, err := e.pool.TranscribeChunk(chunkPath)
		if err != nil {
			return err
		}

		if res.Language != "" && language == nil {
			lang := res.Language
			language = &lang
		}
		if res.Text != "" {
			textParts = append(textParts, res.Text)
		}
		// chunk 内的相对时间按固定片长换算成整条音频的绝对时间
		offset := float64(i * e.cfg.Whisper.ChunkSeconds)
		for _, s := range res.Segments {
			segRows = append(segRows, model.TranscriptSegment{
				UploadID:  upload.ID,
				StartTime: s.Start + offset,
				EndTime:   s.End + offset,
				Text:      s.Text,
			})
		}
	}

	transcriptText := strings.TrimSpace(strings.Join(textParts, " "))

	// 4. 事务换新：删旧 Transcript + Segments，插新的
	// 必须一个事务，不能出现中途只剩一半数据的窗口
	err = e.data.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("upload_id = ?", upload.ID).Delete(&model.TranscriptSegment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("upload_id = ?", upload.ID).Delete(&model.Transcript{}).Error; err != nil {
			return err
		}
		if err := tx.Create(&model.Transcript{UploadID: upload.ID, Text: transcriptText}).Error; err != nil {
			return err
		}
		if len(segRows) > 0 {
			if err := tx.Create(&segRows).Error; err != nil {
				return err
			}
		}
		updates := map[string]interface{}{"language": language}
		if duration != nil {
			updates["duration_seconds"] = duration
		}
		return tx.Model(&model.Upload{}).Where("id = ?", upload.ID).Updates(updates).Error
	})
	if err != nil {
		return err
	}

	// 5. 进入富化阶段（没选任何意图就清掉 phase）
	job.Progress = 85
	job.Phase = enrichmentPhase(job)
	if err := e.data.DB.Save(job).Error; err != nil {
		return err
	}

	if job.Summarize || job.GenerateActionItems {
		if err := e.runEnrichment(job, upload, transcriptText, false); err != nil {
			return err
		}
	}
	return nil
}

// RunEnrichmentPipeline 只重跑摘要/动作项，复用已有的转写结果
func (e *Engine) RunEnrichmentPipeline(jobID uint) {
	var job model.Job
	if err := e.data.DB.First(&job, jobID).Error; err != nil {
		e.log.WithJob(jobID).Errorf("❌ 加载 Job 失败: %v", err)
		return
	}

	var upload model.Upload
	if err := e.data.DB.First(&upload, job.UploadID).Error; err != nil {
		e.failJob(jobID, errors.New("upload not found"))
		return
	}

	// 快路径的前提是转写结果还在
	var tr model.Transcript
	transcriptText := ""
	if err := e.data.DB.Where("upload_id = ?", upload.ID).First(&tr).Error; err == nil {
		transcriptText = strings.TrimSpace(tr.Text)
	}
	if transcriptText == "" {
		e.failJob(jobID, errors.New("no transcript available (transcribe first)"))
		return
	}

	if !e.markProcessing(&job, derefPhase(enrichmentPhase(&job)), 10) {
		return
	}

	if err := e.runEnrichment(&job, &upload, transcriptText, true); err != nil {
		e.failJob(jobID, err)
		return
	}
	e.finishJob(&job)
}

// runEnrichment 按意图依次跑摘要和动作项，每步结果各自落库
// llmOnly 时带独立的进度刻度：双意图 25/75，单意图 50
func (e *Engine) runEnrichment(job *model.Job, upload *model.Upload, transcriptText string, llmOnly bool) error {
	modelName := e.cfg.LLM.DefaultModel
	if job.LLMModel != nil && *job.LLMModel != "" {
		modelName = *job.LLMModel
	}

	if job.Summarize {
		if llmOnly {
			job.Phase = strPtr(model.PhaseSummarizing)
			if job.GenerateActionItems {
				job.Progress = 25
			} else {
				job.Progress = 50
			}
			if err := e.data.DB.Save(job).Error; err != nil {
				return err
			}
		}
		prompt := e.resolvePrompt(model.PromptKindSummary, job.PromptSummaryID)
		out, err := e.llm.Complete(modelName, prompt, transcriptText)
		if err != nil {
			return err
		}
		summary := llm.NormalizeMarkdown(out)
		if err := e.data.DB.Model(&model.Upload{}).Where("id = ?", upload.ID).
			Update("summary", summary).Error; err != nil {
			return err
		}
	}

	if job.GenerateActionItems {
		if llmOnly {
			job.Phase = strPtr(model.PhaseActionItems)
			if job.Summarize {
				job.Progress = 75
			} else {
				job.Progress = 50
			}
			if err := e.data.DB.Save(job).Error; err != nil {
				return err
			}
		}
		prompt := e.resolvePrompt(model.PromptKindActionItems, job.PromptActionItemsID)
		raw, err := e.llm.Complete(modelName, prompt, transcriptText)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(llm.ParseActionItems(raw))
		if err != nil {
			return err
		}
		if err := e.data.DB.Model(&model.Upload{}).Where("id = ?", upload.ID).
			Update("action_items", datatypes.JSON(payload)).Error; err != nil {
			return err
		}
	}
	return nil
}

// resolvePrompt 优先用指定 id（且 kind 要对得上），其次该 kind 的默认，都没有就空串
func (e *Engine) resolvePrompt(kind string, preferredID *uint) string {
	if preferredID != nil {
		var p model.Prompt
		if err := e.data.DB.Where("id = ? AND kind = ?", *preferredID, kind).First(&p).Error; err == nil {
			return p.Content
		}
	}
	var p model.Prompt
	if err := e.data.DB.Where("kind = ? AND is_default = ?", kind, true).First(&p).Error; err == nil {
		return p.Content
	}
	return ""
}

// markProcessing 条件转移 queued → processing，抢不到说明是重复派发
func (e *Engine) markProcessing(job *model.Job, phase string, progress int) bool {
	now := time.Now().UTC()
	res := e.data.DB.Model(&model.Job{}).
		Where("id = ? AND status = ?", job.ID, model.JobStatusQueued).
		Updates(map[string]interface{}{
			"status":     model.JobStatusProcessing,
			"started_at": now,
			"phase":      phase,
			"progress":   progress,
		})
	if res.Error != nil {
		e.log.WithJob(job.ID).Errorf("❌ 标记 processing 失败: %v", res.Error)
		return false
	}
	if res.RowsAffected == 0 {
		e.log.WithJob(job.ID).Errorf("⚠️ Job 不在 queued 状态，疑似重复派发，跳过执行")
		return false
	}
	job.Status = model.JobStatusProcessing
	job.StartedAt = &now
	job.Phase = &phase
	job.Progress = progress
	return true
}

// finishJob 成功收尾：completed / 100 / 清 phase
func (e *Engine) finishJob(job *model.Job) {
	now := time.Now().UTC()
	job.Status = model.JobStatusCompleted
	job.Progress = 100
	job.Phase = nil
	job.FinishedAt = &now
	if err := e.data.DB.Save(job).Error; err != nil {
		e.log.WithJob(job.ID).Errorf("❌ 写入完成状态失败: %v", err)
		return
	}
	e.log.WithJob(job.ID).Info("✅ Job 完成")
}

// failJob 失败收口：重新加载 Job（中途可能改过），钉成 failed/100
// 原始错误只记日志，不往外抛，worker 要继续消费下一个任务
func (e *Engine) failJob(jobID uint, cause error) {
	e.log.WithJob(jobID).Errorf("❌ 流水线失败: %v", cause)

	var job model.Job
	if err := e.data.DB.First(&job, jobID).Error; err != nil {
		e.log.WithJob(jobID).Errorf("❌ 失败收口时加载 Job 也失败了: %v", err)
		return
	}
	now := time.Now().UTC()
	msg := cause.Error()
	job.Status = model.JobStatusFailed
	job.Progress = 100
	job.Error = &msg
	job.FinishedAt = &now
	if err := e.data.DB.Save(&job).Error; err != nil {
		e.log.WithJob(jobID).Errorf("❌ 写入失败状态失败: %v", err)
	}
}

// enrichmentPhase 按意图决定富化阶段标签；都没选返回 nil
func enrichmentPhase(job *model.Job) *string {
	if job.Summarize {
		return strPtr(model.PhaseSummarizing)
	}
	if job.GenerateActionItems {
		return strPtr(model.PhaseActionItems)
	}
	return nil
}

func strPtr(s string) *string {
	return &s
}

func derefPhase(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
