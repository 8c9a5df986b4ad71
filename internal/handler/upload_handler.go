package handler

import (
	"errors"
	"net/http"
	"strconv"

	"listen/internal/dto"
	"listen/internal/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type UploadHandler struct {
	svc *service.UploadService
}

func NewUploadHandler(svc *service.UploadService) *UploadHandler {
	return &UploadHandler{svc: svc}
}

// Create 上传音频并启动流水线
// POST /api/uploads
// Form-Data: file=BINARY, display_name=..., summarize=true, action_items=true,
//
//	llm_model=..., prompt_summary_id=1, prompt_action_items_id=2
func (h *UploadHandler) Create(c *gin.Context) {
	// 1. 获取文件
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请上传文件"})
		return
	}
	if file.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少文件名"})
		return
	}

	// 2. 解析流水线意图
	opts := service.CreateOptions{
		DisplayName:         c.PostForm("display_name"),
		Summarize:           c.PostForm("summarize") == "true",
		GenerateActionItems: c.PostForm("action_items") == "true",
		LLMModel:            c.PostForm("llm_model"),
	}
	opts.PromptSummaryID = parseOptionalID(c.PostForm("prompt_summary_id"))
	opts.PromptActionItemsID = parseOptionalID(c.PostForm("prompt_action_items_id"))

	// 3. 调用 Service
	resp, err := h.svc.Create(c.Request.Context(), file, opts)
	if err != nil {
		if errors.Is(err, service.ErrBadPromptID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// List GET /api/uploads
func (h *UploadHandler) List(c *gin.Context) {
	rows, err := h.svc.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// Get GET /api/uploads/:id
func (h *UploadHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	detail, err := h.svc.Get(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Upload 不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, detail)
}

// Segments GET /api/uploads/:id/segments
func (h *UploadHandler) Segments(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	rows, err := h.svc.Segments(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// Audio GET /api/uploads/:id/audio
func (h *UploadHandler) Audio(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	path, filename, err := h.svc.AudioPath(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "音频不存在"})
		return
	}
	c.FileAttachment(path, filename)
}

// Rename PATCH /api/uploads/:id
func (h *UploadHandler) Rename(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.UploadRenameReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "display_name 必填"})
		return
	}
	if err := h.svc.Rename(id, req.DisplayName); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Upload 不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Delete DELETE /api/uploads/:id （幂等：已删返回成功）
func (h *UploadHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Reprocess POST /api/uploads/:id/reprocess — 只重跑 LLM 部分
func (h *UploadHandler) Reprocess(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.UploadReprocessReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求体格式错误"})
		return
	}
	resp, err := h.svc.Reprocess(c.Request.Context(), id, req)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Upload 不存在"})
		case errors.Is(err, service.ErrNoIntent):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, resp)
}

// pathID 解析 :id，失败直接写 400
func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id 格式错误"})
		return 0, false
	}
	return uint(id), true
}

// parseOptionalID 表单里的可选数字字段
func parseOptionalID(s string) *uint {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return nil
	}
	id := uint(n)
	return &id
}
