package bootstrap

import (
	"context"
	"log"
	"time"

	"listen/internal/conf"
	"listen/internal/data"
	"listen/internal/handler"
	"listen/internal/llm"
	"listen/internal/logger"
	"listen/internal/queue"
	"listen/internal/service"
	"listen/internal/transcribe"
	"listen/internal/worker"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Run 启动服务器（API + Worker 同进程）
func Run() {
	// 1. 加载配置
	cfg := conf.LoadConfig()
	appLog := logger.New()

	// 2. 初始化数据层
	d, cleanup, err := data.NewData(cfg)
	if err != nil {
		log.Fatalf("❌ 数据层初始化失败: %v", err)
	}
	defer cleanup()

	// 3. 启动期维护：默认提示词 + 回收上次崩溃卡死的 Job
	if err := data.SeedDefaultPrompts(d.DB); err != nil {
		log.Fatalf("❌ 默认提示词初始化失败: %v", err)
	}
	if _, err := worker.SweepStaleJobs(d.DB, time.Duration(cfg.Worker.StaleJobSeconds)*time.Second, appLog); err != nil {
		log.Fatalf("❌ 回收卡死 Job 失败: %v", err)
	}

	// 4. 初始化流水线依赖
	// 模型池整个进程一个：建一次，所有 Job 复用，推理调用内部串行
	pool := transcribe.NewModelPool(cfg.Whisper.Model, cfg.Whisper.Device, appLog)
	defer pool.Close()
	llmClient := llm.NewClient(cfg.LLM)
	dispatcher := queue.NewDispatcher(d.Redis)

	// 5. 启动 Worker
	engine := worker.NewEngine(d, cfg, pool, llmClient, appLog)
	w := worker.NewWorker(d, engine, appLog)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx, cfg.Worker.Count)

	// 6. 初始化服务层和 Handler
	uploadSvc := service.NewUploadService(d, cfg, dispatcher)
	jobSvc := service.NewJobService(d)
	promptSvc := service.NewPromptService(d)

	uploadH := handler.NewUploadHandler(uploadSvc)
	jobH := handler.NewJobHandler(jobSvc)
	promptH := handler.NewPromptHandler(promptSvc)

	// 7. 初始化 Gin Server
	r := gin.Default()

	// CORS：前端单独部署，全放开
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = []string{"*"}
	corsCfg.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true, "db": d.Healthcheck()})
	})

	api := r.Group("/api")
	{
		uploads := api.Group("/uploads")
		{
			uploads.POST("", uploadH.Create)
			uploads.GET("", uploadH.List)
			uploads.GET("/:id", uploadH.Get)
			uploads.GET("/:id/segments", uploadH.Segments)
			uploads.GET("/:id/audio", uploadH.Audio)
			uploads.PATCH("/:id", uploadH.Rename)
			uploads.DELETE("/:id", uploadH.Delete)
			uploads.POST("/:id/reprocess", uploadH.Reprocess)
		}
		jobs := api.Group("/jobs")
		{
			jobs.GET("/stats", jobH.Stats)
			jobs.GET("/active", jobH.Active)
			jobs.GET("/:id", jobH.Get)
		}
		prompts := api.Group("/prompts")
		{
			prompts.GET("", promptH.List)
			prompts.GET("/:id", promptH.Get)
			prompts.PUT("/:id", promptH.Update)
		}
	}

	log.Printf("🚀 Listen API 启动，监听 :%s", cfg.App.Port)
	if err := r.Run(":" + cfg.App.Port); err != nil {
		log.Fatalf("❌ 服务器退出: %v", err)
	}
}
