package worker

import (
	"context"
	"encoding/json"
	"time"

	"listen/internal/data"
	"listen/internal/logger"
	"listen/internal/queue"
)

// Worker 负责从 Redis 拿任务并交给 Engine 执行
// 一个任务占住一个 worker 直到终态，多个 worker 之间互不共享 Job
type Worker struct {
	data   *data.Data
	engine *Engine
	log    *logger.Logger
}

func NewWorker(d *data.Data, engine *Engine, log *logger.Logger) *Worker {
	return &Worker{
		data:   d,
		engine: engine,
		log:    log,
	}
}

// Start 启动 Worker (阻塞消费在各自的 goroutine 里跑)
func (w *Worker) Start(ctx context.Context, numWorkers int) {
	w.log.Infof("🚀 启动 %d 个 Pipeline Worker，开始监听队列 %s...", numWorkers, queue.TaskQueueKey)

	for i := 0; i < numWorkers; i++ {
		go w.processLoop(ctx, i)
	}
}

func (w *Worker) processLoop(ctx context.Context, workerID int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			// 1. 阻塞式获取任务 (BLPOP)
			result, err := w.data.Redis.BLPop(ctx, 0*time.Second, queue.TaskQueueKey).Result()
			if err != nil {
				// Redis 偶尔连接抖动是正常的，不要 panic
				w.log.Debugf("[Worker-%d] 等待任务中... (%v)", workerID, err)
				time.Sleep(3 * time.Second)
				continue
			}

			var env queue.Envelope
			if err := json.Unmarshal([]byte(result[1]), &env); err != nil {
				w.log.Errorf("[Worker-%d] ❌ 任务体解析失败，丢弃: %v", workerID, err)
				continue
			}
			w.log.Infof("[Worker-%d] 收到任务: %s job_id=%d", workerID, env.Task, env.JobID)

			// 2. 执行具体流水线。Engine 自己收口错误，这里不会拿到 error，
			// worker 始终健康地回来消费下一个任务
			switch env.Task {
			case queue.TaskProcessUpload:
				w.engine.RunFullPipeline(env.JobID)
			case queue.TaskProcessLLM:
				w.engine.RunEnrichmentPipeline(env.JobID)
			default:
				w.log.Errorf("[Worker-%d] ❌ 未知任务名: %s", workerID, env.Task)
			}
		}
	}
}
