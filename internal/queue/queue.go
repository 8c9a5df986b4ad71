package queue

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// 所有流水线任务走同一个 Redis List，worker 端 BLPOP 消费
const TaskQueueKey = "task:pipeline"

// 任务名
const (
	TaskProcessUpload = "process_upload" // 全量流水线：切片 + 转写 + 富化
	TaskProcessLLM    = "process_llm"    // 只重跑摘要/动作项，不重新转写
)

// Envelope 队列里的消息体
type Envelope struct {
	Task  string `json:"task"`
	JobID uint   `json:"job_id"`
}

// Dispatcher 投递端：fire-and-forget，至少一次送达
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

func (d *Dispatcher) Enqueue(ctx context.Context, task string, jobID uint) error {
	payload, err := json.Marshal(Envelope{Task: task, JobID: jobID})
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, TaskQueueKey, payload).Err()
}
