package transcribe

import (
	"sync"

	"listen/internal/logger"
)

// ModelPool 进程级的转写模型持有者：每个 worker 进程建一次，所有 Job 复用
// 模型本身不支持并发推理，所以整个转写调用都在锁里，降级重建也走同一把锁
type ModelPool struct {
	mu sync.Mutex

	model     string
	requested string // 配置里要求的设备：auto|cpu|cuda

	backend Backend
	device  string

	build func(model, device string) (Backend, error)
	log   *logger.Logger
}

func NewModelPool(model, requestedDevice string, log *logger.Logger) *ModelPool {
	return &ModelPool{
		model:     model,
		requested: requestedDevice,
		build:     NewFasterWhisperBackend,
		log:       log,
	}
}

// get 懒加载：首次调用时选设备并建模型
// 选中的设备上建不起来就降级 CPU 再试；CPU 也失败直接把错误抛出去
func (p *ModelPool) get() (Backend, error) {
	if p.backend != nil {
		return p.backend, nil
	}

	device := PickDevice(p.requested)
	backend, err := p.build(p.model, device)
	if err != nil && device == DeviceCUDA {
		p.log.Warnf("⚠️ 在 %s 上初始化 whisper 失败: %v，降级到 CPU", device, err)
		device = DeviceCPU
		backend, err = p.build(p.model, device)
	}
	if err != nil {
		return nil, err
	}

	p.backend = backend
	p.device = device
	p.log.Infof("✅ whisper 模型就绪 (model=%s device=%s)", p.model, device)
	return p.backend, nil
}

// TranscribeChunk 转写一个 chunk
// 有些环境 cuda 模型能建起来、跑起来才缺库崩掉，这种错误换 CPU 重建后
// 对同一个 chunk 恰好重试一次；其他错误原样上抛
func (p *ModelPool) TranscribeChunk(path string) (Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	backend, err := p.get()
	if err != nil {
		return Result{}, err
	}

	res, err := backend.TranscribeChunk(path)
	if err != nil && p.device == DeviceCUDA && IsCUDARuntimeError(err) {
		p.log.Warnf("⚠️ CUDA 运行期错误 (%v)，换 CPU 重建后重试", err)
		backend.Close()
		p.backend = nil

		cpuBackend, buildErr := p.build(p.model, DeviceCPU)
		if buildErr != nil {
			return Result{}, buildErr
		}
		p.backend = cpuBackend
		p.device = DeviceCPU
		return cpuBackend.TranscribeChunk(path)
	}
	return res, err
}

// Close 关掉底层 helper 进程（优雅退出用）
func (p *ModelPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.backend != nil {
		p.backend.Close()
		p.backend = nil
	}
}
