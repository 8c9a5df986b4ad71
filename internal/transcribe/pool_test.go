package transcribe

import (
	"errors"
	"testing"

	"listen/internal/logger"
)

// fakeBackend 可编排每次调用的返回
type fakeBackend struct {
	device  string
	results []Result
	errs    []error
	calls   int
	closed  bool
}

func (f *fakeBackend) TranscribeChunk(path string) (Result, error) {
	idx := f.calls
	f.calls++
	var err error
	if idx < len(f.errs) {
		err = f.errs[idx]
	}
	var res Result
	if idx < len(f.results) {
		res = f.results[idx]
	}
	return res, err
}

func (f *fakeBackend) Close() error {
	f.closed = true
	return nil
}

// newPoolWithBuilder 测试用：按设备名出不同的假后端
func newPoolWithBuilder(requested string, build func(model, device string) (Backend, error)) *ModelPool {
	p := NewModelPool("base", requested, logger.New())
	p.build = build
	return p
}

func TestPoolBuildFallsBackToCPU(t *testing.T) {
	var built []string
	cpu := &fakeBackend{device: DeviceCPU, results: []Result{{Text: "ok"}}}

	p := newPoolWithBuilder(DeviceCUDA, func(model, device string) (Backend, error) {
		built = append(built, device)
		if device == DeviceCUDA {
			return nil, errors.New("model init failed on cuda: no libs")
		}
		return cpu, nil
	})

	res, err := p.TranscribeChunk("chunk.wav")
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if res.Text != "ok" {
		t.Fatalf("text = %q", res.Text)
	}
	if len(built) != 2 || built[0] != DeviceCUDA || built[1] != DeviceCPU {
		t.Fatalf("build order = %v", built)
	}
	if p.device != DeviceCPU {
		t.Fatalf("pool device = %s", p.device)
	}
}

func TestPoolCPUBuildFailurePropagates(t *testing.T) {
	p := newPoolWithBuilder(DeviceCPU, func(model, device string) (Backend, error) {
		return nil, errors.New("model file missing")
	})
	if _, err := p.TranscribeChunk("chunk.wav"); err == nil {
		t.Fatal("cpu build failure must propagate")
	}
}

func TestPoolCUDARuntimeErrorRetriesOnceOnCPU(t *testing.T) {
	cuda := &fakeBackend{
		device: DeviceCUDA,
		errs:   []error{errors.New("Library libcublas.so.12 is not found or cannot be loaded")},
	}
	cpu := &fakeBackend{device: DeviceCPU, results: []Result{{Text: "from cpu"}}}

	p := newPoolWithBuilder(DeviceCUDA, func(model, device string) (Backend, error) {
		if device == DeviceCUDA {
			return cuda, nil
		}
		return cpu, nil
	})

	res, err := p.TranscribeChunk("chunk.wav")
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if res.Text != "from cpu" {
		t.Fatalf("text = %q", res.Text)
	}
	if !cuda.closed {
		t.Error("broken cuda backend should be closed")
	}
	if cuda.calls != 1 || cpu.calls != 1 {
		t.Fatalf("calls: cuda=%d cpu=%d, want exactly one each", cuda.calls, cpu.calls)
	}

	// 降级后一直用 CPU
	cpu.results = append(cpu.results, Result{Text: "again"})
	if _, err := p.TranscribeChunk("next.wav"); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if cpu.calls != 2 {
		t.Fatalf("cpu calls = %d", cpu.calls)
	}
}

func TestPoolNonCUDAErrorPropagates(t *testing.T) {
	cuda := &fakeBackend{
		device: DeviceCUDA,
		errs:   []error{errors.New("corrupt wav header")},
	}
	var cpuBuilt bool

	p := newPoolWithBuilder(DeviceCUDA, func(model, device string) (Backend, error) {
		if device == DeviceCUDA {
			return cuda, nil
		}
		cpuBuilt = true
		return &fakeBackend{device: DeviceCPU}, nil
	})

	_, err := p.TranscribeChunk("chunk.wav")
	if err == nil || err.Error() != "corrupt wav header" {
		t.Fatalf("err = %v", err)
	}
	if cpuBuilt {
		t.Error("non-cuda error must not trigger cpu rebuild")
	}
}

func TestPoolCPURuntimeErrorNotRetried(t *testing.T) {
	// 已经在 CPU 上，即便错误信息带 cuda 字样也不重试
	cpu := &fakeBackend{
		device: DeviceCPU,
		errs:   []error{errors.New("cuda mentioned in passing")},
	}
	p := newPoolWithBuilder(DeviceCPU, func(model, device string) (Backend, error) {
		return cpu, nil
	})

	if _, err := p.TranscribeChunk("chunk.wav"); err == nil {
		t.Fatal("error must propagate")
	}
	if cpu.calls != 1 {
		t.Fatalf("calls = %d", cpu.calls)
	}
}

func TestPoolBuildsOnlyOnce(t *testing.T) {
	var builds int
	p := newPoolWithBuilder(DeviceCPU, func(model, device string) (Backend, error) {
		builds++
		return &fakeBackend{device: device, results: []Result{{}, {}, {}}}, nil
	})

	for i := 0; i < 3; i++ {
		if _, err := p.TranscribeChunk("chunk.wav"); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if builds != 1 {
		t.Fatalf("builds = %d, want lazy singleton", builds)
	}
}
