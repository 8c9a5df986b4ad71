package transcribe

import (
	"os"
	"path/filepath"
	"strings"
)

// 设备取值
const (
	DeviceCPU  = "cpu"
	DeviceCUDA = "cuda"
)

// CUDA 运行库缺失时 faster-whisper 会在运行期崩掉，比如：
// "RuntimeError: Library libcublas.so.12 is not found or cannot be loaded"
// 所以 auto 模式下除了看 GPU 痕迹，还要确认这些库真的找得到
var cudaLibNames = []string{"libcublas.so.12", "libcublas.so.11", "libcublas.so"}

var cudaLibDirs = []string{
	"/usr/local/cuda/lib64",
	"/usr/lib/x86_64-linux-gnu",
	"/usr/lib64",
	"/usr/lib",
}

var cudaDevPaths = []string{
	"/dev/nvidiactl",
	"/dev/nvidia0",
	"/dev/nvidia1",
	"/dev/nvidia-uvm",
}

// PickDevice 选择转写设备，进程内首次用到模型时评估一次
// 1. 显式 cpu / cuda(gpu) 直接生效
// 2. auto：要同时满足「有 GPU 痕迹」和「CUDA 库可加载」才选 cuda
func PickDevice(requested string) string {
	switch strings.ToLower(strings.TrimSpace(requested)) {
	case DeviceCPU:
		return DeviceCPU
	case DeviceCUDA, "gpu":
		return DeviceCUDA
	}

	if gpuHinted(os.Getenv("CUDA_VISIBLE_DEVICES"), cudaDevPaths) && cudaLibsAvailable(libSearchDirs()) {
		return DeviceCUDA
	}
	return DeviceCPU
}

// gpuHinted 环境变量或设备文件任一存在即认为容器配了 GPU
func gpuHinted(visibleDevices string, devPaths []string) bool {
	v := strings.ToLower(strings.TrimSpace(visibleDevices))
	if v != "" && v != "-1" && v != "none" && v != "void" {
		return true
	}
	for _, p := range devPaths {
		if _, err := os.Stat(p); err == nil {
			return true
		}
	}
	return false
}

// cudaLibsAvailable 在给定目录里找 libcublas，找不到就当没有可用加速器
func cudaLibsAvailable(dirs []string) bool {
	for _, dir := range dirs {
		for _, lib := range cudaLibNames {
			if _, err := os.Stat(filepath.Join(dir, lib)); err == nil {
				return true
			}
		}
	}
	return false
}

// libSearchDirs 常规库目录 + LD_LIBRARY_PATH
func libSearchDirs() []string {
	dirs := append([]string{}, cudaLibDirs...)
	for _, d := range filepath.SplitList(os.Getenv("LD_LIBRARY_PATH")) {
		if d != "" {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

// IsCUDARuntimeError 运行期错误是否是 CUDA 栈崩了（可以换 CPU 重试的那类）
func IsCUDARuntimeError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "libcublas") ||
		strings.Contains(msg, "cublas") ||
		strings.Contains(msg, "cuda")
}
