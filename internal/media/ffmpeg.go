package media

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ExternalToolError 外部命令非零退出，message 取 stderr
type ExternalToolError struct {
	Message string
}

func (e *ExternalToolError) Error() string {
	return e.Message
}

// run 跑一条外部命令，失败时把 stderr 包成 ExternalToolError
func run(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	var stderr bytes.Buffer
	cmd.Stdout = nil
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = fmt.Sprintf("command failed: %s %s", name, strings.Join(args, " "))
		}
		return &ExternalToolError{Message: msg}
	}
	return nil
}

// Normalize 用 ffmpeg 把任意输入转成单声道 16kHz wav
func Normalize(inputPath, outputPath string) error {
	return run("ffmpeg",
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-i", inputPath,
		"-ac", "1",
		"-ar", "16000",
		"-vn",
		outputPath,
	)
}

// Chunkify 把规范化后的 wav 按固定时长切片，返回按序排列的切片路径
//
// 切片数是靠列目录得出来的，不是 ffmpeg 报告的。所以 chunkDir 必须归本次
// 运行独占：这里先整个删掉再重建，避免上次跑剩的 chunk 被算进来
func Chunkify(inputWav, chunkDir string, chunkSeconds int) ([]string, error) {
	if err := os.RemoveAll(chunkDir); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(chunkDir, 0o755); err != nil {
		return nil, err
	}

	pattern := filepath.Join(chunkDir, "chunk-%05d.wav")
	err := run("ffmpeg",
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-i", inputWav,
		"-f", "segment",
		"-segment_time", strconv.Itoa(chunkSeconds),
		"-reset_timestamps", "1",
		pattern,
	)
	if err != nil {
		return nil, err
	}

	return ListChunks(chunkDir)
}

// ListChunks 按命名约定过滤目录并做字典序排序
func ListChunks(chunkDir string) ([]string, error) {
	entries, err := os.ReadDir(chunkDir)
	if err != nil {
		return nil, err
	}
	var chunks []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "chunk-") && strings.HasSuffix(name, ".wav") {
			chunks = append(chunks, filepath.Join(chunkDir, name))
		}
	}
	sort.Strings(chunks)
	return chunks, nil
}

// ProbeDuration 用 ffprobe 读音频总时长（秒）
func ProbeDuration(path string) (float64, error) {
	cmd := exec.Command("ffprobe",
		"-hide_banner",
		"-loglevel", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = "command failed: ffprobe " + path
		}
		return 0, &ExternalToolError{Message: msg}
	}
	dur, err := strconv.ParseFloat(strings.TrimSpace(stdout.String()), 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe output: %w", err)
	}
	return dur, nil
}
