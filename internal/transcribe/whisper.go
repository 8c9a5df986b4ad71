package transcribe

import (
	"bufio"
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

//go:embed assets/faster_whisper.py
var helperScript []byte

// Segment 一段识别出的语音（chunk 内的相对时间）
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// Result 单个 chunk 的转写结果
type Result struct {
	Text     string
	Segments []Segment
	Language string
}

// Backend 转写后端：给一个音频路径，吐回文本和分段
type Backend interface {
	TranscribeChunk(path string) (Result, error)
	Close() error
}

// fasterWhisperBackend 常驻的 python faster-whisper 子进程
// 模型只在进程启动时加载一次，之后按行收发 JSON 逐个转写
type fasterWhisperBackend struct {
	cmd    *exec.Cmd
	stdin  *json.Encoder
	stdout *bufio.Scanner
	stderr *bytes.Buffer
}

type helperRequest struct {
	Path string `json:"path"`
}

type helperResponse struct {
	Ready    bool    `json:"ready"`
	Error    string  `json:"error"`
	Language *string `json:"language"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// NewFasterWhisperBackend 启动 helper 并等模型加载完成
// 加载失败（比如 cuda 初始化挂了）在这里就会报出来，好让上层换设备重建
func NewFasterWhisperBackend(model, device string) (Backend, error) {
	scriptPath := filepath.Join(os.TempDir(), "listen_faster_whisper.py")
	if err := os.WriteFile(scriptPath, helperScript, 0o755); err != nil {
		return nil, fmt.Errorf("write helper script: %w", err)
	}

	py := os.Getenv("LISTEN_PY")
	if py == "" {
		py = "python3"
	}

	cmd := exec.Command(py, scriptPath, "--model", model, "--device", device)
	cmd.Env = os.Environ()

	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start helper: %w", err)
	}

	b := &fasterWhisperBackend{
		cmd:    cmd,
		stdin:  json.NewEncoder(stdinPipe),
		stdout: bufio.NewScanner(stdoutPipe),
		stderr: &stderr,
	}
	// stdout 单行可能很长（整个 chunk 的分段），放宽 buffer
	b.stdout.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	// 第一行是模型加载结果
	resp, err := b.readLine()
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("helper did not come up: %w", err)
	}
	if resp.Error != "" {
		b.Close()
		return nil, fmt.Errorf("model init failed on %s: %s", device, resp.Error)
	}
	if !resp.Ready {
		b.Close()
		return nil, fmt.Errorf("unexpected helper handshake")
	}
	return b, nil
}

func (b *fasterWhisperBackend) readLine() (*helperResponse, error) {
	if !b.stdout.Scan() {
		msg := strings.TrimSpace(b.stderr.String())
		if msg == "" {
			msg = "helper exited unexpectedly"
		}
		return nil, fmt.Errorf("%s", msg)
	}
	var resp helperResponse
	if err := json.Unmarshal(b.stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("parse helper output: %w", err)
	}
	return &resp, nil
}

// TranscribeChunk 转写一个 chunk
// 去掉 trim 后为空的分段；语言可能为空串（info 里没报）
func (b *fasterWhisperBackend) TranscribeChunk(path string) (Result, error) {
	if err := b.stdin.Encode(helperRequest{Path: path}); err != nil {
		return Result{}, fmt.Errorf("send request: %w", err)
	}
	resp, err := b.readLine()
	if err != nil {
		return Result{}, err
	}
	if resp.Error != "" {
		return Result{}, fmt.Errorf("%s", resp.Error)
	}

	var res Result
	if resp.Language != nil {
		res.Language = *resp.Language
	}
	var texts []string
	for _, s := range resp.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		res.Segments = append(res.Segments, Segment{Start: s.Start, End: s.End, Text: text})
		texts = append(texts, text)
	}
	res.Text = strings.TrimSpace(strings.Join(texts, " "))
	return res, nil
}

func (b *fasterWhisperBackend) Close() error {
	if b.cmd.Process != nil {
		b.cmd.Process.Kill()
	}
	return b.cmd.Wait()
}
