package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"listen/internal/conf"
)

// EnrichmentError 调 chat completions 失败：非 2xx 或传输层错误
type EnrichmentError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *EnrichmentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("llm request failed: %v", e.Err)
	}
	return fmt.Sprintf("llm request failed: status=%d body=%s", e.StatusCode, e.Body)
}

func (e *EnrichmentError) Unwrap() error {
	return e.Err
}

// Client OpenWebUI / Ollama 兼容的 OpenAI chat completions 客户端
type Client struct {
	url         string
	apiKey      string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

func NewClient(cfg conf.LLMConfig) *Client {
	return &Client{
		url:         cfg.URL,
		apiKey:      cfg.APIKey,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		httpClient: &http.Client{
			// 唯一的超时兜底：长文摘要可能很慢
			Timeout: 120 * time.Second,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete 发一次非流式 chat 请求，返回第一个 choice 的内容（去掉首尾空白）
func (c *Client) Complete(model, systemPrompt, userText string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userText},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Stream:      false,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest(http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	// 只有配了 key 才带凭证
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &EnrichmentError{Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &EnrichmentError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &EnrichmentError{StatusCode: resp.StatusCode, Body: string(body), Err: err}
	}
	if len(parsed.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

var brTagRe = regexp.MustCompile(`(?i)<br\s*/?>`)

// NormalizeMarkdown 把模型吐出来的 <br> 换成真换行，纯外观清理
func NormalizeMarkdown(md string) string {
	if md == "" {
		return md
	}
	return brTagRe.ReplaceAllString(md, "\n")
}
