package llm

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"listen/internal/conf"
)

func newTestClient(url, apiKey string) *Client {
	return NewClient(conf.LLMConfig{
		URL:         url,
		APIKey:      apiKey,
		Temperature: 0.7,
		MaxTokens:   1024,
	})
}

func TestCompleteSendsChatRequest(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"  hello there  "}}]}`))
	}))
	defer srv.Close()

	out, err := newTestClient(srv.URL, "sekret").Complete("gpt-oss:20b", "be brief", "transcript text")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out != "hello there" {
		t.Fatalf("content = %q", out)
	}
	if gotAuth != "Bearer sekret" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if gotBody["model"] != "gpt-oss:20b" {
		t.Fatalf("model = %v", gotBody["model"])
	}
	if gotBody["stream"] != false {
		t.Fatal("stream must be false")
	}
	msgs := gotBody["messages"].([]interface{})
	if len(msgs) != 2 {
		t.Fatalf("messages = %d", len(msgs))
	}
	sys := msgs[0].(map[string]interface{})
	if sys["role"] != "system" || sys["content"] != "be brief" {
		t.Fatalf("system message = %v", sys)
	}
}

func TestCompleteWithoutAPIKeyOmitsAuth(t *testing.T) {
	var sawAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawAuth = r.Header["Authorization"]
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	out, err := newTestClient(srv.URL, "").Complete("m", "", "text")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if sawAuth {
		t.Fatal("must not send Authorization without a key")
	}
	// 没有 choices → 空串
	if out != "" {
		t.Fatalf("content = %q", out)
	}
}

func TestCompleteNon2xxIsEnrichmentError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, "").Complete("m", "", "text")
	var ee *EnrichmentError
	if !errors.As(err, &ee) {
		t.Fatalf("want EnrichmentError, got %T: %v", err, err)
	}
	if ee.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d", ee.StatusCode)
	}
	if ee.Body != "upstream exploded" {
		t.Fatalf("body = %q", ee.Body)
	}
}

func TestCompleteTransportErrorIsEnrichmentError(t *testing.T) {
	// 端口没人听
	_, err := newTestClient("http://127.0.0.1:1/v1/chat/completions", "").Complete("m", "", "x")
	var ee *EnrichmentError
	if !errors.As(err, &ee) {
		t.Fatalf("want EnrichmentError, got %T: %v", err, err)
	}
}

func TestNormalizeMarkdown(t *testing.T) {
	cases := []struct{ in, want string }{
		{"a<br>b", "a\nb"},
		{"a<BR>b", "a\nb"},
		{"a<br/>b", "a\nb"},
		{"a<br />b", "a\nb"},
		{"no tags", "no tags"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeMarkdown(tc.in); got != tc.want {
			t.Errorf("NormalizeMarkdown(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
