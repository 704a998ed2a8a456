package backboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"copium-tutor/internal/config"
)

// Client talks to the memory service REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(cfg config.BackboardConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return strings.TrimSpace(c.apiKey) != ""
}

func (c *Client) CreateAssistant(ctx context.Context, name, description string) (*Assistant, error) {
	body, err := json.Marshal(map[string]string{
		"name":        name,
		"description": description,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal assistant request failed: %w", err)
	}

	var out Assistant
	if err := c.do(ctx, http.MethodPost, "/assistants", "application/json", bytes.NewReader(body), &out); err != nil {
		return nil, fmt.Errorf("create assistant failed: %w", err)
	}
	return &out, nil
}

func (c *Client) CreateThread(ctx context.Context, assistantID string) (*Thread, error) {
	var out Thread
	path := "/assistants/" + url.PathEscape(assistantID) + "/threads"
	if err := c.do(ctx, http.MethodPost, path, "application/json", strings.NewReader("{}"), &out); err != nil {
		return nil, fmt.Errorf("create thread failed: %w", err)
	}
	return &out, nil
}

// GetThread is the liveness check for a stored thread. It returns
// ErrNotFound when the thread no longer exists.
func (c *Client) GetThread(ctx context.Context, threadID string) (*Thread, error) {
	var out Thread
	if err := c.do(ctx, http.MethodGet, "/threads/"+url.PathEscape(threadID), "", nil, &out); err != nil {
		return nil, fmt.Errorf("get thread failed: %w", err)
	}
	return &out, nil
}

func (c *Client) ListThreadDocuments(ctx context.Context, threadID string) ([]Document, error) {
	var raw json.RawMessage
	path := "/threads/" + url.PathEscape(threadID) + "/documents"
	if err := c.do(ctx, http.MethodGet, path, "", nil, &raw); err != nil {
		return nil, fmt.Errorf("list thread documents failed: %w", err)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var docs []Document
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			return nil, fmt.Errorf("parse thread documents failed: %w", err)
		}
		return docs, nil
	}
	var wrapped struct {
		Documents []Document `json:"documents"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("parse thread documents failed: %w", err)
	}
	return wrapped.Documents, nil
}

// UploadDocument sends the file at path to the thread as multipart form data.
func (c *Client) UploadDocument(ctx context.Context, threadID, path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open upload file failed: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("build upload form failed: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("copy upload file failed: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close upload form failed: %w", err)
	}

	var out Document
	endpoint := "/threads/" + url.PathEscape(threadID) + "/documents"
	if err := c.do(ctx, http.MethodPost, endpoint, writer.FormDataContentType(), &buf, &out); err != nil {
		return nil, fmt.Errorf("upload document failed: %w", err)
	}
	return &out, nil
}

// SendMessage posts content to the thread and returns the reply text.
func (c *Client) SendMessage(ctx context.Context, threadID, content string, opts MessageOptions) (string, error) {
	form := url.Values{}
	form.Set("content", content)
	form.Set("stream", "false")
	if opts.LLMProvider != "" {
		form.Set("llm_provider", opts.LLMProvider)
	}
	if opts.ModelName != "" {
		form.Set("model_name", opts.ModelName)
	}
	memory := opts.Memory
	if memory == "" {
		memory = MemoryAuto
	}
	form.Set("memory", string(memory))

	var out messageReply
	endpoint := "/threads/" + url.PathEscape(threadID) + "/messages"
	if err := c.do(ctx, http.MethodPost, endpoint, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()), &out); err != nil {
		return "", fmt.Errorf("send message failed: %w", err)
	}
	return out.Content, nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backboard request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read backboard response failed: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Body: string(raw)}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse backboard json failed: %w", err)
	}
	return nil
}
