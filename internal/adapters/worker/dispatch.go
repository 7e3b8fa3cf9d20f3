package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/target/mmk-ce-queue/internal/domain/model"
)

const maxResponseBodyBytes = 4 * 1024 // 4KB keeps failure messages bounded

// DispatcherOptions configures an HTTP task dispatcher.
type DispatcherOptions struct {
	URL        string
	Timeout    time.Duration
	HTTPClient *http.Client
	Headers    map[string]string
}

// Dispatcher hands claimed tasks to an external analyzer over HTTP. The
// analyzer answers 2xx with an optional {"analysis_id": "..."} body; any other
// status fails the task with the response body as message.
type Dispatcher struct {
	url     string
	http    *http.Client
	headers map[string]string
}

// NewDispatcher validates opts and returns a Dispatcher.
func NewDispatcher(opts DispatcherOptions) (*Dispatcher, error) {
	url := strings.TrimSpace(opts.URL)
	if url == "" {
		return nil, errors.New("dispatch url is required")
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Minute
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Dispatcher{url: url, http: hc, headers: opts.Headers}, nil
}

// Handle implements HandlerFunc.
func (d *Dispatcher) Handle(ctx context.Context, task *model.Task) (*model.TaskResult, error) {
	body, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("encode task: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range d.headers {
		req.Header.Set(k, v)
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	respBody, truncated, readErr := readResponseBody(resp.Body)
	if closeErr := resp.Body.Close(); closeErr != nil && readErr == nil {
		readErr = closeErr
	}
	if readErr != nil {
		return nil, fmt.Errorf("read response body: %w", readErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := fmt.Sprintf("analyzer returned status %d", resp.StatusCode)
		if respBody != "" {
			msg += ": " + respBody
		}
		if truncated {
			msg += " (truncated)"
		}
		return nil, &model.TaskError{Type: "http_status", Message: msg}
	}
	return decodeResult(respBody)
}

func decodeResult(body string) (*model.TaskResult, error) {
	if strings.TrimSpace(body) == "" {
		return &model.TaskResult{}, nil
	}
	var payload struct {
		AnalysisID string `json:"analysis_id"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return nil, fmt.Errorf("decode analyzer response: %w", err)
	}
	result := &model.TaskResult{}
	if payload.AnalysisID != "" {
		result.AnalysisID = &payload.AnalysisID
	}
	return result, nil
}

func readResponseBody(body io.Reader) (string, bool, error) {
	if body == nil {
		return "", false, nil
	}
	limited := io.LimitReader(body, maxResponseBodyBytes+1)
	data, readErr := io.ReadAll(limited)
	truncated := len(data) > maxResponseBodyBytes
	if truncated {
		data = data[:maxResponseBodyBytes]
		if _, drainErr := io.Copy(io.Discard, body); drainErr != nil && readErr == nil {
			readErr = drainErr
		}
	}
	return string(data), truncated, readErr
}
