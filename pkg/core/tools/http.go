package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/blackcoderx/hopp/pkg/core"
	"github.com/blackcoderx/hopp/pkg/effective"
	"github.com/blackcoderx/hopp/pkg/storage"
)

// DefaultTimeout is used when NewHTTPTool is given a zero timeout.
const DefaultTimeout = 30 * time.Second

// HTTPTool sends effective requests over HTTP. It implements core.Executor.
type HTTPTool struct {
	client *http.Client
}

// NewHTTPTool creates an HTTP tool whose requests time out after timeout.
func NewHTTPTool(timeout time.Duration) *HTTPTool {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPTool{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// NewHTTPToolWithClient wraps an existing client.
func NewHTTPToolWithClient(client *http.Client) *HTTPTool {
	return &HTTPTool{client: client}
}

// Do sends req and reads the whole response.
func (t *HTTPTool) Do(ctx context.Context, req *effective.Request) (*core.Response, error) {
	startTime := time.Now()

	target, ok := req.WireURL()
	if !ok {
		return nil, fmt.Errorf("invalid URL: %s", req.FinalURL)
	}

	body, contentType, err := req.FinalBody.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode body: %w", err)
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for _, h := range req.FinalHeaders {
		httpReq.Header.Add(h.Key, h.Value)
	}
	// The multipart boundary is only known once the body is encoded.
	if contentType != "" && (req.FinalBody.IsMultipart() || httpReq.Header.Get("Content-Type") == "") {
		httpReq.Header.Set("Content-Type", contentType)
	}

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &core.Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Headers:    responseHeaders(httpResp.Header),
		Body:       bodyBytes,
		Duration:   time.Since(startTime),
	}, nil
}

// responseHeaders flattens h into rows sorted by key, one row per value.
func responseHeaders(h http.Header) []storage.KeyValue {
	keys := make([]string, 0, len(h))
	for key := range h {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var rows []storage.KeyValue
	for _, key := range keys {
		for _, value := range h[key] {
			rows = append(rows, storage.KeyValue{Key: key, Value: value, Active: true})
		}
	}
	return rows
}

// FormatRequest renders an effective request for display.
func FormatRequest(req *effective.Request) string {
	var sb strings.Builder

	target, _ := req.WireURL()
	sb.WriteString(fmt.Sprintf("%s %s\n\n", strings.ToUpper(req.Method), target))

	if len(req.FinalHeaders) > 0 {
		sb.WriteString("Headers:\n")
		for _, h := range req.FinalHeaders {
			sb.WriteString(fmt.Sprintf("  %s: %s\n", h.Key, h.Value))
		}
		sb.WriteString("\n")
	}

	b := req.FinalBody
	switch {
	case b.ContentType == "":
	case b.IsMultipart():
		sb.WriteString("Body (multipart):\n")
		for _, p := range b.Parts {
			if p.File != nil {
				sb.WriteString(fmt.Sprintf("  %s: <file %s, %d bytes>\n", p.Key, p.File.Name, len(p.File.Data)))
			} else {
				sb.WriteString(fmt.Sprintf("  %s: %s\n", p.Key, p.Value))
			}
		}
	case b.Binary != nil:
		sb.WriteString(fmt.Sprintf("Body: <%s, %d bytes>\n", b.Binary.Name, len(b.Binary.Data)))
	default:
		sb.WriteString("Body:\n")
		sb.WriteString(prettyBody([]byte(b.Text)))
		sb.WriteString("\n")
	}

	return sb.String()
}

// FormatResponse formats the HTTP response for display
func FormatResponse(r *core.Response) string {
	var sb strings.Builder

	// Status line
	sb.WriteString(fmt.Sprintf("Status: %s (%dms)\n\n", r.Status, r.Duration.Milliseconds()))

	sb.WriteString("Headers:\n")
	for _, h := range r.Headers {
		sb.WriteString(fmt.Sprintf("  %s: %s\n", h.Key, h.Value))
	}
	sb.WriteString("\n")

	sb.WriteString("Body:\n")
	sb.WriteString(prettyBody(r.Body))

	return sb.String()
}

// prettyBody indents JSON and returns anything else as is.
func prettyBody(body []byte) string {
	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, body, "", "  "); err == nil {
		return prettyJSON.String()
	}
	return string(body)
}
