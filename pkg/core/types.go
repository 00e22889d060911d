// Package core runs saved requests end to end: pre-request script, merge of
// the script's changes, effective request build, network call and test
// script.
package core

import (
	"context"
	"time"

	"github.com/blackcoderx/hopp/pkg/effective"
	"github.com/blackcoderx/hopp/pkg/sandbox"
	"github.com/blackcoderx/hopp/pkg/storage"
)

// Executor sends an effective request over the network.
// Implementations return an error only when no response was received.
type Executor interface {
	Do(ctx context.Context, req *effective.Request) (*Response, error)
}

// Response is a received HTTP response.
type Response struct {
	StatusCode int                `json:"statusCode"`
	Status     string             `json:"status"`
	Headers    []storage.KeyValue `json:"headers"`
	Body       []byte             `json:"-"`
	Duration   time.Duration      `json:"duration"`
}

// ScriptView converts the response into what test scripts see.
func (r *Response) ScriptView() *sandbox.Response {
	return &sandbox.Response{
		Status:     r.StatusCode,
		StatusText: r.Status,
		Headers:    r.Headers,
		Body:       r.Body,
		Duration:   r.Duration,
	}
}

// RunEvent reports progress through a pipeline run.
type RunEvent struct {
	// Type is one of "pre_request", "token", "request", "response",
	// "tests" or "warning"
	Type    string
	Content string
	// Request is set for "request" events
	Request *effective.Request
	// Response is set for "response" events
	Response *Response
}

// EventCallback receives pipeline events as they happen.
type EventCallback func(RunEvent)
