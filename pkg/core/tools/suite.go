package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/blackcoderx/hopp/pkg/core"
	"github.com/blackcoderx/hopp/pkg/report"
	"github.com/blackcoderx/hopp/pkg/sandbox"
	"github.com/blackcoderx/hopp/pkg/storage"
)

// SuiteRunner runs the requests of a collection in order. Variable changes
// made by one request's scripts are visible to the next.
type SuiteRunner struct {
	pipeline   *core.Pipeline
	workspace  *Workspace
	limiter    *rate.Limiter
	bail       bool
	resultsDir string
	logger     *slog.Logger
}

// SuiteOption configures a SuiteRunner.
type SuiteOption func(*SuiteRunner)

// WithLimiter throttles requests. A nil limiter means no limit.
func WithLimiter(l *rate.Limiter) SuiteOption {
	return func(s *SuiteRunner) { s.limiter = l }
}

// WithBail stops the run at the first request that fails.
func WithBail(bail bool) SuiteOption {
	return func(s *SuiteRunner) { s.bail = bail }
}

// WithResultsDir sets where SaveResults writes.
func WithResultsDir(dir string) SuiteOption {
	return func(s *SuiteRunner) { s.resultsDir = dir }
}

// WithSuiteLogger sets the logger.
func WithSuiteLogger(l *slog.Logger) SuiteOption {
	return func(s *SuiteRunner) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSuiteRunner creates a suite runner that loads requests from workspace
// and runs them through pipeline.
func NewSuiteRunner(pipeline *core.Pipeline, workspace *Workspace, opts ...SuiteOption) *SuiteRunner {
	s := &SuiteRunner{
		pipeline:   pipeline,
		workspace:  workspace,
		resultsDir: filepath.Join(workspace.BaseDir(), "test-results"),
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestResult is the outcome of one request in a suite.
type RequestResult struct {
	Name       string                 `json:"name"`
	Method     string                 `json:"method,omitempty"`
	URL        string                 `json:"url,omitempty"`
	Passed     bool                   `json:"passed"`
	StatusCode int                    `json:"status_code,omitempty"`
	Duration   time.Duration          `json:"duration"`
	Pass       int                    `json:"pass"`
	Fail       int                    `json:"fail"`
	Errors     int                    `json:"errors"`
	Error      string                 `json:"error,omitempty"`
	Warning    string                 `json:"warning,omitempty"`
	Tests      *report.Node           `json:"tests,omitempty"`
	Console    []sandbox.ConsoleEntry `json:"console,omitempty"`
}

// SuiteResult represents the result of an entire suite
type SuiteResult struct {
	RunID     string          `json:"run_id"`
	Name      string          `json:"name"`
	StartTime time.Time       `json:"start_time"`
	EndTime   time.Time       `json:"end_time"`
	Duration  time.Duration   `json:"duration"`
	Total     int             `json:"total"`
	Passed    int             `json:"passed"`
	Failed    int             `json:"failed"`
	Latency   LatencyStats    `json:"latency"`
	Requests  []RequestResult `json:"requests"`
	// Envs is the variable state after the last request ran.
	Envs sandbox.Envs `json:"-"`
}

// AllPassed reports whether every request in the collection ran and passed.
func (r *SuiteResult) AllPassed() bool {
	return r.Failed == 0 && r.Passed == r.Total
}

// Run executes col. It returns an error only when the run was cut short by
// ctx; per-request failures are recorded in the result.
func (s *SuiteRunner) Run(ctx context.Context, col *storage.Collection, envs sandbox.Envs) (*SuiteResult, error) {
	result := &SuiteResult{
		RunID:     uuid.NewString(),
		Name:      col.Name,
		StartTime: time.Now(),
		Total:     len(col.Requests),
		Requests:  make([]RequestResult, 0, len(col.Requests)),
		Envs:      envs,
	}
	s.logger.Info("suite started", "suite", col.Name, "run_id", result.RunID, "requests", len(col.Requests))

	var latencies []time.Duration
	var runErr error
	for _, name := range col.Requests {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				runErr = err
				break
			}
		}
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		rr := s.runOne(ctx, name, &result.Envs)
		result.Requests = append(result.Requests, rr)
		if rr.StatusCode != 0 {
			latencies = append(latencies, rr.Duration)
		}

		if rr.Passed {
			result.Passed++
			continue
		}
		result.Failed++
		if s.bail {
			s.logger.Info("stopping suite after failure", "request", name)
			break
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	result.Latency = ComputeLatencyStats(latencies)
	s.logger.Info("suite finished", "suite", col.Name, "passed", result.Passed, "failed", result.Failed)
	return result, runErr
}

func (s *SuiteRunner) runOne(ctx context.Context, name string, envs *sandbox.Envs) RequestResult {
	rr := RequestResult{Name: name}

	req, err := s.workspace.LoadRequest(name)
	if err != nil {
		rr.Error = err.Error()
		return rr
	}

	run, err := s.pipeline.Run(ctx, req, *envs)
	if run != nil {
		*envs = run.Envs
		if run.Effective != nil {
			rr.Method = run.Effective.Method
			rr.URL, _ = run.Effective.WireURL()
		}
		if run.Response != nil {
			rr.StatusCode = run.Response.StatusCode
			rr.Duration = run.Response.Duration
		}
		if run.Tests != nil {
			rr.Tests = run.Tests
			rr.Pass, rr.Fail, rr.Errors = run.Tests.Counts()
		}
		if run.PreRequestError != nil {
			rr.Warning = run.PreRequestError.Error()
		}
		rr.Console = run.Console
	}
	if err != nil {
		s.logger.Warn("request failed", "request", name, "error", err)
		rr.Error = err.Error()
		return rr
	}

	rr.Passed = run.Passed()
	return rr
}

// SaveResults writes result as JSON into the results directory and returns
// the file path.
func (s *SuiteRunner) SaveResults(result *SuiteResult) (string, error) {
	if err := os.MkdirAll(s.resultsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create results directory: %w", err)
	}

	timestamp := result.StartTime.Format("2006-01-02-15-04-05")
	safeName := strings.ToLower(strings.ReplaceAll(result.Name, " ", "-"))
	if safeName == "" {
		safeName = "suite"
	}
	runID := result.RunID
	if len(runID) > 8 {
		runID = runID[:8]
	}
	resultPath := filepath.Join(s.resultsDir, fmt.Sprintf("%s-%s-%s.json", safeName, timestamp, runID))

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := os.WriteFile(resultPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write results: %w", err)
	}
	return resultPath, nil
}

// FormatResults formats the suite results for display
func FormatResults(result *SuiteResult) string {
	var sb strings.Builder

	if result.AllPassed() {
		sb.WriteString(fmt.Sprintf("✓ Suite: %s - ALL PASSED\n", result.Name))
	} else {
		sb.WriteString(fmt.Sprintf("✗ Suite: %s - FAILURES DETECTED\n", result.Name))
	}
	sb.WriteString(strings.Repeat("=", 60) + "\n\n")

	sb.WriteString(fmt.Sprintf("Run: %s\n", result.RunID))
	sb.WriteString(fmt.Sprintf("Total: %d requests\n", result.Total))
	sb.WriteString(fmt.Sprintf("Passed: %d\n", result.Passed))
	sb.WriteString(fmt.Sprintf("Failed: %d\n", result.Failed))
	if skipped := result.Total - len(result.Requests); skipped > 0 {
		sb.WriteString(fmt.Sprintf("Skipped: %d\n", skipped))
	}
	sb.WriteString(fmt.Sprintf("Duration: %v\n", result.Duration))
	sb.WriteString(fmt.Sprintf("Latency: %s\n\n", result.Latency))

	for i, r := range result.Requests {
		mark := "✓"
		if !r.Passed {
			mark = "✗"
		}
		sb.WriteString(fmt.Sprintf("%d. %s %s\n", i+1, mark, r.Name))
		sb.WriteString(fmt.Sprintf("   Status: %d | Duration: %v | Tests: %d passed, %d failed, %d errors\n",
			r.StatusCode, r.Duration, r.Pass, r.Fail, r.Errors))
		if r.Warning != "" {
			sb.WriteString(fmt.Sprintf("   Warning: %s\n", r.Warning))
		}
		if r.Error != "" {
			sb.WriteString(fmt.Sprintf("   Error: %s\n", r.Error))
		}
	}

	return sb.String()
}
