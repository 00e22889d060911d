package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/blackcoderx/hopp/pkg/core/tools/auth"
	"github.com/blackcoderx/hopp/pkg/effective"
	"github.com/blackcoderx/hopp/pkg/report"
	"github.com/blackcoderx/hopp/pkg/sandbox"
	"github.com/blackcoderx/hopp/pkg/storage"
	"github.com/blackcoderx/hopp/pkg/templating"
)

// Pipeline runs a request through its scripts and the network.
type Pipeline struct {
	executor   Executor
	runner     *sandbox.Runner
	reconciler *sandbox.Reconciler
	logger     *slog.Logger
	callback   EventCallback

	tokenClient               *http.Client
	continueOnPreRequestError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger for the pipeline and its merge step.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithRunner replaces the default script runner.
func WithRunner(r *sandbox.Runner) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.runner = r
		}
	}
}

// WithEventCallback registers a progress callback.
func WithEventCallback(cb EventCallback) Option {
	return func(p *Pipeline) { p.callback = cb }
}

// WithTokenClient sets the HTTP client used for OAuth 2.0 token requests.
func WithTokenClient(c *http.Client) Option {
	return func(p *Pipeline) { p.tokenClient = c }
}

// WithContinueOnPreRequestError controls what happens when the pre-request
// script fails. When true (the default) the original request is sent and a
// warning is logged; when false the run stops with the script error.
func WithContinueOnPreRequestError(continueOnError bool) Option {
	return func(p *Pipeline) { p.continueOnPreRequestError = continueOnError }
}

// NewPipeline returns a pipeline that sends requests with executor.
func NewPipeline(executor Executor, opts ...Option) *Pipeline {
	p := &Pipeline{
		executor:                  executor,
		logger:                    slog.New(slog.DiscardHandler),
		continueOnPreRequestError: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.runner == nil {
		p.runner = sandbox.NewRunner(sandbox.WithLogger(p.logger))
	}
	p.reconciler = sandbox.NewReconciler(p.logger)
	return p
}

// RunResult is everything a run produced.
type RunResult struct {
	// Original is the request as loaded; Request is what the pre-request
	// script turned it into after merging.
	Original  *storage.Request
	Request   *storage.Request
	Effective *effective.Request
	Response  *Response
	// Tests is nil when the request has no test script or never got a
	// response.
	Tests   *report.Node
	Envs    sandbox.Envs
	Console []sandbox.ConsoleEntry
	// PreRequestError is the pre-request script failure that was skipped
	// over, if any.
	PreRequestError error
}

// Passed reports whether the request got a response and no test failed.
func (r *RunResult) Passed() bool {
	return r.Response != nil && (r.Tests == nil || r.Tests.Passed())
}

func (p *Pipeline) emit(ev RunEvent) {
	if p.callback != nil {
		p.callback(ev)
	}
}

// Prepare runs the pre-request script and builds the effective request
// without sending it. The returned result has no Response.
func (p *Pipeline) Prepare(ctx context.Context, req *storage.Request, envs sandbox.Envs) (*RunResult, error) {
	result := &RunResult{Original: req, Request: req, Envs: envs.Clone()}

	if req.PreRequestScript != "" {
		p.emit(RunEvent{Type: "pre_request", Content: req.Name})
	}
	pre, err := p.runner.RunPreRequest(ctx, req.PreRequestScript, req, envs)
	switch {
	case err == nil:
		result.Request = p.reconciler.Apply(req, pre.Request)
		result.Envs = pre.Envs
		result.Console = append(result.Console, pre.Console...)
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case p.continueOnPreRequestError:
		p.logger.Warn("pre-request script failed, sending the original request", "request", req.Name, "error", err)
		p.emit(RunEvent{Type: "warning", Content: fmt.Sprintf("pre-request script failed: %v", err)})
		result.PreRequestError = err
	default:
		return nil, fmt.Errorf("pre-request script failed: %w", err)
	}

	var opts []effective.Option
	if auth.NeedsToken(result.Request.Auth) {
		token, err := p.fetchToken(ctx, result.Request, result.Envs)
		if err != nil {
			return nil, err
		}
		opts = append(opts, effective.WithToken(token))
	}

	result.Effective = effective.Build(result.Request, effective.Environment{
		Variables: storage.Resolvable(result.Envs.Selected),
		Globals:   storage.Resolvable(result.Envs.Global),
	}, opts...)
	return result, nil
}

// Run sends req and runs its test script against the response. Tests run
// only when a response arrived. When the test script itself cannot run,
// the result so far is returned together with the error.
func (p *Pipeline) Run(ctx context.Context, req *storage.Request, envs sandbox.Envs) (*RunResult, error) {
	result, err := p.Prepare(ctx, req, envs)
	if err != nil {
		return nil, err
	}

	p.emit(RunEvent{Type: "request", Request: result.Effective})
	p.logger.Debug("sending request", "method", result.Effective.Method, "url", result.Effective.FinalURL)
	resp, err := p.executor.Do(ctx, result.Effective)
	if err != nil {
		return result, fmt.Errorf("request failed: %w", err)
	}
	result.Response = resp
	p.emit(RunEvent{Type: "response", Response: resp})

	if result.Request.TestScript == "" {
		return result, nil
	}

	tests, err := p.runner.RunTest(ctx, result.Request.TestScript, result.Request, resp.ScriptView(), result.Envs)
	if err != nil {
		return result, fmt.Errorf("test script failed: %w", err)
	}
	result.Tests = tests.Tests
	result.Envs = tests.Envs
	result.Console = append(result.Console, tests.Console...)

	pass, fail, errs := tests.Tests.Counts()
	p.emit(RunEvent{Type: "tests", Content: fmt.Sprintf("%d passed, %d failed, %d errors", pass, fail, errs)})
	return result, nil
}

// fetchToken acquires an OAuth 2.0 access token for req. Grant settings may
// reference variables.
func (p *Pipeline) fetchToken(ctx context.Context, req *storage.Request, envs sandbox.Envs) (string, error) {
	vars := envs.Variables(sandbox.SourceAll)
	grant := auth.GrantFromInfo(req.Auth.GrantTypeInfo, func(s string) string {
		return templating.Resolve(s, vars)
	})

	if p.tokenClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.tokenClient)
	}
	p.emit(RunEvent{Type: "token", Content: grant.TokenURL})
	token, err := auth.FetchToken(ctx, grant)
	if err != nil {
		return "", fmt.Errorf("failed to acquire access token: %w", err)
	}
	if token.AccessToken == "" {
		return "", errors.New("token endpoint returned an empty access token")
	}
	return token.AccessToken, nil
}
