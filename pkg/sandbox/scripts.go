package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dop251/goja"

	"github.com/blackcoderx/hopp/pkg/report"
	"github.com/blackcoderx/hopp/pkg/storage"
)

// PreRequestResult is what a pre-request script hands back. Request is the
// script's view of the request after its changes; it has not been merged
// with the original and is nil when no script ran.
type PreRequestResult struct {
	Request *storage.Request
	Envs    Envs
	Console []ConsoleEntry
}

// TestResult is the outcome of a test script.
type TestResult struct {
	Tests   *report.Node
	Envs    Envs
	Console []ConsoleEntry
}

// RunPreRequest runs script against a JSON view of req. req itself is not
// modified.
func (r *Runner) RunPreRequest(ctx context.Context, script string, req *storage.Request, envs Envs) (*PreRequestResult, error) {
	if strings.TrimSpace(script) == "" {
		return &PreRequestResult{Envs: envs.Clone()}, nil
	}

	s, err := r.newSession(envs)
	if err != nil {
		return nil, fmt.Errorf("failed to create script runtime: %w", err)
	}
	view := newRequestView(req)
	if err := s.installPreRequest(view); err != nil {
		return nil, fmt.Errorf("failed to set up pre-request script: %w", err)
	}
	if err := r.execute(ctx, s, script); err != nil {
		return nil, err
	}

	return &PreRequestResult{
		Request: view.toRequest(req),
		Envs:    s.envs,
		Console: s.console,
	}, nil
}

// RunTest runs a test script against the response and returns the report
// tree. Failed assertions are results, not errors; only a script that
// cannot run to completion returns an error.
func (r *Runner) RunTest(ctx context.Context, script string, req *storage.Request, resp *Response, envs Envs) (*TestResult, error) {
	if resp == nil {
		return nil, errors.New("test scripts need a response")
	}

	s, err := r.newSession(envs)
	if err != nil {
		return nil, fmt.Errorf("failed to create script runtime: %w", err)
	}
	if strings.TrimSpace(script) != "" {
		if err := s.installTest(newRequestView(req), resp); err != nil {
			return nil, fmt.Errorf("failed to set up test script: %w", err)
		}
		if err := r.execute(ctx, s, script); err != nil {
			return nil, err
		}
	}

	root := s.stack.Root()
	pass, fail, errs := root.Counts()
	r.logger.Debug("test script finished", "pass", pass, "fail", fail, "error", errs)
	return &TestResult{Tests: root, Envs: s.envs, Console: s.console}, nil
}

// guard runs setup code that reports failures by panicking the way native
// functions do, and turns the panic back into an error.
func (s *session) guard(f func()) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		switch v := r.(type) {
		case *goja.Exception:
			err = v
		case goja.Value:
			err = errors.New(thrownMessage(v))
		case error:
			err = v
		default:
			panic(r)
		}
	}()
	f()
	return nil
}
