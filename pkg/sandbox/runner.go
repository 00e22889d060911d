// Package sandbox runs user pre-request and test scripts in an isolated goja
// runtime. Scripts exchange data with the host only through JSON-shaped
// values: environment variables, a request view, and the test report.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dop251/goja"

	"github.com/blackcoderx/hopp/pkg/expect"
	"github.com/blackcoderx/hopp/pkg/report"
)

// DefaultTimeout bounds a script run when no timeout is configured.
const DefaultTimeout = 5 * time.Second

const maxCallStackSize = 1024

// ErrTimeout is returned when a script is interrupted for running too long.
var ErrTimeout = errors.New("script execution timed out")

// ScriptError is a script that failed to compile or threw an uncaught
// exception.
type ScriptError struct {
	Message string
}

func (e *ScriptError) Error() string {
	return "script error: " + e.Message
}

// Runner executes scripts. A Runner holds no per-run state and may be used
// from several goroutines; each run gets its own runtime.
type Runner struct {
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithTimeout sets the wall-clock limit for one script run. Zero or a
// negative value disables the limit.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) { r.timeout = d }
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner returns a Runner with DefaultTimeout and a discarding logger.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{timeout: DefaultTimeout, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ConsoleEntry is one console.* call made by a script.
type ConsoleEntry struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// session is the state of a single script run.
type session struct {
	vm      *goja.Runtime
	logger  *slog.Logger
	envs    Envs
	stack   *report.Stack
	en      *expect.Engine
	console []ConsoleEntry

	stringify goja.Callable
	parse     goja.Callable
	freeze    goja.Callable
}

func (r *Runner) newSession(envs Envs) (*session, error) {
	vm := goja.New()
	vm.SetMaxCallStackSize(maxCallStackSize)

	s := &session{
		vm:     vm,
		logger: r.logger,
		envs:   envs.Clone(),
		stack:  report.NewStack(),
	}

	en, err := expect.NewEngine(vm, s.stack)
	if err != nil {
		return nil, err
	}
	s.en = en

	jsonObj := vm.Get("JSON").ToObject(vm)
	objectCtor := vm.Get("Object").ToObject(vm)
	for dst, src := range map[*goja.Callable]goja.Value{
		&s.stringify: jsonObj.Get("stringify"),
		&s.parse:     jsonObj.Get("parse"),
		&s.freeze:    objectCtor.Get("freeze"),
	} {
		fn, ok := goja.AssertFunction(src)
		if !ok {
			return nil, errors.New("runtime is missing JSON or Object built-ins")
		}
		*dst = fn
	}

	if err := vm.Set("console", s.consoleObject()); err != nil {
		return nil, err
	}
	return s, nil
}

// execute runs script until it finishes, ctx is done, or the timeout fires.
func (r *Runner) execute(ctx context.Context, s *session, script string) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	start := time.Now()
	_, err := s.vm.RunString(script)
	s.vm.ClearInterrupt()
	r.logger.Debug("script finished", "duration", time.Since(start), "error", err)
	if err == nil {
		return nil
	}

	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if cause, ok := interrupted.Value().(error); ok && errors.Is(cause, context.DeadlineExceeded) && r.timeout > 0 {
			return ErrTimeout
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("script interrupted: %v", interrupted.Value())
	}
	return &ScriptError{Message: errorMessage(err)}
}

// errorMessage extracts a readable message from a runtime error.
func errorMessage(err error) string {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		if obj, ok := ex.Value().(*goja.Object); ok {
			if msg := obj.Get("message"); msg != nil && !goja.IsUndefined(msg) {
				name := obj.Get("name")
				if name != nil && !goja.IsUndefined(name) && name.String() != "Error" &&
					!strings.HasPrefix(msg.String(), name.String()+":") {
					return name.String() + ": " + msg.String()
				}
				return msg.String()
			}
		}
		if ex.Value() != nil {
			return ex.Value().String()
		}
	}
	var syntax *goja.CompilerSyntaxError
	if errors.As(err, &syntax) {
		return syntax.Error()
	}
	return err.Error()
}

// throw rethrows err inside the runtime. Exceptions keep their identity and
// interrupts unwind the whole run.
func (s *session) throw(err error) {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		panic(ex)
	}
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		panic(interrupted)
	}
	panic(s.vm.NewTypeError(err.Error()))
}

// toJS converts a Go value to a plain runtime value through JSON.
func (s *session) toJS(data []byte) goja.Value {
	v, err := s.parse(goja.Undefined(), s.vm.ToValue(string(data)))
	if err != nil {
		s.throw(err)
	}
	return v
}

// fromJS serializes a runtime value with JSON.stringify. It returns "" for
// values JSON cannot represent.
func (s *session) fromJS(v goja.Value) string {
	out, err := s.stringify(goja.Undefined(), v)
	if err != nil {
		s.throw(err)
	}
	if out == nil || goja.IsUndefined(out) {
		return ""
	}
	return out.String()
}

func (s *session) fn(f func(goja.FunctionCall) goja.Value) goja.Value {
	return s.vm.ToValue(f)
}

// readOnly defines value as a non-writable enumerable property.
func (s *session) readOnly(obj *goja.Object, name string, value goja.Value) {
	if err := obj.DefineDataProperty(name, value, goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_TRUE); err != nil {
		s.throw(err)
	}
}

// set assigns obj[name], throwing into the runtime when the assignment fails.
func (s *session) set(obj *goja.Object, name string, value interface{}) {
	if err := obj.Set(name, value); err != nil {
		s.throw(err)
	}
}

func (s *session) freezeObject(obj *goja.Object) *goja.Object {
	if _, err := s.freeze(goja.Undefined(), obj); err != nil {
		s.throw(err)
	}
	return obj
}
