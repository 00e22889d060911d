// Package expect implements chai-style and legacy assertions over values
// living inside a goja runtime. Every terminal assertion appends exactly one
// result to a Recorder.
package expect

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"

	"github.com/blackcoderx/hopp/pkg/report"
)

// Recorder receives assertion results.
type Recorder interface {
	Record(status report.Status, message string)
	ReplaceLast(status report.Status, message string)
}

const helperSource = `(function () {
	return {
		entries: function (m) { return Array.from(m.entries()); },
		values: function (s) { return Array.from(s.values()); },
		iso: function (d) { return isNaN(d.getTime()) ? "Invalid Date" : d.toISOString(); },
		time: function (d) { return d.getTime(); },
		hasOwn: function (o, k) { return Object.prototype.hasOwnProperty.call(o, k); },
		has: function (o, k) { return k in Object(o); },
		extensible: function (o) { return Object.isExtensible(o); },
		sealed: function (o) { return Object.isSealed(o); },
		frozen: function (o) { return Object.isFrozen(o); },
		descriptor: function (o, k) { return Object.getOwnPropertyDescriptor(o, k); },
		regexp: function (s) { return new RegExp(s); },
		stringify: function (v) { return JSON.stringify(v); }
	};
})()`

// Engine creates expectations bound to one runtime and recorder.
type Engine struct {
	vm  *goja.Runtime
	rec Recorder

	entries    goja.Callable
	values     goja.Callable
	iso        goja.Callable
	time       goja.Callable
	hasOwn     goja.Callable
	has        goja.Callable
	extensible goja.Callable
	sealed     goja.Callable
	frozen     goja.Callable
	descriptor goja.Callable
	regexp     goja.Callable
	stringify  goja.Callable
}

// NewEngine prepares an engine for vm. Results go to rec.
func NewEngine(vm *goja.Runtime, rec Recorder) (*Engine, error) {
	v, err := vm.RunString(helperSource)
	if err != nil {
		return nil, fmt.Errorf("failed to install assertion helpers: %w", err)
	}
	obj := v.ToObject(vm)

	e := &Engine{vm: vm, rec: rec}
	bind := map[string]*goja.Callable{
		"entries":    &e.entries,
		"values":     &e.values,
		"iso":        &e.iso,
		"time":       &e.time,
		"hasOwn":     &e.hasOwn,
		"has":        &e.has,
		"extensible": &e.extensible,
		"sealed":     &e.sealed,
		"frozen":     &e.frozen,
		"descriptor": &e.descriptor,
		"regexp":     &e.regexp,
		"stringify":  &e.stringify,
	}
	for name, dst := range bind {
		fn, ok := goja.AssertFunction(obj.Get(name))
		if !ok {
			return nil, fmt.Errorf("assertion helper %s is not callable", name)
		}
		*dst = fn
	}
	return e, nil
}

// Runtime returns the runtime the engine works on.
func (en *Engine) Runtime() *goja.Runtime {
	return en.vm
}

// Expect starts a chain on subject.
func (en *Engine) Expect(subject goja.Value) *Expectation {
	if subject == nil {
		subject = goja.Undefined()
	}
	return &Expectation{en: en, subject: subject, words: []string{"to"}}
}

// Fail records an unconditional failure, as expect.fail does.
func (en *Engine) Fail(args ...goja.Value) {
	en.rec.Record(report.StatusFail, en.failMessage(args))
}

func (en *Engine) failMessage(args []goja.Value) string {
	arg := func(i int) goja.Value {
		if i < len(args) && args[i] != nil {
			return args[i]
		}
		return goja.Undefined()
	}
	actual, expected, message, operator := arg(0), arg(1), arg(2), arg(3)

	switch {
	case goja.IsUndefined(actual) && goja.IsUndefined(expected):
		return "expect.fail()"
	case goja.IsUndefined(expected) && goja.IsUndefined(message) && goja.IsUndefined(operator):
		if typeOf(actual) == "string" {
			return actual.String()
		}
		return "expect.fail()"
	case message.ToBoolean():
		return message.String()
	}

	op := "equal"
	if operator.ToBoolean() {
		op = operator.String()
	}
	return fmt.Sprintf("expected %s to %s %s", actual.String(), op, expected.String())
}

// call invokes a helper or user function. Interrupts are re-raised so the
// runtime unwinds instead of continuing past a timeout.
func (en *Engine) call(fn goja.Callable, this goja.Value, args ...goja.Value) (goja.Value, error) {
	if this == nil {
		this = goja.Undefined()
	}
	v, err := fn(this, args...)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			panic(interrupted)
		}
		return nil, err
	}
	return v, nil
}

// helper calls a built-in helper that is not expected to throw.
func (en *Engine) helper(fn goja.Callable, args ...goja.Value) goja.Value {
	v, err := en.call(fn, nil, args...)
	if err != nil {
		var ex *goja.Exception
		if errors.As(err, &ex) {
			panic(ex)
		}
		panic(en.vm.NewGoError(err))
	}
	return v
}
