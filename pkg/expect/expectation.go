package expect

import (
	"strings"

	"github.com/dop251/goja"

	"github.com/blackcoderx/hopp/pkg/report"
)

// Flag is a chain modifier that changes how later assertions compare.
type Flag uint16

const (
	Deep Flag = 1 << iota
	Own
	Nested
	Ordered
	Any
	All
	Include
	Itself
	Length
)

var flagWords = map[Flag]string{
	Deep:    "deep",
	Own:     "own",
	Nested:  "nested",
	Ordered: "ordered",
	Any:     "any",
	All:     "all",
	Include: "include",
	Itself:  "itself",
	Length:  "length",
}

// Expectation is one step of an assertion chain. Chain methods return a new
// Expectation and never modify the receiver, so a partially built chain can
// be reused.
type Expectation struct {
	en      *Engine
	subject goja.Value
	negated bool
	flags   Flag
	words   []string
	change  *changeState
}

// Subject returns the value under test.
func (e *Expectation) Subject() goja.Value { return e.subject }

// Negated reports whether results are inverted.
func (e *Expectation) Negated() bool { return e.negated }

// Has reports whether f is set on the chain.
func (e *Expectation) Has(f Flag) bool { return e.flags&f != 0 }

// Modifiers returns the chain words so far, such as "to not have".
func (e *Expectation) Modifiers() string { return strings.Join(e.words, " ") }

func (e *Expectation) clone() *Expectation {
	c := *e
	c.words = append([]string(nil), e.words...)
	c.change = nil
	return &c
}

// Word appends a language-chain word that only affects messages.
func (e *Expectation) Word(w string) *Expectation {
	c := e.clone()
	c.words = append(c.words, w)
	return c
}

// To restarts the message words. Negation and flags carry over.
func (e *Expectation) To() *Expectation {
	c := e.clone()
	c.words = []string{"to"}
	if c.negated {
		c.words = append(c.words, "not")
	}
	return c
}

// Not toggles negation.
func (e *Expectation) Not() *Expectation {
	c := e.clone()
	c.negated = !c.negated
	c.words = []string{"to"}
	if c.negated {
		c.words = append(c.words, "not")
	}
	return c
}

// With sets a flag and adds its word to the message.
func (e *Expectation) With(f Flag) *Expectation {
	c := e.clone()
	c.flags |= f
	if w, ok := flagWords[f]; ok {
		c.words = append(c.words, w)
	}
	return c
}

// silently sets a flag without touching the message words.
func (e *Expectation) silently(f Flag) *Expectation {
	c := e.clone()
	c.flags |= f
	return c
}

// on continues the chain on a different subject with the same words.
func (e *Expectation) on(subject goja.Value) *Expectation {
	c := e.clone()
	if subject == nil {
		subject = goja.Undefined()
	}
	c.subject = subject
	return c
}

func (e *Expectation) record(pass bool, message string) {
	status := report.StatusFail
	if pass {
		status = report.StatusPass
	}
	e.en.rec.Record(status, message)
}

// assert records ok, inverted under negation, with a message built from the
// chain words.
func (e *Expectation) assert(ok bool, assertion string, args ...string) *Expectation {
	e.record(ok != e.negated, BuildMessage(e.en.Display(e.subject), e.Modifiers(), assertion, args...))
	return e
}
