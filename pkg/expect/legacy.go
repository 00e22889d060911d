package expect

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/dop251/goja"

	"github.com/blackcoderx/hopp/pkg/report"
)

var legacyTypes = []string{"string", "boolean", "number", "object", "undefined", "bigint", "symbol", "function"}

// Legacy is the matcher object returned by pw.expect. Unlike chai chains it
// has a fixed set of terminal methods and one level of negation.
type Legacy struct {
	en      *Engine
	subject goja.Value
	negated bool
}

// Legacy starts a pw.expect matcher on subject.
func (en *Engine) Legacy(subject goja.Value) *Legacy {
	if subject == nil {
		subject = goja.Undefined()
	}
	return &Legacy{en: en, subject: subject}
}

// Not returns the negated matcher.
func (l *Legacy) Not() *Legacy {
	return &Legacy{en: l.en, subject: l.subject, negated: !l.negated}
}

func (l *Legacy) not() string {
	if l.negated {
		return " not"
	}
	return ""
}

func (l *Legacy) result(ok bool, message string) {
	status := report.StatusFail
	if ok != l.negated {
		status = report.StatusPass
	}
	l.en.rec.Record(status, message)
}

func (l *Legacy) fail(message string) {
	l.en.rec.Record(report.StatusError, message)
}

// ToBe asserts strict equality.
func (l *Legacy) ToBe(expected goja.Value) {
	if expected == nil {
		expected = goja.Undefined()
	}
	l.result(l.subject.StrictEquals(expected),
		fmt.Sprintf("Expected '%s' to%s be '%s'", jsString(l.subject), l.not(), jsString(expected)))
}

// ToBeLevel asserts the subject is a status code in the given hundred,
// e.g. level 2 for 200-299. A non-numeric subject records an error.
func (l *Legacy) ToBeLevel(level int) {
	lo := level * 100
	if !isNumber(l.subject) || math.IsNaN(l.subject.ToFloat()) {
		l.fail(fmt.Sprintf("Expected %d-level status but could not parse value '%s'", lo, jsString(l.subject)))
		return
	}
	v := l.subject.ToFloat()
	l.result(v >= float64(lo) && v <= float64(lo+99),
		fmt.Sprintf("Expected '%s' to%s be %d-level status", jsString(l.subject), l.not(), lo))
}

// ToBeType compares typeof subject with typ.
func (l *Legacy) ToBeType(typ goja.Value) {
	name := jsString(typ)
	if typeOf(typ) != "string" || !slices.Contains(legacyTypes, name) {
		l.fail(`Argument for toBeType should be "string", "boolean", "number", "object", "undefined", "bigint", "symbol" or "function"`)
		return
	}
	actual := typeOf(l.subject)
	if actual == "null" {
		actual = "object"
	}
	l.result(actual == name,
		fmt.Sprintf("Expected '%s' to%s be type '%s'", jsString(l.subject), l.not(), name))
}

// ToHaveLength asserts the length of an array or string.
func (l *Legacy) ToHaveLength(n goja.Value) {
	if classOf(l.subject) != "Array" && typeOf(l.subject) != "string" {
		l.fail("Expected toHaveLength to be called for an array or string")
		return
	}
	if !isNumber(n) || isNaN(n) {
		l.fail("Argument for toHaveLength should be a number")
		return
	}
	length, _ := l.en.lengthOf(l.subject)
	l.result(float64(length) == n.ToFloat(),
		fmt.Sprintf("Expected the array to%s be of length '%s'", l.not(), jsString(n)))
}

// ToInclude asserts an array contains needle, or a string contains it as a
// substring.
func (l *Legacy) ToInclude(needle goja.Value) {
	if needle == nil {
		needle = goja.Undefined()
	}
	isString := typeOf(l.subject) == "string"
	if classOf(l.subject) != "Array" && !isString {
		l.fail("Expected toInclude to be called for an array or string")
		return
	}
	switch {
	case goja.IsNull(needle):
		l.fail("Argument for toInclude should not be null")
		return
	case goja.IsUndefined(needle):
		l.fail("Argument for toInclude should not be undefined")
		return
	}

	ok := false
	if isString {
		ok = strings.Contains(l.subject.String(), jsString(needle))
	} else {
		items, _ := arrayItems(l.subject)
		for _, item := range items {
			if item.SameAs(needle) || item.StrictEquals(needle) {
				ok = true
				break
			}
		}
	}
	l.result(ok, fmt.Sprintf("Expected %s to%s include %s", l.json(l.subject), l.not(), l.json(needle)))
}

func (l *Legacy) json(v goja.Value) string {
	out, err := l.en.call(l.en.stringify, nil, v)
	if err != nil || goja.IsUndefined(out) {
		return jsString(v)
	}
	return out.String()
}
