package sandbox

import (
	"errors"
	"strings"

	"github.com/dop251/goja"

	"github.com/blackcoderx/hopp/pkg/expect"
	"github.com/blackcoderx/hopp/pkg/report"
)

var languageWords = []string{
	"be", "been", "is", "that", "which", "and", "has", "have",
	"with", "at", "of", "same", "but", "does", "still", "also",
}

var modifierFlags = map[string]expect.Flag{
	"deep":    expect.Deep,
	"own":     expect.Own,
	"nested":  expect.Nested,
	"ordered": expect.Ordered,
	"any":     expect.Any,
	"all":     expect.All,
	"itself":  expect.Itself,
}

// chainKeys lists every property a chain object answers to.
var chainKeys = func() map[string]bool {
	keys := map[string]bool{}
	for _, w := range languageWords {
		keys[w] = true
	}
	for w := range modifierFlags {
		keys[w] = true
	}
	for _, w := range strings.Fields(`to not include includes contain contains a an length lengthOf
		ok true false null undefined NaN exist empty extensible sealed frozen finite arguments Arguments
		equal equals eq eql eqls above gt greaterThan below lt lessThan least gte greaterThanOrEqual
		most lte lessThanOrEqual within closeTo approximately property ownProperty haveOwnProperty
		nestedProperty ownPropertyDescriptor haveOwnPropertyDescriptor keys key instanceof instanceOf
		match matches string members oneOf throw throws Throw respondTo respondsTo satisfy satisfies
		change changes increase increases decrease decreases by jsonSchema jsonPath charset cookie
		toBe toBeLevel2xx toBeLevel3xx toBeLevel4xx toBeLevel5xx toBeType toHaveLength toInclude`) {
		keys[w] = true
	}
	return keys
}()

// chainObject exposes an Expectation to scripts. Every property read builds
// the next step of the chain, so the object itself is never mutated.
type chainObject struct {
	s *session
	e *expect.Expectation
}

func (c *chainObject) Get(key string) goja.Value   { return c.s.chainProperty(c.e, key) }
func (c *chainObject) Set(string, goja.Value) bool { return false }
func (c *chainObject) Has(key string) bool         { return chainKeys[key] }
func (c *chainObject) Delete(string) bool          { return false }
func (c *chainObject) Keys() []string              { return nil }

func (s *session) wrap(e *expect.Expectation) *goja.Object {
	return s.vm.NewDynamicObject(&chainObject{s: s, e: e})
}

// expectFunction builds the chai-style expect(value) with expect.fail.
func (s *session) expectFunction() *goja.Object {
	expectFn := s.fn(func(call goja.FunctionCall) goja.Value {
		return s.wrap(s.en.Expect(call.Argument(0)))
	}).(*goja.Object)
	s.set(expectFn, "fail", s.fn(func(call goja.FunctionCall) goja.Value {
		s.en.Fail(call.Arguments...)
		return goja.Undefined()
	}))
	return expectFn
}

// testFunction builds test(descriptor, fn). An exception inside fn ends that
// block with an error result; sibling blocks still run.
func (s *session) testFunction() goja.Value {
	return s.fn(func(call goja.FunctionCall) goja.Value {
		descriptor := call.Argument(0).String()
		body, ok := goja.AssertFunction(call.Argument(1))
		s.stack.Run(descriptor, func() error {
			if !ok {
				return nil
			}
			if _, err := body(goja.Undefined()); err != nil {
				var interrupted *goja.InterruptedError
				if errors.As(err, &interrupted) {
					panic(interrupted)
				}
				return errors.New(exceptionMessage(err))
			}
			return nil
		})
		return goja.Undefined()
	})
}

// exceptionMessage returns the message of a thrown error, or the thrown
// value itself when it is not an error object.
func exceptionMessage(err error) string {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		return thrownMessage(ex.Value())
	}
	return err.Error()
}

func thrownMessage(v goja.Value) string {
	if obj, ok := v.(*goja.Object); ok {
		if msg := obj.Get("message"); msg != nil && !goja.IsUndefined(msg) {
			return msg.String()
		}
	}
	if v == nil {
		return "undefined"
	}
	return v.String()
}

// terminal evaluates an assertion. Outside any test block an evaluation
// error is recorded on the root node; inside one it propagates so the
// block stops.
func (s *session) terminal(run func() (*expect.Expectation, error)) (ret goja.Value) {
	if s.stack.Depth() == 1 {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			var msg string
			switch v := r.(type) {
			case *goja.Exception:
				msg = thrownMessage(v.Value())
			case goja.Value:
				msg = thrownMessage(v)
			default:
				panic(r)
			}
			s.stack.Record(report.StatusError, msg)
			ret = goja.Undefined()
		}()
	}

	next, err := run()
	if err != nil {
		s.throw(err)
	}
	if next == nil {
		return goja.Undefined()
	}
	return s.wrap(next)
}

func (s *session) method(run func(call goja.FunctionCall) (*expect.Expectation, error)) *goja.Object {
	return s.fn(func(call goja.FunctionCall) goja.Value {
		return s.terminal(func() (*expect.Expectation, error) { return run(call) })
	}).(*goja.Object)
}

// callable is a chain step that is also a function, such as include or an:
// calling it asserts, reading a property from it continues the chain from
// proto.
func (s *session) callable(proto *expect.Expectation, run func(call goja.FunctionCall) (*expect.Expectation, error)) *goja.Object {
	fn := s.method(run)
	if err := fn.SetPrototype(s.wrap(proto)); err != nil {
		s.throw(err)
	}
	return fn
}

func hasArg(call goja.FunctionCall, i int) bool { return len(call.Arguments) > i }

func chained(e *expect.Expectation) (*expect.Expectation, error) { return e, nil }

func (s *session) chainProperty(e *expect.Expectation, key string) goja.Value {
	if f, isFlag := modifierFlags[key]; isFlag {
		return s.wrap(e.With(f))
	}

	switch key {
	case "to":
		return s.wrap(e.To())
	case "be", "been", "is", "that", "which", "and", "has", "have",
		"with", "at", "of", "same", "but", "does", "still", "also":
		return s.wrap(e.Word(key))
	case "not":
		return s.wrap(e.Not())

	case "include", "includes", "contain", "contains":
		return s.callable(e.With(expect.Include), func(call goja.FunctionCall) (*expect.Expectation, error) {
			return chained(e.Include(call.Argument(0)))
		})
	case "a", "an":
		return s.callable(e, func(call goja.FunctionCall) (*expect.Expectation, error) {
			return chained(e.A(key, call.Argument(0).String()))
		})
	case "length", "lengthOf":
		return s.callable(e.With(expect.Length), func(call goja.FunctionCall) (*expect.Expectation, error) {
			return chained(e.LengthOf(call.Argument(0), key))
		})

	case "ok":
		return s.terminal(func() (*expect.Expectation, error) { return chained(e.Ok()) })
	case "true":
		return s.terminal(func() (*expect.Expectation, error) { return chained(e.True()) })
	case "false":
		return s.terminal(func() (*expect.Expectation, error) { return chained(e.False()) })
	case "null":
		return s.terminal(func() (*expect.Expectation, error) { return chained(e.Null()) })
	case "undefined":
		return s.terminal(func() (*expect.Expectation, error) { return chained(e.Undefined()) })
	case "NaN":
		return s.terminal(func() (*expect.Expectation, error) { return chained(e.NaN()) })
	case "exist":
		return s.terminal(func() (*expect.Expectation, error) { return chained(e.Exist()) })
	case "empty":
		return s.terminal(func() (*expect.Expectation, error) { return chained(e.Empty()) })
	case "extensible":
		return s.terminal(func() (*expect.Expectation, error) { return chained(e.Extensible()) })
	case "sealed":
		return s.terminal(func() (*expect.Expectation, error) { return chained(e.Sealed()) })
	case "frozen":
		return s.terminal(func() (*expect.Expectation, error) { return chained(e.Frozen()) })
	case "finite":
		return s.terminal(func() (*expect.Expectation, error) { return chained(e.Finite()) })
	case "arguments", "Arguments":
		return s.terminal(func() (*expect.Expectation, error) { return chained(e.Arguments(key)) })
	}

	if m := s.chainMethod(e, key); m != nil {
		return m
	}
	if m := s.legacyMethod(e, key); m != nil {
		return m
	}
	return nil
}

func (s *session) chainMethod(e *expect.Expectation, key string) *goja.Object {
	var run func(call goja.FunctionCall) (*expect.Expectation, error)

	switch key {
	case "equal", "equals", "eq":
		run = func(call goja.FunctionCall) (*expect.Expectation, error) {
			return chained(e.Equal(call.Argument(0), key))
		}
	case "eql", "eqls":
		run = func(call goja.FunctionCall) (*expect.Expectation, error) {
			return chained(e.Eql(call.Argument(0), key))
		}
	case "above", "gt", "greaterThan", "below", "lt", "lessThan",
		"least", "gte", "greaterThanOrEqual", "most", "lte", "lessThanOrEqual":
		op := comparisonOp(key)
		run = func(call goja.FunctionCall) (*expect.Expectation, error) {
			return chained(e.Compare(op, call.Argument(0)))
		}
	case "within":
		run = func(call goja.FunctionCall) (*expect.Expectation, error) {
			return chained(e.Within(call.Argument(0), call.Argument(1)))
		}
	case "closeTo", "approximately":
		run = func(call goja.FunctionCall) (*expect.Expectation, error) {
			return chained(e.CloseTo(call.Argument(0), call.Argument(1), key))
		}
	case "property":
		run = func(call goja.FunctionCall) (*expect.Expectation, error) {
			return chained(e.Property(call.Argument(0).String(), call.Argument(1), hasArg(call, 1)))
		}
	case "ownProperty", "haveOwnProperty":
		run = func(call goja.FunctionCall) (*expect.Expectation, error) {
			return chained(e.OwnProperty(call.Argument(0).String(), call.Argument(1), hasArg(call, 1)))
		}
	case "nestedProperty":
		run = func(call goja.FunctionCall) (*expect.Expectation, error) {
			return chained(e.NestedProperty(call.Argument(0).String(), call.Argument(1), hasArg(call, 1)))
		}
	case "ownPropertyDescriptor", "haveOwnPropertyDescriptor":
		run = func(call goja.FunctionCall) (*expect.Expectation, error) {
			return chained(e.OwnPropertyDescriptor(call.Argument(0).String(), call.Argument(1), hasArg(call, 1)))
		}
	case "keys", "key":
		run = func(call goja.FunctionCall) (*expect.Expectation, error) {
			return e.Keys(call.Arguments, key)
		}
	case "instanceof", "instanceOf":
		run = func(call goja.FunctionCall) (*expect.Expectation, error) {
			return e.InstanceOf(call.Argument(0))
		}
	case "match", "matches":
		run = func(call goja.FunctionCall) (*expect.Expectation, error) {
			return chained(e.Match(call.Argument(0)))
		}
	case "string":
		run = func(call goja.FunctionCall) (*expect.Expectation, error) {
			return chained(e.HasString(call.Argument(0)))
		}
	case "members":
		run = func(call goja.FunctionCall) (*expect.Expectation, error) {
			return chained(e.Members(call.Argument(0)))
		}
	case "oneOf":
		run = func(call goja.FunctionCall) (*expect.Expectation, error) {
			return chained(e.OneOf(call.Argument(0)))
		}
	case "throw", "throws", "Throw":
		run = func(call goja.FunctionCall) (*expect.Expectation, error) {
			return chained(e.Throw(call.Arguments...))
		}
	case "respondTo", "respondsTo":
		run = func(call goja.FunctionCall) (*expect.Expectation, error) {
			return chained(e.RespondTo(call.Argument(0).String()))
		}
	case "satisfy", "satisfies":
		run = func(call goja.FunctionCall) (*expect.Expectation, error) {
			return e.Satisfy(call.Argument(0))
		}
	case "change", "changes", "increase", "increases", "decrease", "decreases":
		kind := strings.TrimSuffix(key, "s")
		run = func(call goja.FunctionCall) (*expect.Expectation, error) {
			return chained(e.Change(kind, call.Argument(0), call.Argument(1)))
		}
	case "by":
		run = func(call goja.FunctionCall) (*expect.Expectation, error) {
			return chained(e.By(call.Argument(0)))
		}
	case "jsonSchema":
		run = func(call goja.FunctionCall) (*expect.Expectation, error) {
			return e.JSONSchema(call.Argument(0))
		}
	case "jsonPath":
		run = func(call goja.FunctionCall) (*expect.Expectation, error) {
			return e.JSONPath(call.Argument(0).String(), call.Argument(1), hasArg(call, 1))
		}
	case "charset":
		run = func(call goja.FunctionCall) (*expect.Expectation, error) {
			return chained(e.Charset(call.Argument(0)))
		}
	case "cookie":
		run = func(call goja.FunctionCall) (*expect.Expectation, error) {
			return chained(e.Cookie(call.Argument(0).String(), call.Argument(1), hasArg(call, 1)))
		}
	default:
		return nil
	}
	return s.method(run)
}

func comparisonOp(key string) string {
	switch key {
	case "above", "gt", "greaterThan":
		return "above"
	case "below", "lt", "lessThan":
		return "below"
	case "least", "gte", "greaterThanOrEqual":
		return "at least"
	default:
		return "at most"
	}
}

// legacyMethod lets chai chains answer the pw.expect matcher names too.
func (s *session) legacyMethod(e *expect.Expectation, key string) *goja.Object {
	if !strings.HasPrefix(key, "to") || !chainKeys[key] {
		return nil
	}
	legacy := s.en.Legacy(e.Subject())
	if e.Negated() {
		legacy = legacy.Not()
	}
	m, found := s.legacyMethods(legacy)[key]
	if !found {
		return nil
	}
	return m
}

func (s *session) legacyMethods(l *expect.Legacy) map[string]*goja.Object {
	method := func(f func(call goja.FunctionCall)) *goja.Object {
		return s.fn(func(call goja.FunctionCall) goja.Value {
			f(call)
			return goja.Undefined()
		}).(*goja.Object)
	}
	level := func(n int) *goja.Object {
		return method(func(goja.FunctionCall) { l.ToBeLevel(n) })
	}
	return map[string]*goja.Object{
		"toBe":         method(func(call goja.FunctionCall) { l.ToBe(call.Argument(0)) }),
		"toBeLevel2xx": level(2),
		"toBeLevel3xx": level(3),
		"toBeLevel4xx": level(4),
		"toBeLevel5xx": level(5),
		"toBeType":     method(func(call goja.FunctionCall) { l.ToBeType(call.Argument(0)) }),
		"toHaveLength": method(func(call goja.FunctionCall) { l.ToHaveLength(call.Argument(0)) }),
		"toInclude":    method(func(call goja.FunctionCall) { l.ToInclude(call.Argument(0)) }),
	}
}

// legacyExpectFunction builds pw.expect(value), the matcher-style API with a
// single level of .not.
func (s *session) legacyExpectFunction() goja.Value {
	return s.fn(func(call goja.FunctionCall) goja.Value {
		l := s.en.Legacy(call.Argument(0))
		obj := s.vm.NewObject()
		for name, m := range s.legacyMethods(l) {
			s.set(obj, name, m)
		}
		negated := s.vm.NewObject()
		for name, m := range s.legacyMethods(l.Not()) {
			s.set(negated, name, m)
		}
		s.set(obj, "not", negated)
		return obj
	})
}
