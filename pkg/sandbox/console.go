package sandbox

import (
	"strings"

	"github.com/dop251/goja"
)

var consoleLevels = []string{"log", "info", "warn", "error", "debug"}

func (s *session) consoleObject() *goja.Object {
	obj := s.vm.NewObject()
	for _, level := range consoleLevels {
		s.set(obj, level, s.fn(func(call goja.FunctionCall) goja.Value {
			parts := make([]string, 0, len(call.Arguments))
			for _, arg := range call.Arguments {
				parts = append(parts, s.consoleString(arg))
			}
			s.console = append(s.console, ConsoleEntry{Level: level, Message: strings.Join(parts, " ")})
			return goja.Undefined()
		}))
	}
	return obj
}

// consoleString prints strings bare and objects as JSON, falling back to
// String() for values JSON cannot hold.
func (s *session) consoleString(v goja.Value) string {
	if obj, ok := v.(*goja.Object); ok {
		if _, isFn := goja.AssertFunction(obj); !isFn && obj.ClassName() != "Error" {
			out, err := s.stringify(goja.Undefined(), v)
			if err == nil && out != nil && !goja.IsUndefined(out) {
				return out.String()
			}
		}
	}
	if v == nil {
		return "undefined"
	}
	return v.String()
}
