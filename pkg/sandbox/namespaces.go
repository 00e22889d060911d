package sandbox

import (
	"regexp"

	"github.com/dop251/goja"

	"github.com/blackcoderx/hopp/pkg/templating"
)

var curlyPlaceholder = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

func (s *session) keyArg(call goja.FunctionCall, i int) string {
	v := call.Argument(i)
	if _, isString := v.Export().(string); !isString {
		panic(s.jsError("Expected key to be a string"))
	}
	return v.String()
}

func (s *session) valueArg(call goja.FunctionCall, i int) string {
	v := call.Argument(i)
	if _, isString := v.Export().(string); !isString {
		panic(s.jsError("Expected value to be a string"))
	}
	return v.String()
}

func (s *session) nullable(value string, ok bool) goja.Value {
	if !ok {
		return goja.Null()
	}
	return s.vm.ToValue(value)
}

func (s *session) undefinable(value string, ok bool) goja.Value {
	if !ok {
		return goja.Undefined()
	}
	return s.vm.ToValue(value)
}

// coerce turns any script value into the string an env variable stores.
func coerce(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	return v.String()
}

func (s *session) methods(obj *goja.Object, fns map[string]func(goja.FunctionCall) goja.Value) *goja.Object {
	for name, f := range fns {
		s.set(obj, name, s.fn(f))
	}
	return obj
}

// hoppEnvScope builds the hopp.env methods for one source.
func (s *session) hoppEnvScope(src Source) *goja.Object {
	return s.methods(s.vm.NewObject(), map[string]func(goja.FunctionCall) goja.Value{
		"get": func(call goja.FunctionCall) goja.Value {
			return s.nullable(s.envs.GetResolve(s.keyArg(call, 0), src))
		},
		"getRaw": func(call goja.FunctionCall) goja.Value {
			v, ok := s.envs.Get(s.keyArg(call, 0), src)
			return s.nullable(v.CurrentValue, ok)
		},
		"getInitialRaw": func(call goja.FunctionCall) goja.Value {
			v, ok := s.envs.Get(s.keyArg(call, 0), src)
			return s.nullable(v.InitialValue, ok)
		},
		"set": func(call goja.FunctionCall) goja.Value {
			s.envs.Set(s.keyArg(call, 0), s.valueArg(call, 1), src)
			return goja.Undefined()
		},
		"setInitial": func(call goja.FunctionCall) goja.Value {
			s.envs.SetInitial(s.keyArg(call, 0), s.valueArg(call, 1), src)
			return goja.Undefined()
		},
		"delete": func(call goja.FunctionCall) goja.Value {
			s.envs.Unset(s.keyArg(call, 0), src)
			return goja.Undefined()
		},
		"reset": func(call goja.FunctionCall) goja.Value {
			s.envs.Reset(s.keyArg(call, 0), src)
			return goja.Undefined()
		},
	})
}

func (s *session) hoppEnv() *goja.Object {
	env := s.hoppEnvScope(SourceAll)
	s.set(env, "active", s.freezeObject(s.hoppEnvScope(SourceActive)))
	s.set(env, "global", s.freezeObject(s.hoppEnvScope(SourceGlobal)))
	return s.freezeObject(env)
}

func (s *session) pwEnv() *goja.Object {
	return s.methods(s.vm.NewObject(), map[string]func(goja.FunctionCall) goja.Value{
		"get": func(call goja.FunctionCall) goja.Value {
			v, ok := s.envs.Get(s.keyArg(call, 0), SourceAll)
			return s.undefinable(v.CurrentValue, ok)
		},
		"getResolve": func(call goja.FunctionCall) goja.Value {
			return s.undefinable(s.envs.GetResolve(s.keyArg(call, 0), SourceAll))
		},
		"set": func(call goja.FunctionCall) goja.Value {
			s.envs.Set(s.keyArg(call, 0), s.valueArg(call, 1), SourceAll)
			return goja.Undefined()
		},
		"unset": func(call goja.FunctionCall) goja.Value {
			s.envs.Unset(s.keyArg(call, 0), SourceAll)
			return goja.Undefined()
		},
		"resolve": func(call goja.FunctionCall) goja.Value {
			v := call.Argument(0)
			if _, isString := v.Export().(string); !isString {
				panic(s.jsError("Expected value to be a string"))
			}
			return s.vm.ToValue(templating.Resolve(v.String(), s.envs.Variables(SourceAll)))
		},
	})
}

// pmScope builds pm.environment (active) or pm.globals (global).
func (s *session) pmScope(src Source) *goja.Object {
	list := func() []string {
		vars := s.envs.Selected
		if src == SourceGlobal {
			vars = s.envs.Global
		}
		keys := make([]string, 0, len(vars))
		for _, v := range vars {
			keys = append(keys, v.Key)
		}
		return keys
	}
	return s.methods(s.vm.NewObject(), map[string]func(goja.FunctionCall) goja.Value{
		"get": func(call goja.FunctionCall) goja.Value {
			v, ok := s.envs.Get(call.Argument(0).String(), src)
			return s.undefinable(v.CurrentValue, ok)
		},
		"set": func(call goja.FunctionCall) goja.Value {
			s.envs.Set(call.Argument(0).String(), coerce(call.Argument(1)), src)
			return goja.Undefined()
		},
		"has": func(call goja.FunctionCall) goja.Value {
			_, ok := s.envs.Get(call.Argument(0).String(), src)
			return s.vm.ToValue(ok)
		},
		"unset": func(call goja.FunctionCall) goja.Value {
			s.envs.Unset(call.Argument(0).String(), src)
			return goja.Undefined()
		},
		"clear": func(goja.FunctionCall) goja.Value {
			for _, key := range list() {
				s.envs.Unset(key, src)
			}
			return goja.Undefined()
		},
		"toObject": func(goja.FunctionCall) goja.Value {
			obj := s.vm.NewObject()
			for _, key := range list() {
				v, _ := s.envs.Get(key, src)
				s.set(obj, key, v.CurrentValue)
			}
			return obj
		},
	})
}

func (s *session) pmVariables() *goja.Object {
	return s.methods(s.vm.NewObject(), map[string]func(goja.FunctionCall) goja.Value{
		"get": func(call goja.FunctionCall) goja.Value {
			v, ok := s.envs.Get(call.Argument(0).String(), SourceAll)
			return s.undefinable(v.CurrentValue, ok)
		},
		"set": func(call goja.FunctionCall) goja.Value {
			s.envs.Set(call.Argument(0).String(), coerce(call.Argument(1)), SourceActive)
			return goja.Undefined()
		},
		"has": func(call goja.FunctionCall) goja.Value {
			_, ok := s.envs.Get(call.Argument(0).String(), SourceAll)
			return s.vm.ToValue(ok)
		},
		"replaceIn": func(call goja.FunctionCall) goja.Value {
			vars := s.envs.Variables(SourceAll)
			out := curlyPlaceholder.ReplaceAllStringFunc(call.Argument(0).String(), func(match string) string {
				if value, ok := templating.Lookup(vars, match[2:len(match)-2]); ok {
					return value
				}
				return match
			})
			return s.vm.ToValue(out)
		},
	})
}

// installPreRequest sets up the globals a pre-request script sees. view
// collects the script's request changes.
func (s *session) installPreRequest(view *requestView) error {
	return s.guard(func() {
		pw := s.vm.NewObject()
		s.set(pw, "env", s.pwEnv())

		hopp := s.vm.NewObject()
		s.set(hopp, "env", s.hoppEnv())
		s.set(hopp, "request", s.requestObject(view, true))

		pm := s.vm.NewObject()
		s.set(pm, "environment", s.pmScope(SourceActive))
		s.set(pm, "globals", s.pmScope(SourceGlobal))
		s.set(pm, "variables", s.pmVariables())

		s.global("pw", pw)
		s.global("hopp", s.freezeObject(hopp))
		s.global("pm", pm)
	})
}

// installTest sets up the globals a test script sees.
func (s *session) installTest(view *requestView, resp *Response) error {
	return s.guard(func() {
		test := s.testFunction()

		pw := s.vm.NewObject()
		s.set(pw, "env", s.pwEnv())
		s.set(pw, "expect", s.legacyExpectFunction())
		s.set(pw, "test", test)
		s.set(pw, "response", s.pwResponse(resp))

		hopp := s.vm.NewObject()
		s.set(hopp, "env", s.hoppEnv())
		s.set(hopp, "expect", s.expectFunction())
		s.set(hopp, "test", test)
		s.set(hopp, "request", s.requestObject(view, false))
		s.set(hopp, "response", s.hoppResponse(resp))

		pm := s.vm.NewObject()
		s.set(pm, "environment", s.pmScope(SourceActive))
		s.set(pm, "globals", s.pmScope(SourceGlobal))
		s.set(pm, "variables", s.pmVariables())
		s.set(pm, "test", test)
		s.set(pm, "expect", s.expectFunction())
		s.set(pm, "response", s.pmResponse(resp))

		s.global("pw", pw)
		s.global("hopp", s.freezeObject(hopp))
		s.global("pm", pm)
	})
}

func (s *session) global(name string, value goja.Value) {
	if err := s.vm.Set(name, value); err != nil {
		s.throw(err)
	}
}
