package sandbox

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/dop251/goja"

	"github.com/blackcoderx/hopp/pkg/storage"
)

var requestProps = []string{"url", "method", "params", "headers", "body", "auth"}

// bodyView is the script-side body: {contentType, body}. body is a string
// for text content types, a field list for multipart, and null otherwise.
type bodyView struct {
	ContentType *string         `json:"contentType"`
	Body        json.RawMessage `json:"body"`
}

// requestView is the JSON shape of a request inside the sandbox. Blobs do
// not cross into it: file fields arrive as empty non-file values.
type requestView struct {
	URL     string             `json:"url"`
	Method  string             `json:"method"`
	Params  []storage.KeyValue `json:"params"`
	Headers []storage.KeyValue `json:"headers"`
	Body    bodyView           `json:"body"`
	Auth    storage.Auth       `json:"auth"`
}

func newRequestView(req *storage.Request) *requestView {
	r := req.Clone()
	v := &requestView{
		URL:     r.Endpoint,
		Method:  r.Method,
		Params:  nonNil(r.Params),
		Headers: nonNil(r.Headers),
		Auth:    r.Auth,
		Body:    bodyView{Body: json.RawMessage("null")},
	}

	if ct := r.Body.ContentType; ct != "" {
		v.Body.ContentType = &ct
		switch ct {
		case storage.ContentTypeMultipart:
			fields := make([]storage.FormEntry, len(r.Body.Form))
			for i, f := range r.Body.Form {
				if f.IsFile {
					f.Value = ""
					f.IsFile = false
				}
				fields[i] = f
			}
			v.Body.Body, _ = json.Marshal(fields)
		case storage.ContentTypeOctetStream:
		default:
			v.Body.Body, _ = json.Marshal(r.Body.Raw)
		}
	}
	return v
}

func nonNil(kv []storage.KeyValue) []storage.KeyValue {
	if kv == nil {
		return []storage.KeyValue{}
	}
	return kv
}

// toRequest applies the view onto a copy of base. The result carries what
// the script could express; blobs are left for the merge step to restore.
func (v *requestView) toRequest(base *storage.Request) *storage.Request {
	out := base.Clone()
	out.Endpoint = v.URL
	out.Method = v.Method
	out.Params = slices.Clone(v.Params)
	out.Headers = slices.Clone(v.Headers)
	out.Auth = v.Auth
	out.Body = storage.Body{}

	if v.Body.ContentType == nil {
		return out
	}
	out.Body.ContentType = *v.Body.ContentType

	switch out.Body.ContentType {
	case storage.ContentTypeMultipart:
		var fields []formInput
		if err := json.Unmarshal(v.Body.Body, &fields); err == nil {
			out.Body.Form = make([]storage.FormEntry, 0, len(fields))
			for _, f := range fields {
				out.Body.Form = append(out.Body.Form, storage.FormEntry{
					Key:         f.Key,
					Value:       f.Value,
					Active:      f.Active == nil || *f.Active,
					ContentType: f.ContentType,
				})
			}
		}
	case storage.ContentTypeOctetStream:
		out.Body.BinarySrc = base.Body.BinarySrc
	default:
		var raw string
		if err := json.Unmarshal(v.Body.Body, &raw); err == nil {
			out.Body.Raw = raw
		} else if string(v.Body.Body) != "null" {
			out.Body.Raw = string(v.Body.Body)
		}
	}
	return out
}

func (v *requestView) prop(name string) any {
	switch name {
	case "url":
		return v.URL
	case "method":
		return v.Method
	case "params":
		return v.Params
	case "headers":
		return v.Headers
	case "body":
		return v.Body
	default:
		return v.Auth
	}
}

// formInput is a multipart field as scripts write it. Whatever isFile
// says, a script cannot produce file content.
type formInput struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Active      *bool  `json:"active"`
	ContentType string `json:"contentType"`
}

// keyValueInput is a header or param row as scripts write it. A missing
// active flag means active.
type keyValueInput struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Active      *bool  `json:"active"`
	Description string `json:"description"`
}

func (s *session) decodeKeyValues(v goja.Value, what string) []storage.KeyValue {
	var rows []keyValueInput
	if err := json.Unmarshal([]byte(s.fromJS(v)), &rows); err != nil {
		panic(s.vm.NewTypeError("Expected %s to be an array of {key, value} objects", what))
	}
	out := make([]storage.KeyValue, 0, len(rows))
	for _, r := range rows {
		active := r.Active == nil || *r.Active
		out = append(out, storage.KeyValue{Key: r.Key, Value: r.Value, Active: active, Description: r.Description})
	}
	return out
}

func (s *session) stringArg(call goja.FunctionCall, i int, what string) string {
	v := call.Argument(i)
	if _, isString := v.Export().(string); !isString {
		panic(s.vm.NewTypeError("Expected %s to be a string", what))
	}
	return v.String()
}

func setRow(rows []storage.KeyValue, key, value string, fold bool) []storage.KeyValue {
	for i := range rows {
		if rows[i].Key == key || (fold && strings.EqualFold(rows[i].Key, key)) {
			rows[i].Value = value
			rows[i].Active = true
			return rows
		}
	}
	return append(rows, storage.KeyValue{Key: key, Value: value, Active: true})
}

func removeRows(rows []storage.KeyValue, key string, fold bool) []storage.KeyValue {
	return slices.DeleteFunc(rows, func(kv storage.KeyValue) bool {
		return kv.Key == key || (fold && strings.EqualFold(kv.Key, key))
	})
}

// requestObject builds hopp.request. Properties are read-only snapshots;
// when mutable is set the setter methods change the view.
func (s *session) requestObject(v *requestView, mutable bool) *goja.Object {
	obj := s.vm.NewObject()

	for _, name := range requestProps {
		getter := s.fn(func(goja.FunctionCall) goja.Value {
			data, err := json.Marshal(v.prop(name))
			if err != nil {
				panic(s.vm.NewGoError(err))
			}
			return s.toJS(data)
		})
		setter := s.fn(func(goja.FunctionCall) goja.Value {
			panic(s.vm.NewTypeError("hopp.request.%s is read-only", name))
		})
		if err := obj.DefineAccessorProperty(name, getter, setter, goja.FLAG_FALSE, goja.FLAG_TRUE); err != nil {
			s.throw(err)
		}
	}

	if mutable {
		s.installSetters(obj, v)
	}
	return s.freezeObject(obj)
}

func (s *session) installSetters(obj *goja.Object, v *requestView) {
	set := func(name string, f func(call goja.FunctionCall)) {
		s.set(obj, name, s.fn(func(call goja.FunctionCall) goja.Value {
			f(call)
			return goja.Undefined()
		}))
	}

	set("setUrl", func(call goja.FunctionCall) {
		v.URL = s.stringArg(call, 0, "url")
	})
	set("setMethod", func(call goja.FunctionCall) {
		v.Method = strings.ToUpper(s.stringArg(call, 0, "method"))
	})
	set("setHeader", func(call goja.FunctionCall) {
		v.Headers = setRow(v.Headers, s.stringArg(call, 0, "header name"), s.stringArg(call, 1, "header value"), true)
	})
	set("setHeaders", func(call goja.FunctionCall) {
		v.Headers = s.decodeKeyValues(call.Argument(0), "headers")
	})
	set("removeHeader", func(call goja.FunctionCall) {
		v.Headers = removeRows(v.Headers, s.stringArg(call, 0, "header name"), true)
	})
	set("setParam", func(call goja.FunctionCall) {
		v.Params = setRow(v.Params, s.stringArg(call, 0, "param name"), s.stringArg(call, 1, "param value"), false)
	})
	set("setParams", func(call goja.FunctionCall) {
		v.Params = s.decodeKeyValues(call.Argument(0), "params")
	})
	set("removeParam", func(call goja.FunctionCall) {
		v.Params = removeRows(v.Params, s.stringArg(call, 0, "param name"), false)
	})
	set("setBody", func(call goja.FunctionCall) {
		v.Body = s.decodeBody(call.Argument(0))
	})
	set("setAuth", func(call goja.FunctionCall) {
		auth := v.Auth
		if auth.GrantTypeInfo != nil {
			g := *auth.GrantTypeInfo
			auth.GrantTypeInfo = &g
		}
		if err := json.Unmarshal([]byte(s.fromJS(call.Argument(0))), &auth); err != nil {
			panic(s.vm.NewTypeError("Expected auth to be an object: %v", err))
		}
		v.Auth = auth
	})
}

// decodeBody reads {contentType, body}. Multipart bodies keep their field
// list; other non-string bodies are stored as their JSON text.
func (s *session) decodeBody(arg goja.Value) bodyView {
	obj, isObj := arg.(*goja.Object)
	if !isObj {
		panic(s.vm.NewTypeError("Expected body to be an object"))
	}

	view := bodyView{Body: json.RawMessage("null")}
	ct := obj.Get("contentType")
	if ct == nil || goja.IsNull(ct) || goja.IsUndefined(ct) {
		return view
	}
	contentType := ct.String()
	view.ContentType = &contentType

	body := obj.Get("body")
	if body == nil || goja.IsUndefined(body) || goja.IsNull(body) {
		return view
	}
	switch {
	case contentType == storage.ContentTypeMultipart:
		view.Body = json.RawMessage(s.fromJS(body))
	default:
		if str, isString := body.Export().(string); isString {
			view.Body, _ = json.Marshal(str)
			break
		}
		view.Body, _ = json.Marshal(s.fromJS(body))
	}
	if len(view.Body) == 0 {
		view.Body = json.RawMessage("null")
	}
	return view
}
