package sandbox

import (
	"encoding/json"
	"time"

	"github.com/dop251/goja"

	"github.com/blackcoderx/hopp/pkg/storage"
)

// Response is what a test script sees of the HTTP response.
type Response struct {
	Status     int
	StatusText string
	Headers    []storage.KeyValue
	Body       []byte
	Duration   time.Duration
}

type headerView struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (s *session) headersValue(resp *Response) goja.Value {
	headers := make([]headerView, 0, len(resp.Headers))
	for _, h := range resp.Headers {
		headers = append(headers, headerView{Key: h.Key, Value: h.Value})
	}
	data, _ := json.Marshal(headers)
	return s.toJS(data)
}

// parsedBody is the body as pw.response exposes it: parsed JSON when the
// body is JSON, the raw text otherwise.
func (s *session) parsedBody(resp *Response) goja.Value {
	if len(resp.Body) > 0 && json.Valid(resp.Body) {
		return s.toJS(resp.Body)
	}
	return s.vm.ToValue(string(resp.Body))
}

func (s *session) bodyJSON(resp *Response) goja.Value {
	if len(resp.Body) == 0 {
		return goja.Null()
	}
	if !json.Valid(resp.Body) {
		panic(s.jsError("Invalid JSON string"))
	}
	return s.toJS(resp.Body)
}

func (s *session) bodyBytes(resp *Response) goja.Value {
	ctor := s.vm.Get("Uint8Array")
	arr, err := s.vm.New(ctor, s.vm.ToValue(s.vm.NewArrayBuffer(append([]byte(nil), resp.Body...))))
	if err != nil {
		s.throw(err)
	}
	return arr
}

// hoppResponse builds the frozen hopp.response object.
func (s *session) hoppResponse(resp *Response) *goja.Object {
	text := s.fn(func(goja.FunctionCall) goja.Value { return s.vm.ToValue(string(resp.Body)) })
	asJSON := s.fn(func(goja.FunctionCall) goja.Value { return s.bodyJSON(resp) })

	body := s.vm.NewObject()
	s.readOnly(body, "asText", text)
	s.readOnly(body, "asJSON", asJSON)
	s.readOnly(body, "bytes", s.fn(func(goja.FunctionCall) goja.Value { return s.bodyBytes(resp) }))
	s.freezeObject(body)

	obj := s.vm.NewObject()
	s.readOnly(obj, "statusCode", s.vm.ToValue(resp.Status))
	s.readOnly(obj, "statusText", s.vm.ToValue(resp.StatusText))
	s.readOnly(obj, "headers", s.headersValue(resp))
	s.readOnly(obj, "responseTime", s.vm.ToValue(resp.Duration.Milliseconds()))
	s.readOnly(obj, "body", body)
	s.readOnly(obj, "text", text)
	s.readOnly(obj, "json", asJSON)
	return s.freezeObject(obj)
}

// pwResponse builds pw.response: {status, headers, body}.
func (s *session) pwResponse(resp *Response) *goja.Object {
	obj := s.vm.NewObject()
	s.set(obj, "status", resp.Status)
	s.set(obj, "headers", s.headersValue(resp))
	s.set(obj, "body", s.parsedBody(resp))
	return obj
}

// pmResponse builds the subset of pm.response that maps onto the same data.
func (s *session) pmResponse(resp *Response) *goja.Object {
	obj := s.vm.NewObject()
	s.set(obj, "code", resp.Status)
	s.set(obj, "status", resp.StatusText)
	s.set(obj, "responseTime", resp.Duration.Milliseconds())
	s.set(obj, "headers", s.headersValue(resp))
	s.set(obj, "text", func(goja.FunctionCall) goja.Value { return s.vm.ToValue(string(resp.Body)) })
	s.set(obj, "json", func(goja.FunctionCall) goja.Value { return s.bodyJSON(resp) })
	return obj
}

// jsError builds a plain Error so scripts see the same type they would throw
// themselves.
func (s *session) jsError(msg string) *goja.Object {
	obj, err := s.vm.New(s.vm.Get("Error"), s.vm.ToValue(msg))
	if err != nil {
		return s.vm.NewGoError(err)
	}
	return obj
}
