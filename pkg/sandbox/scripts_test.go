package sandbox

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackcoderx/hopp/pkg/report"
	"github.com/blackcoderx/hopp/pkg/storage"
)

func pass(msg string) report.ExpectResult {
	return report.ExpectResult{Status: report.StatusPass, Message: msg}
}

func fail(msg string) report.ExpectResult {
	return report.ExpectResult{Status: report.StatusFail, Message: msg}
}

func errResult(msg string) report.ExpectResult {
	return report.ExpectResult{Status: report.StatusError, Message: msg}
}

func jsonResponse(body string) *Response {
	return &Response{
		Status:     200,
		StatusText: "OK",
		Headers:    []storage.KeyValue{{Key: "Content-Type", Value: "application/json", Active: true}},
		Body:       []byte(body),
		Duration:   12 * time.Millisecond,
	}
}

func runTest(t *testing.T, script string, resp *Response) *TestResult {
	t.Helper()
	res, err := NewRunner().RunTest(context.Background(), script, &storage.Request{Method: "GET", Endpoint: "https://example.com"}, resp, Envs{})
	require.NoError(t, err)
	return res
}

func child(t *testing.T, n *report.Node, descriptor string) *report.Node {
	t.Helper()
	for _, c := range n.Children {
		if c.Descriptor == descriptor {
			return c
		}
	}
	t.Fatalf("no test block %q", descriptor)
	return nil
}

func TestRunTestReportTree(t *testing.T) {
	res := runTest(t, `
		hopp.test("status", () => {
			hopp.expect(hopp.response.statusCode).to.equal(200);
			hopp.expect(hopp.response.statusCode).to.not.equal(404);
			hopp.expect(hopp.response.statusCode).to.equal(201);
		});
		hopp.test("outer", () => {
			hopp.test("inner", () => {
				hopp.expect(hopp.response.body.asJSON().id).to.equal(7);
			});
		});
	`, jsonResponse(`{"id":7}`))

	root := res.Tests
	assert.Equal(t, report.RootDescriptor, root.Descriptor)
	assert.Empty(t, root.ExpectResults)

	assert.Equal(t, []report.ExpectResult{
		pass("Expected 200 to equal 200"),
		pass("Expected 200 to not equal 404"),
		fail("Expected 200 to equal 201"),
	}, child(t, root, "status").ExpectResults)

	inner := child(t, child(t, root, "outer"), "inner")
	assert.Equal(t, []report.ExpectResult{pass("Expected 7 to equal 7")}, inner.ExpectResults)

	p, f, e := root.Counts()
	assert.Equal(t, [3]int{3, 1, 0}, [3]int{p, f, e})
}

func TestRunTestEqlVersusEqual(t *testing.T) {
	res := runTest(t, `
		hopp.test("objects", () => {
			hopp.expect({a: 1}).to.eql({a: 1});
			hopp.expect({a: 1}).to.equal({a: 1});
			hopp.expect({a: 1}).to.deep.equal({a: 1});
		});
	`, jsonResponse(`{}`))

	assert.Equal(t, []report.ExpectResult{
		pass("Expected {a: 1} to eql {a: 1}"),
		fail("Expected {a: 1} to equal {a: 1}"),
		pass("Expected {a: 1} to deep equal {a: 1}"),
	}, child(t, res.Tests, "objects").ExpectResults)
}

func TestRunTestMapAndSet(t *testing.T) {
	res := runTest(t, `
		hopp.test("collections", () => {
			hopp.expect(new Map([["a", 1]])).to.deep.equal(new Map([["a", 2]]));
			hopp.expect(new Set([1, 2])).to.include(2);
			hopp.expect(new Set([1])).to.eql(new Set([9]));
			hopp.expect(new Set([1])).to.be.empty;
		});
	`, jsonResponse(`{}`))

	assert.Equal(t, []report.ExpectResult{
		fail("Expected new Map([[a, 1]]) to deep equal new Map([[a, 2]])"),
		pass("Expected new Set([1, 2]) to include 2"),
		fail("Expected new Set([1]) to eql new Set([9])"),
		fail("Expected new Set([1]) to be empty"),
	}, child(t, res.Tests, "collections").ExpectResults)
}

func TestRunTestErrorIsolation(t *testing.T) {
	res := runTest(t, `
		hopp.test("before", () => { hopp.expect(1).to.equal(1); });
		hopp.test("boom", () => {
			hopp.expect(1).to.equal(1);
			throw new Error("kaboom");
			hopp.expect(1).to.equal(2);
		});
		hopp.test("bad json", () => { hopp.response.json(); });
		hopp.test("after", () => { hopp.expect(2).to.equal(2); });
	`, jsonResponse(`not json`))

	root := res.Tests
	require.Len(t, root.Children, 4)
	assert.Equal(t, []report.ExpectResult{
		pass("Expected 1 to equal 1"),
		errResult("kaboom"),
	}, child(t, root, "boom").ExpectResults)
	assert.Equal(t, []report.ExpectResult{errResult("Invalid JSON string")}, child(t, root, "bad json").ExpectResults)
	assert.Equal(t, []report.ExpectResult{pass("Expected 2 to equal 2")}, child(t, root, "after").ExpectResults)
}

func TestRunTestTopLevelAssertionError(t *testing.T) {
	res := runTest(t, `
		hopp.expect({a: 1}).to.have.keys();
		hopp.expect(3).to.equal(3);
	`, jsonResponse(`{}`))

	results := res.Tests.ExpectResults
	require.Len(t, results, 2)
	assert.Equal(t, report.StatusError, results[0].Status)
	assert.Contains(t, results[0].Message, "keys required")
	assert.Equal(t, pass("Expected 3 to equal 3"), results[1])
}

func TestRunTestUncaughtException(t *testing.T) {
	_, err := NewRunner().RunTest(context.Background(), `throw new Error("nope")`, &storage.Request{}, jsonResponse(`{}`), Envs{})

	var scriptErr *ScriptError
	require.ErrorAs(t, err, &scriptErr)
	assert.Equal(t, "nope", scriptErr.Message)
}

func TestRunTestSyntaxError(t *testing.T) {
	_, err := NewRunner().RunTest(context.Background(), `hopp.test("x", () => {`, &storage.Request{}, jsonResponse(`{}`), Envs{})

	var scriptErr *ScriptError
	require.ErrorAs(t, err, &scriptErr)
	assert.True(t, strings.HasPrefix(scriptErr.Message, "SyntaxError: "), scriptErr.Message)
	assert.NotContains(t, scriptErr.Message, "SyntaxError: SyntaxError")
}

func TestErrorMessage(t *testing.T) {
	vm := goja.New()
	tests := []struct {
		src  string
		want string
	}{
		{`throw new TypeError("bad")`, "TypeError: bad"},
		{`throw new Error("plain")`, "plain"},
		{`throw "text"`, "text"},
		{`var e = new RangeError("RangeError: already named"); throw e`, "RangeError: already named"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := vm.RunString(tt.src)
			require.Error(t, err)
			assert.Equal(t, tt.want, errorMessage(err))
		})
	}
}

func TestSessionSetFailureSurfaces(t *testing.T) {
	s, err := NewRunner().newSession(Envs{})
	require.NoError(t, err)

	frozen := s.freezeObject(s.vm.NewObject())
	err = s.guard(func() { s.set(frozen, "a", 1) })
	require.Error(t, err)

	obj := s.vm.NewObject()
	require.NoError(t, s.guard(func() { s.set(obj, "a", 1) }))
	assert.Equal(t, int64(1), obj.Get("a").ToInteger())
}

func TestRunTestLegacyAndPostmanNamespaces(t *testing.T) {
	res := runTest(t, `
		pw.test("pw", () => {
			pw.expect(pw.response.status).toBeLevel2xx();
			pw.expect(pw.response.body.id).toBe(7);
			pw.expect("a").not.toBe("b");
			pw.expect(pw.response.status).toBeType("number");
		});
		pm.test("pm", () => {
			pm.expect(pm.response.code).to.equal(200);
			pm.expect(pm.response.json().id).to.equal(7);
		});
		hopp.test("legacy on chai", () => {
			hopp.expect(404).toBeLevel4xx();
		});
	`, jsonResponse(`{"id":7}`))

	assert.Equal(t, []report.ExpectResult{
		pass("Expected '200' to be 200-level status"),
		pass("Expected '7' to be '7'"),
		pass("Expected 'a' to not be 'b'"),
		pass("Expected '200' to be type 'number'"),
	}, child(t, res.Tests, "pw").ExpectResults)
	assert.Equal(t, []report.ExpectResult{
		pass("Expected 200 to equal 200"),
		pass("Expected 7 to equal 7"),
	}, child(t, res.Tests, "pm").ExpectResults)
	assert.Equal(t, []report.ExpectResult{
		pass("Expected '404' to be 400-level status"),
	}, child(t, res.Tests, "legacy on chai").ExpectResults)
}

func TestRunTestResponseObject(t *testing.T) {
	res := runTest(t, `
		const r = hopp.response;
		hopp.test("response", () => {
			hopp.expect(r.statusText).to.equal("OK");
			hopp.expect(r.responseTime).to.equal(12);
			hopp.expect(r.headers[0].key).to.equal("Content-Type");
			hopp.expect(r.body.asText()).to.equal('{"id":7}');
			hopp.expect(r.body.bytes().length).to.equal(8);
			hopp.expect(r.text()).to.equal(r.body.asText());
		});
		hopp.test("frozen", () => {
			r.statusCode = 500;
			hopp.expect(r.statusCode).to.equal(200);
		});
		hopp.test("request", () => {
			hopp.expect(hopp.request.method).to.equal("GET");
			hopp.expect(hopp.request.setUrl).to.be.undefined;
		});
	`, jsonResponse(`{"id":7}`))

	assert.True(t, res.Tests.Passed(), "%+v", res.Tests)
}

func TestRunTestEmptyBody(t *testing.T) {
	res := runTest(t, `
		hopp.test("empty", () => {
			hopp.expect(hopp.response.body.asJSON()).to.be.null;
			hopp.expect(hopp.response.body.asText()).to.equal("");
		});
	`, &Response{Status: 204})

	assert.True(t, res.Tests.Passed(), "%+v", res.Tests)
}

func TestRunTestRequiresResponse(t *testing.T) {
	_, err := NewRunner().RunTest(context.Background(), `1`, &storage.Request{}, nil, Envs{})
	assert.Error(t, err)
}

func TestRunPreRequestEnvironment(t *testing.T) {
	envs := Envs{
		Global:   []storage.EnvVariable{variable("host", "example.com")},
		Selected: []storage.EnvVariable{variable("base", "https://<<host>>")},
	}

	res, err := NewRunner().RunPreRequest(context.Background(), `
		pw.env.set("token", "abc");
		hopp.env.global.set("region", "eu");
		hopp.env.active.set("base", "https://<<host>>/v2");
		pw.env.set("resolved", hopp.env.get("base"));
		pw.env.set("raw", hopp.env.getRaw("base"));
		pw.env.set("missing", String(hopp.env.get("nope")));
		pw.env.set("pwMissing", String(pw.env.get("nope")));
		pw.env.set("interpolated", pw.env.resolve("<<host>>:443"));
		pm.environment.set("count", 3);
		pm.globals.set("flag", true);
		pw.env.set("replaced", pm.variables.replaceIn("{{host}}/{{none}}"));
		pw.env.set("hasCount", String(pm.environment.has("count")));
		hopp.env.set("temp", "x");
		hopp.env.delete("temp");
		try { pw.env.set(1, "x"); } catch (e) { pw.env.set("keyErr", e.message); }
		try { hopp.env.set("k", 2); } catch (e) { pw.env.set("valueErr", e.message); }
	`, &storage.Request{}, envs)
	require.NoError(t, err)

	get := func(key string, src Source) string {
		t.Helper()
		v, ok := res.Envs.Get(key, src)
		require.True(t, ok, "missing %s", key)
		return v.CurrentValue
	}

	assert.Equal(t, "abc", get("token", SourceActive))
	assert.Equal(t, "eu", get("region", SourceGlobal))
	assert.Equal(t, "https://<<host>>/v2", get("raw", SourceAll))
	assert.Equal(t, "https://example.com/v2", get("resolved", SourceAll))
	assert.Equal(t, "null", get("missing", SourceAll))
	assert.Equal(t, "undefined", get("pwMissing", SourceAll))
	assert.Equal(t, "example.com:443", get("interpolated", SourceAll))
	assert.Equal(t, "3", get("count", SourceActive))
	assert.Equal(t, "true", get("flag", SourceGlobal))
	assert.Equal(t, "example.com/{{none}}", get("replaced", SourceAll))
	assert.Equal(t, "true", get("hasCount", SourceAll))
	assert.Equal(t, "Expected key to be a string", get("keyErr", SourceAll))
	assert.Equal(t, "Expected value to be a string", get("valueErr", SourceAll))

	_, ok := res.Envs.Get("temp", SourceAll)
	assert.False(t, ok)

	base, _ := envs.Get("base", SourceAll)
	assert.Equal(t, "https://<<host>>", base.CurrentValue, "input envs are not modified")
}

func TestRunPreRequestSetters(t *testing.T) {
	blob := &storage.Blob{Name: "a.txt", ContentType: "text/plain", Data: []byte("hi")}
	req := &storage.Request{
		Name:     "upload",
		Method:   "GET",
		Endpoint: "https://<<host>>/a",
		Params:   []storage.KeyValue{{Key: "q", Value: "1", Active: true}},
		Headers:  []storage.KeyValue{{Key: "Content-Type", Value: "text/plain", Active: true}},
		Body: storage.Body{ContentType: storage.ContentTypeMultipart, Form: []storage.FormEntry{
			{Key: "file", IsFile: true, Active: true, Files: []*storage.Blob{blob}},
			{Key: "note", Value: "hello", Active: true},
		}},
	}

	res, err := NewRunner().RunPreRequest(context.Background(), `
		hopp.request.setUrl("https://example.com/b");
		hopp.request.setMethod("post");
		hopp.request.setHeader("content-type", "application/json");
		hopp.request.setHeader("X-Trace", "1");
		hopp.request.removeParam("q");
		hopp.request.setParam("page", "2");
		pw.env.set("fileView", JSON.stringify(hopp.request.body.body[0]));
		pw.env.set("url", hopp.request.url);
	`, req, Envs{})
	require.NoError(t, err)

	updated := res.Request
	require.NotNil(t, updated)
	assert.Equal(t, "https://example.com/b", updated.Endpoint)
	assert.Equal(t, "POST", updated.Method)
	assert.Equal(t, "upload", updated.Name)
	assert.Equal(t, []storage.KeyValue{
		{Key: "Content-Type", Value: "application/json", Active: true},
		{Key: "X-Trace", Value: "1", Active: true},
	}, updated.Headers)
	assert.Equal(t, []storage.KeyValue{{Key: "page", Value: "2", Active: true}}, updated.Params)

	fileView, _ := res.Envs.Get("fileView", SourceAll)
	assert.JSONEq(t, `{"key":"file","value":"","isFile":false,"active":true}`, fileView.CurrentValue)
	url, _ := res.Envs.Get("url", SourceAll)
	assert.Equal(t, "https://example.com/b", url.CurrentValue)

	require.Len(t, updated.Body.Form, 2)
	assert.False(t, updated.Body.Form[0].IsFile)
	assert.Empty(t, updated.Body.Form[0].Files)

	merged := ApplyScriptRequestUpdates(req, updated)
	assert.True(t, merged.Body.Form[0].IsFile)
	require.Len(t, merged.Body.Form[0].Files, 1)
	assert.Same(t, blob, merged.Body.Form[0].Files[0])
	assert.Equal(t, "hello", merged.Body.Form[1].Value)

	assert.Equal(t, "GET", req.Method, "original request is untouched")
	assert.Equal(t, "Content-Type", req.Headers[0].Key)
	assert.Equal(t, "text/plain", req.Headers[0].Value)
}

func TestRunPreRequestSetBodyAndAuth(t *testing.T) {
	req := &storage.Request{Method: "POST", Auth: storage.Auth{AuthType: storage.AuthBasic, AuthActive: true, Username: "u"}}

	res, err := NewRunner().RunPreRequest(context.Background(), `
		hopp.request.setBody({contentType: "application/json", body: {a: 1}});
		hopp.request.setAuth({authType: "bearer", token: "t0k"});
		hopp.request.setHeaders([{key: "Accept", value: "*/*"}]);
	`, req, Envs{})
	require.NoError(t, err)

	assert.Equal(t, storage.ContentTypeJSON, res.Request.Body.ContentType)
	assert.JSONEq(t, `{"a":1}`, res.Request.Body.Raw)
	assert.Equal(t, storage.AuthBearer, res.Request.Auth.AuthType)
	assert.Equal(t, "t0k", res.Request.Auth.Token)
	assert.True(t, res.Request.Auth.AuthActive)
	assert.Equal(t, []storage.KeyValue{{Key: "Accept", Value: "*/*", Active: true}}, res.Request.Headers)
}

func TestRunPreRequestReadOnlyRequest(t *testing.T) {
	_, err := NewRunner().RunPreRequest(context.Background(), `hopp.request.url = "https://evil.example.com"`,
		&storage.Request{Endpoint: "https://example.com"}, Envs{})

	var scriptErr *ScriptError
	require.ErrorAs(t, err, &scriptErr)
	assert.Contains(t, scriptErr.Message, "hopp.request.url is read-only")
}

func TestRunPreRequestEmptyScript(t *testing.T) {
	req := &storage.Request{Endpoint: "https://example.com"}
	envs := Envs{Selected: []storage.EnvVariable{variable("a", "1")}}

	res, err := NewRunner().RunPreRequest(context.Background(), "  \n", req, envs)
	require.NoError(t, err)
	assert.Nil(t, res.Request)
	assert.Equal(t, envs, res.Envs)
	assert.Same(t, req, ApplyScriptRequestUpdates(req, res.Request))
}

func TestRunnerConsole(t *testing.T) {
	res, err := NewRunner().RunPreRequest(context.Background(), `
		console.log("hello", {a: 1}, 2);
		console.warn("careful");
	`, &storage.Request{}, Envs{})
	require.NoError(t, err)

	assert.Equal(t, []ConsoleEntry{
		{Level: "log", Message: `hello {"a":1} 2`},
		{Level: "warn", Message: "careful"},
	}, res.Console)
}

func TestRunnerTimeout(t *testing.T) {
	r := NewRunner(WithTimeout(50 * time.Millisecond))
	_, err := r.RunPreRequest(context.Background(), `while (true) {}`, &storage.Request{}, Envs{})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestRunnerContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	r := NewRunner(WithTimeout(0))
	_, err := r.RunTest(ctx, `while (true) {}`, &storage.Request{}, jsonResponse(`{}`), Envs{})
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}
