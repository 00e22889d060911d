package core

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackcoderx/hopp/pkg/effective"
	"github.com/blackcoderx/hopp/pkg/sandbox"
	"github.com/blackcoderx/hopp/pkg/storage"
)

type recordingExecutor struct {
	requests []*effective.Request
	resp     *Response
	err      error
}

func (e *recordingExecutor) Do(_ context.Context, req *effective.Request) (*Response, error) {
	e.requests = append(e.requests, req)
	if e.err != nil {
		return nil, e.err
	}
	return e.resp, nil
}

func okExecutor() *recordingExecutor {
	return &recordingExecutor{resp: &Response{StatusCode: 200, Status: "200 OK", Body: []byte(`{"ok":true}`)}}
}

func header(req *effective.Request, key string) (string, bool) {
	for _, h := range req.FinalHeaders {
		if h.Key == key {
			return h.Value, true
		}
	}
	return "", false
}

func envVar(key, value string) storage.EnvVariable {
	return storage.EnvVariable{Key: key, InitialValue: value, CurrentValue: value}
}

func TestPipelineRun(t *testing.T) {
	exec := okExecutor()
	req := &storage.Request{
		Name:     "users",
		Method:   "GET",
		Endpoint: "<<base>>/users",
		Headers:  []storage.KeyValue{{Key: "Accept", Value: "application/json", Active: true}},
		PreRequestScript: `
			hopp.request.setHeader("X-Run", "1");
			hopp.env.set("base", "https://api.example.com");
		`,
		TestScript: `
			hopp.test("ok", () => {
				hopp.expect(hopp.response.statusCode).to.equal(200);
				hopp.expect(hopp.response.json().ok).to.be.true;
				pw.env.set("seen", "yes");
			});
		`,
	}
	envs := sandbox.Envs{Selected: []storage.EnvVariable{envVar("base", "http://localhost")}}

	var events []string
	p := NewPipeline(exec, WithEventCallback(func(ev RunEvent) { events = append(events, ev.Type) }))
	result, err := p.Run(context.Background(), req, envs)
	require.NoError(t, err)

	require.Len(t, exec.requests, 1)
	sent := exec.requests[0]
	assert.Equal(t, "https://api.example.com/users", sent.FinalURL)
	v, ok := header(sent, "X-Run")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	assert.True(t, result.Passed())
	require.NotNil(t, result.Tests)
	require.Len(t, result.Tests.Children, 1)
	assert.Len(t, result.Tests.Children[0].ExpectResults, 2)

	seen, ok := result.Envs.Get("seen", sandbox.SourceAll)
	assert.True(t, ok)
	assert.Equal(t, "yes", seen.CurrentValue)

	assert.Len(t, req.Headers, 1, "loaded request is not modified")
	assert.Same(t, req, result.Original)
	assert.Equal(t, []string{"pre_request", "request", "response", "tests"}, events)
}

func TestPipelineKeepsFilesAcrossScript(t *testing.T) {
	exec := okExecutor()
	blob := &storage.Blob{Name: "avatar.png", ContentType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}}
	req := &storage.Request{
		Method:   "POST",
		Endpoint: "https://example.com/upload",
		Body: storage.Body{ContentType: storage.ContentTypeMultipart, Form: []storage.FormEntry{
			{Key: "file", IsFile: true, Active: true, Files: []*storage.Blob{blob}},
			{Key: "note", Value: "hi", Active: true},
		}},
		PreRequestScript: `hopp.request.setHeader("X-Upload", "1");`,
	}

	_, err := NewPipeline(exec).Run(context.Background(), req, sandbox.Envs{})
	require.NoError(t, err)

	require.Len(t, exec.requests, 1)
	parts := exec.requests[0].FinalBody.Parts
	require.Len(t, parts, 2)
	assert.Equal(t, "note", parts[0].Key)
	assert.Equal(t, "file", parts[1].Key)
	assert.Same(t, blob, parts[1].File)
}

func TestPipelinePreRequestFailure(t *testing.T) {
	req := &storage.Request{
		Method:           "GET",
		Endpoint:         "https://example.com",
		PreRequestScript: `hopp.request.setUrl("https://other.example.com"); throw new Error("bad script");`,
	}

	t.Run("continues with the original request", func(t *testing.T) {
		exec := okExecutor()
		var warnings []string
		p := NewPipeline(exec, WithEventCallback(func(ev RunEvent) {
			if ev.Type == "warning" {
				warnings = append(warnings, ev.Content)
			}
		}))

		result, err := p.Run(context.Background(), req, sandbox.Envs{})
		require.NoError(t, err)

		var scriptErr *sandbox.ScriptError
		require.ErrorAs(t, result.PreRequestError, &scriptErr)
		assert.Equal(t, "bad script", scriptErr.Message)
		require.Len(t, exec.requests, 1)
		assert.Equal(t, "https://example.com", exec.requests[0].FinalURL)
		assert.Len(t, warnings, 1)
	})

	t.Run("stops when configured to", func(t *testing.T) {
		exec := okExecutor()
		_, err := NewPipeline(exec, WithContinueOnPreRequestError(false)).Run(context.Background(), req, sandbox.Envs{})

		var scriptErr *sandbox.ScriptError
		require.ErrorAs(t, err, &scriptErr)
		assert.Empty(t, exec.requests)
	})
}

func TestPipelineSkipsTestsWithoutResponse(t *testing.T) {
	exec := &recordingExecutor{err: errors.New("connection refused")}
	req := &storage.Request{
		Method:     "GET",
		Endpoint:   "https://example.com",
		TestScript: `hopp.test("never", () => { hopp.expect(1).to.equal(1); });`,
	}

	result, err := NewPipeline(exec).Run(context.Background(), req, sandbox.Envs{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	require.NotNil(t, result)
	assert.Nil(t, result.Response)
	assert.Nil(t, result.Tests)
	assert.False(t, result.Passed())
}

func TestPipelineTestScriptError(t *testing.T) {
	exec := okExecutor()
	req := &storage.Request{Method: "GET", Endpoint: "https://example.com", TestScript: `throw new Error("oops")`}

	result, err := NewPipeline(exec).Run(context.Background(), req, sandbox.Envs{})

	var scriptErr *sandbox.ScriptError
	require.ErrorAs(t, err, &scriptErr)
	require.NotNil(t, result)
	assert.NotNil(t, result.Response)
}

func TestPipelineFailedAssertionsAreResults(t *testing.T) {
	exec := okExecutor()
	req := &storage.Request{
		Method:     "GET",
		Endpoint:   "https://example.com",
		TestScript: `hopp.test("status", () => { hopp.expect(hopp.response.statusCode).to.equal(201); });`,
	}

	result, err := NewPipeline(exec).Run(context.Background(), req, sandbox.Envs{})
	require.NoError(t, err)
	assert.False(t, result.Passed())
	_, fail, _ := result.Tests.Counts()
	assert.Equal(t, 1, fail)
}

func TestPipelineFetchesOAuthToken(t *testing.T) {
	var tokenCalls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-123","token_type":"bearer","expires_in":3600}`))
	}))
	defer server.Close()

	exec := okExecutor()
	req := &storage.Request{
		Method:   "GET",
		Endpoint: "https://api.example.com/me",
		Auth: storage.Auth{
			AuthType:   storage.AuthOAuth2,
			AuthActive: true,
			GrantTypeInfo: &storage.GrantTypeInfo{
				GrantType:    "client_credentials",
				TokenURL:     "<<authHost>>/token",
				ClientID:     "id",
				ClientSecret: "secret",
			},
		},
	}
	envs := sandbox.Envs{Global: []storage.EnvVariable{envVar("authHost", server.URL)}}

	_, err := NewPipeline(exec, WithTokenClient(server.Client())).Run(context.Background(), req, envs)
	require.NoError(t, err)

	assert.Equal(t, 1, tokenCalls)
	require.Len(t, exec.requests, 1)
	v, ok := header(exec.requests[0], "Authorization")
	assert.True(t, ok)
	assert.Equal(t, "Bearer tok-123", v)
}

func TestPipelinePrepare(t *testing.T) {
	exec := okExecutor()
	req := &storage.Request{
		Method:           "GET",
		Endpoint:         "https://example.com",
		PreRequestScript: `hopp.request.setMethod("delete");`,
	}

	result, err := NewPipeline(exec).Prepare(context.Background(), req, sandbox.Envs{})
	require.NoError(t, err)
	assert.Empty(t, exec.requests)
	assert.Equal(t, "DELETE", result.Effective.Method)
	assert.Nil(t, result.Response)
}
