package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	req := &Request{
		Name:       "create-user",
		Method:     "POST",
		Endpoint:   "<<baseURL>>/users",
		Headers:    []KeyValue{{Key: "X-Trace", Value: "1", Active: true}},
		Params:     []KeyValue{{Key: "debug", Value: "true", Active: false}},
		Auth:       Auth{AuthType: AuthBearer, AuthActive: true, Token: "<<token>>"},
		Body:       Body{ContentType: ContentTypeJSON, Raw: `{"name":"<<name>>"}`},
		TestScript: `pw.test("ok", () => pw.expect(pw.response.status).toBe(201))`,
	}

	path := filepath.Join(GetRequestsDir(dir), "create-user")
	require.NoError(t, SaveRequest(req, path))

	loaded, err := LoadRequestByName(dir, "create-user")
	require.NoError(t, err)
	assert.Equal(t, req.Endpoint, loaded.Endpoint)
	assert.Equal(t, req.Headers, loaded.Headers)
	assert.Equal(t, req.Params, loaded.Params)
	assert.Equal(t, req.Auth, loaded.Auth)
	assert.Equal(t, req.Body.Raw, loaded.Body.Raw)
	assert.Equal(t, req.TestScript, loaded.TestScript)

	names, err := ListRequests(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"create-user"}, names)
}

func TestLoadRequestDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "req.yaml")
	doc := `
name: list
url: https://example.com/items
headers:
  - key: Accept
    value: application/json
  - key: X-Off
    value: "1"
    active: false
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	req, err := LoadRequest(path)
	require.NoError(t, err)
	assert.Equal(t, "GET", req.Method)
	require.Len(t, req.Headers, 2)
	assert.True(t, req.Headers[0].Active)
	assert.False(t, req.Headers[1].Active)
}

func TestLoadRequestByNameMissing(t *testing.T) {
	_, err := LoadRequestByName(t.TempDir(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadEnvironmentLayouts(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOPP_TEST_SECRET", "s3cr3t")

	structured := `
name: staging
variables:
  - key: baseURL
    value: https://staging.example.com
  - key: secret
    value: "{{env:HOPP_TEST_SECRET}}"
    initial: placeholder
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "staging.yaml"), []byte(structured), 0644))

	env, err := LoadEnvironment(filepath.Join(dir, "staging.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "staging", env.Name)
	require.Len(t, env.Variables, 2)
	assert.Equal(t, "https://staging.example.com", env.Variables[0].InitialValue)
	assert.Equal(t, "s3cr3t", env.Variables[1].CurrentValue)
	assert.Equal(t, "placeholder", env.Variables[1].InitialValue)

	flat := "b: two\na: one\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dev.yaml"), []byte(flat), 0644))

	env, err = LoadEnvironment(filepath.Join(dir, "dev.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "dev", env.Name)
	assert.Equal(t, []EnvVariable{
		{Key: "a", InitialValue: "one", CurrentValue: "one"},
		{Key: "b", InitialValue: "two", CurrentValue: "two"},
	}, env.Variables)
}

func TestGlobalsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "globals.env")

	vars, err := LoadGlobals(path)
	require.NoError(t, err)
	assert.Empty(t, vars)

	require.NoError(t, SaveGlobals([]EnvVariable{{Key: "TOKEN", CurrentValue: "abc"}}, path))
	vars, err = LoadGlobals(path)
	require.NoError(t, err)
	assert.Equal(t, []EnvVariable{{Key: "TOKEN", InitialValue: "abc", CurrentValue: "abc"}}, vars)
}

func TestResolvable(t *testing.T) {
	vars := Resolvable([]EnvVariable{{Key: "a", InitialValue: "init", CurrentValue: "cur"}})
	require.Len(t, vars, 1)
	assert.Equal(t, "cur", vars[0].Value)
}

func TestCloneDoesNotAliasSlices(t *testing.T) {
	blob := &Blob{Name: "a.txt", Data: []byte("a")}
	req := &Request{
		Headers: []KeyValue{{Key: "A", Value: "1", Active: true}},
		Body: Body{ContentType: ContentTypeMultipart, Form: []FormEntry{
			{Key: "f", IsFile: true, Files: []*Blob{blob}, Active: true},
		}},
	}

	c := req.Clone()
	c.Headers[0].Value = "changed"
	c.Body.Form[0].Key = "g"

	assert.Equal(t, "1", req.Headers[0].Value)
	assert.Equal(t, "f", req.Body.Form[0].Key)
	assert.Same(t, blob, c.Body.Form[0].Files[0])
}

func TestValidatePathWithinWorkDir(t *testing.T) {
	workDir := t.TempDir()

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"relative inside", "fixtures/a.txt", false},
		{"dot", ".", false},
		{"parent traversal", "../escape.txt", true},
		{"nested traversal", "fixtures/../../escape.txt", true},
		{"absolute outside", "/etc/passwd", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidatePathWithinWorkDir(tt.path, workDir)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadAttachments(t *testing.T) {
	workDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(workDir, "avatar.png"), []byte("\x89PNG\r\n\x1a\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(workDir, "payload.bin"), []byte{1, 2, 3}, 0644))

	req := &Request{Body: Body{
		ContentType: ContentTypeMultipart,
		Form: []FormEntry{
			{Key: "avatar", Src: []string{"avatar.png"}, Active: true},
			{Key: "name", Value: "bob", Active: true},
		},
	}}
	require.NoError(t, LoadAttachments(req, workDir))

	avatar := req.Body.Form[0]
	assert.True(t, avatar.IsFile)
	require.Len(t, avatar.Files, 1)
	assert.Equal(t, "avatar.png", avatar.Files[0].Name)
	assert.Equal(t, "image/png", avatar.Files[0].ContentType)
	assert.Nil(t, req.Body.Form[1].Files)

	bin := &Request{Body: Body{ContentType: ContentTypeOctetStream, BinarySrc: "payload.bin"}}
	require.NoError(t, LoadAttachments(bin, workDir))
	require.NotNil(t, bin.Body.Binary)
	assert.Equal(t, []byte{1, 2, 3}, bin.Body.Binary.Data)

	escape := &Request{Body: Body{ContentType: ContentTypeOctetStream, BinarySrc: "../outside.bin"}}
	assert.Error(t, LoadAttachments(escape, workDir))
}
