package effective

import (
	"io"
	"mime"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackcoderx/hopp/pkg/storage"
	"github.com/blackcoderx/hopp/pkg/templating"
)

func kv(key, value string) storage.KeyValue {
	return storage.KeyValue{Key: key, Value: value, Active: true}
}

func TestBuildResolvesURLHeadersAndParams(t *testing.T) {
	req := &storage.Request{
		Method:   "GET",
		Endpoint: "<<baseURL>>/users/<<id>>",
		Headers: []storage.KeyValue{
			kv("X-Env", "<<envName>>"),
			{Key: "X-Off", Value: "1", Active: false},
			kv("", "dropped"),
		},
		Params: []storage.KeyValue{kv("q", "<<query>>")},
	}
	env := Environment{
		Variables: []templating.Variable{{Key: "baseURL", Value: "https://api.test"}, {Key: "id", Value: "7"}},
		Globals:   []templating.Variable{{Key: "envName", Value: "global"}, {Key: "id", Value: "ignored"}, {Key: "query", Value: "x"}},
	}

	eff := Build(req, env)

	assert.Equal(t, "https://api.test/users/7", eff.FinalURL)
	assert.Equal(t, []storage.KeyValue{kv("X-Env", "global")}, eff.FinalHeaders)
	assert.Equal(t, []storage.KeyValue{kv("q", "x")}, eff.FinalParams)
	assert.Equal(t, "<<baseURL>>/users/<<id>>", req.Endpoint, "template must not change")
	assert.Equal(t, "<<baseURL>>/users/<<id>>", eff.Endpoint)
}

func TestBuildBasicAuthHeaderOrder(t *testing.T) {
	req := &storage.Request{
		Endpoint: "https://x.test",
		Headers:  []storage.KeyValue{kv("X-A", "1")},
		Auth:     storage.Auth{AuthType: storage.AuthBasic, AuthActive: true, Username: "user", Password: "pass"},
		Body:     storage.Body{ContentType: storage.ContentTypeJSON, Raw: `{"a":1}`},
	}

	eff := Build(req, Environment{})

	require.Len(t, eff.FinalHeaders, 3)
	assert.Equal(t, kv("X-A", "1"), eff.FinalHeaders[0])
	assert.Equal(t, kv("Authorization", "Basic dXNlcjpwYXNz"), eff.FinalHeaders[1])
	assert.Equal(t, kv("content-type", "application/json"), eff.FinalHeaders[2])
	assert.Equal(t, `{"a":1}`, eff.FinalBody.Text)
}

func TestBuildAuthVariants(t *testing.T) {
	vars := Environment{Variables: []templating.Variable{{Key: "tok", Value: "secret"}}}

	tests := []struct {
		name        string
		auth        storage.Auth
		opts        []Option
		wantHeaders []storage.KeyValue
		wantParams  []storage.KeyValue
	}{
		{
			name:        "bearer resolves token",
			auth:        storage.Auth{AuthType: storage.AuthBearer, AuthActive: true, Token: "<<tok>>"},
			wantHeaders: []storage.KeyValue{kv("Authorization", "Bearer secret")},
		},
		{
			name:        "bearer with supplied token",
			auth:        storage.Auth{AuthType: storage.AuthBearer, AuthActive: true, Token: "<<tok>>"},
			opts:        []Option{WithToken("override")},
			wantHeaders: []storage.KeyValue{kv("Authorization", "Bearer override")},
		},
		{
			name: "oauth2 header",
			auth: storage.Auth{AuthType: storage.AuthOAuth2, AuthActive: true, AddTo: storage.AddToHeaders,
				GrantTypeInfo: &storage.GrantTypeInfo{Token: "oa"}},
			wantHeaders: []storage.KeyValue{kv("Authorization", "Bearer oa")},
		},
		{
			name: "oauth2 query",
			auth: storage.Auth{AuthType: storage.AuthOAuth2, AuthActive: true, AddTo: storage.AddToQueryParams,
				GrantTypeInfo: &storage.GrantTypeInfo{Token: "oa"}},
			wantParams: []storage.KeyValue{kv("access_token", "oa")},
		},
		{
			name:        "api key header",
			auth:        storage.Auth{AuthType: storage.AuthAPIKey, AuthActive: true, Key: "X-Key", Value: "<<tok>>", AddTo: "Headers"},
			wantHeaders: []storage.KeyValue{kv("X-Key", "secret")},
		},
		{
			name:       "api key query",
			auth:       storage.Auth{AuthType: storage.AuthAPIKey, AuthActive: true, Key: "key", Value: "v", AddTo: "Query params"},
			wantParams: []storage.KeyValue{kv("key", "v")},
		},
		{
			name: "inactive auth",
			auth: storage.Auth{AuthType: storage.AuthBearer, Token: "t"},
		},
		{
			name: "digest adds nothing",
			auth: storage.Auth{AuthType: storage.AuthDigest, AuthActive: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eff := Build(&storage.Request{Endpoint: "https://x.test", Auth: tt.auth}, vars, tt.opts...)
			assert.ElementsMatch(t, tt.wantHeaders, eff.FinalHeaders)
			assert.ElementsMatch(t, tt.wantParams, eff.FinalParams)
		})
	}
}

func TestBuildKeepsUserContentTypeAlongsideDerived(t *testing.T) {
	req := &storage.Request{
		Endpoint: "https://x.test",
		Headers:  []storage.KeyValue{kv("Content-Type", "text/plain")},
		Body:     storage.Body{ContentType: storage.ContentTypeJSON, Raw: "{}"},
	}
	eff := Build(req, Environment{})
	require.Len(t, eff.FinalHeaders, 2)
	assert.Equal(t, "text/plain", eff.FinalHeaders[0].Value)
	assert.Equal(t, "application/json", eff.FinalHeaders[1].Value)
}

func TestBuildNoBody(t *testing.T) {
	eff := Build(&storage.Request{Endpoint: "https://x.test"}, Environment{})
	assert.Empty(t, eff.FinalHeaders)
	assert.Equal(t, "", eff.FinalBody.ContentType)
}

func TestBuildURLEncodedBodyResolvesWholeString(t *testing.T) {
	req := &storage.Request{
		Endpoint: "https://x.test",
		Body:     storage.Body{ContentType: storage.ContentTypeURLEncoded, Raw: "user=<<u>>&scope=<<missing>>"},
	}
	eff := Build(req, Environment{Variables: []templating.Variable{{Key: "u", Value: "bob"}}})
	assert.Equal(t, "user=bob&scope=<<missing>>", eff.FinalBody.Text)
}

func TestBuildMultipartFlattensAndSortsFilesLast(t *testing.T) {
	f1 := &storage.Blob{Name: "a.txt", ContentType: "text/plain", Data: []byte("A")}
	f2 := &storage.Blob{Name: "b.txt", ContentType: "text/plain", Data: []byte("B")}

	req := &storage.Request{
		Endpoint: "https://x.test",
		Body: storage.Body{ContentType: storage.ContentTypeMultipart, Form: []storage.FormEntry{
			{Key: "docs", IsFile: true, Files: []*storage.Blob{f1, f2}, Active: true},
			{Key: "name", Value: "<<who>>", Active: true},
			{Key: "off", Value: "x", Active: false},
			{Key: "", Value: "nokey", Active: true},
			{Key: "empty", IsFile: true, Active: true},
			{Key: "tag", Value: "t", Active: true},
		}},
	}

	eff := Build(req, Environment{Variables: []templating.Variable{{Key: "who", Value: "ann"}}})

	parts := eff.FinalBody.Parts
	require.Len(t, parts, 4)
	assert.Equal(t, Part{Key: "name", Value: "ann"}, parts[0])
	assert.Equal(t, Part{Key: "tag", Value: "t"}, parts[1])
	assert.Same(t, f1, parts[2].File)
	assert.Same(t, f2, parts[3].File)
	assert.Equal(t, "docs", parts[3].Key)
	assert.Equal(t, kv("content-type", storage.ContentTypeMultipart), eff.FinalHeaders[len(eff.FinalHeaders)-1])
}

func TestBodyEncodeMultipart(t *testing.T) {
	body := Body{ContentType: storage.ContentTypeMultipart, Parts: []Part{
		{Key: "name", Value: "ann"},
		{Key: "doc", File: &storage.Blob{Name: "a.txt", Data: []byte("hello")}, ContentType: "text/plain"},
	}}

	r, ct, err := body.Encode()
	require.NoError(t, err)

	mediaType, params, err := mime.ParseMediaType(ct)
	require.NoError(t, err)
	assert.Equal(t, "multipart/form-data", mediaType)

	mr := multipart.NewReader(r, params["boundary"])
	p, err := mr.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "name", p.FormName())
	data, _ := io.ReadAll(p)
	assert.Equal(t, "ann", string(data))

	p, err = mr.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "a.txt", p.FileName())
	assert.Equal(t, "text/plain", p.Header.Get("Content-Type"))
	data, _ = io.ReadAll(p)
	assert.Equal(t, "hello", string(data))
}

func TestBodyEncodeBinaryAndText(t *testing.T) {
	r, ct, err := Body{ContentType: storage.ContentTypeOctetStream, Binary: &storage.Blob{Data: []byte{1, 2}}}.Encode()
	require.NoError(t, err)
	data, _ := io.ReadAll(r)
	assert.Equal(t, []byte{1, 2}, data)
	assert.Equal(t, storage.ContentTypeOctetStream, ct)

	r, ct, err = Body{}.Encode()
	require.NoError(t, err)
	assert.Nil(t, r)
	assert.Empty(t, ct)

	r, _, err = Body{ContentType: "text/plain", Text: "hi"}.Encode()
	require.NoError(t, err)
	data, _ = io.ReadAll(r)
	assert.Equal(t, "hi", string(data))
}

func TestAppendParams(t *testing.T) {
	out, ok := AppendParams("https://x.test/p?a=1", []storage.KeyValue{kv("b", "2 3")})
	assert.True(t, ok)
	assert.True(t, strings.HasPrefix(out, "https://x.test/p?"))
	assert.Contains(t, out, "a=1")
	assert.Contains(t, out, "b=2+3")

	out, ok = AppendParams("http://[::1", []storage.KeyValue{kv("b", "2")})
	assert.False(t, ok)
	assert.Equal(t, "http://[::1", out)

	out, ok = AppendParams("not a url <<x>>", nil)
	assert.True(t, ok)
	assert.Equal(t, "not a url <<x>>", out)
}
