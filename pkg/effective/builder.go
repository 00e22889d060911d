// Package effective turns a request template and the current environment
// into the concrete request that goes on the wire.
package effective

import (
	"sort"

	"github.com/blackcoderx/hopp/pkg/core/tools/auth"
	"github.com/blackcoderx/hopp/pkg/storage"
	"github.com/blackcoderx/hopp/pkg/templating"
)

// Environment is the variable context for a build. Variables take precedence
// over Globals when both define a key.
type Environment struct {
	Name      string
	Variables []templating.Variable
	Globals   []templating.Variable
}

// Part is one flattened multipart field. File is nil for text fields.
type Part struct {
	Key         string
	Value       string
	File        *storage.Blob
	ContentType string
}

// Body is the resolved body of an effective request.
type Body struct {
	// ContentType is empty when the request has no body.
	ContentType string
	Text        string
	Parts       []Part
	Binary      *storage.Blob
}

// IsMultipart reports whether the body is sent as multipart/form-data.
func (b Body) IsMultipart() bool {
	return b.ContentType == storage.ContentTypeMultipart
}

// Request is a request template plus its fully resolved wire form.
type Request struct {
	storage.Request

	FinalURL     string
	FinalHeaders []storage.KeyValue
	FinalParams  []storage.KeyValue
	FinalBody    Body
}

// Option adjusts a build.
type Option func(*options)

type options struct {
	token string
}

// WithToken supplies an access token for bearer and oauth-2 auth in place of
// the one stored on the request.
func WithToken(token string) Option {
	return func(o *options) { o.token = token }
}

// Build resolves req against env. The template is not modified. Headers
// appear in this order: user headers, auth header, content-type header.
// Params appear as user params followed by auth params.
func Build(req *storage.Request, env Environment, opts ...Option) *Request {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	vars := make([]templating.Variable, 0, len(env.Variables)+len(env.Globals))
	vars = append(vars, env.Variables...)
	vars = append(vars, env.Globals...)
	resolve := func(s string) string { return templating.Resolve(s, vars) }

	out := &Request{Request: *req.Clone()}
	out.FinalHeaders = resolveRows(req.Headers, resolve)
	out.FinalParams = resolveRows(req.Params, resolve)

	authHeaders, authParams := computeAuth(req.Auth, resolve, o)
	out.FinalHeaders = append(out.FinalHeaders, authHeaders...)
	out.FinalParams = append(out.FinalParams, authParams...)

	out.FinalBody = buildBody(req.Body, resolve)
	if out.FinalBody.ContentType != "" {
		out.FinalHeaders = append(out.FinalHeaders, storage.KeyValue{
			Key:    "content-type",
			Value:  out.FinalBody.ContentType,
			Active: true,
		})
	}

	out.FinalURL = resolve(req.Endpoint)
	return out
}

// resolveRows keeps active rows with a non-empty key and resolves both sides.
func resolveRows(rows []storage.KeyValue, resolve func(string) string) []storage.KeyValue {
	out := make([]storage.KeyValue, 0, len(rows))
	for _, row := range rows {
		if !row.Active || row.Key == "" {
			continue
		}
		out = append(out, storage.KeyValue{
			Key:         resolve(row.Key),
			Value:       resolve(row.Value),
			Active:      true,
			Description: row.Description,
		})
	}
	return out
}

func computeAuth(a storage.Auth, resolve func(string) string, o options) (headers, params []storage.KeyValue) {
	if !a.AuthActive {
		return nil, nil
	}

	row := func(key, value string) []storage.KeyValue {
		return []storage.KeyValue{{Key: key, Value: value, Active: true}}
	}

	switch a.AuthType {
	case storage.AuthBasic:
		return row("Authorization", auth.BasicValue(resolve(a.Username), resolve(a.Password))), nil

	case storage.AuthBearer:
		token := resolve(a.Token)
		if o.token != "" {
			token = o.token
		}
		return row("Authorization", auth.BearerValue(token)), nil

	case storage.AuthOAuth2:
		token := o.token
		if token == "" && a.GrantTypeInfo != nil {
			token = resolve(a.GrantTypeInfo.Token)
		}
		if a.InQuery() {
			return nil, row("access_token", token)
		}
		return row("Authorization", auth.BearerValue(token)), nil

	case storage.AuthAPIKey:
		key := resolve(a.Key)
		if key == "" {
			return nil, nil
		}
		if a.InQuery() {
			return nil, row(key, resolve(a.Value))
		}
		return row(key, resolve(a.Value)), nil
	}

	// none, inherit, and the signature-based schemes add nothing here
	return nil, nil
}

func buildBody(b storage.Body, resolve func(string) string) Body {
	switch b.ContentType {
	case "":
		return Body{}
	case storage.ContentTypeMultipart:
		return Body{ContentType: b.ContentType, Parts: flattenForm(b.Form, resolve)}
	case storage.ContentTypeOctetStream:
		if b.Binary != nil {
			return Body{ContentType: b.ContentType, Binary: b.Binary}
		}
	}
	return Body{ContentType: b.ContentType, Text: resolve(b.Raw)}
}

// flattenForm drops disabled and empty fields, moves file fields after text
// fields, and expands each file of a multi-file field into its own part.
func flattenForm(form []storage.FormEntry, resolve func(string) string) []Part {
	kept := make([]storage.FormEntry, 0, len(form))
	for _, entry := range form {
		if entry.Key == "" || !entry.Active {
			continue
		}
		if entry.IsFile && len(entry.Files) == 0 {
			continue
		}
		kept = append(kept, entry)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return !kept[i].IsFile && kept[j].IsFile
	})

	parts := make([]Part, 0, len(kept))
	for _, entry := range kept {
		key := resolve(entry.Key)
		if !entry.IsFile {
			parts = append(parts, Part{Key: key, Value: resolve(entry.Value), ContentType: entry.ContentType})
			continue
		}
		for _, file := range entry.Files {
			ct := entry.ContentType
			if ct == "" {
				ct = file.ContentType
			}
			parts = append(parts, Part{Key: key, File: file, ContentType: ct})
		}
	}
	return parts
}
