package storage

import (
	"gopkg.in/yaml.v3"

	"github.com/blackcoderx/hopp/pkg/templating"
)

// Content types with special handling in the request pipeline.
const (
	ContentTypeMultipart   = "multipart/form-data"
	ContentTypeOctetStream = "application/octet-stream"
	ContentTypeURLEncoded  = "application/x-www-form-urlencoded"
	ContentTypeJSON        = "application/json"
)

// KeyValue is a header or query parameter row. Inactive rows are kept in the
// request template but never sent.
type KeyValue struct {
	Key         string `json:"key" yaml:"key"`
	Value       string `json:"value" yaml:"value"`
	Active      bool   `json:"active" yaml:"active"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// UnmarshalYAML treats rows without an explicit active flag as active.
func (kv *KeyValue) UnmarshalYAML(node *yaml.Node) error {
	type plain KeyValue
	row := plain{Active: true}
	if err := node.Decode(&row); err != nil {
		return err
	}
	*kv = KeyValue(row)
	return nil
}

// AuthType selects how credentials are attached to a request.
type AuthType string

const (
	AuthNone         AuthType = "none"
	AuthInherit      AuthType = "inherit"
	AuthBasic        AuthType = "basic"
	AuthBearer       AuthType = "bearer"
	AuthOAuth2       AuthType = "oauth-2"
	AuthAPIKey       AuthType = "api-key"
	AuthJWT          AuthType = "jwt"
	AuthDigest       AuthType = "digest"
	AuthAWSSignature AuthType = "aws-signature"
	AuthHawk         AuthType = "hawk"
	AuthAkamaiEG     AuthType = "akamai-eg"
)

// Credential placement targets for api-key and oauth-2 auth.
const (
	AddToHeaders     = "HEADERS"
	AddToQueryParams = "QUERY_PARAMS"
)

// GrantTypeInfo carries OAuth 2.0 grant settings and, once obtained, the
// access token.
type GrantTypeInfo struct {
	GrantType    string `json:"grantType,omitempty" yaml:"grant_type,omitempty"`
	Token        string `json:"token" yaml:"token,omitempty"`
	TokenURL     string `json:"tokenEndpoint,omitempty" yaml:"token_url,omitempty"`
	ClientID     string `json:"clientID,omitempty" yaml:"client_id,omitempty"`
	ClientSecret string `json:"clientSecret,omitempty" yaml:"client_secret,omitempty"`
	Scopes       string `json:"scopes,omitempty" yaml:"scopes,omitempty"`
	Username     string `json:"username,omitempty" yaml:"username,omitempty"`
	Password     string `json:"password,omitempty" yaml:"password,omitempty"`
}

// Auth describes request authentication. Which fields matter depends on
// AuthType; the rest are ignored.
type Auth struct {
	AuthType      AuthType       `json:"authType" yaml:"type"`
	AuthActive    bool           `json:"authActive" yaml:"active"`
	Username      string         `json:"username,omitempty" yaml:"username,omitempty"`
	Password      string         `json:"password,omitempty" yaml:"password,omitempty"`
	Token         string         `json:"token,omitempty" yaml:"token,omitempty"`
	Key           string         `json:"key,omitempty" yaml:"key,omitempty"`
	Value         string         `json:"value,omitempty" yaml:"value,omitempty"`
	AddTo         string         `json:"addTo,omitempty" yaml:"add_to,omitempty"`
	GrantTypeInfo *GrantTypeInfo `json:"grantTypeInfo,omitempty" yaml:"grant,omitempty"`
}

// InQuery reports whether credentials go into query parameters rather than
// headers. Both the wire constants and their display labels are accepted.
func (a Auth) InQuery() bool {
	switch a.AddTo {
	case AddToQueryParams, "Query params":
		return true
	}
	return false
}

// Blob is binary content attached to a request body. Blobs are shared by
// pointer between a request and its copies and are never mutated.
type Blob struct {
	Name        string `json:"name" yaml:"name"`
	ContentType string `json:"type" yaml:"type,omitempty"`
	Data        []byte `json:"-" yaml:"-"`
}

// FormEntry is one field of a multipart body. A file field carries Files
// and leaves Value empty.
type FormEntry struct {
	Key         string   `json:"key" yaml:"key"`
	Value       string   `json:"value" yaml:"value,omitempty"`
	Files       []*Blob  `json:"-" yaml:"-"`
	IsFile      bool     `json:"isFile" yaml:"is_file,omitempty"`
	Active      bool     `json:"active" yaml:"active"`
	ContentType string   `json:"contentType,omitempty" yaml:"content_type,omitempty"`
	Src         []string `json:"-" yaml:"src,omitempty"`
}

// UnmarshalYAML treats fields without an explicit active flag as active.
func (f *FormEntry) UnmarshalYAML(node *yaml.Node) error {
	type plain FormEntry
	entry := plain{Active: true}
	if err := node.Decode(&entry); err != nil {
		return err
	}
	*f = FormEntry(entry)
	if len(f.Src) > 0 {
		f.IsFile = true
	}
	return nil
}

// Body is a request body. An empty ContentType means no body. Raw holds the
// text for every content type except multipart (Form) and octet-stream
// (Binary).
type Body struct {
	ContentType string      `yaml:"content_type,omitempty"`
	Raw         string      `yaml:"raw,omitempty"`
	Form        []FormEntry `yaml:"form,omitempty"`
	Binary      *Blob       `yaml:"-"`
	BinarySrc   string      `yaml:"binary_src,omitempty"`
}

// Request is a saved request template. Template strings may contain
// <<name>> placeholders.
type Request struct {
	Name             string     `yaml:"name"`
	Method           string     `yaml:"method"`
	Endpoint         string     `yaml:"url"`
	Params           []KeyValue `yaml:"params,omitempty"`
	Headers          []KeyValue `yaml:"headers,omitempty"`
	Auth             Auth       `yaml:"auth,omitempty"`
	Body             Body       `yaml:"body,omitempty"`
	PreRequestScript string     `yaml:"pre_request_script,omitempty"`
	TestScript       string     `yaml:"test_script,omitempty"`
}

// Clone returns a copy that shares no slices with r. Blobs are shared.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	c := *r
	c.Params = append([]KeyValue(nil), r.Params...)
	c.Headers = append([]KeyValue(nil), r.Headers...)
	if r.Auth.GrantTypeInfo != nil {
		g := *r.Auth.GrantTypeInfo
		c.Auth.GrantTypeInfo = &g
	}
	if r.Body.Form != nil {
		c.Body.Form = make([]FormEntry, len(r.Body.Form))
		for i, f := range r.Body.Form {
			f.Files = append([]*Blob(nil), f.Files...)
			f.Src = append([]string(nil), f.Src...)
			c.Body.Form[i] = f
		}
	}
	return &c
}

// EnvVariable is an environment variable. CurrentValue is what placeholders
// resolve to; InitialValue is the shared default it was seeded from.
type EnvVariable struct {
	Key          string `json:"key" yaml:"key"`
	InitialValue string `json:"initialValue" yaml:"initial,omitempty"`
	CurrentValue string `json:"currentValue" yaml:"value"`
	Secret       bool   `json:"secret" yaml:"secret,omitempty"`
}

// UnmarshalYAML seeds a missing initial value from the current one.
func (v *EnvVariable) UnmarshalYAML(node *yaml.Node) error {
	type plain EnvVariable
	var ev plain
	if err := node.Decode(&ev); err != nil {
		return err
	}
	if ev.InitialValue == "" {
		ev.InitialValue = ev.CurrentValue
	}
	*v = EnvVariable(ev)
	return nil
}

// Environment is a named set of variables, such as "dev" or "prod".
type Environment struct {
	Name      string        `yaml:"name"`
	Variables []EnvVariable `yaml:"variables"`
}

// Resolvable converts variables to their current values for placeholder
// resolution.
func Resolvable(vars []EnvVariable) []templating.Variable {
	out := make([]templating.Variable, 0, len(vars))
	for _, v := range vars {
		out = append(out, templating.Variable{Key: v.Key, Value: v.CurrentValue})
	}
	return out
}

// Collection is an ordered list of saved request names run together as a
// suite.
type Collection struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Environment string   `yaml:"environment,omitempty"`
	Requests    []string `yaml:"requests"`
}
