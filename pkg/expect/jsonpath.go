package expect

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/dop251/goja"
	"github.com/itchyny/gojq"
	"github.com/xeipuuv/gojsonschema"
)

var (
	pathSplit = regexp.MustCompile(`\.|\[`)
	indexSeg  = regexp.MustCompile(`^\d+$`)
)

// compilePath translates a JSONPath subset ($.a.b[0], $.items[*]) into a jq
// program. Missing keys and out-of-range indexes produce no output rather
// than null, so absence stays distinguishable from an explicit null.
func compilePath(path string) (*gojq.Query, error) {
	p := strings.TrimSpace(path)
	if strings.HasPrefix(p, "$.") {
		p = p[2:]
	} else {
		p = strings.TrimPrefix(p, "$")
	}

	steps := []string{"."}
	for _, seg := range pathSplit.Split(p, -1) {
		if seg == "" {
			continue
		}
		seg = strings.TrimSuffix(seg, "]")
		switch {
		case seg == "*":
			steps = append(steps, `if type == "array" then . elif type == "object" then [.[]] else empty end`)
			return gojq.Parse(strings.Join(steps, " | "))
		case indexSeg.MatchString(seg):
			steps = append(steps, fmt.Sprintf(`if type == "array" and length > %s then .[%s] else empty end`, seg, seg))
		default:
			key, _ := json.Marshal(seg)
			steps = append(steps, fmt.Sprintf(`if type == "object" and has(%s) then .[%s] else empty end`, key, key))
		}
	}
	return gojq.Parse(strings.Join(steps, " | "))
}

// evalPath returns the value at path and whether anything was found.
func evalPath(data any, path string) (any, bool, error) {
	query, err := compilePath(path)
	if err != nil {
		return nil, false, fmt.Errorf("invalid path %q: %w", path, err)
	}
	iter := query.Run(data)
	v, ok := iter.Next()
	if !ok {
		return nil, false, nil
	}
	if err, isErr := v.(error); isErr {
		return nil, false, err
	}
	return normalize(v), true, nil
}

// normalize round-trips through JSON so numbers compare as float64
// regardless of how gojq produced them.
func normalize(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}

// toJSON exports a runtime value through JSON.stringify. Values JSON cannot
// represent come back as nil.
func (en *Engine) toJSON(v goja.Value) (string, any) {
	out, err := en.call(en.stringify, nil, v)
	if err != nil || out == nil || goja.IsUndefined(out) {
		return "null", nil
	}
	var data any
	if err := json.Unmarshal([]byte(out.String()), &data); err != nil {
		return "null", nil
	}
	return out.String(), data
}

// JSONPath asserts that path resolves inside the subject and, when
// expected is given, that the value there equals it.
func (e *Expectation) JSONPath(path string, expected goja.Value, hasExpected bool) (*Expectation, error) {
	_, data := e.en.toJSON(e.subject)
	actual, found, err := evalPath(data, path)
	if err != nil {
		return nil, err
	}

	ok := found
	args := []string{"'" + path + "'"}
	if hasExpected && !goja.IsUndefined(expected) {
		_, want := e.en.toJSON(expected)
		ok = found && reflect.DeepEqual(actual, want)
		args = append(args, e.en.Display(expected))
	}
	return e.assert(ok, "jsonPath", args...), nil
}

// JSONSchema validates the subject against a JSON Schema document.
func (e *Expectation) JSONSchema(schema goja.Value) (*Expectation, error) {
	schemaJSON, _ := e.en.toJSON(schema)
	docJSON, _ := e.en.toJSON(e.subject)

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schemaJSON),
		gojsonschema.NewStringLoader(docJSON),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON schema: %w", err)
	}
	return e.assert(result.Valid(), "jsonSchema", e.en.Display(schema)), nil
}

// Charset passes for string subjects. Response bodies reach scripts already
// decoded, so there is no charset left to inspect.
func (e *Expectation) Charset(charset goja.Value) *Expectation {
	return e.assert(typeOf(e.subject) == "string", "charset", e.en.Display(charset))
}

// Cookie asserts a cookie map contains name and, optionally, value.
func (e *Expectation) Cookie(name string, value goja.Value, hasValue bool) *Expectation {
	ok := false
	if obj, isObj := e.subject.(*goja.Object); isObj && !goja.IsNull(e.subject) {
		ok = e.en.hasOwnKey(obj, name)
		if ok && hasValue {
			got := obj.Get(name)
			ok = got != nil && got.StrictEquals(value)
		}
	}
	args := []string{"'" + name + "'"}
	if hasValue {
		args = append(args, e.en.Display(value))
	}
	return e.assert(ok, "cookie", args...)
}
