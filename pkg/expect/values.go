package expect

import (
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/dop251/goja"
)

const maxFormatDepth = 4

// typeOf mirrors the JavaScript typeof operator, except that null reports
// "null".
func typeOf(v goja.Value) string {
	switch {
	case v == nil || goja.IsUndefined(v):
		return "undefined"
	case goja.IsNull(v):
		return "null"
	}
	switch val := v.(type) {
	case *goja.Symbol:
		return "symbol"
	case *goja.Object:
		if _, ok := goja.AssertFunction(val); ok {
			return "function"
		}
		return "object"
	}
	switch v.Export().(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case int64, float64:
		return "number"
	case *big.Int:
		return "bigint"
	}
	return "object"
}

var (
	mapExportType = reflect.TypeOf([][2]interface{}{})
	setExportType = reflect.TypeOf([]interface{}{})
)

// classOf returns the internal class of an object ("Array", "Date", "Map",
// ...) or "" for primitives. goja reports "Object" for Map and Set, so those
// are told apart by the type they export to.
func classOf(v goja.Value) string {
	obj, ok := v.(*goja.Object)
	if !ok {
		return ""
	}
	class := obj.ClassName()
	if class == "Object" {
		switch obj.ExportType() {
		case mapExportType:
			return "Map"
		case setExportType:
			return "Set"
		}
	}
	return class
}

func isNumber(v goja.Value) bool { return typeOf(v) == "number" }

func isNaN(v goja.Value) bool { return isNumber(v) && math.IsNaN(v.ToFloat()) }

// Display renders a value the way assertion messages show it: strings in
// single quotes, arrays and objects in literal form, Map and Set as
// constructor calls.
func (en *Engine) Display(v goja.Value) string {
	return en.format(v, 0)
}

func (en *Engine) format(v goja.Value, depth int) string {
	switch typeOf(v) {
	case "undefined":
		return "undefined"
	case "null":
		return "null"
	case "bigint":
		return v.String() + "n"
	case "symbol", "boolean":
		return v.String()
	case "string":
		return "'" + v.String() + "'"
	case "number":
		return formatNumber(v)
	case "function":
		return formatFunction(v.(*goja.Object))
	}

	obj := v.(*goja.Object)
	if depth > maxFormatDepth {
		return "[object Object]"
	}

	switch classOf(obj) {
	case "Array":
		n := int(obj.Get("length").ToInteger())
		if n == 0 {
			return "[]"
		}
		items := make([]string, 0, min(n, 10))
		for i := 0; i < n && i < 10; i++ {
			items = append(items, en.format(obj.Get(strconv.Itoa(i)), depth+1))
		}
		return "[" + strings.Join(items, ", ") + "]"

	case "Map":
		entries := en.iterate(en.entries, obj)
		if len(entries) == 0 {
			return "new Map()"
		}
		pairs := make([]string, 0, 3)
		for i := 0; i < len(entries) && i < 3; i++ {
			pair := entries[i].(*goja.Object)
			pairs = append(pairs, "["+pair.Get("0").String()+", "+pair.Get("1").String()+"]")
		}
		return "new Map([" + strings.Join(pairs, ", ") + "])"

	case "Set":
		values := en.iterate(en.values, obj)
		if len(values) == 0 {
			return "new Set()"
		}
		items := make([]string, 0, 10)
		for i := 0; i < len(values) && i < 10; i++ {
			items = append(items, en.format(values[i], depth+1))
		}
		return "new Set([" + strings.Join(items, ", ") + "])"

	case "Date":
		return "new Date(" + en.helper(en.iso, obj).String() + ")"

	case "RegExp":
		return obj.String()
	}

	if name := constructorName(obj); name != "" && name != "Object" {
		return "new " + name + "()"
	}

	keys := obj.Keys()
	if len(keys) == 0 {
		return "{}"
	}
	pairs := make([]string, 0, 5)
	for i := 0; i < len(keys) && i < 5; i++ {
		pairs = append(pairs, keys[i]+": "+en.format(obj.Get(keys[i]), depth+1))
	}
	return "{" + strings.Join(pairs, ", ") + "}"
}

func formatNumber(v goja.Value) string {
	f := v.ToFloat()
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == math.Pi:
		return "Math.PI"
	case f == math.E:
		return "Math.E"
	}
	return v.String()
}

// formatFunction shows built-in constructors by name and user functions by
// their source text.
func formatFunction(fn *goja.Object) string {
	src := strings.TrimSpace(fn.String())
	name := ""
	if n := fn.Get("name"); n != nil {
		name = n.String()
	}
	if strings.Contains(src, "[native code]") {
		if name != "" {
			return name
		}
		return "[Function]"
	}
	if src == "" {
		if name != "" && unicode.IsUpper(rune(name[0])) {
			return name
		}
		return "[Function]"
	}
	return src
}

// functionName returns fn.name, or "" when it has none.
func functionName(v goja.Value) string {
	obj, ok := v.(*goja.Object)
	if !ok {
		return ""
	}
	if n := obj.Get("name"); n != nil && !goja.IsUndefined(n) {
		return n.String()
	}
	return ""
}

func constructorName(obj *goja.Object) string {
	ctor, ok := obj.Get("constructor").(*goja.Object)
	if !ok {
		return ""
	}
	return functionName(ctor)
}

// iterate calls a helper returning a JS array and unpacks it.
func (en *Engine) iterate(fn goja.Callable, obj *goja.Object) []goja.Value {
	arr := en.helper(fn, obj).(*goja.Object)
	n := int(arr.Get("length").ToInteger())
	out := make([]goja.Value, n)
	for i := range out {
		out[i] = arr.Get(strconv.Itoa(i))
	}
	return out
}

// arrayItems unpacks an array-like object, or returns nil if v is not an
// array.
func arrayItems(v goja.Value) ([]goja.Value, bool) {
	if classOf(v) != "Array" {
		return nil, false
	}
	obj := v.(*goja.Object)
	n := int(obj.Get("length").ToInteger())
	out := make([]goja.Value, n)
	for i := range out {
		out[i] = obj.Get(strconv.Itoa(i))
		if out[i] == nil {
			out[i] = goja.Undefined()
		}
	}
	return out, true
}

// jsString applies JavaScript String() coercion.
func jsString(v goja.Value) string {
	if v == nil {
		return "undefined"
	}
	return v.String()
}

// lengthOf returns the length of strings and arrays or the size of Map and
// Set.
func (en *Engine) lengthOf(v goja.Value) (int64, bool) {
	switch typeOf(v) {
	case "string":
		return v.ToObject(en.vm).Get("length").ToInteger(), true
	case "object", "function":
		obj := v.(*goja.Object)
		switch classOf(obj) {
		case "Map", "Set":
			return obj.Get("size").ToInteger(), true
		}
		if l := obj.Get("length"); l != nil && isNumber(l) {
			return l.ToInteger(), true
		}
	}
	return 0, false
}

type seenPair struct{ a, b *goja.Object }

// deepEqual compares structurally. Primitives use SameValue semantics, so
// NaN equals NaN and -0 differs from +0.
func (en *Engine) deepEqual(a, b goja.Value) bool {
	return en.deepEqualSeen(a, b, make(map[seenPair]bool))
}

func (en *Engine) deepEqualSeen(a, b goja.Value, seen map[seenPair]bool) bool {
	oa, aIsObj := a.(*goja.Object)
	ob, bIsObj := b.(*goja.Object)
	if !aIsObj || !bIsObj {
		if aIsObj != bIsObj {
			return false
		}
		return a.SameAs(b)
	}
	if oa.SameAs(ob) {
		return true
	}
	class := classOf(oa)
	if class != classOf(ob) {
		return false
	}
	pair := seenPair{oa, ob}
	if seen[pair] {
		return true
	}
	seen[pair] = true
	defer delete(seen, pair)

	switch class {
	case "Array":
		ia, _ := arrayItems(oa)
		ib, _ := arrayItems(ob)
		if len(ia) != len(ib) {
			return false
		}
		for i := range ia {
			if !en.deepEqualSeen(ia[i], ib[i], seen) {
				return false
			}
		}
		return true

	case "Date":
		return en.helper(en.time, oa).SameAs(en.helper(en.time, ob))

	case "RegExp":
		return oa.String() == ob.String()

	case "Error":
		if jsString(oa.Get("name")) != jsString(ob.Get("name")) || jsString(oa.Get("message")) != jsString(ob.Get("message")) {
			return false
		}

	case "Set":
		return en.unorderedEqual(en.iterate(en.values, oa), en.iterate(en.values, ob), seen)

	case "Map":
		ea, eb := en.iterate(en.entries, oa), en.iterate(en.entries, ob)
		return en.unorderedEqual(ea, eb, seen)

	case "Function":
		return false
	}

	ka, kb := oa.Keys(), ob.Keys()
	if len(ka) != len(kb) {
		return false
	}
	for _, k := range ka {
		vb := ob.Get(k)
		if vb == nil || !en.hasOwnKey(ob, k) {
			return false
		}
		if !en.deepEqualSeen(oa.Get(k), vb, seen) {
			return false
		}
	}
	return true
}

func (en *Engine) unorderedEqual(a, b []goja.Value, seen map[seenPair]bool) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, va := range a {
		found := false
		for j, vb := range b {
			if !used[j] && en.deepEqualSeen(va, vb, seen) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (en *Engine) hasOwnKey(obj goja.Value, key string) bool {
	return en.helper(en.hasOwn, obj, en.vm.ToValue(key)).ToBoolean()
}

// equals picks strict or deep comparison.
func (en *Engine) equals(a, b goja.Value, deep bool) bool {
	if deep {
		return en.deepEqual(a, b)
	}
	return a.StrictEquals(b)
}
