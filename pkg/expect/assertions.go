package expect

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/dop251/goja"

	"github.com/blackcoderx/hopp/pkg/report"
)

// Equal asserts strict equality, or deep equality under the deep flag. name
// is the alias the script used ("equal", "equals", "eq").
func (e *Expectation) Equal(expected goja.Value, name string) *Expectation {
	return e.assert(e.en.equals(e.subject, expected, e.Has(Deep)), name, e.en.Display(expected))
}

// Eql asserts deep equality.
func (e *Expectation) Eql(expected goja.Value, name string) *Expectation {
	return e.assert(e.en.deepEqual(e.subject, expected), name, e.en.Display(expected))
}

var vowelStart = regexp.MustCompile(`(?i)^[aeiou]`)

// A asserts the subject's type. Arrays also satisfy "object". The returned
// chain reads "a <type>" so that .a('number').that.equals(2) renders well.
func (e *Expectation) A(article, typ string) *Expectation {
	actual := typeOf(e.subject)
	if classOf(e.subject) == "Array" {
		actual = "array"
	}
	want := strings.ToLower(typ)
	ok := actual == want ||
		(actual == "array" && want == "object") ||
		(actual == "object" && strings.ToLower(classOf(e.subject)) == want)

	display := "a"
	if vowelStart.MatchString(typ) {
		display = "an"
	}
	e.assert(ok, display+" "+typ)

	c := e.clone()
	c.words = append(c.words, article, typ)
	return c
}

// Ok asserts truthiness.
func (e *Expectation) Ok() *Expectation { return e.assert(e.subject.ToBoolean(), "ok") }

// True asserts the subject is exactly true.
func (e *Expectation) True() *Expectation {
	return e.assert(e.subject.StrictEquals(e.en.vm.ToValue(true)), "true")
}

// False asserts the subject is exactly false.
func (e *Expectation) False() *Expectation {
	return e.assert(e.subject.StrictEquals(e.en.vm.ToValue(false)), "false")
}

// Null asserts the subject is null.
func (e *Expectation) Null() *Expectation { return e.assert(goja.IsNull(e.subject), "null") }

// Undefined asserts the subject is undefined.
func (e *Expectation) Undefined() *Expectation {
	return e.assert(goja.IsUndefined(e.subject), "undefined")
}

// NaN asserts the subject is the number NaN.
func (e *Expectation) NaN() *Expectation { return e.assert(isNaN(e.subject), "NaN") }

// Exist asserts the subject is neither null nor undefined.
func (e *Expectation) Exist() *Expectation {
	return e.assert(!goja.IsNull(e.subject) && !goja.IsUndefined(e.subject), "exist")
}

// Finite asserts the subject is a finite number.
func (e *Expectation) Finite() *Expectation {
	ok := isNumber(e.subject) && !math.IsInf(e.subject.ToFloat(), 0) && !math.IsNaN(e.subject.ToFloat())
	return e.assert(ok, "finite")
}

// Empty asserts a string, array, Map, Set, or plain object has nothing in
// it. Other values are never empty.
func (e *Expectation) Empty() *Expectation {
	empty := false
	switch typeOf(e.subject) {
	case "string":
		empty = e.subject.String() == ""
	case "object":
		obj := e.subject.(*goja.Object)
		switch classOf(obj) {
		case "Array", "Map", "Set":
			n, _ := e.en.lengthOf(obj)
			empty = n == 0
		default:
			empty = len(obj.Keys()) == 0
		}
	}
	return e.assert(empty, "empty")
}

// Extensible asserts new properties can be added. Primitives are not
// extensible.
func (e *Expectation) Extensible() *Expectation {
	ok := false
	if obj, isObj := e.subject.(*goja.Object); isObj {
		ok = e.en.helper(e.en.extensible, obj).ToBoolean()
	}
	return e.assert(ok, "extensible")
}

// Sealed asserts the subject is sealed. Primitives count as sealed.
func (e *Expectation) Sealed() *Expectation {
	ok := true
	if obj, isObj := e.subject.(*goja.Object); isObj {
		ok = e.en.helper(e.en.sealed, obj).ToBoolean()
	}
	return e.assert(ok, "sealed")
}

// Frozen asserts the subject is frozen. Primitives count as frozen.
func (e *Expectation) Frozen() *Expectation {
	ok := true
	if obj, isObj := e.subject.(*goja.Object); isObj {
		ok = e.en.helper(e.en.frozen, obj).ToBoolean()
	}
	return e.assert(ok, "frozen")
}

// Arguments asserts the subject is an arguments object.
func (e *Expectation) Arguments(name string) *Expectation {
	return e.assert(classOf(e.subject) == "Arguments", name)
}

// Include asserts membership: substring for strings, element for arrays and
// Sets, value for Maps, and matching properties for objects.
func (e *Expectation) Include(item goja.Value) *Expectation {
	return e.assert(e.includes(e.subject, item), "include", e.en.Display(item))
}

func (e *Expectation) includes(subject, item goja.Value) bool {
	deep := e.Has(Deep)
	switch typeOf(subject) {
	case "string":
		return strings.Contains(subject.String(), jsString(item))
	case "object", "function":
	default:
		return false
	}

	obj := subject.(*goja.Object)
	switch classOf(obj) {
	case "Array":
		items, _ := arrayItems(obj)
		return e.anyEqual(items, item, deep)
	case "Set":
		return e.anyEqual(e.en.iterate(e.en.values, obj), item, deep)
	case "Map":
		for _, entry := range e.en.iterate(e.en.entries, obj) {
			if e.en.equals(entry.(*goja.Object).Get("1"), item, deep) {
				return true
			}
		}
		return false
	}

	want, ok := item.(*goja.Object)
	if !ok {
		return false
	}
	for _, key := range want.Keys() {
		actual, found := e.lookup(obj, key)
		if !found || !e.en.equals(actual, want.Get(key), deep) {
			return false
		}
	}
	return true
}

func (e *Expectation) anyEqual(items []goja.Value, item goja.Value, deep bool) bool {
	for _, v := range items {
		if e.en.equals(v, item, deep) {
			return true
		}
	}
	return false
}

// lookup reads a property honoring the own and nested flags.
func (e *Expectation) lookup(obj goja.Value, name string) (goja.Value, bool) {
	if goja.IsNull(obj) || goja.IsUndefined(obj) {
		return nil, false
	}
	if e.Has(Nested) {
		return e.nestedLookup(obj, name)
	}
	found := false
	if e.Has(Own) {
		found = e.en.helper(e.en.hasOwn, obj, e.en.vm.ToValue(name)).ToBoolean()
	} else {
		found = e.en.helper(e.en.has, obj, e.en.vm.ToValue(name)).ToBoolean()
	}
	if !found {
		return nil, false
	}
	v := obj.ToObject(e.en.vm).Get(name)
	if v == nil {
		v = goja.Undefined()
	}
	return v, true
}

var pathToken = regexp.MustCompile(`\\?\[(\d+)\]|(?:\\.|[^.\[\\])+`)

// nestedLookup walks a path such as "a.b[1].c". Backslash escapes a literal
// dot or bracket in a name.
func (e *Expectation) nestedLookup(obj goja.Value, path string) (goja.Value, bool) {
	current := obj
	for _, m := range pathToken.FindAllStringSubmatch(path, -1) {
		if goja.IsNull(current) || goja.IsUndefined(current) {
			return nil, false
		}
		key := m[1]
		if key == "" {
			key = strings.NewReplacer(`\.`, ".", `\[`, "[", `\]`, "]").Replace(m[0])
		}
		if !e.en.helper(e.en.has, current, e.en.vm.ToValue(key)).ToBoolean() {
			return nil, false
		}
		current = current.ToObject(e.en.vm).Get(key)
		if current == nil {
			current = goja.Undefined()
		}
	}
	return current, true
}

// Property asserts the subject has property name, and if expected is given,
// that its value matches. The chain continues on the property value.
func (e *Expectation) Property(name string, expected goja.Value, hasExpected bool) *Expectation {
	assertion := fmt.Sprintf("property '%s'", name)
	return e.property(assertion, name, expected, hasExpected)
}

// OwnProperty asserts an own (not inherited) property.
func (e *Expectation) OwnProperty(name string, expected goja.Value, hasExpected bool) *Expectation {
	return e.silently(Own).property(fmt.Sprintf("own property '%s'", name), name, expected, hasExpected)
}

// NestedProperty asserts a property reached through a dotted path.
func (e *Expectation) NestedProperty(name string, expected goja.Value, hasExpected bool) *Expectation {
	return e.silently(Nested).property(fmt.Sprintf("nested property '%s'", name), name, expected, hasExpected)
}

func (e *Expectation) property(assertion, name string, expected goja.Value, hasExpected bool) *Expectation {
	actual, found := e.lookup(e.subject, name)
	ok := found
	var args []string
	if hasExpected {
		ok = found && e.en.equals(actual, expected, e.Has(Deep))
		args = append(args, e.en.Display(expected))
	}
	e.assert(ok, assertion, args...)
	return e.on(actual)
}

// OwnPropertyDescriptor asserts an own property exists and, when descriptor
// is given, that each of its fields matches the actual descriptor.
func (e *Expectation) OwnPropertyDescriptor(name string, descriptor goja.Value, hasDescriptor bool) *Expectation {
	ok := false
	var actual goja.Value
	if obj, isObj := e.subject.(*goja.Object); isObj {
		actual = e.en.helper(e.en.descriptor, obj, e.en.vm.ToValue(name))
		ok = !goja.IsUndefined(actual)
		if ok && hasDescriptor {
			want, wantObj := descriptor.(*goja.Object)
			got := actual.(*goja.Object)
			if wantObj {
				for _, key := range want.Keys() {
					v := got.Get(key)
					if v == nil || !v.StrictEquals(want.Get(key)) {
						ok = false
						break
					}
				}
			}
		}
	}
	e.assert(ok, fmt.Sprintf("ownPropertyDescriptor '%s'", name))
	return e.on(actual)
}

// LengthOf asserts the length of a string or array, or the size of a Map
// or Set. name is the alias used, "lengthOf" or "length".
func (e *Expectation) LengthOf(n goja.Value, name string) *Expectation {
	actual, ok := e.en.lengthOf(e.subject)
	ok = ok && isNumber(n) && float64(actual) == n.ToFloat()

	assertion := "have " + name
	if len(e.words) > 0 && e.words[len(e.words)-1] == "has" {
		assertion = name
	}
	return e.assert(ok, assertion, e.en.Display(n))
}

// numeric returns the number a comparison works on: the length under the
// length flag, the timestamp of a Date, or the number itself.
func (e *Expectation) numeric(v goja.Value) (float64, bool) {
	if e.Has(Length) {
		n, ok := e.en.lengthOf(v)
		return float64(n), ok
	}
	if classOf(v) == "Date" {
		return e.en.helper(e.en.time, v).ToFloat(), true
	}
	if isNumber(v) {
		return v.ToFloat(), true
	}
	return 0, false
}

func argNumber(v goja.Value) (float64, bool) {
	if isNumber(v) {
		return v.ToFloat(), true
	}
	return 0, false
}

// Compare asserts an ordering against n. op is one of "above", "below",
// "at least", "at most".
func (e *Expectation) Compare(op string, n goja.Value) *Expectation {
	actual, ok := e.numeric(e.subject)
	bound, okBound := argNumber(n)
	if !okBound && classOf(n) == "Date" {
		bound, okBound = e.en.helper(e.en.time, n).ToFloat(), true
	}
	result := false
	if ok && okBound {
		switch op {
		case "above":
			result = actual > bound
		case "below":
			result = actual < bound
		case "at least":
			result = actual >= bound
		case "at most":
			result = actual <= bound
		}
	}
	return e.assert(result, op, e.en.Display(n))
}

// Within asserts start <= subject <= end.
func (e *Expectation) Within(start, end goja.Value) *Expectation {
	actual, ok := e.numeric(e.subject)
	lo, okLo := argNumber(start)
	hi, okHi := argNumber(end)
	return e.assert(ok && okLo && okHi && actual >= lo && actual <= hi,
		"within", e.en.Display(start), e.en.Display(end))
}

// CloseTo asserts |subject - expected| <= delta. name is "closeTo" or
// "approximately".
func (e *Expectation) CloseTo(expected, delta goja.Value, name string) *Expectation {
	actual, ok := argNumber(e.subject)
	want, okWant := argNumber(expected)
	d, okDelta := argNumber(delta)
	return e.assert(ok && okWant && okDelta && math.Abs(actual-want) <= d,
		name, e.en.Display(expected), e.en.Display(delta))
}

// Keys asserts on the subject's keys. Without the any flag every expected
// key must be present, and unless the include flag is set no other keys
// may exist.
func (e *Expectation) Keys(args []goja.Value, assertion string) (*Expectation, error) {
	expected := e.expectedKeys(args)
	if len(expected) == 0 {
		return nil, errors.New("keys required")
	}

	actual, ok := e.subjectKeys()
	have := make(map[string]bool, len(actual))
	for _, k := range actual {
		have[k] = true
	}

	result := false
	if ok {
		if e.Has(Any) {
			for _, k := range expected {
				if have[k] {
					result = true
					break
				}
			}
		} else {
			result = true
			for _, k := range expected {
				if !have[k] {
					result = false
					break
				}
			}
			if result && !e.Has(Include) {
				result = len(uniq(expected)) == len(actual)
			}
		}
	}

	display := make([]string, 0, len(expected))
	for _, k := range expected {
		display = append(display, "'"+k+"'")
	}
	return e.assert(result, assertion, display...), nil
}

func (e *Expectation) expectedKeys(args []goja.Value) []string {
	if len(args) == 1 {
		if items, ok := arrayItems(args[0]); ok {
			args = items
		} else if obj, ok := args[0].(*goja.Object); ok {
			return obj.Keys()
		}
	}
	keys := make([]string, 0, len(args))
	for _, a := range args {
		keys = append(keys, jsString(a))
	}
	return keys
}

func (e *Expectation) subjectKeys() ([]string, bool) {
	obj, ok := e.subject.(*goja.Object)
	if !ok {
		return nil, false
	}
	var keys []string
	switch classOf(obj) {
	case "Map":
		for _, entry := range e.en.iterate(e.en.entries, obj) {
			keys = append(keys, jsString(entry.(*goja.Object).Get("0")))
		}
	case "Set":
		for _, v := range e.en.iterate(e.en.values, obj) {
			keys = append(keys, jsString(v))
		}
	default:
		keys = obj.Keys()
	}
	return uniq(keys), true
}

func uniq(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// Members compares the subject array with list as multisets. The include
// flag allows extra subject elements; ordered requires matching order (a
// prefix when combined with include).
func (e *Expectation) Members(list goja.Value) *Expectation {
	want, okWant := arrayItems(list)
	got, okGot := arrayItems(e.subject)
	if !okGot && classOf(e.subject) == "Set" {
		got, okGot = e.en.iterate(e.en.values, e.subject.(*goja.Object)), true
	}

	result := false
	if okWant && okGot {
		result = e.membersMatch(got, want)
	}

	var display string
	if okWant {
		parts := make([]string, len(want))
		for i, v := range want {
			parts[i] = e.en.Display(v)
		}
		display = "[" + strings.Join(parts, ", ") + "]"
	} else {
		display = e.en.Display(list)
	}
	return e.assert(result, "members", display)
}

func (e *Expectation) membersMatch(got, want []goja.Value) bool {
	deep := e.Has(Deep)
	include := e.Has(Include)
	if !include && len(got) != len(want) {
		return false
	}
	if include && len(want) > len(got) {
		return false
	}

	if e.Has(Ordered) {
		for i, w := range want {
			if !e.en.equals(got[i], w, deep) {
				return false
			}
		}
		return true
	}

	used := make([]bool, len(got))
	for _, w := range want {
		found := false
		for i, g := range got {
			if !used[i] && e.en.equals(g, w, deep) {
				used[i] = true
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

// OneOf asserts the subject equals an element of list, or under the
// include flag that the subject contains one of them.
func (e *Expectation) OneOf(list goja.Value) *Expectation {
	items, ok := arrayItems(list)
	result := false
	if ok {
		for _, item := range items {
			if e.Has(Include) {
				if e.includes(e.subject, item) {
					result = true
					break
				}
			} else if e.en.equals(e.subject, item, e.Has(Deep)) {
				result = true
				break
			}
		}
	}
	assertion := "oneOf"
	if e.Has(Include) {
		assertion = "include oneOf"
	}
	return e.assert(result, assertion, e.en.Display(list))
}

// InstanceOf asserts the subject was built by ctor. A non-callable ctor is
// an evaluation error rather than a failed assertion.
func (e *Expectation) InstanceOf(ctor goja.Value) (*Expectation, error) {
	ctorObj, ok := ctor.(*goja.Object)
	if _, callable := goja.AssertFunction(ctor); !ok || !callable {
		return nil, fmt.Errorf("the instanceof assertion needs a constructor but %s was given.", typeOf(ctor))
	}
	result := false
	if _, isObj := e.subject.(*goja.Object); isObj {
		result = e.en.vm.InstanceOf(e.subject, ctorObj)
	}
	name := functionName(ctorObj)
	if name == "" {
		name = "Unknown"
	}
	return e.assert(result, "be an instanceof", name), nil
}

// Match asserts the string form of the subject matches re, a RegExp or a
// pattern string.
func (e *Expectation) Match(re goja.Value) *Expectation {
	reObj, ok := re.(*goja.Object)
	display := ""
	if ok && classOf(reObj) == "RegExp" {
		display = reObj.String()
	} else {
		display = "/" + jsString(re) + "/"
		reObj = e.en.helper(e.en.regexp, e.en.vm.ToValue(jsString(re))).(*goja.Object)
	}

	matched := false
	if test, ok := goja.AssertFunction(reObj.Get("test")); ok {
		if v, err := e.en.call(test, reObj, e.en.vm.ToValue(jsString(e.subject))); err == nil {
			matched = v.ToBoolean()
		}
	}

	not := ""
	if e.negated {
		not = " not"
	}
	e.record(matched != e.negated, fmt.Sprintf("Expected '%s' to%s match %s", jsString(e.subject), not, display))
	return e
}

// HasString asserts the string form of the subject contains sub.
func (e *Expectation) HasString(sub goja.Value) *Expectation {
	ok := strings.Contains(jsString(e.subject), jsString(sub))
	return e.assert(ok, "have string", "'"+jsString(sub)+"'")
}

// RespondTo asserts the subject has a callable method. For functions the
// prototype is checked unless the itself flag is set.
func (e *Expectation) RespondTo(method string) *Expectation {
	ok := false
	if obj, isObj := e.subject.(*goja.Object); isObj {
		target := obj
		if _, isFn := goja.AssertFunction(obj); isFn && !e.Has(Itself) {
			target, _ = obj.Get("prototype").(*goja.Object)
		}
		if target != nil {
			_, ok = goja.AssertFunction(target.Get(method))
		}
	}
	return e.assert(ok, fmt.Sprintf("respondTo '%s'", method))
}

// Satisfy asserts matcher(subject) is truthy. Exceptions thrown by the
// matcher propagate.
func (e *Expectation) Satisfy(matcher goja.Value) (*Expectation, error) {
	fn, ok := goja.AssertFunction(matcher)
	if !ok {
		return nil, fmt.Errorf("satisfy requires a function but %s was given", typeOf(matcher))
	}
	v, err := e.en.call(fn, goja.Undefined(), e.subject)
	if err != nil {
		return nil, err
	}
	return e.assert(v.ToBoolean(), "satisfy", formatSource(jsString(matcher))), nil
}

var (
	arrowSource = regexp.MustCompile(`^\(.*\)\s*=>`)
	callSource  = regexp.MustCompile(`^[a-zA-Z_$][\w$]*\s*\(`)
)

// formatSource shows function source unquoted and anything else quoted.
func formatSource(src string) string {
	trimmed := strings.TrimSpace(src)
	if strings.HasPrefix(trimmed, "function") || arrowSource.MatchString(trimmed) || callSource.MatchString(trimmed) {
		return trimmed
	}
	return "'" + src + "'"
}

// Throw calls the subject and asserts it throws. errLike may be an error
// constructor, an error instance, a message string, or a RegExp; matcher
// narrows the message further.
func (e *Expectation) Throw(args ...goja.Value) *Expectation {
	var errType *goja.Object
	var matcher goja.Value

	for _, a := range args {
		if a == nil || goja.IsUndefined(a) || goja.IsNull(a) {
			continue
		}
		obj, isObj := a.(*goja.Object)
		switch {
		case isObj && typeOf(a) == "function" && errType == nil && matcher == nil:
			errType = obj
		case isObj && classOf(obj) == "Error" && errType == nil:
			if ctor, ok := obj.Get("constructor").(*goja.Object); ok {
				errType = ctor
			}
			matcher = obj.Get("message")
		default:
			matcher = a
		}
	}

	threw := false
	var thrown goja.Value
	if fn, ok := goja.AssertFunction(e.subject); ok {
		if _, err := e.en.call(fn, goja.Undefined()); err != nil {
			threw = true
			var ex *goja.Exception
			if errors.As(err, &ex) {
				thrown = ex.Value()
			} else {
				thrown = e.en.vm.ToValue(err.Error())
			}
		}
	}

	result := threw
	if threw && errType != nil {
		_, isObj := thrown.(*goja.Object)
		result = isObj && e.en.vm.InstanceOf(thrown, errType)
	}
	if result && matcher != nil {
		result = e.messageMatches(errorMessage(thrown), matcher)
	}

	var display []string
	if errType != nil {
		display = append(display, functionName(errType))
	}
	if matcher != nil {
		if classOf(matcher) == "RegExp" {
			display = append(display, matcher.String())
		} else {
			display = append(display, "'"+jsString(matcher)+"'")
		}
	}
	return e.assert(result, "throw", display...)
}

func (e *Expectation) messageMatches(msg string, matcher goja.Value) bool {
	if re, ok := matcher.(*goja.Object); ok && classOf(re) == "RegExp" {
		test, ok := goja.AssertFunction(re.Get("test"))
		if !ok {
			return false
		}
		v, err := e.en.call(test, re, e.en.vm.ToValue(msg))
		return err == nil && v.ToBoolean()
	}
	return strings.Contains(msg, jsString(matcher))
}

func errorMessage(v goja.Value) string {
	if obj, ok := v.(*goja.Object); ok {
		if m := obj.Get("message"); m != nil && !goja.IsUndefined(m) {
			return m.String()
		}
	}
	return jsString(v)
}

type changeState struct {
	kind  string
	prop  string
	ok    bool
	delta float64
}

// Change calls the subject and asserts that it changes a value. target is
// either an object with prop, or a getter function when prop is undefined.
// kind is "change", "increase", or "decrease".
func (e *Expectation) Change(kind string, target, prop goja.Value) *Expectation {
	name := "value"
	read := func() (goja.Value, bool) { return nil, false }

	if getter, ok := goja.AssertFunction(target); ok && (prop == nil || goja.IsUndefined(prop)) {
		read = func() (goja.Value, bool) {
			v, err := e.en.call(getter, goja.Undefined())
			return v, err == nil
		}
	} else if obj, ok := target.(*goja.Object); ok {
		name = jsString(prop)
		read = func() (goja.Value, bool) {
			v := obj.Get(name)
			if v == nil {
				v = goja.Undefined()
			}
			return v, true
		}
	}

	st := &changeState{kind: kind, prop: name}
	before, okBefore := read()
	if fn, ok := goja.AssertFunction(e.subject); ok && okBefore {
		if _, err := e.en.call(fn, goja.Undefined()); err == nil {
			if after, okAfter := read(); okAfter {
				changed := !before.StrictEquals(after)
				if isNumber(before) && isNumber(after) {
					st.delta = after.ToFloat() - before.ToFloat()
				}
				switch kind {
				case "increase":
					st.ok = changed && st.delta > 0
				case "decrease":
					st.ok = changed && st.delta < 0
				default:
					st.ok = changed
				}
			}
		}
	}

	e.record(st.ok != e.negated, e.changeMessage(st, ""))
	c := e.clone()
	c.change = st
	return c
}

// By refines the preceding change assertion with the expected amount,
// replacing its recorded result.
func (e *Expectation) By(amount goja.Value) *Expectation {
	st := e.change
	if st == nil {
		return e
	}
	want := amount.ToFloat()
	var matches bool
	switch st.kind {
	case "increase":
		matches = math.Abs(st.delta-want) < 0.0001
	case "decrease":
		matches = math.Abs(math.Abs(st.delta)-want) < 0.0001
	default:
		matches = math.Abs(math.Abs(st.delta)-math.Abs(want)) < 0.0001
	}
	pass := (st.ok && matches) != e.negated
	status := report.StatusFail
	if pass {
		status = report.StatusPass
	}
	e.en.rec.ReplaceLast(status, e.changeMessage(st, " by "+strconv.FormatFloat(want, 'f', -1, 64)))
	return e
}

func (e *Expectation) changeMessage(st *changeState, suffix string) string {
	return fmt.Sprintf("Expected [Function] %s %s {}.'%s'%s", e.Modifiers(), st.kind, st.prop, suffix)
}
