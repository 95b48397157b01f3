package automation

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/teemow/mailcdp/internal/config"
)

// DraftKey is the remote application's handle for a compose session.
type DraftKey string

// Accessor builds every script that reaches into the remote compose
// surface. Scripts are ES5 IIFEs so they run unchanged in any page; values
// and keys are embedded as JSON literals.
type Accessor struct {
	surface config.Surface
}

// NewAccessor returns an Accessor for surface.
func NewAccessor(surface config.Surface) *Accessor {
	return &Accessor{surface: surface}
}

// Field returns the accessor for name.
func (a *Accessor) Field(name string) (config.FieldAccessor, error) {
	f, ok := a.surface.Fields[name]
	if !ok {
		return config.FieldAccessor{}, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	if f.Match == "" {
		f.Match = config.MatchEqual
	}
	return f, nil
}

// FieldNames returns the configured field names in sorted order.
func (a *Accessor) FieldNames() []string {
	names := make([]string, 0, len(a.surface.Fields))
	for name := range a.surface.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Keys lists the registry's draft keys in registry order.
func (a *Accessor) Keys() string {
	return fmt.Sprintf(`(function () {
	var reg = (%s);
	var keys = [];
	if (!reg) return keys;
	if (reg instanceof Map) {
		reg.forEach(function (v, k) { keys.push(String(k)); });
	} else {
		keys = Object.keys(reg);
	}
	return keys;
})()`, a.surface.Registry)
}

// Open triggers a new compose session.
func (a *Accessor) Open() string {
	return fmt.Sprintf(`(function () {
	return Promise.resolve(%s).then(function () { return true; });
})()`, a.surface.Open)
}

// Get reads one field of a draft.
func (a *Accessor) Get(key DraftKey, field string) (string, error) {
	f, err := a.Field(field)
	if err != nil {
		return "", err
	}
	return a.withDraft(key, "return "+path("draft", f.Get)+";"), nil
}

// Set writes value to one field of a draft, through the setter when one is
// configured and by assignment otherwise.
func (a *Accessor) Set(key DraftKey, field string, value any) (string, error) {
	f, err := a.Field(field)
	if err != nil {
		return "", err
	}
	literal, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("failed to encode value for %s: %w", field, err)
	}

	if f.Set != "" {
		return a.withDraft(key, a.call("draft", f.Set, "["+string(literal)+"]")), nil
	}

	segments := strings.Split(f.Get, ".")
	last := segments[len(segments)-1]
	if strings.HasSuffix(last, "()") {
		return "", fmt.Errorf("field %s has no setter and its getter %q is a call", field, f.Get)
	}
	parent := path("draft", strings.Join(segments[:len(segments)-1], "."))
	return a.withDraft(key, fmt.Sprintf("%s[%s] = %s;\n\treturn true;", parent, quote(last), literal)), nil
}

// Save calls the draft's save method; the result settles with its promise.
func (a *Accessor) Save(key DraftKey) string {
	return a.withDraft(key, a.call("draft", a.surface.Save, "[]"))
}

// Invoke calls an arbitrary draft method with args.
func (a *Accessor) Invoke(key DraftKey, method string, args ...any) (string, error) {
	literal, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("failed to encode arguments for %s: %w", method, err)
	}
	if args == nil {
		literal = []byte("[]")
	}
	return a.withDraft(key, a.call("draft", method, string(literal))), nil
}

// Dirty reads the draft's unsaved-changes flag as a boolean.
func (a *Accessor) Dirty(key DraftKey) string {
	return a.withDraft(key, "return !!("+path("draft", a.surface.Dirty)+");")
}

// Close calls the first close candidate present on its receiver and
// resolves to the candidate's index, or -1 when none exists.
func (a *Accessor) Close(key DraftKey) string {
	candidates, _ := json.Marshal(a.surface.Close)
	return a.withDraft(key, fmt.Sprintf(`var app = null;
	try { app = (%s); } catch (e) {}
	var candidates = %s;
	for (var i = 0; i < candidates.length; i++) {
		var c = candidates[i];
		var recv = c.On === %s ? app : draft;
		if (recv && typeof recv[c.Method] === "function") {
			var idx = i;
			var res = c.On === %s ? recv[c.Method](key) : recv[c.Method]();
			return Promise.resolve(res).then(function () { return idx; });
		}
	}
	return -1;`, a.appExpr(), candidates, quote(config.OnApp), quote(config.OnApp)))
}

// Snapshot reads every configured field plus the dirty flag in one call.
func (a *Accessor) Snapshot(key DraftKey) string {
	names := a.FieldNames()
	getters := make([]string, len(names))
	for i, name := range names {
		getters[i] = path("draft", a.surface.Fields[name].Get)
	}
	quoted, _ := json.Marshal(names)
	return a.withDraft(key, fmt.Sprintf(`var names = %s;
	var values = [%s];
	return Promise.all(values).then(function (vals) {
		var fields = {};
		for (var i = 0; i < names.length; i++) fields[names[i]] = vals[i];
		return { id: key, fields: fields, dirty: !!(%s) };
	});`, quoted, strings.Join(getters, ", "), path("draft", a.surface.Dirty)))
}

func (a *Accessor) appExpr() string {
	if a.surface.App == "" {
		return "null"
	}
	return a.surface.App
}

// call invokes recv[method] with a JSON array of arguments and settles to true.
func (a *Accessor) call(recv, method, args string) string {
	return fmt.Sprintf(`var fn = %s[%s];
	if (typeof fn !== "function") throw new Error(%s);
	return Promise.resolve(fn.apply(%s, %s)).then(function () { return true; });`,
		recv, quote(method), quote("method not found: "+method), recv, args)
}

// withDraft wraps body so that it runs with `key` and `draft` bound, and
// throws the not-found marker when the registry has no such key.
func (a *Accessor) withDraft(key DraftKey, body string) string {
	return fmt.Sprintf(`(function () {
	var key = %s;
	var reg = (%s);
	var draft;
	if (reg instanceof Map) {
		reg.forEach(function (v, k) { if (draft === undefined && String(k) === key) draft = v; });
	} else if (reg) {
		draft = reg[key];
	}
	if (draft == null) throw new Error(%s + key);
	%s
})()`, quote(string(key)), a.surface.Registry, quote(notFoundPrefix), body)
}

// path turns a dotted property path into bracket accesses on root. A
// segment ending in "()" is called with its parent as receiver.
func path(root, dotted string) string {
	expr := root
	if dotted == "" {
		return expr
	}
	for _, seg := range strings.Split(dotted, ".") {
		if name, ok := strings.CutSuffix(seg, "()"); ok {
			expr += "[" + quote(name) + "]()"
			continue
		}
		expr += "[" + quote(seg) + "]"
	}
	return expr
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
