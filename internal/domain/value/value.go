// Package value implements the recursive resolution of response shape
// definitions into concrete generated data.
//
// A definition is a union of:
//   - a Func callback, invoked with the generator context;
//   - a string containing a "." — a dotted generator path (e.g.
//     "person.fullName") looked up in the generator registry;
//   - a string containing ".." — an escaped literal, where each ".." is
//     unescaped to a single "." and the result passed through unresolved;
//   - a map of string keys to nested definitions;
//   - a slice of nested definitions (order preserved);
//   - any other literal, returned unchanged.
package value

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mockforge/mockforge/internal/domain/gen"
)

// Func is a callback definition. It receives the generator context and
// produces an arbitrary value. Side effects and non-determinism are the
// callback author's responsibility.
type Func func(g *gen.Context) (any, error)

// Resolve recursively turns a definition into concrete data. Resolution is
// total and pure given a fixed generator seed state: the same definition
// against the same state yields the same value. Unknown generator paths fail
// with gen.ErrUnknownPath naming the offending string.
func Resolve(def any, g *gen.Context) (any, error) {
	switch d := def.(type) {
	case Func:
		return d(g)

	case string:
		return resolveString(d, g)

	case []any:
		out := make([]any, len(d))
		for i, elem := range d {
			v, err := Resolve(elem, g)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil

	case map[string]any:
		// Keys resolve in sorted order so a seeded generator yields the
		// same values for the same definition on every request.
		keys := make([]string, 0, len(d))
		for k := range d {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		out := make(map[string]any, len(d))
		for _, k := range keys {
			v, err := Resolve(d[k], g)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out[k] = v
		}
		return out, nil

	default:
		// Numbers, booleans, nil and anything else pass through unchanged.
		return def, nil
	}
}

// resolveString applies the path/escape rule for string leaves. A ".."
// sequence marks an escaped literal; a lone "." marks a generator path.
// Strings without periods are plain literals.
func resolveString(s string, g *gen.Context) (any, error) {
	if strings.Contains(s, "..") {
		return strings.ReplaceAll(s, "..", "."), nil
	}
	if strings.Contains(s, ".") {
		return g.Lookup(s)
	}
	return s, nil
}
