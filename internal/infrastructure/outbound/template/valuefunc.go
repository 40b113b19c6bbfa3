package template

import (
	"fmt"

	"github.com/expr-lang/expr"

	"github.com/mockforge/mockforge/internal/domain/gen"
	"github.com/mockforge/mockforge/internal/domain/value"
)

// compileValueFunc turns a "$expr" callback leaf into a value.Func. The
// expression runs once per record with access to the generator:
//
//	gen("person.firstName") + " " + gen("person.lastName")
//
// gen() propagates unknown-path failures out of the expression run.
func compileValueFunc(name, source string) (value.Func, error) {
	program, err := expr.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to compile $expr callback for %q: %w", name, err)
	}

	return func(g *gen.Context) (any, error) {
		var lookupErr error
		env := map[string]any{
			"gen": func(path string) any {
				v, err := g.Lookup(path)
				if err != nil {
					if lookupErr == nil {
						lookupErr = err
					}
					return nil
				}
				return v
			},
			"uuid":      generateUUID,
			"randomInt": randomIntRange,
			"seq":       seqInts,
			"toJSON":    toJSONString,
		}
		out, err := expr.Run(program, env)
		if err != nil {
			return nil, fmt.Errorf("$expr callback for %q failed: %w", name, err)
		}
		if lookupErr != nil {
			return nil, lookupErr
		}
		return out, nil
	}, nil
}
