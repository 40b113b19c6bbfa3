package template

import (
	"fmt"

	"github.com/mockforge/mockforge/internal/domain/mock"
	"github.com/mockforge/mockforge/internal/domain/value"
)

// EngineCompiler compiles a template source string into a BodyRenderer.
type EngineCompiler interface {
	Compile(name, source string) (mock.BodyRenderer, error)
}

// Registry maps engine names to their compilers and hosts the expr-based
// compilers for responseFormat transforms and callback value definitions.
type Registry struct {
	engines map[string]EngineCompiler
}

// NewRegistry creates a registry with the built-in engines (expr, jinja2).
func NewRegistry() *Registry {
	return &Registry{
		engines: map[string]EngineCompiler{
			"expr":   &ExprCompiler{},
			"jinja2": &Jinja2Compiler{},
		},
	}
}

// Compile resolves the engine by name and compiles the source.
func (r *Registry) Compile(engine, name, source string) (mock.BodyRenderer, error) {
	ec, ok := r.engines[engine]
	if !ok {
		return nil, fmt.Errorf("unknown template engine: %q (supported: expr, jinja2)", engine)
	}
	return ec.Compile(name, source)
}

// CompileFormat compiles a responseFormat expression into a payload
// transform.
func (r *Registry) CompileFormat(name, source string) (mock.PayloadTransform, error) {
	return compileFormat(name, source)
}

// CompileValue compiles a "$expr" callback leaf into a value.Func.
func (r *Registry) CompileValue(name, source string) (value.Func, error) {
	return compileValueFunc(name, source)
}
