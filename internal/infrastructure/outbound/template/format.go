package template

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/mockforge/mockforge/internal/domain/mock"
)

var _ mock.PayloadTransform = (*payloadFormatter)(nil)

// payloadFormatter applies a compiled responseFormat expression to the
// shaped payload. The expression sees the payload as `payload` and returns
// the value to dispatch in its place, e.g.
//
//	{"result": payload, "meta": {"mock": true}}
type payloadFormatter struct {
	name    string
	program *vm.Program
}

func compileFormat(name, source string) (mock.PayloadTransform, error) {
	program, err := expr.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to compile responseFormat for %q: %w", name, err)
	}
	return &payloadFormatter{name: name, program: program}, nil
}

func (f *payloadFormatter) Apply(payload any) (any, error) {
	env := map[string]any{
		"payload": payload,
		"toJSON":  toJSONString,
		"uuid":    generateUUID,
	}
	out, err := expr.Run(f.program, env)
	if err != nil {
		return nil, fmt.Errorf("responseFormat for %q failed: %w", f.name, err)
	}
	return out, nil
}
