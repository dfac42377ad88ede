package graphviewport

import (
	"errors"
	"fmt"
)

// RenderError is the fault raised when a render job or the viewport built
// from its result fails. The view cannot recover from it on its own.
type RenderError struct {
	Op  string // "render" or "viewport"
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("graph viewport %s: %v", e.Op, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// toRenderError gives any failure value the RenderError shape.
// Values that are not errors become "unknown error: <value>".
func toRenderError(op string, v any) *RenderError {
	var re *RenderError
	switch x := v.(type) {
	case *RenderError:
		return x
	case error:
		if errors.As(x, &re) {
			return re
		}
		return &RenderError{Op: op, Err: x}
	default:
		return &RenderError{Op: op, Err: fmt.Errorf("unknown error: %v", v)}
	}
}
