package jsbridge

import (
	"fmt"

	"github.com/dop251/goja"
)

// TypeMismatchError reports that a runtime value's kind does not match
// the kind a conversion expected. It aborts the whole enclosing
// conversion; no partial result is produced.
type TypeMismatchError struct {
	Expected Kind
	Actual   Kind
}

func (err *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: expected %s, got %s", err.Expected, err.Actual)
}

// ArityError reports a bridged function invoked with fewer script
// arguments than its declared parameter count. It is raised before the
// native callable runs.
type ArityError struct {
	Required int
	Got      int
}

func (err *ArityError) Error() string {
	return fmt.Sprintf("expected %d arguments, got %d", err.Required, err.Got)
}

// ScriptError represents a JavaScript error with detailed information.
type ScriptError struct {
	Name    string // Error name (e.g., "TypeError", "ReferenceError")
	Message string // Error message
	Stack   string // Stack trace
}

// Error implements the error interface.
func (err *ScriptError) Error() string {
	if err.Name == "" {
		return err.Message
	}
	return fmt.Sprintf("%s: %s", err.Name, err.Message)
}

func newTypeMismatch(expected, actual Kind) *TypeMismatchError {
	return &TypeMismatchError{Expected: expected, Actual: actual}
}

// scriptError extracts name/message/stack from a thrown runtime value.
// Non-Error throws (strings, numbers) keep their string form as the
// message.
func scriptError(v goja.Value) *ScriptError {
	serr := &ScriptError{Message: v.String()}
	if obj, ok := v.(*goja.Object); ok {
		if name := obj.Get("name"); name != nil && !goja.IsUndefined(name) {
			serr.Name = name.String()
		}
		if msg := obj.Get("message"); msg != nil && !goja.IsUndefined(msg) {
			serr.Message = msg.String()
		}
		if stack := obj.Get("stack"); stack != nil && !goja.IsUndefined(stack) {
			serr.Stack = stack.String()
		}
	}
	return serr
}

// asScriptError normalizes an error coming back from an engine call.
// goja reports script throws as *goja.Exception.
func asScriptError(err error) error {
	if err == nil {
		return nil
	}
	if ex, ok := err.(*goja.Exception); ok {
		return scriptError(ex.Value())
	}
	return err
}
