package vm

import (
	"errors"
	"fmt"

	"github.com/glipt-org/glipt/lang/value"
)

// Raised is the error a native returns to raise a user-visible glipt error:
// the VM turns it into an error map {message, type} and dispatches it to
// the nearest handler. Anything else a native returns as an error is
// treated as an internal fault and terminates the interpreter.
type Raised struct {
	Message string
	Kind    string
}

func (r *Raised) Error() string { return r.Message }

// Raisef builds a Raised with a formatted message.
func Raisef(kind, format string, args ...any) error {
	return &Raised{Message: fmt.Sprintf(format, args...), Kind: kind}
}

// Exit is returned by the exit native to terminate the interpreter with a
// specific process exit code; it unwinds through every frame without
// handler dispatch.
type Exit struct {
	Code int
}

func (e *Exit) Error() string { return fmt.Sprintf("exit with code %d", e.Code) }

// ErrRuntime is the terminal error a Run returns after an internal fault or
// an unhandled raised error; details have already been printed to Stderr.
var ErrRuntime = errors.New("runtime error")

// faultf reports a bytecode-level fault: the message and a source-line
// stack trace go to Stderr, the stack and frames are torn down, and the
// interpreter terminates. Not recoverable from user code.
func (th *Thread) faultf(format string, args ...any) error {
	fmt.Fprintf(th.Stderr, format, args...)
	fmt.Fprintln(th.Stderr)

	for i := th.frameCount - 1; i >= 0; i-- {
		fr := &th.frames[i]
		fn := fr.closure.Fn
		line := chunkOf(fn).LineAt(fr.ip - 1)
		fmt.Fprintf(th.Stderr, "[line %d] in ", line)
		if fn.Name == "" || fn.Name == "<script>" {
			fmt.Fprintln(th.Stderr, "script")
		} else {
			fmt.Fprintf(th.Stderr, "%s()\n", fn.Name)
		}
	}

	th.stackTop = 0
	th.frameCount = 0
	th.handlers = th.handlers[:0]
	th.openUpvalues = nil
	return ErrRuntime
}

// raise constructs the {message, type} error map and marks the thread as
// having an error in flight; the dispatch loop routes it to the nearest
// handler or terminates.
func (th *Thread) raise(message, kind string) {
	m, mv := th.NewMap()
	th.push(mv) // keep the map rooted while its entries allocate
	th.SetField(m, "message", th.StringValue(message))
	th.SetField(m, "type", th.StringValue(kind))
	th.pop()

	th.hasError = true
	th.currentError = mv
}

// RaiseError is the raise-error helper exposed to natives that need to
// raise without returning (none of the shipped natives do; they return a
// *Raised instead, which the call path routes here).
func (th *Thread) RaiseError(message, kind string) {
	th.raise(message, kind)
}

// ClearError drops any in-flight error. The retry native uses it between
// attempts so a failed attempt does not poison the next one.
func (th *Thread) ClearError() {
	th.hasError = false
	th.currentError = value.Nil
}

// errorMessage extracts the message field of an in-flight error value for
// terminal reporting.
func (th *Thread) errorMessage() string {
	if th.currentError.IsObj() {
		if m, ok := th.currentError.AsObj().(*value.MapObj); ok {
			if msg, ok := m.Get(th.Intern("message")); ok && msg.IsObj() {
				if s, ok := msg.AsObj().(*value.StringObj); ok {
					return s.Chars
				}
			}
		}
	}
	return "Runtime error."
}
