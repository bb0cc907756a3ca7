package restpf

import (
	"errors"
	"fmt"
	"strings"
)

// Issue codes
const (
	CodeInvalidType    = "invalid_type"
	CodeRequired       = "required"
	CodeProhibited     = "prohibited"
	CodeUnknownKey     = "unknown_key"
	CodeLengthMismatch = "length_mismatch"
	CodeSchemaMismatch = "schema_mismatch"
	CodeParseError     = "parse_error"
	CodeDuplicateKey   = "duplicate_key"
)

// Issue represents a single build or validation entry.
type Issue struct {
	Path    string // JSON Pointer (for example: /items/2/price).
	Code    string // One of the codes listed above.
	Message string
	Hint    string // Optional: expected type tag, policy name, etc.
	Cause   error  // Optional: underlying error.
	// Params carries structured parameters (e.g., {"expected":"integer", "got":"string"})
	// for i18n and observability.
	Params map[string]any
}

// Issues is a collection of validation errors that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := min(n, maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		fmt.Fprintf(b, "%s at %s", it.Code, it.Path)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// Unwrap exposes the issue causes to errors.Is and errors.As.
func (iss Issues) Unwrap() []error {
	var out []error
	for _, it := range iss {
		if it.Cause != nil {
			out = append(out, it.Cause)
		}
	}
	return out
}

// HasCode reports whether any issue carries code.
func (iss Issues) HasCode(code string) bool {
	for _, it := range iss {
		if it.Code == code {
			return true
		}
	}
	return false
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	dst = append(dst, more...)
	return dst
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// Error kinds matched with errors.Is.
var (
	ErrSchema     = errors.New("schema error")
	ErrValidation = errors.New("validation error")
	ErrScheduling = errors.New("scheduling error")
	ErrCallback   = errors.New("callback error")
)

// SchemaError reports a malformed schema or an unresolvable schema path.
type SchemaError struct {
	Path   []string
	Reason string
}

func (e *SchemaError) Error() string {
	if len(e.Path) == 0 {
		return "schema: " + e.Reason
	}
	return fmt.Sprintf("schema: %s: %s", strings.Join(e.Path, "."), e.Reason)
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// LengthMismatchError is the cause attached to a length_mismatch Issue when a
// tuple value does not have exactly one element per position.
type LengthMismatchError struct {
	Path string
	Want int
	Got  int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("tuple at %s: want %d elements, got %d", e.Path, e.Want, e.Got)
}

// ValidationError wraps the Issues found while building or validating one
// collection of a request.
type ValidationError struct {
	Stage      string // "input" or "output"
	Collection string
	Issues     Issues
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Collection, e.Issues)
}

func (e *ValidationError) Unwrap() error { return e.Issues }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// SchedulingError reports a callback set that cannot be ordered.
type SchedulingError struct {
	Collection string
	Method     Method
	Err        error
}

func (e *SchedulingError) Error() string {
	return fmt.Sprintf("schedule %s %s: %v", e.Method, e.Collection, e.Err)
}

func (e *SchedulingError) Unwrap() error { return e.Err }

func (e *SchedulingError) Is(target error) bool { return target == ErrScheduling }

// CallbackError reports a failing callback.
type CallbackError struct {
	Name string
	Path []string
	Err  error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("callback %s: %v", e.Name, e.Err)
}

func (e *CallbackError) Unwrap() error { return e.Err }

func (e *CallbackError) Is(target error) bool { return target == ErrCallback }
