package errs

import (
	"errors"
	"fmt"
)

// Kind classifies engine failures. Load, Resolution, Coercion and MockInstall
// abort a whole run; Invocation and Timeout are local to one case.
type Kind int

const (
	KindInternal Kind = iota
	KindLoad
	KindResolution
	KindCoercion
	KindMockInstall
	KindInvocation
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindLoad:
		return "load_error"
	case KindResolution:
		return "resolution_error"
	case KindCoercion:
		return "coercion_error"
	case KindMockInstall:
		return "mock_install_error"
	case KindInvocation:
		return "invocation_error"
	case KindTimeout:
		return "timeout"
	default:
		return "internal_error"
	}
}

// Fatal reports whether the kind aborts the run instead of failing a single case.
func (k Kind) Fatal() bool {
	switch k {
	case KindInvocation, KindTimeout:
		return false
	default:
		return true
	}
}

type EngineError struct {
	Kind     Kind
	Message  string
	RecordID string
	Field    string
	Cause    error
}

func (e *EngineError) Error() string {
	msg := e.Message
	if e.RecordID != "" && e.Field != "" {
		msg = fmt.Sprintf("record %s, field %q: %s", e.RecordID, e.Field, msg)
	} else if e.RecordID != "" {
		msg = fmt.Sprintf("record %s: %s", e.RecordID, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *EngineError) Unwrap() error {
	return e.Cause
}

func Load(format string, args ...interface{}) *EngineError {
	return &EngineError{Kind: KindLoad, Message: fmt.Sprintf(format, args...)}
}

func Resolution(cause error, format string, args ...interface{}) *EngineError {
	return &EngineError{Kind: KindResolution, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func MockInstall(cause error, format string, args ...interface{}) *EngineError {
	return &EngineError{Kind: KindMockInstall, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func Invocation(cause error) *EngineError {
	return &EngineError{Kind: KindInvocation, Message: "target raised an error", Cause: cause}
}

func Timeout(limit fmt.Stringer) *EngineError {
	return &EngineError{Kind: KindTimeout, Message: fmt.Sprintf("no result within %s", limit), Cause: CaseTimeout}
}

// CoercionError carries the raw value and descriptor that failed to convert.
type CoercionError struct {
	Value      interface{}
	Descriptor string
	Cause      error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("cannot convert %v (%T) to %s: %v", e.Value, e.Value, e.Descriptor, e.Cause)
}

func (e *CoercionError) Unwrap() error {
	return e.Cause
}

// AtRecord attributes a coercion failure to the record and field it came from.
func AtRecord(recordID, field string, cause error) *EngineError {
	return &EngineError{
		Kind:     KindCoercion,
		Message:  "type conversion failed",
		RecordID: recordID,
		Field:    field,
		Cause:    cause,
	}
}

// KindOf returns the kind of the first EngineError in err's chain.
func KindOf(err error) Kind {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	var ce *CoercionError
	if errors.As(err, &ce) {
		return KindCoercion
	}
	return KindInternal
}
