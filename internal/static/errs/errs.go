package errs

import "errors"

var (
	InternalError  = errors.New("internal error")
	InvalidRequest = errors.New("invalid request")
	RunNotFound    = errors.New("unit test run not found")
	UnknownRoot    = errors.New("unknown project root")
)

var (
	ModuleNotFound    = errors.New("module not found")
	MemberNotFound    = errors.New("member not found")
	NotAClass         = errors.New("member is not a class")
	NotCallable       = errors.New("member is not callable")
	NotAwaitable      = errors.New("result is not awaitable")
	UnexpectedKeyword = errors.New("unexpected keyword argument")
	CaseTimeout       = errors.New("test case timed out")
)
