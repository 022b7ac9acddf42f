package domain

// TargetInfo describes one member of a registered project that a test run
// can address.
type TargetInfo struct {
	Root string `json:"root"`
	// ClassName is the invocation descriptor's class_name: a module path for
	// functions, module path plus class for methods
	ClassName  string   `json:"class_name"`
	MethodName string   `json:"method_name"`
	Kind       string   `json:"kind"`
	IsAsync    bool     `json:"is_async"`
	Params     []string `json:"params"`
}
