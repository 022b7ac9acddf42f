package domain

// InvocationDescriptor names the target of a unit-test run and its mocks
type InvocationDescriptor struct {
	Root          string                 `json:"root" yaml:"root"`
	ClassName     string                 `json:"class_name" yaml:"class_name"`
	MethodName    string                 `json:"method_name" yaml:"method_name"`
	MockConfig    map[string]interface{} `json:"mock_config,omitempty" yaml:"mock_config"`
	StopOnFailure bool                   `json:"stop_on_failure" yaml:"stop_on_failure"`
}
