package harness

import "github.com/roach88/querify/internal/queryir"

// Output is the outcome of rendering a scenario for one target.
// Exactly one of Text and Code is set.
type Output struct {
	Target  queryir.Target `json:"target"`
	Text    string         `json:"text,omitempty"`
	Code    string         `json:"code,omitempty"`
	Message string         `json:"message,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expectation and assertion matched.
	Pass bool `json:"pass"`

	// Outputs holds one entry per rendered target, in target order.
	Outputs []Output `json:"outputs"`

	// BuildCode is the error code of a filter or statement that failed to
	// build. Outputs is empty when it is set.
	BuildCode string `json:"build_code,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Outputs: []Output{},
		Errors:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Output returns the output rendered for target.
func (r *Result) Output(target queryir.Target) (Output, bool) {
	for _, o := range r.Outputs {
		if o.Target == target {
			return o, true
		}
	}
	return Output{}, false
}
