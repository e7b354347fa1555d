package harness

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion of every run held.
	Pass bool `json:"pass"`

	// Runs holds one entry per run step, in order.
	Runs []RunResult `json:"runs"`

	// Errors contains expectation and assertion failures, prefixed with
	// the run name.
	Errors []string `json:"errors,omitempty"`
}

// RunResult is what one compilation did.
type RunResult struct {
	Name string `json:"name"`

	// Events is the compiler trace without stage start and finish lines.
	Events []string `json:"events"`

	Compiled []string          `json:"compiled"`
	Cached   []string          `json:"cached"`
	Outdated map[string]string `json:"outdated"`

	// Outputs maps every file in the output directory, by slash path
	// relative to it, to its contents.
	Outputs map[string]string `json:"outputs"`

	// Err is the run's error message, empty on success.
	Err string `json:"error,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Runs:   []RunResult{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Run returns the result of the named run.
func (r *Result) Run(name string) (RunResult, bool) {
	for _, run := range r.Runs {
		if run.Name == name {
			return run, true
		}
	}
	return RunResult{}, false
}
