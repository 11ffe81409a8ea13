package models

// StepResult is the algebraic return value of every pipeline step.
type StepResult struct {
	Success    bool                   `json:"success"`
	Data       interface{}            `json:"data,omitempty"`
	Error      string                 `json:"error,omitempty"`
	RerunFrom  string                 `json:"rerun_from,omitempty"`
	ParsedData map[string]interface{} `json:"parsed_data,omitempty"`
}

// Ok builds a successful StepResult.
func Ok(data interface{}) StepResult {
	return StepResult{Success: true, Data: data}
}

// Fail builds a failed StepResult carrying a human-readable error.
func Fail(err string) StepResult {
	return StepResult{Success: false, Error: err}
}

// FailRerun builds a failed StepResult that additionally asks the runner to
// re-enter the pipeline at an earlier step.
func FailRerun(err, rerunFrom string) StepResult {
	return StepResult{Success: false, Error: err, RerunFrom: rerunFrom}
}

// OkRerun builds a successful StepResult that also requests iterative
// re-entry, the mechanism behind the review/fix loop.
func OkRerun(data interface{}, rerunFrom string) StepResult {
	return StepResult{Success: true, Data: data, RerunFrom: rerunFrom}
}
