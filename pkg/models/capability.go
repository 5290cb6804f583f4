package models

// Capability is a static self-description entry exposed by a plugin. It is
// used for discovery and documentation only, never for dispatch.
type Capability struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ValidationResult reports the outcome of a pre-flight input check.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

func ValidInput() *ValidationResult {
	return &ValidationResult{Valid: true}
}

func InvalidInput(errs ...string) *ValidationResult {
	return &ValidationResult{Valid: false, Errors: errs}
}
