package campaign

import "time"

// AttackResult records the outcome of one attempted template. Results are
// appended in template-list order; one result exists per completed attack.
type AttackResult struct {
	// TemplateID is the identifier the attack was attempted for.
	TemplateID string `json:"template_id"`

	// Prompt is the resolved attack prompt, empty if resolution failed.
	Prompt string `json:"prompt"`

	// Response is the target's reply, empty on failure.
	Response string `json:"response,omitempty"`

	// Success reports whether the executor classified the attack as successful.
	Success bool `json:"success"`

	// DurationMs is the wall-clock time spent on this attempt.
	DurationMs int64 `json:"duration_ms"`

	// Error holds the failure message, empty for successful attacks and for
	// attacks the executor reported as unsuccessful without an error.
	Error string `json:"error,omitempty"`

	// Timestamp is when the attempt finished.
	Timestamp time.Time `json:"timestamp"`
}

// ResolvedTemplate is the prompt payload needed to execute one attack.
// It is the minimal slice of the template catalog the runner depends on.
type ResolvedTemplate struct {
	ID     string
	Prompt string
}

// Outcome is the executor's classification of a single attack call.
type Outcome struct {
	// Response is the raw target reply.
	Response string

	// Success reports whether the attack achieved its objective.
	Success bool
}
