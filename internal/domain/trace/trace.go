package trace

import "time"

// Outcome classifies how a request was answered.
type Outcome string

const (
	OutcomeGenerated        Outcome = "generated"
	OutcomeCached           Outcome = "cached"
	OutcomeCondition        Outcome = "condition"
	OutcomeStatic           Outcome = "static"
	OutcomeErrorInjected    Outcome = "error_injected"
	OutcomeMethodNotAllowed Outcome = "method_not_allowed"
	OutcomeThrottled        Outcome = "throttled"
	OutcomeFailed           Outcome = "failed"
)

// Entry records how a single mock request was served.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Method    string    `json:"method"`
	Path      string    `json:"path"`
	Query     string    `json:"query,omitempty"`
	Endpoint  string    `json:"endpoint"`
	Outcome   Outcome   `json:"outcome"`
	Status    int       `json:"status"`
}
