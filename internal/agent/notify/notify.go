// Package notify reports submission outcomes to the user.
package notify

import "log"

// Outcome classifies the result of a save attempt.
type Outcome string

const (
	// OutcomeSaved means the application was persisted as a new record.
	OutcomeSaved Outcome = "saved"
	// OutcomeUpdated means an existing record was refreshed.
	OutcomeUpdated Outcome = "updated"
	// OutcomeDuplicate means the debounce suppressed a rapid duplicate.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeAuthRequired means the user must log in; no retry is attempted.
	OutcomeAuthRequired Outcome = "auth_required"
	// OutcomeFailed covers every other failure; no retry is attempted.
	OutcomeFailed Outcome = "failed"
)

// Notifier surfaces an outcome for a company to whatever UI is attached.
type Notifier interface {
	Notify(outcome Outcome, company string)
}

// LogNotifier writes outcomes to the process log. It is the default sink
// when no UI is connected.
type LogNotifier struct{}

// Notify implements Notifier.
func (LogNotifier) Notify(outcome Outcome, company string) {
	switch outcome {
	case OutcomeSaved:
		log.Printf("[notify] saved application for %q", company)
	case OutcomeUpdated:
		log.Printf("[notify] updated application for %q", company)
	case OutcomeDuplicate:
		log.Printf("[notify] %q already tracked moments ago", company)
	case OutcomeAuthRequired:
		log.Printf("[notify] authentication required to save %q", company)
	default:
		log.Printf("[notify] failed to save application for %q", company)
	}
}
