package enums

// WebhookOutcome records what happened to one webhook delivery.
type WebhookOutcome string

const (
	WebhookOutcomeRejected  WebhookOutcome = "rejected"
	WebhookOutcomeDuplicate WebhookOutcome = "duplicate"
	WebhookOutcomeIgnored   WebhookOutcome = "ignored"
	WebhookOutcomeProcessed WebhookOutcome = "processed"
	WebhookOutcomeFailed    WebhookOutcome = "failed"
)

// String implements fmt.Stringer.
func (o WebhookOutcome) String() string {
	return string(o)
}
