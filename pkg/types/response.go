package types

// SuccessEnvelope wraps every successful API body as {"data": ...}.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// ErrorEnvelope wraps every failure as {"error": {...}}.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// APIError carries the stable error code clients branch on. RequestID echoes
// X-Request-Id so support can find the matching log entry.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"requestId,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// Ack is the body returned to payment providers once a webhook is accepted.
type Ack struct {
	Success bool `json:"success"`
}
