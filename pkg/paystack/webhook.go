package paystack

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const (
	// SignatureHeader carries the hex HMAC-SHA512 of the raw request body.
	SignatureHeader = "x-paystack-signature"

	EventChargeSuccess = "charge.success"
)

// Transaction is the subset of a Paystack transaction the payment core reads.
type Transaction struct {
	ID              int64           `json:"id"`
	Status          string          `json:"status"`
	Reference       string          `json:"reference"`
	Amount          int64           `json:"amount"`
	Currency        string          `json:"currency"`
	Channel         string          `json:"channel"`
	GatewayResponse string          `json:"gateway_response"`
	PaidAt          string          `json:"paid_at"`
	Metadata        Metadata        `json:"metadata"`
	Raw             json.RawMessage `json:"-"`
}

// Succeeded reports whether Paystack settled the charge.
func (t *Transaction) Succeeded() bool {
	return t != nil && strings.EqualFold(t.Status, StatusSuccess)
}

// Failed reports whether Paystack reports the charge as definitively unpaid.
func (t *Transaction) Failed() bool {
	if t == nil {
		return false
	}
	switch strings.ToLower(t.Status) {
	case StatusFailed, StatusReversed:
		return true
	default:
		return false
	}
}

// Metadata is the caller-supplied metadata echoed back on transactions.
// Paystack returns it as an object, a JSON-encoded string or an empty value.
type Metadata struct {
	IntentCode string `json:"intent_code"`
	Context    string `json:"context"`
}

func (m *Metadata) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '{':
		type plain Metadata
		var decoded plain
		if err := json.Unmarshal(data, &decoded); err != nil {
			return err
		}
		*m = Metadata(decoded)
		return nil
	case '"':
		var encoded string
		if err := json.Unmarshal(data, &encoded); err != nil {
			return err
		}
		encoded = strings.TrimSpace(encoded)
		if !strings.HasPrefix(encoded, "{") {
			return nil
		}
		return m.UnmarshalJSON([]byte(encoded))
	default:
		return nil
	}
}

// Event is a decoded webhook delivery.
type Event struct {
	Event string      `json:"event"`
	Data  Transaction `json:"data"`
}

// ID returns a stable identifier for deduplicating redeliveries.
func (e *Event) ID() string {
	if e == nil {
		return ""
	}
	if e.Data.ID != 0 {
		return e.Event + ":" + strconv.FormatInt(e.Data.ID, 10)
	}
	if e.Data.Reference != "" {
		return e.Event + ":" + e.Data.Reference
	}
	return ""
}

// IsChargeSuccess reports whether the event confirms a settled charge.
func (e *Event) IsChargeSuccess() bool {
	return e != nil && e.Event == EventChargeSuccess
}

// ParseEvent decodes an authenticated webhook body.
func ParseEvent(payload []byte) (*Event, error) {
	var evt Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, fmt.Errorf("decode paystack event: %w", err)
	}
	if strings.TrimSpace(evt.Event) == "" {
		return nil, fmt.Errorf("paystack event type missing")
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err == nil {
		evt.Data.Raw = envelope.Data
	}
	return &evt, nil
}

// ComputeSignature returns the hex HMAC-SHA512 of payload keyed by secret.
func ComputeSignature(secret string, payload []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks the signature against the exact bytes received.
func (c *Client) VerifySignature(payload []byte, signature string) bool {
	if c == nil || c.secretKey == "" {
		return false
	}
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return false
	}
	provided, err := hex.DecodeString(strings.ToLower(signature))
	if err != nil {
		return false
	}
	expected, _ := hex.DecodeString(ComputeSignature(c.secretKey, payload))
	return hmac.Equal(provided, expected)
}
