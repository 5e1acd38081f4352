package paymentintents

import (
	"encoding/base32"
	"strings"

	"github.com/google/uuid"
)

const (
	intentCodePrefix = "PI-"
	intentCodeLength = 12
)

// Crockford's alphabet drops I, L, O and U so codes survive being read aloud.
var crockford = base32.NewEncoding("0123456789ABCDEFGHJKMNPQRSTVWXYZ").WithPadding(base32.NoPadding)

// NewIntentCode returns a short shareable code such as PI-7K2M9QX4D1RT.
// Sixty bits of a random UUID back each code; collisions are retried by the
// caller against the unique index.
func NewIntentCode() string {
	id := uuid.New()
	encoded := crockford.EncodeToString(id[:8])
	return intentCodePrefix + encoded[:intentCodeLength]
}

// NormalizeIntentCode upper-cases a user supplied code and restores the prefix.
func NormalizeIntentCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	if !strings.HasPrefix(code, intentCodePrefix) {
		code = intentCodePrefix + code
	}
	return code
}
