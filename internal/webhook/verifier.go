package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	errors "github.com/partybook/settlement-service/internal"
)

// Verifier authenticates gateway deliveries. The signature scheme is
// HMAC-SHA256 over "<timestamp>.<raw body>" with the shared webhook secret,
// carried in a header of the form "t=<unix>,v1=<hex digest>". Verification
// always runs against the raw request bytes, never a re-serialized form.
type Verifier struct {
	secret    string
	tolerance time.Duration
	now       func() time.Time
}

func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	return &Verifier{
		secret:    secret,
		tolerance: tolerance,
		now:       time.Now,
	}
}

// Verify checks the signature and timestamp, then parses the event. Any
// verification failure means the delivery is treated as unauthenticated and
// the caller must not act on its contents.
func (v *Verifier) Verify(body []byte, sigHeader string) (*VerifiedEvent, error) {
	if v.secret == "" {
		return nil, errors.ErrMissingSecret
	}
	if sigHeader == "" {
		return nil, errors.ErrMissingSignature
	}

	timestamp, signature, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return nil, errors.ErrInvalidSignature
	}

	age := v.now().Sub(time.Unix(timestamp, 0))
	if age > v.tolerance || age < -v.tolerance {
		return nil, errors.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(v.secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := mac.Sum(nil)

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return nil, errors.ErrInvalidSignature
	}
	if !hmac.Equal(expected, provided) {
		return nil, errors.ErrInvalidSignature
	}

	var event gatewayEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, errors.NewValidationError("webhook payload is not valid JSON", errors.ErrCodeValidationFailed).WithCause(err)
	}

	return &VerifiedEvent{Raw: body, Event: event}, nil
}

func parseSignatureHeader(header string) (timestamp int64, signature string, err error) {
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp, err = strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, "", fmt.Errorf("invalid timestamp in signature header: %w", err)
			}
		case "v1":
			signature = value
		}
	}
	if timestamp == 0 || signature == "" {
		return 0, "", fmt.Errorf("signature header missing t or v1 component")
	}
	return timestamp, signature, nil
}
