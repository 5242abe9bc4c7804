package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidSignature indicates the webhook payload failed verification. The
// request must be rejected before any processing.
var ErrInvalidSignature = errors.New("webhook signature verification failed")

// DefaultTolerance bounds the age of a signed webhook timestamp.
const DefaultTolerance = 5 * time.Minute

// ConstructEvent verifies the signature header against the shared signing
// secret and unmarshals the payload. The header format is
// "t=<unix>,v1=<hex hmac>" where the MAC covers "<unix>.<payload>".
func ConstructEvent(payload []byte, sigHeader, secret string) (Event, error) {
	return constructEventAt(payload, sigHeader, secret, DefaultTolerance, time.Now())
}

func constructEventAt(payload []byte, sigHeader, secret string, tolerance time.Duration, now time.Time) (Event, error) {
	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return Event{}, err
	}
	if tolerance > 0 {
		age := now.Sub(time.Unix(timestamp, 0))
		if age > tolerance || age < -tolerance {
			return Event{}, fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
		}
	}

	expected := computeSignature(timestamp, payload, secret)
	verified := false
	for _, sig := range signatures {
		if hmac.Equal(sig, expected) {
			verified = true
			break
		}
	}
	if !verified {
		return Event{}, ErrInvalidSignature
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return Event{}, fmt.Errorf("%w: malformed payload", ErrInvalidSignature)
	}
	return event, nil
}

// SignPayload produces a valid signature header for payload. Used by tests
// and local tooling to emulate the gateway.
func SignPayload(payload []byte, secret string, at time.Time) string {
	ts := at.Unix()
	sig := computeSignature(ts, payload, secret)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(sig))
}

func computeSignature(timestamp int64, payload []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return mac.Sum(nil)
}

func parseSignatureHeader(header string) (int64, [][]byte, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0, nil, fmt.Errorf("%w: missing signature header", ErrInvalidSignature)
	}
	var (
		timestamp  int64 = -1
		signatures [][]byte
	)
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("%w: malformed timestamp", ErrInvalidSignature)
			}
			timestamp = ts
		case "v1":
			sig, err := hex.DecodeString(kv[1])
			if err != nil {
				continue
			}
			signatures = append(signatures, sig)
		}
	}
	if timestamp < 0 || len(signatures) == 0 {
		return 0, nil, fmt.Errorf("%w: malformed signature header", ErrInvalidSignature)
	}
	return timestamp, signatures, nil
}
