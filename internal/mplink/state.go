package mplink

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

// State tokens correlate an OAuth authorization request with its callback.
// The token is a base64url JSON object {"v":vendorId,"t":issuedAtMillis,"s":sig}
// where sig is base64url(HMAC-SHA256) over the {"v","t"} payload. It is an
// attribution capability only, never a bearer credential.

var (
	ErrStateInvalid = errors.New("oauth state invalid")
	ErrStateExpired = errors.New("oauth state expired")
)

type statePayload struct {
	V int64 `json:"v"`
	T int64 `json:"t"`
}

type signedState struct {
	statePayload
	S string `json:"s"`
}

func EncodeState(vendorID int64, now time.Time, secret string) string {
	p := statePayload{V: vendorID, T: now.UnixMilli()}
	st := signedState{statePayload: p, S: signState(p, secret)}
	b, _ := json.Marshal(st)
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeState verifies a state token and returns the vendor id it was minted
// for. maxAge <= 0 disables the age check.
func DecodeState(token string, secret string, now time.Time, maxAge time.Duration) (int64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, ErrStateInvalid
	}

	var st signedState
	if err := json.Unmarshal(raw, &st); err != nil {
		return 0, ErrStateInvalid
	}
	if st.V == 0 || st.T == 0 || st.S == "" {
		return 0, ErrStateInvalid
	}

	want := signState(st.statePayload, secret)
	if !hmac.Equal([]byte(want), []byte(st.S)) {
		return 0, ErrStateInvalid
	}

	if maxAge > 0 {
		issued := time.UnixMilli(st.T)
		if now.Sub(issued) > maxAge {
			return 0, ErrStateExpired
		}
	}

	return st.V, nil
}

func signState(p statePayload, secret string) string {
	b, _ := json.Marshal(p)
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(b)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
