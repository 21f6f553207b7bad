package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// VerifySignature checks Mercado Pago's x-signature header:
//
//	x-signature: ts=<unix>,v1=<hex hmac>
//
// The HMAC-SHA256 is computed over the manifest
// "id:<data.id>;request-id:<x-request-id>;ts:<ts>;" with the webhook secret.
// data.id is lowercased, as the provider documents for alphanumeric ids.
func VerifySignature(signatureHeader, dataID, requestID, secret string) bool {
	if signatureHeader == "" || secret == "" {
		return false
	}

	var ts, v1 string
	for _, part := range strings.Split(signatureHeader, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(k) {
		case "ts":
			ts = strings.TrimSpace(v)
		case "v1":
			v1 = strings.TrimSpace(v)
		}
	}
	if ts == "" || v1 == "" {
		return false
	}

	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", strings.ToLower(dataID), requestID, ts)

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(manifest))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(v1))
}
