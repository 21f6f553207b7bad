package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
)

func signManifest(t *testing.T, secret, dataID, requestID, ts string) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "id:%s;request-id:%s;ts:%s;", dataID, requestID, ts)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	const secret = "whsec"
	v1 := signManifest(t, secret, "12345", "req-1", "1700000000")

	header := "ts=1700000000,v1=" + v1
	if !VerifySignature(header, "12345", "req-1", secret) {
		t.Fatal("valid signature rejected")
	}

	// Whitespace around the parts is tolerated.
	if !VerifySignature("ts=1700000000, v1="+v1, "12345", "req-1", secret) {
		t.Fatal("signature with spaces rejected")
	}

	if VerifySignature(header, "12345", "req-1", "other-secret") {
		t.Fatal("wrong secret accepted")
	}
	if VerifySignature(header, "99999", "req-1", secret) {
		t.Fatal("tampered data.id accepted")
	}
	if VerifySignature(header, "12345", "req-2", secret) {
		t.Fatal("tampered request id accepted")
	}
	if VerifySignature("ts=1700000001,v1="+v1, "12345", "req-1", secret) {
		t.Fatal("tampered ts accepted")
	}
}

func TestVerifySignatureUppercaseDataID(t *testing.T) {
	const secret = "whsec"
	// The manifest uses the lowercased id.
	v1 := signManifest(t, secret, "abc123", "req-1", "1700000000")
	if !VerifySignature("ts=1700000000,v1="+v1, "ABC123", "req-1", secret) {
		t.Fatal("uppercase data.id should verify against lowercased manifest")
	}
}

func TestVerifySignatureMalformedHeader(t *testing.T) {
	const secret = "whsec"
	for _, header := range []string{"", "ts=1700000000", "v1=deadbeef", "garbage", "ts=,v1="} {
		if VerifySignature(header, "1", "r", secret) {
			t.Fatalf("header %q should not verify", header)
		}
	}
	if VerifySignature("ts=1,v1=ab", "1", "r", "") {
		t.Fatal("empty secret should never verify")
	}
}
