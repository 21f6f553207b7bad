package main

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
)

// Posts a Mercado Pago-shaped payment notification at a local server,
// optionally signing it the way the provider does (x-signature header).
func main() {
	var (
		url       = flag.String("url", "", "webhook endpoint url (defaults to http://localhost<HTTP_ADDR>/v1/webhooks/mercadopago)")
		paymentID = flag.String("payment-id", "", "payment id to embed as data.id")
		secret    = flag.String("secret", "", "MP_WEBHOOK_SECRET (omit to send unsigned)")
		payload   = flag.String("payload", "", "path to json payload file (defaults to a payment notification for -payment-id)")
		requestID = flag.String("request-id", "", "x-request-id header (defaults to a random uuid)")
	)
	flag.Parse()

	if *url == "" {
		httpAddr := os.Getenv("HTTP_ADDR")
		if httpAddr == "" {
			httpAddr = ":8081"
		}
		if len(httpAddr) > 0 && httpAddr[0] == ':' {
			*url = "http://localhost" + httpAddr + "/v1/webhooks/mercadopago"
		} else {
			*url = "http://localhost:8081/v1/webhooks/mercadopago"
		}
	}

	var body []byte
	switch {
	case *payload != "":
		b, err := os.ReadFile(*payload)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read payload: %v\n", err)
			os.Exit(2)
		}
		body = b
	case *paymentID != "":
		body = []byte(fmt.Sprintf(`{"action":"payment.updated","type":"payment","data":{"id":"%s"}}`, *paymentID))
	default:
		fmt.Fprintln(os.Stderr, "missing -payment-id or -payload")
		os.Exit(2)
	}

	if *requestID == "" {
		*requestID = uuid.NewString()
	}

	fullURL := *url
	if *paymentID != "" {
		fullURL += "?data.id=" + *paymentID
	}

	req, err := http.NewRequest(http.MethodPost, fullURL, bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "new request: %v\n", err)
		os.Exit(2)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-request-id", *requestID)
	if *secret != "" {
		req.Header.Set("x-signature", sign(*paymentID, *requestID, *secret))
	}

	c := &http.Client{Timeout: 10 * time.Second}
	resp, err := c.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "post: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("status=%d\n%s\n", resp.StatusCode, string(respBody))
}

func sign(dataID, requestID, secret string) string {
	ts := fmt.Sprintf("%d", time.Now().Unix())
	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", dataID, requestID, ts)

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(manifest))
	return fmt.Sprintf("ts=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}
