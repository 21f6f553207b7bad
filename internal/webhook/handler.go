package webhook

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"marketplace/internal/api"
	"marketplace/internal/order"
	"marketplace/pkg/config"
	"marketplace/pkg/mercadopago"
)

// Outcome of applying a payment update to an order.
type Outcome int

const (
	OutcomeApplied Outcome = iota
	// OutcomeDuplicate: this delivery was already processed (same event id).
	OutcomeDuplicate
	// OutcomeConflict: the order is in a terminal status that the new status
	// would regress or flip; the update was not applied.
	OutcomeConflict
)

// OrderStore is the order persistence capability the handler needs.
// FindOrder returns (nil, nil) when no order exists. ApplyPaymentUpdate must
// be atomic and idempotent: it records the delivery and applies the status
// transition only if allowed by order.CanReconcile.
type OrderStore interface {
	FindOrder(ctx context.Context, id int64) (*order.Order, error)
	ApplyPaymentUpdate(ctx context.Context, eventID string, orderID int64, to order.Status, paymentID, preferenceID string) (Outcome, error)
}

type AccessTokenSource interface {
	ValidAccessToken(ctx context.Context, vendorID int64) (string, error)
}

type PaymentFetcher interface {
	GetPayment(ctx context.Context, paymentID, accessToken string) (*mercadopago.Payment, error)
}

type Handler struct {
	Cfg      config.Config
	Orders   OrderStore
	Tokens   AccessTokenSource
	Payments PaymentFetcher
}

// ServeHTTP reconciles an asynchronous payment notification onto an order.
//
// Every "handled but inconclusive" branch answers 200 so the provider stops
// redelivering; only unexpected internal failures answer 5xx (which makes the
// provider retry, by design).
func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid body")
		return
	}

	query := r.URL.Query()
	requestID := strings.TrimSpace(r.Header.Get("x-request-id"))

	if secret := h.Cfg.MercadoPago.WebhookSecret; secret != "" {
		sig := strings.TrimSpace(r.Header.Get("x-signature"))
		if !VerifySignature(sig, query.Get("data.id"), requestID, secret) {
			api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid webhook signature")
			return
		}
	} else if h.Cfg.AppEnv != "prod" {
		log.Printf("webhook: signature verification disabled (MP_WEBHOOK_SECRET unset)")
	}

	body := parseBody(raw)

	paymentID := extract(paymentIDExtractors, body, query)
	externalRef := extract(externalRefExtractors, body, query)

	if paymentID == "" && externalRef == "" {
		log.Printf("webhook: no payment id or external reference in payload")
		writeOK(w)
		return
	}

	// Dedup key: provider request id, else a fingerprint of the request.
	// The query string must be part of the fingerprint: legacy IPN
	// notifications carry an empty body and differ only in ?id=.
	eventID := requestID
	if eventID == "" {
		eventID = requestFingerprint(raw, r.URL.RawQuery)
	}

	payment := h.resolvePayment(r.Context(), paymentID, externalRef)
	if payment == nil {
		// Insufficient authoritative data; never guess order state from the
		// raw notification fields.
		log.Printf("webhook: payment not resolvable id=%q external_reference=%q", paymentID, externalRef)
		writeOK(w)
		return
	}

	ref := payment.ExternalReference
	if ref == "" {
		ref = externalRef
	}
	orderID, err := strconv.ParseInt(ref, 10, 64)
	if err != nil || orderID <= 0 {
		log.Printf("webhook: external reference not a numeric order id ref=%q", ref)
		writeOK(w)
		return
	}

	ord, err := h.Orders.FindOrder(r.Context(), orderID)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "order lookup failed")
		return
	}
	if ord == nil {
		log.Printf("webhook: no order for external reference order=%d", orderID)
		writeOK(w)
		return
	}

	to, ok := order.StatusFromPayment(payment.Status)
	if !ok {
		log.Printf("webhook: unmapped payment status %q order=%d", payment.Status, orderID)
		writeOK(w)
		return
	}

	outcome, err := h.Orders.ApplyPaymentUpdate(r.Context(), eventID, orderID, to, payment.ID.String(), payment.PreferenceID)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "order update failed")
		return
	}

	switch outcome {
	case OutcomeDuplicate:
		if h.Cfg.AppEnv != "prod" {
			log.Printf("webhook: already processed event=%s order=%d", eventID, orderID)
		}
	case OutcomeConflict:
		log.Printf("webhook: stale transition rejected order=%d from=%s to=%s", orderID, ord.Status, to)
	}

	writeOK(w)
}

// resolvePayment fetches the authoritative payment resource, preferring the
// owning vendor's token and falling back to the marketplace's global token.
func (h Handler) resolvePayment(ctx context.Context, paymentID, externalRef string) *mercadopago.Payment {
	if paymentID == "" {
		return nil
	}

	if orderID, err := strconv.ParseInt(externalRef, 10, 64); err == nil && orderID > 0 {
		ord, err := h.Orders.FindOrder(ctx, orderID)
		if err == nil && ord != nil {
			token, err := h.Tokens.ValidAccessToken(ctx, ord.VendorID)
			if err != nil {
				log.Printf("webhook: vendor token unavailable vendor=%d err=%v", ord.VendorID, err)
			} else {
				p, err := h.Payments.GetPayment(ctx, paymentID, token)
				if err == nil {
					return p
				}
				log.Printf("webhook: vendor-scoped payment fetch failed vendor=%d payment=%s err=%v", ord.VendorID, paymentID, err)
			}
		}
	}

	if global := h.Cfg.MercadoPago.GlobalAccessToken; global != "" {
		p, err := h.Payments.GetPayment(ctx, paymentID, global)
		if err == nil {
			return p
		}
		log.Printf("webhook: global-token payment fetch failed payment=%s err=%v", paymentID, err)
	}

	return nil
}

func writeOK(w http.ResponseWriter) {
	api.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func requestFingerprint(body []byte, rawQuery string) string {
	h := sha256.New()
	_, _ = h.Write(body)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(rawQuery))
	return hex.EncodeToString(h.Sum(nil))
}
