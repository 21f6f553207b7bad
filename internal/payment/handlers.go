package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"marketplace/internal/api"
	"marketplace/internal/mpaccount"
	"marketplace/internal/order"
	"marketplace/pkg/config"
	"marketplace/pkg/mercadopago"
)

// marketplaceFeeRate is the commission withheld from the vendor on each
// checkout, passed to the provider as marketplace_fee.
var marketplaceFeeRate = decimal.NewFromFloat(0.10)

type OrderStore interface {
	FindForUser(ctx context.Context, id int64, userID string) (*order.Order, error)
	SetPreference(ctx context.Context, id int64, preferenceID string) error
}

type AccessTokenSource interface {
	ValidAccessToken(ctx context.Context, vendorID int64) (string, error)
}

type Handlers struct {
	Cfg    config.Config
	Orders OrderStore
	Tokens AccessTokenSource
	MP     mercadopago.Client
}

type startPaymentResponse struct {
	PreferenceID string `json:"preferenceId"`
	InitPoint    string `json:"initPoint,omitempty"`
}

// StartPayment creates a checkout preference on the owning vendor's Mercado
// Pago account for one of the caller's orders. Calling it again for an order
// that already has a preference returns the existing one.
func (h Handlers) StartPayment(w http.ResponseWriter, r *http.Request) {
	sess := api.SessionFromContext(r.Context())
	if sess == nil {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing session")
		return
	}

	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || orderID <= 0 {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid order id")
		return
	}

	ord, err := h.Orders.FindForUser(r.Context(), orderID, sess.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			api.WriteError(w, http.StatusNotFound, "NOT_FOUND", "order not found")
			return
		}
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "order lookup failed")
		return
	}

	if ord.Status.IsTerminal() {
		api.WriteError(w, http.StatusConflict, "ORDER_NOT_PENDING", "order is already settled")
		return
	}

	if ord.PreferenceID != "" {
		api.WriteJSON(w, http.StatusOK, startPaymentResponse{PreferenceID: ord.PreferenceID})
		return
	}

	accessToken, err := h.Tokens.ValidAccessToken(r.Context(), ord.VendorID)
	if err != nil {
		// NotLinked/RefreshFailed surface as "payment unavailable", never a
		// raw 500: the buyer can't fix the vendor's credentials.
		var refreshErr *mpaccount.RefreshError
		if errors.Is(err, mpaccount.ErrNotLinked) || errors.As(err, &refreshErr) {
			log.Printf("start-payment: vendor token unavailable order=%d vendor=%d err=%v", ord.ID, ord.VendorID, err)
			api.WriteError(w, http.StatusConflict, "PAYMENT_UNAVAILABLE", "vendor cannot accept payments right now")
			return
		}
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "token lookup failed")
		return
	}

	fee := ord.Total.Mul(marketplaceFeeRate).Round(2)

	pref, err := h.MP.CreatePreference(r.Context(), accessToken, mercadopago.PreferenceRequest{
		Items:             preferenceItems(ord),
		PayerEmail:        sess.Email,
		ExternalReference: strconv.FormatInt(ord.ID, 10),
		Marketplace:       "Tap",
		MarketplaceFee:    fee.InexactFloat64(),
		AutoReturn:        "approved",
	})
	if err != nil {
		log.Printf("start-payment: preference create failed order=%d err=%v", ord.ID, err)
		api.WriteError(w, http.StatusBadGateway, "PROVIDER_ERROR", "could not start checkout")
		return
	}

	if err := h.Orders.SetPreference(r.Context(), ord.ID, pref.ID); err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to save preference")
		return
	}

	api.WriteJSON(w, http.StatusOK, startPaymentResponse{PreferenceID: pref.ID, InitPoint: pref.InitPoint})
}

func preferenceItems(ord *order.Order) []mercadopago.PreferenceItem {
	if len(ord.Items) == 0 {
		// Orders created before item snapshots existed: charge the total as
		// a single line.
		return []mercadopago.PreferenceItem{{
			Title:     fmt.Sprintf("Order #%d", ord.ID),
			Quantity:  1,
			UnitPrice: ord.Total.InexactFloat64(),
		}}
	}

	items := make([]mercadopago.PreferenceItem, 0, len(ord.Items))
	for _, it := range ord.Items {
		items = append(items, mercadopago.PreferenceItem{
			Title:     it.Title,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.InexactFloat64(),
		})
	}
	return items
}
