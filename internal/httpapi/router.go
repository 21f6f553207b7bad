package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketplace/internal/api"
	"marketplace/internal/mpaccount"
	"marketplace/internal/mplink"
	"marketplace/internal/order"
	"marketplace/internal/payment"
	"marketplace/internal/vendor"
	"marketplace/internal/webhook"
	"marketplace/pkg/config"
	"marketplace/pkg/mercadopago"
)

type Dependencies struct {
	Cfg config.Config
	DB  *pgxpool.Pool
}

func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	oauthClient := mercadopago.OAuthClient{
		BaseURL:      deps.Cfg.MercadoPago.APIBaseURL,
		ClientID:     deps.Cfg.MercadoPago.ClientID,
		ClientSecret: deps.Cfg.MercadoPago.ClientSecret,
		RedirectURI:  deps.Cfg.MercadoPago.RedirectURI,
	}
	mpClient := mercadopago.Client{BaseURL: deps.Cfg.MercadoPago.APIBaseURL}

	accountsRepo := mpaccount.NewRepository(deps.DB)
	tokens := &mpaccount.TokenSource{Store: accountsRepo, OAuth: oauthClient}

	linkHandlers := mplink.Handlers{
		Cfg:      deps.Cfg,
		Vendors:  vendor.NewRepository(deps.DB),
		Accounts: accountsRepo,
		OAuth:    oauthClient,
	}
	paymentHandlers := payment.Handlers{
		Cfg:    deps.Cfg,
		Orders: order.NewRepository(deps.DB),
		Tokens: tokens,
		MP:     mpClient,
	}
	webhookHandler := webhook.Handler{
		Cfg:      deps.Cfg,
		Orders:   webhook.Store{DB: deps.DB},
		Tokens:   tokens,
		Payments: mpClient,
	}

	// v1
	r.Route("/v1", func(r chi.Router) {
		// Account linking (session carried via cookie; handlers redirect to
		// login themselves so the OAuth round trip can resume).
		r.Group(func(r chi.Router) {
			r.Use(api.SessionAuth(deps.Cfg))
			r.Get("/mercadopago/oauth/start", linkHandlers.Start)
			r.Get("/mercadopago/oauth/callback", linkHandlers.Callback)
		})

		// Checkout API used by the storefront/mobile clients.
		r.Group(func(r chi.Router) {
			r.Use(api.CORSMiddleware(api.CORSOptions{
				AllowedOrigins: deps.Cfg.APIAllowedOrigins,
				AllowedMethods: []string{"POST", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type", "Authorization"},
				MaxAgeSeconds:  600,
			}))
			r.Use(api.SessionAuth(deps.Cfg))
			r.Post("/orders/{id}/start-payment", paymentHandlers.StartPayment)
		})

		// Provider-originated notifications (server-to-server, no session).
		r.Post("/webhooks/mercadopago", webhookHandler.ServeHTTP)
	})

	return r
}
