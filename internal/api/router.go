package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/baharkarakas/strichliste-backend/internal/api/handlers"
	"github.com/baharkarakas/strichliste-backend/internal/config"
	"github.com/baharkarakas/strichliste-backend/internal/metrics"
	"github.com/baharkarakas/strichliste-backend/internal/middleware"
	"github.com/baharkarakas/strichliste-backend/internal/models"
	"github.com/baharkarakas/strichliste-backend/internal/services"
)

type RouterDeps struct {
	Cfg        config.Config
	UserSvc    *services.UserService
	LedgerSvc  *services.LedgerService
	ArticleSvc *services.ArticleService
	Clock      services.Clock
}

func NewRouter(d RouterDeps) http.Handler {
	view := handlers.Presenter{
		Format: models.MoneyFormat{DecimalSeparator: d.Cfg.DecimalSeparator, Symbol: d.Cfg.CurrencySymbol},
		Grace:  d.LedgerSvc.Grace(),
		Clock:  d.Clock,
	}
	users := handlers.NewUserHandler(d.UserSvc, view)
	ledger := handlers.NewLedgerHandler(d.LedgerSvc, view)
	articles := handlers.NewArticleHandler(d.ArticleSvc, view)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.RequestLog, middleware.HTTPMetrics, middleware.RateLimit(d.Cfg.RateRPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"X-Request-Id"},
	}))

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// ---------- users ----------
		r.Get("/users", users.List)
		r.Post("/users", users.Create)
		r.Get("/users/by-card/{code}", users.ByCard)

		r.Route("/users/{id}", func(r chi.Router) {
			r.Get("/", users.Get)
			r.Put("/", users.Update)
			r.Get("/balance", users.Balance)
			r.Post("/balance/rebuild", ledger.Rebuild)

			// ---------- ledger ----------
			r.Post("/deposit", ledger.Deposit)
			r.Post("/withdraw", ledger.Withdraw)
			r.Post("/transfer", ledger.Transfer)
			r.Post("/purchase", ledger.Purchase)
			r.Get("/transactions", ledger.History)
			r.Post("/transactions/{tid}/undo", ledger.Undo)
		})

		// ---------- articles ----------
		r.Get("/articles", articles.List)
		r.Post("/articles", articles.Create)
		r.Get("/articles/{id}", articles.Get)
		r.Put("/articles/{id}", articles.Update)
	})

	return r
}
