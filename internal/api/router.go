package api

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/mkweon/asset-tracker/internal/api/handlers"
	custommiddleware "github.com/mkweon/asset-tracker/internal/api/middleware"
	"github.com/mkweon/asset-tracker/internal/config"
	"github.com/mkweon/asset-tracker/internal/pricing"
	"github.com/mkweon/asset-tracker/internal/service"
)

// NewRouter creates the HTTP router with all routes and middleware configured.
func NewRouter(
	cfg *config.Config,
	db *sql.DB,
	authService *service.AuthService,
	assetService *service.AssetService,
	totalsService *service.TotalsService,
	settingsService *service.SettingsService,
	quoter pricing.Quoter,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(custommiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(custommiddleware.NewCORS(cfg.CORS.AllowedOrigins).Handler)

	authHandler := handlers.NewAuthHandler(authService)
	assetHandler := handlers.NewAssetHandler(assetService)
	summaryHandler := handlers.NewSummaryHandler(assetService)
	totalsHandler := handlers.NewTotalsHandler(totalsService)
	lookupHandler := handlers.NewLookupHandler(quoter)
	settingsHandler := handlers.NewSettingsHandler(settingsService)
	systemHandler := handlers.NewSystemHandler(db)

	r.Post("/register", authHandler.Register)
	r.Post("/login", authHandler.Login)
	r.Get("/health", systemHandler.Health)

	r.Group(func(r chi.Router) {
		r.Use(custommiddleware.BearerAuth(authService))

		r.Post("/refresh-token", authHandler.RefreshToken)

		r.Route("/assets", func(r chi.Router) {
			r.Get("/", assetHandler.List)
			r.Post("/", assetHandler.Create)
			r.Put("/{assetID}", assetHandler.Update)
			r.Delete("/{assetID}", assetHandler.Delete)
			r.Post("/{assetID}/refresh", assetHandler.Refresh)
		})

		r.Post("/refresh", summaryHandler.Refresh)
		r.Get("/summary", summaryHandler.Summary)

		r.Route("/totals", func(r chi.Router) {
			r.Get("/", totalsHandler.Totals)
			r.Get("/detail", totalsHandler.Detail)
			r.Post("/snapshot", totalsHandler.Snapshot)
		})

		r.Get("/lookup", lookupHandler.Lookup)

		r.Route("/settings", func(r chi.Router) {
			r.Get("/pricing", settingsHandler.GetPricing)
			r.Put("/pricing", settingsHandler.PutPricing)
		})
	})

	return r
}
