package router

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"stockfolio-backend/internal/application/accounts"
	authsvc "stockfolio-backend/internal/application/auth"
	healthsvc "stockfolio-backend/internal/application/health"
	"stockfolio-backend/internal/application/ledger"
	"stockfolio-backend/internal/application/market"
	"stockfolio-backend/internal/application/quotes"
	"stockfolio-backend/internal/config"
	"stockfolio-backend/internal/infrastructure/database"
	adminhandler "stockfolio-backend/internal/interfaces/handlers/admin"
	authhandler "stockfolio-backend/internal/interfaces/handlers/auth"
	healthhandler "stockfolio-backend/internal/interfaces/handlers/health"
	markethandler "stockfolio-backend/internal/interfaces/handlers/market"
	portfoliohandler "stockfolio-backend/internal/interfaces/handlers/portfolio"
	"stockfolio-backend/internal/middleware"
	"stockfolio-backend/internal/pkg/cache"
	"stockfolio-backend/internal/pkg/constants"
	"stockfolio-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	defaultDatabaseURL = "sqlite:stockfolio.db"
	loginMaxAttempts   = 10
	loginWindow        = time.Minute
)

// CreateApp opens the stores, wires every service and registers all routes.
// Redis is optional: without it logout, health counters and the shared market cache are disabled.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	ctx := context.Background()

	dsn := cfg.DatabaseURL
	if dsn == "" {
		log.Warn().Str("dsn", defaultDatabaseURL).Msg("DATABASE_URL not set, using local sqlite file")
		dsn = defaultDatabaseURL
	}
	db, err := database.Open(dsn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, nil, nil, fmt.Errorf("migrate: %w", err)
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = database.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	secret := cfg.JWTSecret
	if secret == "" {
		if cfg.IsProduction() {
			return nil, nil, nil, authsvc.ErrMissingSecret
		}
		log.Warn().Msg("JWT_SECRET not set, tokens will not survive a restart")
		secret = uuid.NewString()
	}

	finnhub := quotes.NewClient(cfg.FinnhubAPIKey,
		quotes.WithBaseURL(cfg.FinnhubBaseURL),
		quotes.WithRateLimit(cfg.QuoteRateLimit),
		quotes.WithTimeout(cfg.QuoteTimeout),
	)

	var marketCache cache.Cache = cache.NewMemory(cfg.MarketCacheTTL, nil)
	if rdb != nil {
		marketCache = &cache.Redis{Client: rdb, Prefix: "market:", TTL: cfg.MarketCacheTTL}
	}

	acc := &accounts.Service{DB: db}
	if cfg.AdminUsername != "" && cfg.AdminPassword != "" {
		if _, err := acc.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword, cfg.AdminEmail); err != nil {
			return nil, nil, nil, fmt.Errorf("seed admin: %w", err)
		}
	}
	authService := &authsvc.Service{Users: acc, Rdb: rdb, Secret: []byte(secret), TTL: cfg.TokenTTL}
	marketService := &market.Service{Provider: finnhub, Cache: marketCache}
	book := &ledger.Ledger{Quotes: finnhub, Store: &ledger.GormStore{DB: db}}

	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})
	app.Use(recover.New(recover.Config{EnableStackTrace: !cfg.IsProduction()}))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())
	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))
	app.Use(middleware.HealthMarker(rdb))

	hh := &healthhandler.Handlers{
		Rdb:            rdb,
		DB:             &database.Pinger{DB: db},
		Probes:         []healthsvc.Probe{{Name: "finnhub", Check: finnhub.Ping}},
		HealthAdminKey: cfg.HealthAdminKey,
	}
	app.Get("/", hh.Dashboard)
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	requireAuth := middleware.RequireAuth(authService)

	ah := &authhandler.Handlers{Accounts: acc, Auth: authService}
	ag := app.Group("/api/v1/auth")
	ag.Post("/register", ah.Register)
	ag.Post("/login", limiter.New(limiter.Config{
		Max:        loginMaxAttempts,
		Expiration: loginWindow,
		LimitReached: func(c *fiber.Ctx) error {
			return response.Error(c, "Too many login attempts, try again later", fiber.StatusTooManyRequests, nil)
		},
	}), ah.Login)
	ag.Get("/me", requireAuth, ah.Me)
	ag.Delete("/logout", requireAuth, ah.Logout)

	ph := &portfoliohandler.Handlers{Ledger: book, Market: marketService}
	pg := app.Group("/api/v1/portfolio", requireAuth)
	pg.Get("/", middleware.AuthorizePermission(constants.ViewPortfolio), ph.Valuation)
	pg.Get("/trades", middleware.AuthorizePermission(constants.ViewPortfolio), ph.Trades)
	pg.Get("/export", middleware.AuthorizePermission(constants.ViewPortfolio), ph.Export)
	pg.Post("/buy", middleware.AuthorizePermission(constants.Trade), ph.Buy)
	pg.Post("/sell", middleware.AuthorizePermission(constants.Trade), ph.Sell)

	mh := &markethandler.Handlers{Service: marketService}
	mg := app.Group("/api/v1/market", requireAuth, middleware.AuthorizePermission(constants.ViewMarket))
	mg.Get("/quote/:symbol", mh.Quote)
	mg.Get("/news", mh.News)
	mg.Get("/candles", mh.Candles)
	mg.Get("/fx", mh.FX)
	mg.Get("/search", mh.Search)

	adh := &adminhandler.Handlers{Accounts: acc}
	adg := app.Group("/api/v1/admin", requireAuth)
	adg.Get("/users", middleware.AuthorizePermission(constants.ManageUsers), adh.Users)
	adg.Patch("/users/:username/roles", middleware.AuthorizePermission(constants.AssignRole), adh.UpdateRoles)
	adg.Delete("/users/:username", middleware.AuthorizePermission(constants.DeleteUser), adh.DeleteUser)

	return app, db, rdb, nil
}

// Handler exposes the app as a net/http handler for serverless hosts.
func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
