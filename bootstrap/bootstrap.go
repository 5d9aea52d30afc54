package bootstrap

import (
	"net/http"

	"stockfolio-backend/internal/config"
	"stockfolio-backend/internal/interfaces/router"
)

// New builds the app for serverless hosts, where only the api package is an entry point.
func New() (http.Handler, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	app, _, _, err := router.CreateApp(cfg)
	if err != nil {
		return nil, err
	}
	return router.Handler(app), nil
}
