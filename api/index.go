package handler

import (
	"net/http"

	"stockfolio-backend/bootstrap"
)

var fiberHandler http.Handler

func init() {
	h, err := bootstrap.New()
	if err != nil {
		panic("app create: " + err.Error())
	}
	fiberHandler = h
}

// Handler is the serverless entry point. All requests are rewritten here.
func Handler(w http.ResponseWriter, r *http.Request) {
	r.RequestURI = r.URL.String()
	fiberHandler.ServeHTTP(w, r)
}
