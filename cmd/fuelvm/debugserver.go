package main

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"fuelvm/core"
)

// newDebugServer builds the opt-in introspection mux: GET /gas-costs returns
// the active cost schedule. It is started only by the `debug-server`
// subcommand, which listens on the address given by its --addr flag.
// Each `fuelvm run` invocation is its own process with its own VM, so there
// is no live run state for this server to serve beyond the static schedule;
// it does not attempt to track or expose individual transaction receipts.
func newDebugServer(costs core.GasCosts, logger *logrus.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/gas-costs", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(costs); err != nil {
			logger.WithError(err).Error("encode gas costs")
		}
	})

	return r
}
