package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/reixn/http-recorder/internal/infrastructure/config"
	obs "github.com/reixn/http-recorder/internal/infrastructure/observability"
	"github.com/reixn/http-recorder/internal/usecase"
)

type Deps struct {
	Cfg     config.Config
	Logger  *zerolog.Logger
	Metrics *obs.Metrics
	Rec     *usecase.Recorder
}

func NewRouter(d *Deps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", promhttp.HandlerFor(d.Metrics.Registry(), promhttp.HandlerOpts{}))

	mux.HandleFunc("/api/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"name":    "http-recorder",
			"version": obs.Version,
			"time":    time.Now().UTC(),
		})
	})

	mux.HandleFunc("/api/record", d.handleRecord)
	mux.HandleFunc("/api/finish", d.handleFinish)
	mux.HandleFunc("/api/status", d.handleStatus)

	return mux
}
