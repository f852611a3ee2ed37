// Package server exposes the tracker over HTTP: JSON endpoints for tracking
// and aggregation, import triggers, and media-server webhooks.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/trackarr/trackarr/pkg/storage"
	"github.com/trackarr/trackarr/pkg/tracker"
	"go.uber.org/zap"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

type GenericResponse struct {
	Error    *string `json:"error,omitempty"`
	Response any     `json:"response"`
}

// Server houses all dependencies the HTTP layer needs: loggers, the tracking
// engine, storage, and import runners.
type Server struct {
	baseLogger *zap.SugaredLogger
	store      storage.Storage
	tracker    *tracker.Tracker
	imports    ImportSources
}

// New creates a new tracker server
func New(logger *zap.SugaredLogger, store storage.Storage, t *tracker.Tracker, imports ImportSources) Server {
	return Server{
		baseLogger: logger,
		store:      store,
		tracker:    t,
		imports:    imports,
	}
}

func writeErrorResponse(w http.ResponseWriter, status int, err error) error {
	msg := err.Error()
	return writeResponse(w, status, GenericResponse{
		Error: &msg,
	})
}

func writeResponse(w http.ResponseWriter, status int, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}

	w.Header().Set("content-type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}

	w.Write(b)
	return nil
}

// Serve starts the http server and is a blocking call
func (s Server) Serve(port int) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.Handler(),
	}

	go func() {
		s.baseLogger.Info("serving...", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil {
			s.baseLogger.Error(err.Error())
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	<-c

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*3)
	defer cancel()

	return srv.Shutdown(ctx)
}

// Handler builds the full route table.
func (s Server) Handler() http.Handler {
	rtr := mux.NewRouter()
	rtr.Use(s.LogMiddleware())
	rtr.HandleFunc("/healthz", s.Healthz()).Methods(http.MethodGet)

	rtr.HandleFunc("/webhook/{service}/{token}", s.Webhook()).Methods(http.MethodPost)

	api := rtr.PathPrefix("/api").Subrouter()
	v1 := api.PathPrefix("/v1").Subrouter()
	v1.Use(s.UserMiddleware())

	v1.HandleFunc("/search", s.Search()).Methods(http.MethodGet)

	v1.HandleFunc("/media", s.ListMedia()).Methods(http.MethodGet)
	v1.HandleFunc("/media", s.TrackMedia()).Methods(http.MethodPost)
	v1.HandleFunc("/media", s.UpdateMedia()).Methods(http.MethodPatch)
	v1.HandleFunc("/media", s.UntrackMedia()).Methods(http.MethodDelete)
	v1.HandleFunc("/media/detail", s.GetMedia()).Methods(http.MethodGet)
	v1.HandleFunc("/media/status", s.SetStatus()).Methods(http.MethodPost)
	v1.HandleFunc("/media/progress", s.SetProgress()).Methods(http.MethodPut)
	v1.HandleFunc("/media/progress/increase", s.StepProgress(1)).Methods(http.MethodPost)
	v1.HandleFunc("/media/progress/decrease", s.StepProgress(-1)).Methods(http.MethodPost)
	v1.HandleFunc("/media/manual", s.CreateManual()).Methods(http.MethodPost)

	v1.HandleFunc("/episodes/watch", s.WatchEpisode()).Methods(http.MethodPost)
	v1.HandleFunc("/episodes/watch", s.UnwatchEpisode()).Methods(http.MethodDelete)

	v1.HandleFunc("/history", s.History()).Methods(http.MethodGet)
	v1.HandleFunc("/calendar", s.Calendar()).Methods(http.MethodGet)
	v1.HandleFunc("/statistics", s.Statistics()).Methods(http.MethodGet)

	v1.HandleFunc("/imports/{source}", s.RunImport()).Methods(http.MethodPost)
	v1.HandleFunc("/imports/{source}/schedule", s.ScheduleImport()).Methods(http.MethodPost)
	v1.HandleFunc("/imports", s.ListImports()).Methods(http.MethodGet)

	return handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
	)(rtr)
}

// Healthz is an endpoint that can be used for probes
func (s Server) Healthz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := GenericResponse{
			Response: "ok",
		}
		writeResponse(w, http.StatusOK, response)
	}
}
