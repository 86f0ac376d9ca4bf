// Package server exposes the dashboard over HTTP: the rendered main page,
// the upload and preview endpoints, and the JSON API the page's scripts use
// to refresh the table and charts.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"tierboard/internal/bucket"
	"tierboard/internal/history"
)

// ObjectStore is the gateway surface the server depends on. The concrete
// implementation is gateway.Client; tests inject an in-memory fake.
type ObjectStore interface {
	bucket.Gateway
	GetObjectBody(ctx context.Context, key string) (contentType string, data []byte, err error)
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	ObjectURL(key string) string
}

type Config struct {
	// Endpoint and Bucket identify the backend for display purposes.
	Endpoint string
	Bucket   string

	// QuotaMB is the display-only usage ceiling.
	QuotaMB float64

	Store ObjectStore

	// History is the optional upload audit log; when nil, uploads are not
	// recorded and /api/uploads returns an empty list.
	History *history.Store
}

// Server handles the dashboard HTTP surface. It keeps no per-request state;
// every page load re-aggregates the bucket.
type Server struct {
	cfg Config
	agg *bucket.Aggregator
}

func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("object store must not be nil")
	}

	return &Server{
		cfg: cfg,
		agg: bucket.New(cfg.Store),
	}, nil
}

// writeJSON encodes v as JSON and writes it to w with a 200 OK status.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Encode JSON response", "err", err)
	}
}
