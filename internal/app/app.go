// Package app wires the platform client, per-device state, and configuration
// for the command-line frontends.
package app

import (
	"net/http"
	"os"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/hussainwajda/menux-go/internal/api"
	"github.com/hussainwajda/menux-go/internal/session"
)

// Runtime bundles the shared dependencies of every frontend: the API client,
// the on-disk order session registry, and stored staff credentials.
type Runtime struct {
	Config      *Config
	Client      *api.Client
	Registry    *session.Registry
	Credentials *session.Credentials
}

// Setup builds a Runtime from configuration. State files live under
// cfg.StateDir, which is created if missing.
func Setup(cfg *Config) (*Runtime, error) {
	if err := os.MkdirAll(cfg.StateDir, 0o700); err != nil {
		return nil, errors.Wrap(err, "create state dir")
	}

	creds := session.NewCredentials(cfg.CredentialFile())

	hc := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   cfg.HTTPTimeout,
	}

	client := api.NewClient(api.Config{
		BaseURL:       cfg.BaseURL,
		PublicBaseURL: cfg.PublicBaseURL,
		Tokens:        creds,
		HTTPClient:    hc,
	})

	return &Runtime{
		Config:      cfg,
		Client:      client,
		Registry:    session.NewRegistry(session.NewFile(cfg.SessionFile())),
		Credentials: creds,
	}, nil
}
