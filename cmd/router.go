package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/angeloszaimis/coe/config"
	"github.com/angeloszaimis/coe/internal/rewrite"
)

// setupRouter puts the rewrite table in front of the API. External rewrites go
// to forwarder, everything else reaches api.
func setupRouter(log *slog.Logger, cfg *config.Config, api http.Handler, forwarder rewrite.Forwarder) (http.Handler, error) {
	table, err := rewrite.New(rewrite.DefaultRulesAt(
		cfg.Analytics.PostHogIngest,
		cfg.Analytics.PostHogHost,
		cfg.Analytics.PostHogAssetsHost,
	))
	if err != nil {
		return nil, fmt.Errorf("compile rewrite table: %w", err)
	}

	return rewrite.NewHandler(log, table, forwarder, api), nil
}
