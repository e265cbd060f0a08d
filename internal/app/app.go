package app

import (
	"context"
	"net/http"
	"path/filepath"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/riskibarqy/opendota-monitor/external/opendota"
	"github.com/riskibarqy/opendota-monitor/internal/config"
	"github.com/riskibarqy/opendota-monitor/internal/infrastructure/repository/file"
	"github.com/riskibarqy/opendota-monitor/internal/platform/logging"
	"github.com/riskibarqy/opendota-monitor/internal/platform/resilience"
	"github.com/riskibarqy/opendota-monitor/internal/usecase"
)

// NewMonitor assembles the polling service: the durable processed-match
// store, the OpenDota client and the selector/monitor pair on top of them.
func NewMonitor(ctx context.Context, cfg config.Config, logger *logging.Logger) (*usecase.MonitorService, error) {
	if logger == nil {
		logger = logging.Default()
	}

	repo := file.NewProcessedRepository(filepath.Join(cfg.DataDir, cfg.ProcessedFile))
	set, err := repo.Load(ctx)
	if err != nil {
		// A corrupt snapshot must not wedge the monitor; start from an
		// empty set and let the next save rewrite the file.
		logger.WarnContext(ctx, "processed set unreadable, starting empty",
			"path", repo.Path(), "error", err)
	}
	logger.InfoContext(ctx, "processed set loaded", "path", repo.Path(), "entries", set.Len())

	httpClient := &http.Client{Timeout: cfg.OpenDotaTimeout}
	if cfg.UptraceEnabled {
		httpClient.Transport = otelhttp.NewTransport(http.DefaultTransport)
	}

	client := opendota.NewClient(opendota.ClientConfig{
		HTTPClient: httpClient,
		BaseURL:    cfg.OpenDotaBaseURL,
		APIKey:     cfg.OpenDotaAPIKey,
		Timeout:    cfg.OpenDotaTimeout,
		MaxRetries: cfg.OpenDotaMaxRetries,
		Logger:     logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.OpenDotaCircuitEnabled,
			FailureThreshold: cfg.OpenDotaCircuitFailureCount,
			OpenTimeout:      cfg.OpenDotaCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.OpenDotaCircuitHalfOpenMaxReq,
		},
	})

	selector := usecase.NewSelectorService(client, cfg.RecencyWindow())

	return usecase.NewMonitorService(selector, client, repo, set, usecase.MonitorConfig{
		PlayerIDs:      cfg.PlayerIDs,
		CheckInterval:  cfg.CheckInterval,
		FailureBackoff: cfg.FailureBackoff,
	}, logger), nil
}
