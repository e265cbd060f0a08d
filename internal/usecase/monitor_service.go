package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/opendota-monitor/internal/domain/processed"
	"github.com/riskibarqy/opendota-monitor/internal/platform/logging"
)

// ParseRequester submits one replay-parse request to the provider.
type ParseRequester interface {
	RequestParse(ctx context.Context, matchID string) error
}

// UnparsedSelector yields the candidate match IDs for one player given the
// current processed set.
type UnparsedSelector interface {
	SelectUnparsed(ctx context.Context, accountID string, set processed.Set) ([]string, error)
}

type MonitorConfig struct {
	PlayerIDs      []string
	CheckInterval  time.Duration
	FailureBackoff time.Duration
}

// MonitorService runs the polling loop: every cycle it walks the configured
// players in order, collects candidate matches (deduplicated across
// players), requests a parse for each one, and persists the processed set
// after every successful request so a restart never re-requests them.
//
// The service is the sole owner of the processed set; there are no
// concurrent mutators and all provider calls are strictly sequential.
type MonitorService struct {
	selector  UnparsedSelector
	requester ParseRequester
	repo      processed.Repository
	set       processed.Set
	cfg       MonitorConfig
	logger    *logging.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

func NewMonitorService(
	selector UnparsedSelector,
	requester ParseRequester,
	repo processed.Repository,
	set processed.Set,
	cfg MonitorConfig,
	logger *logging.Logger,
) *MonitorService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 30 * time.Minute
	}
	if cfg.FailureBackoff <= 0 {
		cfg.FailureBackoff = time.Minute
	}

	return &MonitorService{
		selector:  selector,
		requester: requester,
		repo:      repo,
		set:       set,
		cfg:       cfg,
		logger:    logger,
		sleep:     waitFor,
	}
}

// Run polls until ctx is cancelled. A cycle that fails wholesale is logged
// and retried after the failure backoff instead of the regular interval;
// the loop itself never gives up.
func (s *MonitorService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "monitor loop starting",
		"players", len(s.cfg.PlayerIDs),
		"check_interval", s.cfg.CheckInterval,
		"processed_total", s.set.Len(),
	)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.runCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.ErrorContext(ctx, "polling cycle failed", "error", err, "retry_in", s.cfg.FailureBackoff)
			if err := s.sleep(ctx, s.cfg.FailureBackoff); err != nil {
				return err
			}
			continue
		}

		s.logger.InfoContext(ctx, "polling cycle completed",
			"processed_total", s.set.Len(),
			"next_check_in", s.cfg.CheckInterval,
		)
		if err := s.sleep(ctx, s.cfg.CheckInterval); err != nil {
			return err
		}
	}
}

func (s *MonitorService) runCycle(ctx context.Context) error {
	candidates := make([]string, 0, 16)
	seen := make(map[string]struct{}, 16)

	fetchFailures := 0
	var lastFetchErr error
	for _, accountID := range s.cfg.PlayerIDs {
		if err := ctx.Err(); err != nil {
			return err
		}

		ids, err := s.selector.SelectUnparsed(ctx, accountID, s.set)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fetchFailures++
			lastFetchErr = err
			s.logger.WarnContext(ctx, "select unparsed matches failed, skipping player",
				"account_id", accountID, "error", err)
			continue
		}
		if len(ids) > 0 {
			s.logger.InfoContext(ctx, "found unparsed matches", "account_id", accountID, "count", len(ids))
		}

		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			candidates = append(candidates, id)
		}
	}

	// One failing player degrades to zero candidates for that player; the
	// cycle as a whole fails only when no player could be fetched at all.
	if len(s.cfg.PlayerIDs) > 0 && fetchFailures == len(s.cfg.PlayerIDs) {
		return fmt.Errorf("all %d players failed to fetch: %w", fetchFailures, lastFetchErr)
	}

	for _, id := range candidates {
		if s.set.Contains(id) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.requester.RequestParse(ctx, id); err != nil {
			// Not added to the set, so it comes back as a candidate next cycle.
			s.logger.WarnContext(ctx, "parse request failed, will retry next cycle",
				"match_id", id, "error", err)
			continue
		}

		s.set.Add(id)
		if err := s.repo.Save(ctx, s.set); err != nil {
			// The in-memory set keeps the entry; it is re-persisted with the
			// next successful save but lost if the process dies first.
			s.logger.ErrorContext(ctx, "persist processed set failed",
				"match_id", id, "processed_total", s.set.Len(), "error", err)
		}
	}

	return nil
}

func waitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
