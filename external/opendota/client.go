package opendota

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/riskibarqy/opendota-monitor/internal/domain/match"
	"github.com/riskibarqy/opendota-monitor/internal/platform/logging"
	"github.com/riskibarqy/opendota-monitor/internal/platform/resilience"
	"github.com/riskibarqy/opendota-monitor/internal/usecase"
)

const defaultBaseURL = "https://api.opendota.com/api"

var apiKeyParamRegex = regexp.MustCompile(`api_key=[^&\s"']+`)
var errOpenDotaTransient = crerr.New("opendota transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client talks to the OpenDota REST API. It covers the two endpoints the
// monitor needs: the recent-matches feed and the replay parse request.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         strings.TrimSpace(cfg.APIKey),
		maxRetries:     maxInt(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

// PlayerRecentMatches fetches the ~20 most recent matches for one account.
// Rows the monitor does not understand are dropped (non-positive match id).
func (c *Client) PlayerRecentMatches(ctx context.Context, accountID string) ([]match.Match, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, fmt.Errorf("%w: account id is required", usecase.ErrInvalidInput)
	}

	path := fmt.Sprintf("/players/%s/recentMatches", url.PathEscape(accountID))

	var items []RecentMatchItem
	if err := c.getJSON(ctx, path, &items); err != nil {
		return nil, fmt.Errorf("fetch recent matches account_id=%s: %w", accountID, err)
	}

	out := make([]match.Match, 0, len(items))
	for _, item := range items {
		if item.MatchID <= 0 {
			continue
		}
		out = append(out, mapRecentMatchItem(item))
	}

	return out, nil
}

// RequestParse asks OpenDota to queue a replay parse for the match.
// A nil error means the provider accepted the request (2xx); the parse
// itself completes asynchronously on the provider side.
func (c *Client) RequestParse(ctx context.Context, matchID string) error {
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return fmt.Errorf("%w: match id is required", usecase.ErrInvalidInput)
	}

	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "opendota circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: match data provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	fullURL := c.baseURL + "/request/" + url.PathEscape(matchID)
	if c.apiKey != "" {
		fullURL += "?api_key=" + url.QueryEscape(c.apiKey)
	}
	curlPreview := buildParseCurlPreview(c.baseURL+"/request/"+matchID, c.apiKey != "")

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(
			attribute.String("opendota.match_id", matchID),
			attribute.String("opendota.request_curl_preview", curlPreview),
		)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, nil)
	if err != nil {
		return crerr.Wrap(err, "create parse request")
	}
	req.Header.Set("accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		callErr := fmt.Errorf("%w: request parse match_id=%s: %s", errOpenDotaTransient, matchID, c.sanitize(err.Error()))
		c.recordCircuitResult(callErr)
		return callErr
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode/100 != 2 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var callErr error
		if isRetryableStatus(resp.StatusCode) {
			callErr = fmt.Errorf("%w: request parse match_id=%s status=%d body=%s",
				errOpenDotaTransient, matchID, resp.StatusCode, strings.TrimSpace(string(raw)))
		} else {
			callErr = fmt.Errorf("request parse match_id=%s status=%d body=%s",
				matchID, resp.StatusCode, strings.TrimSpace(string(raw)))
		}
		c.recordCircuitResult(callErr)
		return callErr
	}

	var job ParseJobResponse
	if raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096)); readErr == nil {
		_ = sonic.Unmarshal(raw, &job)
	}
	c.logger.InfoContext(ctx, "parse requested", "match_id", matchID, "job_id", job.Job.JobID)
	c.recordCircuitResult(nil)
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "opendota circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: match data provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	fullURL := c.baseURL + path
	if c.apiKey != "" {
		fullURL += "?api_key=" + url.QueryEscape(c.apiKey)
	}

	out, err, _ := c.flight.Do(path, func() (any, error) {
		raw, reqErr := c.executeGet(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && isOpenDotaCircuitFailure(reqErr) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("unexpected response payload type %T", out)
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode provider payload: %w", err)
	}

	return nil
}

func (c *Client) executeGet(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %s", errOpenDotaTransient, c.sanitize(err.Error()))
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
			_ = resp.Body.Close()
			if readErr != nil {
				lastErr = fmt.Errorf("%w: read response body: %v", errOpenDotaTransient, readErr)
			} else if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return raw, nil
			} else {
				if isRetryableStatus(resp.StatusCode) {
					lastErr = fmt.Errorf("%w: provider status=%d body=%s", errOpenDotaTransient, resp.StatusCode, abbreviateBody(raw))
				} else {
					lastErr = fmt.Errorf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
					return nil, lastErr
				}
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("provider request failed")
	}
	c.logger.WarnContext(ctx, "opendota request failed", "url", c.redactURL(fullURL), "error", lastErr)
	return nil, lastErr
}

func (c *Client) sanitize(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	if c.apiKey != "" {
		value = strings.ReplaceAll(value, c.apiKey, "REDACTED")
	}
	return apiKeyParamRegex.ReplaceAllString(value, "api_key=REDACTED")
}

func (c *Client) redactURL(fullURL string) string {
	return apiKeyParamRegex.ReplaceAllString(fullURL, "api_key=REDACTED")
}

func (c *Client) recordCircuitResult(err error) {
	if !c.circuitEnabled || c.breaker == nil {
		return
	}
	if err != nil && isOpenDotaCircuitFailure(err) {
		c.breaker.RecordFailure()
		return
	}
	c.breaker.RecordSuccess()
}

func isOpenDotaCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, errOpenDotaTransient)
}

func isRetryableStatus(statusCode int) bool {
	return statusCode == http.StatusRequestTimeout ||
		statusCode == http.StatusTooManyRequests ||
		statusCode >= http.StatusInternalServerError
}

func buildParseCurlPreview(postURL string, withAPIKey bool) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	appendPart := func(part string) {
		if buf.Len() > 0 {
			_ = buf.WriteByte(' ')
		}
		_, _ = buf.WriteString(part)
	}

	appendPart("curl")
	appendPart("-X")
	appendPart("POST")
	if withAPIKey {
		appendPart(shellQuote(postURL + "?api_key=***"))
	} else {
		appendPart(shellQuote(postURL))
	}
	appendPart("-H")
	appendPart(shellQuote("accept: application/json"))

	return buf.String()
}

func shellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "'\"'\"'") + "'"
}

func abbreviateBody(raw []byte) string {
	const maxLen = 512
	body := strings.TrimSpace(string(raw))
	if len(body) <= maxLen {
		return body
	}
	return body[:maxLen] + "...(truncated)"
}

func maxInt(left, right int) int {
	if left > right {
		return left
	}
	return right
}
