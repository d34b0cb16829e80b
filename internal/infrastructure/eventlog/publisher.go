// Package eventlog appends domain events to the shared event substrate
// over HTTP. Appends are fire-and-forget from the caller's point of
// view: use cases publish after their transaction logic succeeds and
// tolerate substrate downtime.
package eventlog

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"

	"github.com/matchpoint-labs/padelcore/internal/platform/logging"
	"github.com/matchpoint-labs/padelcore/internal/platform/resilience"
	"github.com/matchpoint-labs/padelcore/internal/usecase"
)

type Config struct {
	BaseURL        string
	AppendPath     string
	APIToken       string
	Timeout        time.Duration
	CircuitBreaker resilience.CircuitBreakerConfig
}

type Publisher struct {
	httpClient *http.Client
	appendURL  string
	apiToken   string
	breaker    *resilience.CircuitBreaker
	logger     *logging.Logger
}

func NewPublisher(cfg Config, httpClient *http.Client, logger *logging.Logger) *Publisher {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = logging.Default()
	}

	var breaker *resilience.CircuitBreaker
	if cfg.CircuitBreaker.Enabled {
		normalized := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)
		breaker = resilience.NewCircuitBreaker(normalized.FailureThreshold, normalized.OpenTimeout, normalized.HalfOpenMaxReq)
	}

	appendURL := strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")
	path := strings.TrimSpace(cfg.AppendPath)
	if path != "" {
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		appendURL += path
	}

	return &Publisher{
		httpClient: httpClient,
		appendURL:  appendURL,
		apiToken:   strings.TrimSpace(cfg.APIToken),
		breaker:    breaker,
		logger:     logger,
	}
}

type appendRequest struct {
	OrganizationID string         `json:"organizationId"`
	Type           string         `json:"type"`
	IdempotencyKey string         `json:"idempotencyKey,omitempty"`
	SourceType     string         `json:"sourceType,omitempty"`
	SourceID       string         `json:"sourceId,omitempty"`
	ActorUserID    string         `json:"actorUserId,omitempty"`
	Payload        map[string]any `json:"payload"`
}

type appendResponse struct {
	Sequence int64 `json:"sequence"`
}

func (p *Publisher) Append(ctx context.Context, event usecase.DomainEvent) (int64, error) {
	if p.breaker != nil {
		if err := p.breaker.Allow(); err != nil {
			return 0, errors.Wrap(usecase.ErrDependencyUnavailable, "event substrate circuit open")
		}
	}

	seq, err := p.appendOnce(ctx, event)
	if p.breaker != nil {
		if err != nil {
			p.breaker.RecordFailure()
		} else {
			p.breaker.RecordSuccess()
		}
	}
	return seq, err
}

func (p *Publisher) appendOnce(ctx context.Context, event usecase.DomainEvent) (int64, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	encoded, err := sonic.Marshal(appendRequest{
		OrganizationID: event.OrganizationID,
		Type:           event.Type,
		IdempotencyKey: event.IdempotencyKey,
		SourceType:     event.SourceType,
		SourceID:       event.SourceID,
		ActorUserID:    event.ActorUserID,
		Payload:        event.Payload,
	})
	if err != nil {
		return 0, errors.Wrap(err, "marshal domain event")
	}
	_, _ = buf.Write(encoded)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.appendURL, bytes.NewReader(buf.B))
	if err != nil {
		return 0, errors.Wrap(err, "create append request")
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiToken)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, "append domain event")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode/100 != 2 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		p.logger.WarnContext(ctx, "event substrate append rejected",
			"status_code", resp.StatusCode,
			"event_type", event.Type,
			"body", strings.TrimSpace(string(raw)),
		)
		return 0, errors.Newf("event substrate status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return 0, errors.Wrap(err, "read append response")
	}
	var decoded appendResponse
	if err := sonic.Unmarshal(raw, &decoded); err != nil {
		return 0, errors.Wrap(err, "unmarshal append response")
	}
	return decoded.Sequence, nil
}
