// Package account talks to the external account store. It verifies
// access tokens and reads the identity fields used to enrich player
// profiles. Both paths sit behind one circuit breaker so a flapping
// account store degrades fast instead of queueing requests.
package account

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"

	"github.com/matchpoint-labs/padelcore/internal/domain/identity"
	"github.com/matchpoint-labs/padelcore/internal/platform/logging"
	"github.com/matchpoint-labs/padelcore/internal/platform/resilience"
	"github.com/matchpoint-labs/padelcore/internal/usecase"
)

var errAccountTransient = errors.New("account store transient failure")

type Config struct {
	BaseURL        string
	IntrospectPath string
	AccountPath    string
	Timeout        time.Duration
	CircuitBreaker resilience.CircuitBreakerConfig
}

type Client struct {
	httpClient    *http.Client
	introspectURL string
	accountURL    string
	breaker       *resilience.CircuitBreaker
	logger        *logging.Logger
}

func NewClient(cfg Config, httpClient *http.Client, logger *logging.Logger) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
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

	return &Client{
		httpClient:    httpClient,
		introspectURL: buildURL(cfg.BaseURL, cfg.IntrospectPath),
		accountURL:    buildURL(cfg.BaseURL, cfg.AccountPath),
		breaker:       breaker,
		logger:        logger,
	}
}

func (c *Client) VerifyAccessToken(ctx context.Context, token string) (identity.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return identity.Principal{}, fmt.Errorf("%w: token is required", usecase.ErrUnauthorized)
	}

	encoded, err := sonic.Marshal(introspectRequest{Token: token})
	if err != nil {
		return identity.Principal{}, errors.Wrap(err, "marshal introspect request")
	}

	var decoded introspectResponse
	err = c.do(ctx, http.MethodPost, c.introspectURL, encoded, &decoded)
	if err != nil {
		if errors.Is(err, errUnauthorizedStatus) {
			return identity.Principal{}, fmt.Errorf("%w: introspection denied", usecase.ErrUnauthorized)
		}
		return identity.Principal{}, err
	}

	if !decoded.Active {
		return identity.Principal{}, fmt.Errorf("%w: inactive token", usecase.ErrUnauthorized)
	}
	if strings.TrimSpace(decoded.UserID) == "" {
		return identity.Principal{}, errors.New("invalid introspect response: user_id is empty")
	}

	return identity.Principal{
		UserID: decoded.UserID,
		Email:  decoded.Email,
		Roles:  decoded.Roles,
	}, nil
}

func (c *Client) GetAccount(ctx context.Context, userID string) (identity.Account, bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return identity.Account{}, false, nil
	}

	var decoded accountResponse
	err := c.do(ctx, http.MethodGet, c.accountURL+"/"+userID, nil, &decoded)
	if err != nil {
		if errors.Is(err, errNotFoundStatus) {
			return identity.Account{}, false, nil
		}
		return identity.Account{}, false, err
	}

	return identity.Account{
		UserID:        userID,
		Email:         decoded.Email,
		FullName:      decoded.FullName,
		Phone:         decoded.Phone,
		Gender:        decoded.Gender,
		SkillLevel:    decoded.SkillLevel,
		PreferredSide: decoded.PreferredSide,
		HomeClubID:    decoded.HomeClubID,
	}, true, nil
}

var (
	errUnauthorizedStatus = errors.New("account store denied the request")
	errNotFoundStatus     = errors.New("account store has no such record")
)

func (c *Client) do(ctx context.Context, method, url string, body []byte, out any) error {
	if c.breaker != nil {
		if err := c.breaker.Allow(); err != nil {
			return fmt.Errorf("%w: account store circuit open", usecase.ErrDependencyUnavailable)
		}
	}

	err := c.doOnce(ctx, method, url, body, out)
	if c.breaker != nil {
		if errors.Is(err, errAccountTransient) {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
	}
	return err
}

func (c *Client) doOnce(ctx context.Context, method, url string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return errors.Wrap(err, "create account store request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(errAccountTransient, "request account store: %v", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errUnauthorizedStatus
	case resp.StatusCode == http.StatusNotFound:
		return errNotFoundStatus
	case resp.StatusCode >= 500:
		c.logger.WarnContext(ctx, "account store server error", "status_code", resp.StatusCode, "url", url)
		return errors.Wrapf(errAccountTransient, "account store status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return errors.Newf("account store status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errors.Wrap(err, "read account store response")
	}
	if err := sonic.Unmarshal(raw, out); err != nil {
		return errors.Wrap(err, "unmarshal account store response")
	}
	return nil
}

type introspectRequest struct {
	Token string `json:"token"`
}

type introspectResponse struct {
	Active bool     `json:"active"`
	UserID string   `json:"user_id"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
}

type accountResponse struct {
	Email         string `json:"email"`
	FullName      string `json:"full_name"`
	Phone         string `json:"phone"`
	Gender        string `json:"gender"`
	SkillLevel    string `json:"skill_level"`
	PreferredSide string `json:"preferred_side"`
	HomeClubID    string `json:"home_club_id"`
}

func buildURL(baseURL, path string) string {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	path = strings.TrimSpace(path)
	if path == "" {
		return baseURL
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return baseURL + path
}
