package processor

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mkravets/checkout-orchestrator/internal/order/domain"
)

// DefaultSafetyMargin is subtracted from the reported token lifetime so a
// token is never handed out moments before the processor stops honouring it.
const DefaultSafetyMargin = 60 * time.Second

// AccessToken is immutable once issued; the cache replaces it wholesale on
// refresh.
type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}

func (t AccessToken) Usable(now time.Time, margin time.Duration) bool {
	return t.Token != "" && now.Before(t.ExpiresAt.Add(-margin))
}

type Credentials struct {
	ClientID string
	Secret   string
}

// TokenSource exchanges client credentials for a bearer token and caches it
// process-wide. Refreshes are serialized under the mutex, so two concurrent
// expiries result in one outbound exchange and the second caller reads the
// fresh token.
type TokenSource struct {
	log     *slog.Logger
	httpc   *http.Client
	baseURL string
	creds   Credentials
	margin  time.Duration

	mu     sync.Mutex
	cached AccessToken

	now func() time.Time
}

func NewTokenSource(log *slog.Logger, httpc *http.Client, baseURL string, creds Credentials) *TokenSource {
	if httpc == nil {
		httpc = http.DefaultClient
	}
	return &TokenSource{
		log:     log,
		httpc:   httpc,
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		margin:  DefaultSafetyMargin,
		now:     time.Now,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Token returns the cached credential while it remains usable and refreshes
// it otherwise.
func (s *TokenSource) Token(ctx context.Context) (AccessToken, error) {
	if s.creds.ClientID == "" || s.creds.Secret == "" {
		return AccessToken{}, domain.NewError(domain.KindMissingCredentials, "processor client id/secret not configured")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached.Usable(s.now(), s.margin) {
		return s.cached, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return AccessToken{}, domain.NewError(domain.KindNetwork, "build token request").Wrap(err)
	}
	req.SetBasicAuth(s.creds.ClientID, s.creds.Secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	issued := s.now()
	resp, err := s.httpc.Do(req)
	if err != nil {
		return AccessToken{}, transportError(err, "token exchange")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		s.log.Warn("token exchange rejected", "status", resp.StatusCode)
		return AccessToken{}, domain.NewError(domain.KindAuthRejected, "token endpoint rejected credential exchange").
			WithUpstreamStatus(resp.StatusCode)
	}

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return AccessToken{}, domain.NewError(domain.KindAuthRejected, "token endpoint returned malformed body").Wrap(err)
	}
	if body.AccessToken == "" {
		return AccessToken{}, domain.NewError(domain.KindAuthRejected, "token endpoint returned empty access_token")
	}

	s.cached = AccessToken{
		Token:     body.AccessToken,
		ExpiresAt: issued.Add(time.Duration(body.ExpiresIn) * time.Second),
	}
	s.log.Info("access token refreshed", "expires_at", s.cached.ExpiresAt)
	return s.cached, nil
}
