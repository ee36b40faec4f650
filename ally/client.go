package ally

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// DefaultBaseURL is the Danfoss API base URL.
	DefaultBaseURL = "https://api.danfoss.com"

	// DefaultTimeout bounds every HTTP call made by the client.
	DefaultTimeout = 30 * time.Second

	// EnvAPIKey and EnvAPISecret name the environment variables
	// CredentialsFromEnv reads.
	EnvAPIKey    = "DANFOSS_API_KEY"
	EnvAPISecret = "DANFOSS_API_SECRET"

	tokenPath   = "/oauth2/token"
	devicesPath = "/ally/devices"
)

// Client talks to the Danfoss Ally REST API. It holds the bearer token
// and the most recent device listing; both are guarded for concurrent
// readers.
type Client struct {
	baseURL    string
	creds      Credentials
	httpClient *http.Client
	logger     *slog.Logger
	store      TokenStore

	mu      sync.RWMutex
	token   *Token
	devices []Device
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL. Useful for tests and proxies.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient supplies a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the per-request timeout on the client's HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithLogger configures a structured logger. The default discards
// nothing and writes through slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTokenStore configures token persistence. GetToken consults the
// store before hitting the vendor and writes fresh tokens back.
func WithTokenStore(store TokenStore) Option {
	return func(c *Client) {
		c.store = store
	}
}

// New validates the credentials and builds a client. No network I/O
// happens here.
func New(creds Credentials, opts ...Option) (*Client, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:    DefaultBaseURL,
		creds:      creds,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetToken exchanges the credentials for a bearer token using the
// OAuth2 client-credentials grant. The vendor expects HTTP Basic auth
// and returns expires_in as a JSON string; both are handled by the
// oauth2 package. A configured TokenStore is consulted first, but a
// cached token is adopted only when it outlives the one already held;
// renewing while a token is held always reaches the vendor. On failure
// the client keeps its previous state.
func (c *Client) GetToken(ctx context.Context) error {
	c.mu.RLock()
	held := c.token
	c.mu.RUnlock()

	if c.store != nil {
		cached, err := c.store.Load(ctx)
		switch {
		case err == nil && cached.Valid(time.Now()) && (held == nil || cached.ExpiresAt.After(held.ExpiresAt)):
			c.setToken(cached)
			c.logger.Debug("reusing cached token", "expires_at", cached.ExpiresAt)
			return nil
		case err != nil && !errors.Is(err, ErrTokenNotFound):
			c.logger.Warn("token cache read failed", "error", err)
		}
	}

	cfg := &clientcredentials.Config{
		ClientID:     c.creds.Key,
		ClientSecret: c.creds.Secret,
		TokenURL:     c.baseURL + tokenPath,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	tok, err := cfg.Token(context.WithValue(ctx, oauth2.HTTPClient, c.httpClient))
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return &AuthError{StatusCode: retrieveErr.Response.StatusCode, Body: string(retrieveErr.Body)}
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return &TransportError{Op: "token exchange", Err: err}
		}
		// Unusable grant body counts as an authentication failure.
		return &AuthError{Err: err}
	}

	token := &Token{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		ExpiresAt:   tok.Expiry,
	}
	c.setToken(token)
	c.logger.Debug("token acquired", "expires_at", token.ExpiresAt)

	if c.store != nil {
		if err := c.store.Save(ctx, token); err != nil {
			c.logger.Warn("token cache write failed", "error", err)
		}
	}
	return nil
}

// GetDevices fetches the device listing and stores it on the client.
// It requires a prior successful GetToken; otherwise it returns
// ErrNotAuthenticated without a network call. On failure the previously
// held devices are kept.
func (c *Client) GetDevices(ctx context.Context) ([]Device, error) {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	if token == nil || token.AccessToken == "" {
		return nil, ErrNotAuthenticated
	}

	body, err := c.get(ctx, devicesPath, token)
	if err != nil {
		return nil, err
	}

	var resp DevicesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &DecodeError{What: "devices response", Err: err, Preview: trimBody(string(body))}
	}

	c.mu.Lock()
	c.devices = resp.Result
	c.mu.Unlock()

	c.logger.Debug("devices fetched", "count", len(resp.Result))
	return copyDevices(resp.Result), nil
}

// Devices returns a copy of the most recently fetched device listing.
func (c *Client) Devices() []Device {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyDevices(c.devices)
}

// Authenticated reports whether the client holds an unexpired token.
func (c *Client) Authenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token.Valid(time.Now())
}

// TokenExpiresAt returns the held token's expiry, or the zero time when
// no token is held.
func (c *Client) TokenExpiresAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == nil {
		return time.Time{}
	}
	return c.token.ExpiresAt
}

// NeedsRefresh reports whether GetToken should be invoked again before
// the next authenticated call.
func (c *Client) NeedsRefresh(buffer time.Duration) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token.NeedsRefresh(time.Now(), buffer)
}

func (c *Client) setToken(token *Token) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) get(ctx context.Context, path string, token *Token) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, &TransportError{Op: "build request " + path, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "GET " + path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "read " + path, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &AuthError{StatusCode: resp.StatusCode, Body: string(body)}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func copyDevices(devices []Device) []Device {
	out := make([]Device, len(devices))
	copy(out, devices)
	return out
}
