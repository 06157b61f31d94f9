package managers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/team-ddrawry/ddrawry-server/internal/config"
)

const providerTimeout = 10 * time.Second

// ProviderError reports a non-200 answer from the Kakao API, carrying the
// upstream status code so handlers can surface it.
type ProviderError struct {
	Operation  string
	StatusCode int
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("kakao %s failed with status %d", e.Operation, e.StatusCode)
}

// KakaoToken is the provider token material returned by the token endpoint.
type KakaoToken struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// KakaoProfile is the subset of the Kakao profile the application stores.
type KakaoProfile struct {
	ID       string
	Nickname string
}

// KakaoMgr completes the authorization-code exchange with Kakao and manages
// the remote session. Logout and Unlink are best effort: their failure never
// blocks local session teardown.
type KakaoMgr interface {
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*KakaoToken, error)
	FetchProfile(ctx context.Context, accessToken string) (*KakaoProfile, error)
	RefreshProviderToken(ctx context.Context, refreshToken string) (*KakaoToken, error)
	ValidateToken(ctx context.Context, accessToken string) (bool, error)
	Logout(ctx context.Context, accessToken string) error
	Unlink(ctx context.Context, accessToken string) error
}

// KakaoManager implements KakaoMgr against the Kakao REST API. The base URLs
// come from configuration so tests can point it at a local server.
type KakaoManager struct {
	oauthConfig *oauth2.Config
	apiBaseURL  string
	client      *http.Client
}

// NewKakaoManager creates a KakaoManager from the injected Kakao configuration.
func NewKakaoManager(cfg config.Kakao) KakaoMgr {
	log.Info("Initializing kakao manager")
	return &KakaoManager{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthBaseURL + "/oauth/authorize",
				TokenURL:  cfg.AuthBaseURL + "/oauth/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiBaseURL: cfg.APIBaseURL,
		client:     &http.Client{Timeout: providerTimeout},
	}
}

// AuthCodeURL returns the Kakao authorization URL the login route redirects to.
func (km *KakaoManager) AuthCodeURL(state string) string {
	return km.oauthConfig.AuthCodeURL(state)
}

// ExchangeCode trades the authorization code for a provider token.
func (km *KakaoManager) ExchangeCode(ctx context.Context, code string) (*KakaoToken, error) {
	token, err := km.oauthConfig.Exchange(km.contextWithClient(ctx), code)
	if err != nil {
		return nil, km.wrapOAuthError("token exchange", err)
	}

	return &KakaoToken{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}, nil
}

// RefreshProviderToken trades the provider refresh token for a fresh provider
// access token without re-prompting login.
func (km *KakaoManager) RefreshProviderToken(ctx context.Context, refreshToken string) (*KakaoToken, error) {
	source := km.oauthConfig.TokenSource(km.contextWithClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, km.wrapOAuthError("token refresh", err)
	}

	refreshed := &KakaoToken{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}
	if refreshed.RefreshToken == "" {
		// Kakao only returns a new refresh token when the old one is close to expiry
		refreshed.RefreshToken = refreshToken
	}
	return refreshed, nil
}

// FetchProfile retrieves the Kakao id and nickname of the token's owner.
func (km *KakaoManager) FetchProfile(ctx context.Context, accessToken string) (*KakaoProfile, error) {
	body, err := km.get(ctx, "/v2/user/me", accessToken, "profile fetch")
	if err != nil {
		return nil, err
	}

	var payload struct {
		ID         int64 `json:"id"`
		Properties struct {
			Nickname string `json:"nickname"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decoding kakao profile: %w", err)
	}
	if payload.ID == 0 {
		return nil, errors.New("kakao returned an invalid profile")
	}

	return &KakaoProfile{
		ID:       strconv.FormatInt(payload.ID, 10),
		Nickname: payload.Properties.Nickname,
	}, nil
}

// ValidateToken reports whether the provider token is still accepted. A 401
// means stale, any other non-200 is a provider error.
func (km *KakaoManager) ValidateToken(ctx context.Context, accessToken string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, km.apiBaseURL+"/v1/user/access_token_info", nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", bearerPrefix+accessToken)

	resp, err := km.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusUnauthorized:
		return false, nil
	default:
		return false, &ProviderError{Operation: "token check", StatusCode: resp.StatusCode}
	}
}

// Logout terminates the remote Kakao session.
func (km *KakaoManager) Logout(ctx context.Context, accessToken string) error {
	return km.post(ctx, "/v1/user/logout", accessToken, "logout")
}

// Unlink disconnects the app from the Kakao account.
func (km *KakaoManager) Unlink(ctx context.Context, accessToken string) error {
	return km.post(ctx, "/v1/user/unlink", accessToken, "unlink")
}

func (km *KakaoManager) get(ctx context.Context, path, accessToken, operation string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, km.apiBaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", bearerPrefix+accessToken)

	resp, err := km.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Operation: operation, StatusCode: resp.StatusCode}
	}

	return io.ReadAll(resp.Body)
}

func (km *KakaoManager) post(ctx context.Context, path, accessToken, operation string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, km.apiBaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", bearerPrefix+accessToken)

	resp, err := km.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &ProviderError{Operation: operation, StatusCode: resp.StatusCode}
	}
	return nil
}

// contextWithClient makes the oauth2 package use the timeout-bound client.
func (km *KakaoManager) contextWithClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, km.client)
}

func (km *KakaoManager) wrapOAuthError(operation string, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		return &ProviderError{Operation: operation, StatusCode: retrieveErr.Response.StatusCode}
	}
	return fmt.Errorf("kakao %s: %w", operation, err)
}
