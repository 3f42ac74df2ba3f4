package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ivanhernandez-dev/url-shortener/pkg/core/domain"
	"github.com/ivanhernandez-dev/url-shortener/pkg/ports"
	"golang.org/x/oauth2/clientcredentials"
)

const introspectPath = "/api/v1/auth/introspect"

// IntrospectResponse is the auth service's answer for a token.
type IntrospectResponse struct {
	Active     bool       `json:"active"`
	UserID     uuid.UUID  `json:"userId"`
	TenantID   *uuid.UUID `json:"tenantId,omitempty"`
	TenantSlug string     `json:"tenantSlug,omitempty"`
	Email      string     `json:"email,omitempty"`
	Roles      []string   `json:"roles,omitempty"`
}

// IntrospectionClient resolves tokens against a remote auth service.
type IntrospectionClient struct {
	baseURL    string
	httpClient *http.Client
}

// ClientCredentials authenticates introspection calls with an OAuth2
// client-credentials token. Leave it empty to call the endpoint unauthenticated.
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
}

func (c ClientCredentials) enabled() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.TokenURL != ""
}

func NewIntrospectionClient(ctx context.Context, baseURL string, creds ClientCredentials) *IntrospectionClient {
	httpClient := &http.Client{Timeout: 5 * time.Second}
	if creds.enabled() {
		cc := &clientcredentials.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			TokenURL:     creds.TokenURL,
		}
		httpClient = cc.Client(ctx)
		httpClient.Timeout = 5 * time.Second
	}
	return &IntrospectionClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *IntrospectionClient) Resolve(ctx context.Context, token string) (*domain.Identity, error) {
	body, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+introspectPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("introspect token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("introspect token: unexpected status %d", resp.StatusCode)
	}

	var out IntrospectResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode introspection response: %w", err)
	}
	if !out.Active || out.UserID == uuid.Nil {
		return nil, nil
	}
	return &domain.Identity{UserID: out.UserID, TenantID: out.TenantID}, nil
}

var _ ports.IdentityResolver = (*IntrospectionClient)(nil)
