// Package oauth implements the generic token exchange and refresh client.
// All five platforms go through the same two code paths; vendor differences
// (extra headers, extra form fields, account-id field names) come in as data
// via platform.TokenEndpointProfile.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tulenlabs/tulen-connect/internal/platform"
	"github.com/tulenlabs/tulen-connect/internal/util"
)

// ClientCredentials is the OAuth app identity used against a vendor's
// token endpoint, resolved from the credential store or the environment.
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// TokenResult is the normalized payload of a successful exchange or refresh.
type TokenResult struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        string
	// ExpiresIn is the vendor-reported lifetime in seconds; zero means the
	// vendor reported no expiry.
	ExpiresIn int64
	// AccountID is the vendor account identifier from the token response,
	// present only when the profile declares an AccountIDField.
	AccountID string
}

// ExpiresAt converts the relative lifetime into an absolute instant.
// Returns the zero time when the vendor reported no expiry.
func (t *TokenResult) ExpiresAt(now time.Time) time.Time {
	if t.ExpiresIn <= 0 {
		return time.Time{}
	}
	return now.Add(time.Duration(t.ExpiresIn) * time.Second)
}

// Client performs token endpoint calls. It holds no per-platform state.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a token endpoint client with a sane request timeout.
func NewClient() *Client {
	return NewClientWithHTTP(&http.Client{Timeout: 30 * time.Second})
}

// NewClientWithHTTP creates a client with a caller-supplied http.Client
// (tests inject a stub transport here).
func NewClientWithHTTP(hc *http.Client) *Client {
	return &Client{httpClient: hc}
}

// Exchange trades an authorization code for tokens. verifier must be the
// PKCE code verifier generated at login time when the profile uses PKCE,
// and is ignored otherwise. No persistence happens here; that is the
// caller's job.
func (c *Client) Exchange(ctx context.Context, profile platform.TokenEndpointProfile, creds ClientCredentials, code, verifier string) (*TokenResult, error) {
	// Fail fast on incomplete input: a bad request must never reach the vendor.
	switch {
	case creds.ClientID == "":
		return nil, &ConfigurationError{Field: "clientId"}
	case creds.ClientSecret == "":
		return nil, &ConfigurationError{Field: "clientSecret"}
	case code == "":
		return nil, &ConfigurationError{Field: "code"}
	case creds.RedirectURI == "":
		return nil, &ConfigurationError{Field: "redirectUri"}
	case profile.UsePKCE && verifier == "":
		return nil, &ConfigurationError{Field: "codeVerifier"}
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", creds.ClientID)
	form.Set("client_secret", creds.ClientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", creds.RedirectURI)
	if profile.UsePKCE {
		form.Set("code_verifier", verifier)
	}
	for k, v := range profile.TokenParams {
		form.Set(k, v)
	}

	payload, status, err := c.post(ctx, profile, form)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &TokenExchangeError{
			Platform:      profile.Platform,
			StatusCode:    status,
			VendorMessage: vendorMessage(payload.raw),
		}
	}

	result := payload.toResult()
	if result.AccessToken == "" {
		return nil, &TokenExchangeError{
			Platform:      profile.Platform,
			StatusCode:    status,
			VendorMessage: "token response missing access_token",
		}
	}
	if profile.AccountIDField != "" {
		result.AccountID = payload.stringField(profile.AccountIDField)
		if result.AccountID == "" {
			return nil, &TokenExchangeError{
				Platform:      profile.Platform,
				StatusCode:    status,
				VendorMessage: fmt.Sprintf("token response missing %s", profile.AccountIDField),
			}
		}
	}
	return result, nil
}

// Refresh mints a new access token from a stored refresh token. If the vendor
// omits refresh_token in the response the result's RefreshToken is empty and
// the caller must keep using the previous one.
func (c *Client) Refresh(ctx context.Context, profile platform.TokenEndpointProfile, creds ClientCredentials, refreshToken string) (*TokenResult, error) {
	switch {
	case creds.ClientID == "":
		return nil, &ConfigurationError{Field: "clientId"}
	case creds.ClientSecret == "":
		return nil, &ConfigurationError{Field: "clientSecret"}
	case refreshToken == "":
		return nil, &ConfigurationError{Field: "refreshToken"}
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", creds.ClientID)
	form.Set("client_secret", creds.ClientSecret)
	form.Set("refresh_token", refreshToken)
	for k, v := range profile.TokenParams {
		form.Set(k, v)
	}

	payload, status, err := c.post(ctx, profile, form)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &TokenRefreshError{
			Platform:      profile.Platform,
			StatusCode:    status,
			VendorMessage: vendorMessage(payload.raw),
		}
	}

	result := payload.toResult()
	if result.AccessToken == "" {
		return nil, &TokenRefreshError{
			Platform:      profile.Platform,
			StatusCode:    status,
			VendorMessage: "refresh response missing access_token",
		}
	}
	return result, nil
}

// tokenPayload carries the decoded (or undecodable-raw) vendor response.
type tokenPayload struct {
	fields map[string]any
	raw    []byte
}

func (p *tokenPayload) stringField(key string) string {
	switch v := p.fields[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	}
	return ""
}

func (p *tokenPayload) intField(key string) int64 {
	switch v := p.fields[key].(type) {
	case float64:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	case json.Number:
		n, _ := v.Int64()
		return n
	}
	return 0
}

func (p *tokenPayload) toResult() *TokenResult {
	return &TokenResult{
		AccessToken:  p.stringField("access_token"),
		RefreshToken: p.stringField("refresh_token"),
		TokenType:    p.stringField("token_type"),
		Scope:        p.stringField("scope"),
		ExpiresIn:    p.intField("expires_in"),
	}
}

// post performs one form-encoded POST against the profile's token endpoint.
// This is hand-built on net/http rather than oauth2.Config.Exchange because
// some vendors require extra headers on the token request, which x/oauth2
// cannot attach.
func (c *Client) post(ctx context.Context, profile platform.TokenEndpointProfile, form url.Values) (*tokenPayload, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, profile.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	for k, v := range profile.TokenHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("call %s token endpoint: %w", profile.Platform, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read %s token response: %w", profile.Platform, err)
	}

	payload := &tokenPayload{raw: body}
	// Tolerate non-JSON bodies: error paths fall back to raw text.
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err == nil {
		payload.fields = fields
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("⚠️ %s token endpoint returned %d: %s",
			profile.Platform, resp.StatusCode, util.TruncateBytes(body))
	}
	return payload, resp.StatusCode, nil
}

// vendorMessage extracts a human-readable error from a vendor body. JSON
// bodies are tried first (error / error_description / message, with
// Facebook-style {"error":{"message":...}} objects unwrapped); anything else
// degrades to the raw text, truncated.
func vendorMessage(body []byte) string {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err == nil {
		switch v := fields["error"].(type) {
		case string:
			if v != "" {
				return v
			}
		case map[string]any:
			if msg, ok := v["message"].(string); ok && msg != "" {
				return msg
			}
		}
		if msg, ok := fields["error_description"].(string); ok && msg != "" {
			return msg
		}
		if msg, ok := fields["message"].(string); ok && msg != "" {
			return msg
		}
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return "no error detail provided"
	}
	return util.TruncateLog(text, util.DefaultLogMaxLen)
}
