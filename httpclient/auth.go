package httpclient

import "net/http"

// AuthType identifies the authentication method.
type AuthType int

const (
	AuthNone AuthType = iota
	AuthBearer
	AuthAPIKey
)

// AuthConfig configures request authentication.
type AuthConfig struct {
	Type  AuthType
	Token string
	// Header names the API key header. Defaults to X-API-Key.
	Header string
}

// BearerAuth sends token in the Authorization header.
func BearerAuth(token string) *AuthConfig {
	return &AuthConfig{Type: AuthBearer, Token: token}
}

// APIKeyAuth sends key in the given header.
func APIKeyAuth(key, header string) *AuthConfig {
	return &AuthConfig{Type: AuthAPIKey, Token: key, Header: header}
}

func (a *AuthConfig) apply(req *http.Request) {
	if a == nil {
		return
	}
	switch a.Type {
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+a.Token)
	case AuthAPIKey:
		name := a.Header
		if name == "" {
			name = "X-API-Key"
		}
		req.Header.Set(name, a.Token)
	}
}
