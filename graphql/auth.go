package graphql

import "encoding/base64"

// AuthType names the authentication scheme a generated tool's routing
// config should attach, mirroring the registry generator's auth model.
type AuthType string

const (
	AuthNone   AuthType = "none"
	AuthBearer AuthType = "bearer"
	AuthAPIKey AuthType = "api_key"
	AuthBasic  AuthType = "basic"
	AuthOAuth  AuthType = "oauth"
	AuthCustom AuthType = "custom"
)

// AuthConfig describes how a generator should authenticate its generated
// HTTP routing configs against the upstream GraphQL endpoint.
type AuthConfig struct {
	Type AuthType

	// Bearer
	Token string

	// APIKey
	APIKeyHeader string
	APIKeyValue  string

	// Basic
	Username string
	Password string

	// OAuth
	OAuthToken     string
	OAuthTokenType string

	// Custom: verbatim header set, used as-is.
	CustomHeaders map[string]string
}

// BuildAuthHeaders returns the HTTP headers a generated routing config
// should carry for cfg. A nil cfg, or AuthNone, returns an empty (non-nil)
// map so callers can merge further headers into it unconditionally.
func BuildAuthHeaders(cfg *AuthConfig) map[string]string {
	headers := map[string]string{}
	if cfg == nil {
		return headers
	}

	switch cfg.Type {
	case AuthNone, "":
		// no headers
	case AuthBearer:
		if cfg.Token != "" {
			headers["Authorization"] = "Bearer " + cfg.Token
		}
	case AuthAPIKey:
		header := cfg.APIKeyHeader
		if header == "" {
			header = "X-API-Key"
		}
		if cfg.APIKeyValue != "" {
			headers[header] = cfg.APIKeyValue
		}
	case AuthBasic:
		if cfg.Username != "" || cfg.Password != "" {
			headers["Authorization"] = "Basic " + basicAuthValue(cfg.Username, cfg.Password)
		}
	case AuthOAuth:
		tokenType := cfg.OAuthTokenType
		if tokenType == "" {
			tokenType = "Bearer"
		}
		if cfg.OAuthToken != "" {
			headers["Authorization"] = tokenType + " " + cfg.OAuthToken
		}
	case AuthCustom:
		for k, v := range cfg.CustomHeaders {
			headers[k] = v
		}
	}
	return headers
}

func basicAuthValue(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}
