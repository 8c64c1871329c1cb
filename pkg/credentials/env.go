package credentials

import (
	"os"
)

// Environment variables read by FromEnv.
const (
	EnvUsername     = "WALLABAG_USERNAME"
	EnvPassword     = "WALLABAG_PASSWORD"
	EnvClientID     = "WALLABAG_CLIENT_ID"
	EnvClientSecret = "WALLABAG_CLIENT_SECRET"
	EnvRefreshToken = "WALLABAG_REFRESH_TOKEN"
	EnvAccessToken  = "WALLABAG_ACCESS_TOKEN"
)

// FromEnv returns base with every field overridden by its non-empty
// WALLABAG_* environment variable.
func FromEnv(base Credentials) Credentials {
	overlay := func(field *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*field = v
		}
	}

	creds := base
	overlay(&creds.Username, EnvUsername)
	overlay(&creds.Password, EnvPassword)
	overlay(&creds.ClientID, EnvClientID)
	overlay(&creds.ClientSecret, EnvClientSecret)
	overlay(&creds.RefreshToken, EnvRefreshToken)
	overlay(&creds.AccessToken, EnvAccessToken)
	return creds
}
