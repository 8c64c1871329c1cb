package credentials

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv(t *testing.T) {
	t.Run("overrides set variables", func(t *testing.T) {
		t.Setenv(EnvUsername, "alice")
		t.Setenv(EnvClientID, "env-client")
		t.Setenv(EnvAccessToken, "env-token")

		creds := FromEnv(Credentials{
			Username:     "bob",
			Password:     "secret",
			ClientID:     "file-client",
			ClientSecret: "file-secret",
		})

		assert.Equal(t, "alice", creds.Username)
		assert.Equal(t, "secret", creds.Password)
		assert.Equal(t, "env-client", creds.ClientID)
		assert.Equal(t, "file-secret", creds.ClientSecret)
		assert.Equal(t, "env-token", creds.AccessToken)
		assert.Empty(t, creds.RefreshToken)
	})

	t.Run("ignores empty variables", func(t *testing.T) {
		t.Setenv(EnvPassword, "")

		creds := FromEnv(Credentials{Password: "kept"})
		assert.Equal(t, "kept", creds.Password)
	})
}
