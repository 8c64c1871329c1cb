package apierr

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindForStatus(t *testing.T) {
	assert.Equal(t, KindAuthorization, KindForStatus(http.StatusBadRequest))
	assert.Equal(t, KindAuthorization, KindForStatus(http.StatusUnauthorized))
	assert.Equal(t, KindNotFound, KindForStatus(http.StatusNotFound))
	assert.Equal(t, KindUnsuccessful, KindForStatus(http.StatusForbidden))
	assert.Equal(t, KindUnsuccessful, KindForStatus(http.StatusInternalServerError))
}

func TestMessage(t *testing.T) {
	t.Run("oauth error description wins", func(t *testing.T) {
		body := []byte(`{"error":"invalid_grant","error_description":"The refresh token is invalid."}`)
		assert.Equal(t, "The refresh token is invalid.", Message(400, body))
	})

	t.Run("plain error field", func(t *testing.T) {
		assert.Equal(t, "invalid_client", Message(400, []byte(`{"error":"invalid_client"}`)))
	})

	t.Run("message field", func(t *testing.T) {
		assert.Equal(t, "Entry not found", Message(404, []byte(`{"code":404,"message":"Entry not found"}`)))
	})

	t.Run("non json falls back to status text", func(t *testing.T) {
		assert.Equal(t, "Not Found", Message(404, []byte("<html>nope</html>")))
	})

	t.Run("unknown status", func(t *testing.T) {
		assert.Equal(t, "status 599", Message(599, nil))
	})
}

func TestFromResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":{"code":404,"message":"Not Found"}}`)
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/entries/7.json")
	require.NoError(t, err)

	apiErr := FromResponse(resp)
	assert.Equal(t, KindNotFound, apiErr.Kind)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Not Found", apiErr.Message)
	assert.Equal(t, http.MethodGet, apiErr.Method)
	assert.True(t, strings.HasSuffix(apiErr.URL, "/api/entries/7.json"))
	assert.Contains(t, string(apiErr.Body), `"code":404`)
	assert.Contains(t, apiErr.Error(), "not found (status 404)")
}

func TestPredicatesUnwrap(t *testing.T) {
	notFound := fmt.Errorf("get entry: %w", New(http.StatusNotFound, nil))
	unauthorized := fmt.Errorf("get entry: %w", New(http.StatusUnauthorized, nil))

	assert.True(t, IsNotFound(notFound))
	assert.False(t, IsAuthorization(notFound))
	assert.True(t, IsAuthorization(unauthorized))
	assert.False(t, IsNotFound(unauthorized))
	assert.Equal(t, http.StatusNotFound, StatusCode(notFound))
	assert.Equal(t, 0, StatusCode(fmt.Errorf("dial tcp: connection refused")))
	assert.False(t, IsNotFound(nil))
}
