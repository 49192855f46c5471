package whatsapp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reminder-engine/internal/config"
	"reminder-engine/internal/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(config.GatewayConfig{
		BaseURL: srv.URL,
		Token:   "test-token",
		Timeout: 2 * time.Second,
	}, logger)
}

func TestClient_IsAvailable(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   bool
	}{
		{"connected session", http.StatusOK, `{"connected": true}`, true},
		{"no session", http.StatusOK, `{"connected": false}`, false},
		{"gateway error", http.StatusInternalServerError, ``, false},
		{"malformed body", http.StatusOK, `{`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotAuth string
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/status", r.URL.Path)
				gotAuth = r.Header.Get("Authorization")
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))

			assert.Equal(t, tt.want, client.IsAvailable(context.Background()))
			assert.Equal(t, "Bearer test-token", gotAuth)
		})
	}
}

func TestClient_IsAvailable_GatewayDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := NewClient(config.GatewayConfig{BaseURL: srv.URL, Timeout: time.Second}, logger)

	assert.False(t, client.IsAvailable(context.Background()))
}

func TestClient_SendText(t *testing.T) {
	var got sendRequest
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/send", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		io.WriteString(w, `{"ok": true, "id": "3EB0C431C26A1916E07A"}`)
	}))

	id, err := client.SendText(context.Background(), "381 555-1111", "hola")
	require.NoError(t, err)
	assert.Equal(t, "3EB0C431C26A1916E07A", id)
	assert.Equal(t, "3815551111@s.whatsapp.net", got.To, "destination is normalized to a user JID")
	assert.Equal(t, "hola", got.Message)
}

func TestClient_SendText_InvalidDestination(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request should reach the gateway")
	}))

	for _, to := range []string{"", "123", "120363025246125486@g.us"} {
		_, err := client.SendText(context.Background(), to, "hola")
		assert.ErrorIs(t, err, apperrors.ErrInvalidPhoneNumber, to)
	}
}

func TestClient_SendText_GatewayUnavailable(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := client.SendText(context.Background(), "3815551111", "hola")
	assert.ErrorIs(t, err, apperrors.ErrTransportUnavailable)
}

func TestClient_SendText_Rejected(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"ok": false, "msg": "not paired"}`)
	}))

	_, err := client.SendText(context.Background(), "3815551111", "hola")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not paired")
}
