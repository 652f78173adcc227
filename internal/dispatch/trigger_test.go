package dispatch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTrigger_Enabled(t *testing.T) {
	require.False(t, New(Config{}).Enabled())
	require.False(t, New(Config{Token: "tok"}).Enabled())
	require.False(t, New(Config{Repo: "huemul/tablero-worker"}).Enabled())
	require.True(t, New(Config{Token: "tok", Repo: "huemul/tablero-worker"}).Enabled())
}

func TestTrigger_Fire(t *testing.T) {
	t.Run("sends a repository dispatch event", func(t *testing.T) {
		var (
			gotPath  string
			gotAuth  string
			gotBody  map[string]string
			gotCalls int
		)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotCalls++
			gotPath = r.URL.Path
			gotAuth = r.Header.Get("Authorization")

			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(body, &gotBody))

			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		trigger := New(Config{
			Token:    "test-token",
			Repo:     "huemul/tablero-worker",
			Endpoint: srv.URL,
		})
		trigger.Fire(context.Background())

		require.Equal(t, 1, gotCalls)
		require.Equal(t, "/repos/huemul/tablero-worker/dispatches", gotPath)
		require.Equal(t, "Bearer test-token", gotAuth)
		require.Equal(t, map[string]string{"event_type": EventType}, gotBody)
	})

	t.Run("unconfigured trigger makes no call", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
		}))
		defer srv.Close()

		New(Config{Endpoint: srv.URL}).Fire(context.Background())

		require.Zero(t, calls)
	})

	t.Run("rejected dispatch is absorbed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad credentials", http.StatusUnauthorized)
		}))
		defer srv.Close()

		trigger := New(Config{
			Token:    "bad-token",
			Repo:     "huemul/tablero-worker",
			Endpoint: srv.URL,
		})
		trigger.Fire(context.Background())
	})

	t.Run("unreachable endpoint is absorbed", func(t *testing.T) {
		srv := httptest.NewServer(nil)
		srv.Close()

		trigger := New(Config{
			Token:    "test-token",
			Repo:     "huemul/tablero-worker",
			Endpoint: srv.URL,
			Timeout:  time.Second,
		})
		trigger.Fire(context.Background())
	})
}
