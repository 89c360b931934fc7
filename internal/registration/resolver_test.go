package registration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	supa "github.com/supabase-community/supabase-go"
)

func newAuthServer(t *testing.T) (*supa.Client, *int32) {
	t.Helper()
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/auth/v1/user" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.Header.Get("Authorization") {
		case "Bearer good-token":
			_, _ = w.Write([]byte(`{"id":"0b6f5a3e-6c1d-4f7a-9f4e-2b8c1d3e4f5a","aud":"authenticated","role":"authenticated"}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":401,"msg":"invalid JWT"}`))
		}
	}))
	t.Cleanup(server.Close)

	client, err := supa.NewClient(server.URL, "anon-key", &supa.ClientOptions{Schema: "public"})
	require.NoError(t, err)
	return client, &calls
}

func TestSupabaseUserResolver(t *testing.T) {
	client, calls := newAuthServer(t)

	id, err := NewSupabaseUserResolver(client, "good-token").CurrentUserID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0b6f5a3e-6c1d-4f7a-9f4e-2b8c1d3e4f5a", id)

	_, err = NewSupabaseUserResolver(client, "expired").CurrentUserID(context.Background())
	assert.Error(t, err)

	before := atomic.LoadInt32(calls)
	id, err = NewSupabaseUserResolver(client, "").CurrentUserID(context.Background())
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Equal(t, before, atomic.LoadInt32(calls))
}

func TestStaticUserResolver(t *testing.T) {
	id, err := StaticUserResolver("user-1").CurrentUserID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "user-1", id)

	id, err = StaticUserResolver("").CurrentUserID(context.Background())
	require.NoError(t, err)
	assert.Empty(t, id)
}
