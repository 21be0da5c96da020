package urlcheck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialControlRefusesInternalAddresses(t *testing.T) {
	blocked := []string{
		"127.0.0.1:80",
		"10.0.0.5:80",
		"172.16.3.4:443",
		"192.168.1.1:443",
		"169.254.169.254:80",
		"100.64.0.1:80",
		"0.0.0.0:80",
		"[::1]:80",
		"[fe80::1]:80",
		"[fc00::1]:443",
		"[::ffff:127.0.0.1]:80",
	}
	for _, addr := range blocked {
		t.Run(addr, func(t *testing.T) {
			assert.ErrorIs(t, dialControl("tcp", addr, nil), ErrBlockedAddress)
		})
	}

	assert.NoError(t, dialControl("tcp", "93.184.216.34:443", nil))
	assert.NoError(t, dialControl("tcp6", "[2606:2800:220:1:248:1893:25c8:1946]:443", nil))
}

func TestGuardedTransportRefusesLoopback(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := guardClient(&http.Client{Timeout: time.Second})
	_, err := httpFetch(client)(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBlockedAddress)
	assert.Zero(t, hits)
}

func TestRedirectToInternalHostRefused(t *testing.T) {
	for _, target := range []string{
		"http://169.254.169.254/latest/meta-data/",
		"http://10.0.0.5/",
		"http://localhost:8080/admin",
		"ftp://files.example.com/",
	} {
		t.Run(target, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, target, http.StatusFound)
			}))
			defer srv.Close()

			// The test server itself is loopback, so keep its transport and check
			// only the redirect rules.
			client := guardClient(srv.Client())
			_, err := httpFetch(client)(context.Background(), srv.URL)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "refused")
		})
	}
}

func TestCheckRedirectAllowsPublicHops(t *testing.T) {
	next := &http.Request{URL: mustParseURL(t, "https://www.example.com/signup")}
	assert.NoError(t, checkRedirect(next, make([]*http.Request, 1)))
	assert.ErrorIs(t, checkRedirect(next, make([]*http.Request, maxRedirects)), http.ErrUseLastResponse)
}

func TestGuardClientKeepsCallerClient(t *testing.T) {
	original := &http.Client{Timeout: 3 * time.Second}
	guarded := guardClient(original)

	assert.Nil(t, original.CheckRedirect)
	assert.Nil(t, original.Transport)
	assert.NotNil(t, guarded.CheckRedirect)
	assert.Equal(t, 3*time.Second, guarded.Timeout)

	transport, ok := guarded.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Nil(t, transport.Proxy)
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}
