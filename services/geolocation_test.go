package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocateLocalAddresses(t *testing.T) {
	svc := NewGeolocationService("http://127.0.0.1:1", nil)
	for _, ip := range []string{"", "127.0.0.1", "10.1.2.3", "192.168.0.9", "::1", "not-an-ip"} {
		assert.Equal(t, LocationLocal, svc.Locate(context.Background(), ip), ip)
	}
}

func TestLocateCachesLookups(t *testing.T) {
	var hits int32
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/8.8.8.8"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","country":"Vietnam","regionName":"Dong Nai","city":"Bien Hoa"}`))
	}))
	defer api.Close()

	env := newTestEnv(t)
	svc := NewGeolocationService(api.URL, NewRedisServiceWithClient(env.redis))
	ctx := context.Background()

	assert.Equal(t, "Bien Hoa, Dong Nai, Vietnam", svc.Locate(ctx, "8.8.8.8"))
	assert.Equal(t, "Bien Hoa, Dong Nai, Vietnam", svc.Locate(ctx, "8.8.8.8"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	cached, err := env.mr.Get("geolocation:8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, "Bien Hoa, Dong Nai, Vietnam", cached)
}

func TestLocateFailures(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"fail"}`))
	}))
	defer api.Close()

	svc := NewGeolocationService(api.URL, nil)
	assert.Equal(t, LocationUnknown, svc.Locate(context.Background(), "1.1.1.1"))

	svc.disabled = true
	assert.Equal(t, "", svc.Locate(context.Background(), "1.1.1.1"))
}
