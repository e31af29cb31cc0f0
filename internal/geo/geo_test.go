package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReverseResolvesCity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "19.07", r.URL.Query().Get("latitude"))
		assert.Equal(t, "72.87", r.URL.Query().Get("longitude"))
		assert.Equal(t, "en", r.URL.Query().Get("localityLanguage"))
		_, _ = w.Write([]byte(`{"city":"Mumbai","principalSubdivision":"Maharashtra"}`))
	}))
	defer srv.Close()

	got := NewClient(srv.URL, srv.Client(), nil).Reverse(context.Background(), 19.07, 72.87)
	assert.Equal(t, Place{Lat: 19.07, Lon: 72.87, City: "Mumbai", State: "Maharashtra"}, got)
}

func TestReverseDefaultsMissingFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	got := NewClient(srv.URL, srv.Client(), nil).Reverse(context.Background(), 1, 2)
	assert.Equal(t, "New Delhi", got.City)
	assert.Equal(t, "Delhi", got.State)
}

func TestReverseFallsBackOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	got := NewClient(srv.URL, srv.Client(), nil).Reverse(context.Background(), 1, 2)
	assert.Equal(t, Place{Lat: 1, Lon: 2, City: "Delhi", State: "India"}, got)
}
