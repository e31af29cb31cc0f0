package mandi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatestPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/"+ResourceID, r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "key", q.Get("api-key"))
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "Delhi", q.Get("filters[market]"))
		assert.Equal(t, "Mustard", q.Get("filters[commodity]"))
		assert.Equal(t, "1", q.Get("limit"))
		_, _ = w.Write([]byte(`{"records":[{"market":"Delhi","commodity":"Mustard","variety":"Sarson(Black)","arrival_date":"18/10/2026","modal_price":"6150"}]}`))
	}))
	defer srv.Close()

	rec, err := NewClient("key", srv.URL+"/", srv.Client()).LatestPrice(context.Background(), DefaultMarket, DefaultCommodity)
	require.NoError(t, err)
	assert.Equal(t, "Sarson(Black)", rec.Variety)
	assert.Equal(t, "6150", rec.ModalPrice)
	assert.Equal(t, "18/10/2026", rec.ArrivalDate)
}

func TestLatestPriceErrors(t *testing.T) {
	_, err := NewClient("", "", nil).LatestPrice(context.Background(), "Delhi", "Wheat")
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"records":[]}`))
	}))
	defer empty.Close()
	_, err = NewClient("key", empty.URL+"/", empty.Client()).LatestPrice(context.Background(), "Delhi", "Wheat")
	assert.ErrorIs(t, err, ErrNoRecord)

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer failing.Close()
	_, err = NewClient("key", failing.URL+"/", failing.Client()).LatestPrice(context.Background(), "Delhi", "Wheat")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoRecord)
}
