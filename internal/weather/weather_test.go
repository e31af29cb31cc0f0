package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const forecastFixture = `{"list":[
 {"dt":1767225600,"dt_txt":"2026-01-01 00:00:00","main":{"temp":17.6},"weather":[{"main":"Clear","icon":"01n"}]},
 {"dt":1767268800,"dt_txt":"2026-01-01 12:00:00","main":{"temp":24.4},"weather":[{"main":"Clouds","icon":"03d"}]},
 {"dt":1767312000,"dt_txt":"2026-01-02 00:00:00","main":{"temp":15.0},"weather":[{"main":"Rain","icon":"10n"}]},
 {"dt":1767355200,"dt_txt":"2026-01-02 12:00:00","main":{"temp":22.5},"weather":[{"main":"Rain","icon":"10d"}]}
]}`

func TestForecastSummarisesMiddayEntries(t *testing.T) {
	var query map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = map[string]string{
			"lat":   r.URL.Query().Get("lat"),
			"lon":   r.URL.Query().Get("lon"),
			"units": r.URL.Query().Get("units"),
			"appid": r.URL.Query().Get("appid"),
		}
		_, _ = w.Write([]byte(forecastFixture))
	}))
	defer srv.Close()

	s, err := NewClient("key", srv.URL, srv.Client()).Forecast(context.Background(), 28.61, 77.2)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"lat": "28.61", "lon": "77.2", "units": "metric", "appid": "key"}, query)
	assert.Equal(t, "18°C", s.CurrentTemp)
	assert.Equal(t, "Clear", s.CurrentCondition)
	assert.Equal(t, "01n", s.CurrentIcon)
	require.Len(t, s.FiveDay, 2)
	assert.Equal(t, Day{Date: "Thu", Temp: "24°C", Condition: "Clouds", Icon: "03d"}, s.FiveDay[0])
	assert.Equal(t, "Fri", s.FiveDay[1].Date)
	assert.Equal(t, "23°C", s.FiveDay[1].Temp)
}

func TestForecastErrors(t *testing.T) {
	_, err := NewClient("", "", nil).Forecast(context.Background(), 0, 0)
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	_, err = NewClient("bad", srv.URL, srv.Client()).Forecast(context.Background(), 0, 0)
	assert.Error(t, err)

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"list":[]}`))
	}))
	defer empty.Close()
	_, err = NewClient("key", empty.URL, empty.Client()).Forecast(context.Background(), 0, 0)
	assert.Error(t, err)
}
