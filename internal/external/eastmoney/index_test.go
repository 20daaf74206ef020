package eastmoney

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchIndexBars(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1.000001", r.URL.Query().Get("secid"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"klines":[
			"2026-03-02,3000.1,3010.5,3015.0,2995.2,123456",
			"2026-03-03,3010.5,3020.8,3025.3,3008.0,234567",
			"not,a,kline",
			"2026-03-04,3020.8,3031.2,3040.0,3018.5,345678"
		]}}`))
	}))
	defer server.Close()

	client := testClient(server.URL)

	bars, err := client.FetchIndexBars(context.Background(), "1.000001", 6)
	require.NoError(t, err)
	require.Len(t, bars, 3)

	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), bars[0].Date)
	assert.InDelta(t, 3010.5, bars[0].Close, 1e-9)
	assert.InDelta(t, 3040.0, bars[2].High, 1e-9)
	assert.InDelta(t, 3018.5, bars[2].Low, 1e-9)
}

func TestFetchIndexBarsEmptyData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":null}`))
	}))
	defer server.Close()

	client := testClient(server.URL)

	_, err := client.FetchIndexBars(context.Background(), "1.000001", 6)
	assert.Error(t, err)
}

func TestParseKline(t *testing.T) {
	bar, err := parseKline("2026-03-02,3000.1,3010.5,3015.0,2995.2,123456")
	require.NoError(t, err)
	assert.InDelta(t, 3000.1, bar.Open, 1e-9)
	assert.InDelta(t, 3010.5, bar.Close, 1e-9)

	_, err = parseKline("2026-03-02,3000.1")
	assert.Error(t, err)

	_, err = parseKline("03/02/2026,1,2,3,4")
	assert.Error(t, err)
}
