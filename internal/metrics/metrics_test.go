package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCountersExposed(t *testing.T) {
	SpotsCreatedTotal.WithLabelValues("ok").Inc()
	require.GreaterOrEqual(t, testutil.ToFloat64(SpotsCreatedTotal.WithLabelValues("ok")), 1.0)

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "cropscout_spots_created_total")
}
