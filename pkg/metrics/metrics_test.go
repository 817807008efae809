package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMetricsExposedOnHandler(t *testing.T) {
	m := New("sepolia")
	m.AttestationSubmittedCount.Inc()
	m.LatestBlockNumber.Set(42)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "validator_attestation_starknet_latest_block_number")
	require.Contains(t, body, `network="sepolia"`)
	require.Contains(t, body, "validator_attestation_missed_epochs_count")
}
