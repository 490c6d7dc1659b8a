package metrics_test

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/wrinkle/pkg/metrics"
)

func TestMetricsHandler(t *testing.T) {
	m := metrics.New()
	m.ObserveValidation("combined", "accepted")
	m.ObserveRemoteCall("validate", 0.2, nil)
	m.ObserveRemoteCall("validate", 0.1, errors.New("boom"))
	m.ObserveTurn("gate")
	m.ObserveStale("conversation")
	m.ObservePointChange(3)
	m.ObserveSessionStopped()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	gt.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	gt.NoError(t, err)

	out := string(body)
	gt.S(t, out).Contains(`wrinkle_validations_total{result="accepted",source="combined"} 1`)
	gt.S(t, out).Contains(`wrinkle_remote_calls_total{function="validate",status="error"} 1`)
	gt.S(t, out).Contains(`wrinkle_turns_total{outcome="gate"} 1`)
	gt.S(t, out).Contains("wrinkle_sessions_stopped_total 1")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	m.ObserveValidation("combined", "rejected")
	m.ObserveRemoteCall("chat", 1, nil)
	m.ObserveTurn("reply")
	m.ObserveStale("market")
	m.ObservePointChange(-2)
	m.ObserveSessionStopped()
}

func TestIndependentRegistries(t *testing.T) {
	a := metrics.New()
	b := metrics.New()
	gt.True(t, a.Registry() != b.Registry())
}
