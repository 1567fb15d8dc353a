package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewWith_RecordsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWith(reg, true)

	m.RecordLogin("success", 120*time.Millisecond)
	m.RecordLogin("success", 80*time.Millisecond)
	m.RecordLogin("failure", 50*time.Millisecond)
	m.RecordLogout("user")
	m.RecordProfileFetch("success")
	m.RecordGuardDecision("denied", "not_authenticated")
	m.RecordOutboundRequest(true)
	m.RecordOutboundRequest(false)

	if got := testutil.ToFloat64(m.loginsTotal.WithLabelValues("success")); got != 2 {
		t.Errorf("logins{result=success} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.loginsTotal.WithLabelValues("failure")); got != 1 {
		t.Errorf("logins{result=failure} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.logoutsTotal.WithLabelValues("user")); got != 1 {
		t.Errorf("logouts{cause=user} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.guardDecisionsTotal.WithLabelValues("denied", "not_authenticated")); got != 1 {
		t.Errorf("guard decisions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.authedRequestsTotal.WithLabelValues("true")); got != 1 {
		t.Errorf("outbound{authenticated=true} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.authedRequestsTotal.WithLabelValues("false")); got != 1 {
		t.Errorf("outbound{authenticated=false} = %v, want 1", got)
	}
}

func TestNewWith_DisabledIsNoop(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWith(reg, false)

	// Must not panic on nil collectors.
	m.RecordLogin("success", time.Second)
	m.RecordLogout("user")
	m.RecordProfileFetch("failure")
	m.RecordGuardDecision("allowed", "role_match")
	m.RecordOutboundRequest(true)

	if n, err := testutil.GatherAndCount(reg); err != nil || n != 0 {
		t.Errorf("disabled metrics registered %d families (err %v), want 0", n, err)
	}
}

func TestMetrics_NilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordLogin("success", time.Second)
	m.RecordLogout("user")
	m.RecordProfileFetch("success")
	m.RecordGuardDecision("allowed", "role_match")
	m.RecordOutboundRequest(false)
}
