package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerExposesRegisteredCollectors(t *testing.T) {
	m := New()
	m.MempoolSize.Set(3)
	m.DocketsSealed.Inc()
	m.ProposalsValidated.WithLabelValues("approved").Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	for _, want := range []string{
		"sorcha_mempool_size 3",
		"sorcha_validator_dockets_sealed_total 1",
		`sorcha_governance_proposals_validated_total{outcome="approved"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected metrics output to contain %q, got:\n%s", want, body)
		}
	}
}

func TestTwoInstancesDoNotCollide(t *testing.T) {
	a := New()
	b := New()
	a.MempoolSize.Set(1)
	b.MempoolSize.Set(2)

	// Separate registries mean separate collector instances are safe to
	// create side by side, e.g. one per validator in an in-process test.
	if a.MempoolSize == b.MempoolSize {
		t.Fatal("expected independent Metrics instances to hold independent collectors")
	}
}
