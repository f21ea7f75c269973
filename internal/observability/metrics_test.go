package observability

import (
	"testing"
	"time"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("membranedemo", "GET", "/health", 200, 12*time.Millisecond)
	RecordTrapInvocation("dry", "get", "ok", 3*time.Microsecond)
	RecordTrapInvocation("dry", "apply", "throw", 9*time.Microsecond)

	t.Logf("observability/metrics: registration idempotent and recording paths executed")
}
