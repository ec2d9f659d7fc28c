package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.RecordSubmission("AAPL")
	r.RecordSubmission("AAPL")
	r.RecordValidationFailure("inconsistent_bounds")
	r.RecordStaleDrop("ai")
	r.RecordAccuracy("AAPL", "user", 0.5)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.submissions.WithLabelValues("AAPL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.validationFailures.WithLabelValues("inconsistent_bounds")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.staleDrops.WithLabelValues("ai")))
	assert.Equal(t, 0.5, testutil.ToFloat64(r.accuracy.WithLabelValues("AAPL", "user")))
}
