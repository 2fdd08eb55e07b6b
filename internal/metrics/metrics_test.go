package metrics

import (
	"errors"
	"testing"

	"sortec/entity"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncrementSubmitted()
	m.IncrementSubmitted()
	m.ObserveDecision(entity.StatusApproved, entity.OutcomeApplied)
	m.ObserveDecision(entity.StatusApproved, entity.OutcomeAlreadyHandled)
	m.NotificationDone(entity.KindApproved, nil)
	m.NotificationDone(entity.KindApproved, errors.New("smtp"))
	m.SetQueueLength(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Submitted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Decisions.WithLabelValues("approved", "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Decisions.WithLabelValues("approved", "already_handled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("approved", "delivered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("approved", "failed")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.QueueLength))
}
