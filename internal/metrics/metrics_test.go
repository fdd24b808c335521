package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordCommand(t *testing.T) {
	before := testutil.ToFloat64(commandsTotal.WithLabelValues("cancel", "rejected"))
	RecordCommand("cancel", "rejected")
	RecordCommand("cancel", "rejected")
	assert.Equal(t, before+2, testutil.ToFloat64(commandsTotal.WithLabelValues("cancel", "rejected")))
}

func TestObserveSweep(t *testing.T) {
	before := testutil.ToFloat64(sweepRuns.WithLabelValues("success"))
	ObserveSweep("success", 15*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(sweepRuns.WithLabelValues("success")))
}

func TestRecordTransition(t *testing.T) {
	before := testutil.ToFloat64(stateTransitions.WithLabelValues("ARCHIVED", "sweep"))
	RecordTransition("ARCHIVED", "sweep")
	assert.Equal(t, before+1, testutil.ToFloat64(stateTransitions.WithLabelValues("ARCHIVED", "sweep")))
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(remindersSent)
	AddReminders(3)
	assert.Equal(t, before+3, testutil.ToFloat64(remindersSent))

	beforeN := testutil.ToFloat64(notificationsStored.WithLabelValues("registered"))
	AddNotifications("registered", 2)
	assert.Equal(t, beforeN+2, testutil.ToFloat64(notificationsStored.WithLabelValues("registered")))
}
