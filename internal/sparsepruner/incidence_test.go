package sparsepruner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIncidenceTrackerTouchedWithinWindow(t *testing.T) {
	tr := NewIncidenceTracker(time.Minute)
	base := time.Now()
	tr.now = func() time.Time { return base }

	tr.Record([]uint64{5, 9})
	assert.True(t, tr.Touched(5, 100))
	assert.True(t, tr.Touched(100, 9))
	assert.False(t, tr.Touched(1, 2))
}

func TestIncidenceTrackerExpiresOutsideWindow(t *testing.T) {
	tr := NewIncidenceTracker(time.Minute)
	base := time.Now()
	tr.now = func() time.Time { return base }
	tr.Record([]uint64{5, 9})

	tr.now = func() time.Time { return base.Add(2 * time.Minute) }
	assert.False(t, tr.Touched(5, 9))
}
