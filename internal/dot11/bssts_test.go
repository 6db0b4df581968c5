package dot11

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestBSSTimestampSpoofScenario exercises six back-to-back beacons at
// 100ms intervals, the third through sixth
// regressing relative to the last-observed TSF by more than the
// regression threshold. Expected: exactly one BSSTS alert for the whole
// sequence, since the cumulative score resets to 0 once it fires.
func TestBSSTimestampSpoofScenario(t *testing.T) {
	tr := NewBSSTSTracker(DefaultBSSTSIncidentThreshold)
	bssid := "AA:BB:CC:DD:EE:01"
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var tsf uint64 = 1_000_000
	var alerts int

	// Frame 1: baseline.
	if tr.Observe(bssid, tsf, base) {
		alerts++
	}

	// Frame 2: normal progression (+100ms worth of ticks).
	tsf += 100_000
	if tr.Observe(bssid, tsf, base.Add(100*time.Millisecond)) {
		alerts++
	}

	// Frames 3-6: regression of 1,000,000 ticks below the last value.
	regressed := tsf - 1_000_000
	for i := 3; i <= 6; i++ {
		now := base.Add(time.Duration(i*100) * time.Millisecond)
		if tr.Observe(bssid, regressed, now) {
			alerts++
		}
	}

	assert.Equal(t, 1, alerts)
}

func TestBSSTimestampQuietPeriodResetsBaseline(t *testing.T) {
	tr := NewBSSTSTracker(DefaultBSSTSIncidentThreshold)
	bssid := "AA:BB:CC:DD:EE:02"
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tr.Observe(bssid, 5_000_000, base)
	// A long quiet gap followed by a lower TSF should NOT count as a
	// regression: it resets the baseline instead.
	spoofed := tr.Observe(bssid, 1_000_000, base.Add(2*time.Second))
	assert.False(t, spoofed)

	state, ok := tr.State(bssid)
	assert.True(t, ok)
	assert.Equal(t, 0, state.Incident)
}
