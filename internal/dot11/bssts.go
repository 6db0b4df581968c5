package dot11

import (
	"sync"
	"time"
)

// DefaultBSSTSIncidentThreshold is the cumulative incident score at which
// a BSS-timestamp spoof alert fires. Spec's design notes left the
// increment-without-ceiling behavior ambiguous between "N strikes in a
// row" and "N cumulative strikes within the quiet-period window"; this
// implementation takes the cumulative interpretation and makes the
// threshold configurable (kismet.conf: dot11_bssts_threshold).
const DefaultBSSTSIncidentThreshold = 5

const (
	bsstsQuietPeriod  = 1500 * time.Millisecond
	bsstsRegressionNs = 500 * 1000 // 500ms expressed in TSF microsecond ticks
)

// BSSTSState is the per-BSSID spoof-detection state: last observed TSF,
// the wall-clock time it was observed, and the cumulative incident score.
type BSSTSState struct {
	LastTS      uint64
	LastPktTime time.Time
	Incident    int
}

// BSSTSTracker holds one BSSTSState per BSSID under a single mutex —
// the per-BSSID record count is small and contention is not expected to
// be a bottleneck at beacon rates.
type BSSTSTracker struct {
	mu        sync.Mutex
	threshold int
	states    map[string]*BSSTSState
}

// NewBSSTSTracker creates a tracker using threshold as the cumulative
// incident score that triggers a spoof alert. A threshold <= 0 falls
// back to DefaultBSSTSIncidentThreshold.
func NewBSSTSTracker(threshold int) *BSSTSTracker {
	if threshold <= 0 {
		threshold = DefaultBSSTSIncidentThreshold
	}
	return &BSSTSTracker{threshold: threshold, states: make(map[string]*BSSTSState)}
}

// Observe feeds one beacon's TSF value for bssid at wall-clock time now.
// It returns true exactly once per incident sequence that crosses the
// threshold, at which point the score is reset to 0.
func (t *BSSTSTracker) Observe(bssid string, tsf uint64, now time.Time) (spoofed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.states[bssid]
	if !ok {
		s = &BSSTSState{}
		t.states[bssid] = s
	}

	if s.LastPktTime.IsZero() {
		s.LastTS, s.LastPktTime = tsf, now
		return false
	}

	elapsed := now.Sub(s.LastPktTime)
	if elapsed > bsstsQuietPeriod {
		// Legitimate quiet period: reset baseline, no incident.
		s.LastTS, s.LastPktTime, s.Incident = tsf, now, 0
		return false
	}

	if s.LastTS > tsf && s.LastTS-tsf > bsstsRegressionNs {
		s.Incident += 5
	} else if s.Incident > 0 {
		s.Incident--
	}

	s.LastTS, s.LastPktTime = tsf, now

	if s.Incident >= t.threshold {
		s.Incident = 0
		return true
	}
	return false
}

// State returns a copy of the current state for bssid, for tests and
// diagnostics.
func (t *BSSTSTracker) State(bssid string) (BSSTSState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.states[bssid]
	if !ok {
		return BSSTSState{}, false
	}
	return *s, true
}
