package dot11

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestBeaconClassificationScenario exercises a beacon with SSID "test",
// channel 6, RSN IE specifying CCMP+PSK.
// Expected: role includes BEACON_AP and the crypt set includes CCMP and
// the PSK AKM bit.
func TestBeaconClassificationScenario(t *testing.T) {
	pi := &PackInfo{
		IsBeacon: true,
		SSID:     &SSIDInfo{Len: 4, Printable: "test"},
		Channel:  6,
		RSN: &RSNInfo{
			GroupCipher:     "CCMP",
			PairwiseCiphers: []string{"CCMP"},
			AKMSuites:       []string{"PSK"},
		},
	}
	computeCryptSet(pi)

	c := NewClassifier(0)
	res := c.Classify(pi, time.Now())

	assert.True(t, res.Role&RoleBeaconAP != 0)
	assert.True(t, pi.CryptSet.Has(CryptCCMP))
	assert.True(t, pi.CryptSet.Has(CryptAKMPSK))
	assert.Empty(t, res.Alerts)
}

func TestZeroLengthSSIDDoesNotAlertWhenHidden(t *testing.T) {
	c := NewClassifier(0)
	pi := &PackInfo{IsBeacon: true, SSID: &SSIDInfo{Len: 0, Hidden: true}}
	res := c.Classify(pi, time.Now())
	assert.Empty(t, res.Alerts)
}

func TestZeroLengthSSIDAlertsWhenNotMarkedHidden(t *testing.T) {
	c := NewClassifier(0)
	pi := &PackInfo{IsBeacon: true, SSID: &SSIDInfo{Len: 0, Hidden: false}}
	res := c.Classify(pi, time.Now())
	assert.Len(t, res.Alerts, 1)
	assert.Equal(t, "SSID_ZERO_LENGTH", res.Alerts[0].Subtype)
}

func TestLongSSIDAlert(t *testing.T) {
	c := NewClassifier(0)
	long := make([]byte, 40)
	pi := &PackInfo{IsBeacon: true, SSID: parseSSID(long)}
	res := c.Classify(pi, time.Now())
	assert.Len(t, res.Alerts, 1)
	assert.Equal(t, "SSID_TOO_LONG", res.Alerts[0].Subtype)
}

func TestDeauthInvalidReasonAlert(t *testing.T) {
	c := NewClassifier(0)
	pi := &PackInfo{IsDeauth: true, ReasonCode: 200}
	res := c.Classify(pi, time.Now())
	assert.Len(t, res.Alerts, 1)
	assert.Equal(t, "DEAUTH_INVALID_REASON", res.Alerts[0].Subtype)
}

func TestDeauthValidReasonNoAlert(t *testing.T) {
	c := NewClassifier(0)
	pi := &PackInfo{IsDeauth: true, ReasonCode: 3}
	res := c.Classify(pi, time.Now())
	assert.Empty(t, res.Alerts)
}

func TestWPSBruteForceAlertAfterThreshold(t *testing.T) {
	c := NewClassifier(0)
	now := time.Now()
	var last *Alert
	for i := 0; i < wpsBruteForceM3Limit+1; i++ {
		last = c.ObserveWPSM3("AA:BB:CC:DD:EE:FF", now.Add(time.Duration(i)*time.Second))
	}
	assert.NotNil(t, last)
	assert.Equal(t, "WPS_BRUTEFORCE", last.Subtype)
}

func TestWPSNoAlertBelowThreshold(t *testing.T) {
	c := NewClassifier(0)
	now := time.Now()
	var last *Alert
	for i := 0; i < wpsBruteForceM3Limit; i++ {
		last = c.ObserveWPSM3("AA:BB:CC:DD:EE:FF", now.Add(time.Duration(i)*time.Second))
	}
	assert.Nil(t, last)
}
