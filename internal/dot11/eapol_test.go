package dot11

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestEAPOLCaptureScenario exercises four EAPOL frames forming a
// complete 4-way handshake. Expected:
// wpa_present_handshake == 0b11110, wpa_key_vec.len == 4, no
// NONCE_DUPLICATE alert.
func TestEAPOLCaptureScenario(t *testing.T) {
	s := NewHandshakeState()
	now := time.Now()

	anonce := [32]byte{1}
	snonce := [32]byte{2}

	records := []EAPOLRecord{
		{WallTS: now, Direction: "from-ap", MsgNum: 1, ReplayCounter: 1, Nonce: anonce},
		{WallTS: now, Direction: "to-ap", MsgNum: 2, ReplayCounter: 1, Nonce: snonce},
		{WallTS: now, Direction: "from-ap", MsgNum: 3, ReplayCounter: 2, Nonce: anonce},
		{WallTS: now, Direction: "to-ap", MsgNum: 4, ReplayCounter: 2, Nonce: snonce},
	}

	for _, r := range records {
		alert := s.Observe(r)
		assert.NotEqual(t, HandshakeAlertNonceDuplicate, alert)
	}

	assert.Equal(t, uint32(0b11110), s.PresentHandshake)
	assert.Len(t, s.Vec, 4)
}

func TestHandshakeVectorCapsAtSixteenFIFO(t *testing.T) {
	s := NewHandshakeState()
	now := time.Now()

	for i := 0; i < 20; i++ {
		nonce := [32]byte{byte(i + 1)}
		s.Observe(EAPOLRecord{WallTS: now, MsgNum: (i % 4) + 1, ReplayCounter: uint64(i), Nonce: nonce})
	}

	assert.Len(t, s.Vec, eapolVecCap)
	// The oldest entries (replay counters 0-3) should have been evicted.
	assert.Equal(t, uint64(4), s.Vec[0].ReplayCounter)
}

func TestNonceZeroAlert(t *testing.T) {
	s := NewHandshakeState()
	alert := s.Observe(EAPOLRecord{WallTS: time.Now(), MsgNum: 2, ReplayCounter: 1})
	assert.Equal(t, HandshakeAlertNonceZero, alert)
}

func TestNonceDuplicateAcrossDistinctReplayCounters(t *testing.T) {
	s := NewHandshakeState()
	nonce := [32]byte{9, 9, 9}

	s.Observe(EAPOLRecord{WallTS: time.Now(), MsgNum: 1, ReplayCounter: 1, Nonce: nonce})
	alert := s.Observe(EAPOLRecord{WallTS: time.Now(), MsgNum: 1, ReplayCounter: 2, Nonce: nonce})

	assert.Equal(t, HandshakeAlertNonceDuplicate, alert)
}

func TestMessageNumberDetermination(t *testing.T) {
	m1 := &EAPOLKeyFrame{IsPairwise: true, HasAck: true, HasMIC: false}
	assert.Equal(t, 1, m1.MessageNumber())

	m3 := &EAPOLKeyFrame{IsPairwise: true, HasAck: true, HasMIC: true}
	assert.Equal(t, 3, m3.MessageNumber())

	m2 := &EAPOLKeyFrame{IsPairwise: true, HasAck: false, HasMIC: true, KeyDataLength: 40}
	assert.Equal(t, 2, m2.MessageNumber())

	m4 := &EAPOLKeyFrame{IsPairwise: true, HasAck: false, HasMIC: true, KeyDataLength: 0, KeyInformation: keyInfoSecure}
	assert.Equal(t, 4, m4.MessageNumber())
}
