package dot11

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// EAPOL Key Information bit masks (IEEE 802.11i).
const (
	keyInfoDescriptorVersionMask = 0x0007
	keyInfoKeyType               = 1 << 3
	keyInfoKeyMIC                = 1 << 8
	keyInfoSecure                = 1 << 9
	keyInfoKeyAck                = 1 << 7
)

// EAPOLKeyFrame is the parsed fixed-format body of an EAPOL Key frame.
type EAPOLKeyFrame struct {
	KeyInformation uint16
	ReplayCounter  uint64
	Nonce          [32]byte
	MIC            []byte
	KeyDataLength  uint16

	HasMIC     bool
	HasAck     bool
	IsPairwise bool
}

// ParseEAPOLKey extracts the fixed EAPOL Key fields from a decoded
// gopacket Packet. It returns an error (never a panic) for anything
// shorter than the fixed 95-byte Key frame body.
func ParseEAPOLKey(packet gopacket.Packet) (*EAPOLKeyFrame, error) {
	layer := packet.Layer(layers.LayerTypeEAPOL)
	if layer == nil {
		return nil, errors.New("not an EAPOL packet")
	}
	eapol, ok := layer.(*layers.EAPOL)
	if !ok || eapol.Type != layers.EAPOLTypeKey {
		return nil, errors.New("not an EAPOL Key frame")
	}

	payload := eapol.LayerPayload()
	if len(payload) < 95 {
		return nil, fmt.Errorf("EAPOL key payload too short: %d bytes", len(payload))
	}

	f := &EAPOLKeyFrame{}
	f.KeyInformation = binary.BigEndian.Uint16(payload[1:3])
	f.ReplayCounter = binary.BigEndian.Uint64(payload[5:13])
	copy(f.Nonce[:], payload[13:45])
	f.MIC = append([]byte(nil), payload[77:93]...)
	f.KeyDataLength = binary.BigEndian.Uint16(payload[93:95])

	f.HasMIC = f.KeyInformation&keyInfoKeyMIC != 0
	f.HasAck = f.KeyInformation&keyInfoKeyAck != 0
	f.IsPairwise = f.KeyInformation&keyInfoKeyType != 0

	return f, nil
}

// MessageNumber infers the 4-way handshake message number (1-4) from
// the key information flags' Ack/MIC/Secure combination. Returns 0 if
// undetermined.
func (f *EAPOLKeyFrame) MessageNumber() int {
	if !f.IsPairwise {
		return 0
	}
	if !f.HasMIC {
		if f.HasAck {
			return 1
		}
		return 0
	}
	if f.HasAck {
		return 3
	}

	isSecure := f.KeyInformation&keyInfoSecure != 0
	if !isSecure {
		if f.KeyDataLength == 0 {
			return 4
		}
		return 2
	}
	if f.KeyDataLength > 0 {
		return 2
	}
	return 4
}

func (f *EAPOLKeyFrame) isNonceZero() bool {
	var zero [32]byte
	return f.Nonce == zero
}

// EAPOLRecord is one entry in a device's handshake history: wall-clock
// time, direction, message number, replay counter, install bit, nonce,
// and a reference to the raw packet it came from.
type EAPOLRecord struct {
	WallTS        time.Time
	Direction     string // "to-ap" | "from-ap"
	MsgNum        int
	ReplayCounter uint64
	InstallBit    bool
	Nonce         [32]byte
	RawPacketRef  gopacket.Packet
}

const eapolVecCap = 16

// HandshakeState is the per-device EAPOL tracking state: the capped
// handshake vector and the present-handshake bitmask.
type HandshakeState struct {
	Vec              []EAPOLRecord
	PresentHandshake uint32 // bit i set iff message i has been seen
}

// NewHandshakeState returns an empty tracking state for one device.
func NewHandshakeState() *HandshakeState {
	return &HandshakeState{}
}

// HandshakeAlert names a condition raised while folding a new EAPOL
// record into a device's handshake state.
type HandshakeAlert int

const (
	HandshakeAlertNone HandshakeAlert = iota
	HandshakeAlertNonceDuplicate
	HandshakeAlertNonceZero
)

// Observe appends rec to the handshake vector (evicting the oldest entry
// FIFO once the cap is reached), sets the corresponding bit in
// PresentHandshake, and reports a nonce alert if warranted. A nonce equal
// to that of an earlier record in the vector with the same message number
// but a different replay counter raises NonceDuplicate; an all-zero nonce
// raises NonceZero.
func (s *HandshakeState) Observe(rec EAPOLRecord) HandshakeAlert {
	alert := HandshakeAlertNone

	var zero [32]byte
	if rec.Nonce == zero {
		alert = HandshakeAlertNonceZero
	} else {
		for _, prev := range s.Vec {
			if prev.MsgNum == rec.MsgNum && prev.ReplayCounter != rec.ReplayCounter && prev.Nonce == rec.Nonce {
				alert = HandshakeAlertNonceDuplicate
				break
			}
		}
	}

	if rec.MsgNum >= 1 && rec.MsgNum <= 4 {
		s.PresentHandshake |= 1 << uint(rec.MsgNum)
	}

	if len(s.Vec) >= eapolVecCap {
		s.Vec = append(s.Vec[1:], rec)
	} else {
		s.Vec = append(s.Vec, rec)
	}

	return alert
}

// bytesEqual compares raw nonce slices.
func bytesEqual(a, b []byte) bool { return bytes.Equal(a, b) }
