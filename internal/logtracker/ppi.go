package logtracker

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// PPI field type codes: 802.11-common, GPS, 11n-MAC, 11n-MAC-PHY.
const (
	fieldDot11Common = 2
	fieldGPS         = 30002
	field11nMAC      = 3
	field11nMACPHY   = 4
)

const ppiVersion = 0

// Dot11CommonFields is the 22-byte PPI "802.11-common" TLV payload.
type Dot11CommonFields struct {
	TSF          uint64
	Flags        uint16
	Rate         uint16
	ChannelFreq  uint16
	ChannelFlags uint16
	FHSSHopset   uint8
	FHSSPattern  uint8
	SignalDBM    int8
	NoiseDBM     int8
}

func (f Dot11CommonFields) encode() []byte {
	buf := make([]byte, 22)
	binary.LittleEndian.PutUint64(buf[0:8], f.TSF)
	binary.LittleEndian.PutUint16(buf[8:10], f.Flags)
	binary.LittleEndian.PutUint16(buf[10:12], f.Rate)
	binary.LittleEndian.PutUint16(buf[12:14], f.ChannelFreq)
	binary.LittleEndian.PutUint16(buf[14:16], f.ChannelFlags)
	buf[16] = f.FHSSHopset
	buf[17] = f.FHSSPattern
	buf[18] = byte(f.SignalDBM)
	buf[19] = byte(f.NoiseDBM)
	// bytes 20-21 reserved/padding
	return buf
}

// GPSFields is the PPI "GPS" TLV payload. Per spec, this is
// variable-length: a present-fields bitmask followed by only the
// fields the bitmask marks present. Lat/lon use 3.7 fixed-point,
// altitude uses 6.4 fixed-point, and the payload is prefixed by the
// 4-byte APPID "KIS\0".
type GPSFields struct {
	HasLat, HasLon, HasAlt bool
	Lat, Lon               float64
	AltMeters              float64
}

const (
	gpsBitLat = 1 << 0
	gpsBitLon = 1 << 1
	gpsBitAlt = 1 << 2
)

func fixed3_7(v float64) uint32 { return uint32(int32(v * 1e7)) }
func fixed6_4(v float64) uint32 { return uint32(int32(v * 1e4)) }

func (f GPSFields) encode() []byte {
	var mask uint32
	if f.HasLat {
		mask |= gpsBitLat
	}
	if f.HasLon {
		mask |= gpsBitLon
	}
	if f.HasAlt {
		mask |= gpsBitAlt
	}

	var buf bytes.Buffer
	buf.WriteString("KIS\x00")
	var maskBuf [4]byte
	binary.LittleEndian.PutUint32(maskBuf[:], mask)
	buf.Write(maskBuf[:])

	var v [4]byte
	if f.HasLat {
		binary.LittleEndian.PutUint32(v[:], fixed3_7(f.Lat))
		buf.Write(v[:])
	}
	if f.HasLon {
		binary.LittleEndian.PutUint32(v[:], fixed3_7(f.Lon))
		buf.Write(v[:])
	}
	if f.HasAlt {
		binary.LittleEndian.PutUint32(v[:], fixed6_4(f.AltMeters))
		buf.Write(v[:])
	}
	return buf.Bytes()
}

// Dot11nMACFields is the PPI "11n-MAC" TLV payload.
type Dot11nMACFields struct {
	Flags       uint32
	AMPDUID     uint32
	NumDelimite uint8
}

func (f Dot11nMACFields) encode() []byte {
	buf := make([]byte, 12)
	binary.LittleEndian.PutUint32(buf[0:4], f.Flags)
	binary.LittleEndian.PutUint32(buf[4:8], f.AMPDUID)
	buf[8] = f.NumDelimite
	return buf
}

// Dot11nMACPHYFields is the PPI "11n-MAC-PHY" TLV payload, a superset of
// 11n-MAC carrying PHY-level MCS/bandwidth/NSS fields.
type Dot11nMACPHYFields struct {
	Dot11nMACFields
	MCS       uint8
	Bandwidth uint8
	NumStreams uint8
}

func (f Dot11nMACPHYFields) encode() []byte {
	base := f.Dot11nMACFields.encode()
	buf := make([]byte, 0, len(base)+3)
	buf = append(buf, base...)
	buf = append(buf, f.MCS, f.Bandwidth, f.NumStreams)
	return buf
}

type ppiField struct {
	typ     uint16
	payload []byte
}

// EncodePacket renders one PPI record: the 8-byte PPI header (version,
// flags, little-endian total length, little-endian DLT) followed by
// zero or more (type_u16, len_u16, payload) TLV fields, then the raw
// frame bytes.
func EncodePacket(dlt uint16, flags uint8, frame []byte, dot11 *Dot11CommonFields, gps *GPSFields, mac *Dot11nMACFields, macPHY *Dot11nMACPHYFields) []byte {
	var fields []ppiField
	if dot11 != nil {
		fields = append(fields, ppiField{fieldDot11Common, dot11.encode()})
	}
	if gps != nil {
		fields = append(fields, ppiField{fieldGPS, gps.encode()})
	}
	if mac != nil {
		fields = append(fields, ppiField{field11nMAC, mac.encode()})
	}
	if macPHY != nil {
		fields = append(fields, ppiField{field11nMACPHY, macPHY.encode()})
	}

	headerLen := 8
	for _, f := range fields {
		headerLen += 4 + len(f.payload)
	}

	out := make([]byte, headerLen)
	out[0] = ppiVersion
	out[1] = flags
	binary.LittleEndian.PutUint16(out[2:4], uint16(headerLen))
	binary.LittleEndian.PutUint16(out[4:6], dlt)
	// bytes 6-7 reserved

	off := 8
	for _, f := range fields {
		binary.LittleEndian.PutUint16(out[off:off+2], f.typ)
		binary.LittleEndian.PutUint16(out[off+2:off+4], uint16(len(f.payload)))
		copy(out[off+4:], f.payload)
		off += 4 + len(f.payload)
	}

	return append(out, frame...)
}

// DecodeHeader parses the 8-byte PPI header and returns the declared
// header length and DLT, used by readers to know how many bytes of TLV
// fields precede the raw frame.
func DecodeHeader(data []byte) (version uint8, flags uint8, headerLen uint16, dlt uint16, err error) {
	if len(data) < 8 {
		return 0, 0, 0, 0, fmt.Errorf("logtracker: short PPI header (%d bytes)", len(data))
	}
	version = data[0]
	flags = data[1]
	headerLen = binary.LittleEndian.Uint16(data[2:4])
	dlt = binary.LittleEndian.Uint16(data[4:6])
	if int(headerLen) > len(data) {
		return 0, 0, 0, 0, fmt.Errorf("logtracker: PPI header length %d exceeds buffer of %d", headerLen, len(data))
	}
	return version, flags, headerLen, dlt, nil
}
