// Package dot11 decodes 802.11 frames into a typed packet-info component,
// walks information elements into leaf structs, computes a fingerprint
// checksum, tracks BSS-timestamp spoofing and EAPOL 4-way handshakes, and
// raises alerts for the conditions the classifier is responsible for.
package dot11

import (
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// FrameType mirrors the 802.11 MAC header type field.
type FrameType int

const (
	FrameTypeMgmt FrameType = iota
	FrameTypeCtrl
	FrameTypeData
	FrameTypeUnknown
)

// PackInfo is the classifier's output component: the decoded MAC header
// plus everything derived from walking the frame's information elements.
// It is attached to the frame under packetchain's dot11-info component id
// and is never mutated once attached.
type PackInfo struct {
	Type    FrameType
	Subtype int

	IsBeacon     bool
	IsProbeReq   bool
	IsProbeResp  bool
	IsNullFunc   bool
	IsDeauth     bool
	IsDisassoc   bool
	ReasonCode   uint16

	// TSF is the beacon/probe-response timestamp field (microsecond
	// ticks since the BSS started), used by the BSS-timestamp spoof
	// detection state machine. Zero for frame types that carry none.
	TSF uint64

	// Addresses, already interpreted per the to-DS/from-DS bits: Source,
	// Dest, BSSID are always resolved to their semantic role regardless
	// of which raw address field they came from.
	Source net.HardwareAddr
	Dest   net.HardwareAddr
	BSSID  net.HardwareAddr

	ToDS   bool
	FromDS bool

	Duration        uint16
	SequenceNumber  uint16
	FragmentNumber  uint8
	Retry           bool
	Fragmented      bool

	// IETagCsum is the Adler32 over the exact tag-number-and-length
	// stream of the management frame's IEs, used for SSID/probe
	// fingerprinting and duplicate-record keying.
	IETagCsum uint32

	// IETags records (ie_number, vendor_oui, vendor_subtype) triples in
	// encounter order.
	IETags []IETagRef

	SSID         *SSIDInfo
	Channel      int
	SupportedChannels []int
	RSN          *RSNInfo
	WPA          *WPAInfo
	WPS          *WPSInfo
	Mobility     *MobilityDomainInfo
	QBSS         *QBSSInfo
	Country      *CountryInfo
	DroneID      *DroneIDInfo

	CryptSet CryptSet

	ParseErrors []error
}

// IETagRef records one information element's tag number and, for vendor
// IEs, the OUI and vendor-specific subtype.
type IETagRef struct {
	Number        int
	VendorOUI     [3]byte
	VendorSubtype int
	IsVendor      bool
}

// ParseError is returned only for header truncation; tag-level failures
// are recorded per-tag in PackInfo.ParseErrors instead of aborting decode.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string { return "dot11: parse error: " + e.Reason }

// Decode parses the 802.11 MAC header from a gopacket Packet and, for
// management frames, walks the IE tag list. It fails only on header
// truncation; per-tag leaf-parser failures are recorded but do not abort.
func Decode(packet gopacket.Packet) (*PackInfo, error) {
	layer := packet.Layer(layers.LayerTypeDot11)
	if layer == nil {
		return nil, &ParseError{Reason: "no 802.11 layer present"}
	}
	d, ok := layer.(*layers.Dot11)
	if !ok {
		return nil, &ParseError{Reason: "unexpected layer type"}
	}

	pi := &PackInfo{
		Duration:       d.DurationID,
		SequenceNumber: d.SequenceNumber,
		FragmentNumber: d.FragmentNumber,
		Retry:          d.Flags.Retry(),
		Fragmented:     d.Flags.MF(),
		ToDS:           d.Flags.ToDS(),
		FromDS:         d.Flags.FromDS(),
	}

	switch d.Type.MainType() {
	case layers.Dot11TypeMgmt:
		pi.Type = FrameTypeMgmt
	case layers.Dot11TypeCtrl:
		pi.Type = FrameTypeCtrl
	case layers.Dot11TypeData:
		pi.Type = FrameTypeData
	default:
		pi.Type = FrameTypeUnknown
	}
	pi.Subtype = int(d.Type)

	switch d.Type {
	case layers.Dot11TypeMgmtBeacon:
		pi.IsBeacon = true
	case layers.Dot11TypeMgmtProbeReq:
		pi.IsProbeReq = true
	case layers.Dot11TypeMgmtProbeResp:
		pi.IsProbeResp = true
	case layers.Dot11TypeDataNull, layers.Dot11TypeDataCFAckNoData, layers.Dot11TypeDataCFPollNoData, layers.Dot11TypeDataCFAckPollNoData:
		pi.IsNullFunc = true
	case layers.Dot11TypeMgmtDeauthentication:
		pi.IsDeauth = true
	case layers.Dot11TypeMgmtDisassociation:
		pi.IsDisassoc = true
	}

	if pi.IsDeauth || pi.IsDisassoc {
		if reason := packet.Layer(layers.LayerTypeDot11MgmtDeauthentication); reason != nil {
			if r, ok := reason.(*layers.Dot11MgmtDeauthentication); ok {
				pi.ReasonCode = uint16(r.Reason)
			}
		}
		if reason := packet.Layer(layers.LayerTypeDot11MgmtDisassociation); reason != nil {
			if r, ok := reason.(*layers.Dot11MgmtDisassociation); ok {
				pi.ReasonCode = uint16(r.Reason)
			}
		}
	}

	if pi.IsBeacon {
		if l := packet.Layer(layers.LayerTypeDot11MgmtBeacon); l != nil {
			if b, ok := l.(*layers.Dot11MgmtBeacon); ok {
				pi.TSF = b.Timestamp
			}
		}
	}
	if pi.IsProbeResp {
		if l := packet.Layer(layers.LayerTypeDot11MgmtProbeResp); l != nil {
			if b, ok := l.(*layers.Dot11MgmtProbeResp); ok {
				pi.TSF = b.Timestamp
			}
		}
	}

	resolveAddresses(pi, d)

	if pi.Type == FrameTypeMgmt {
		ieData := managementIEPayload(packet, d)
		if len(ieData) > 0 {
			walkIEs(ieData, pi)
		}
	}

	computeCryptSet(pi)

	return pi, nil
}

// resolveAddresses interprets the four raw address fields per the
// to-DS/from-DS bits into semantic Source/Dest/BSSID roles.
func resolveAddresses(pi *PackInfo, d *layers.Dot11) {
	switch {
	case !pi.ToDS && !pi.FromDS:
		// IBSS / management: Addr1=DA, Addr2=SA, Addr3=BSSID.
		pi.Dest = d.Address1
		pi.Source = d.Address2
		pi.BSSID = d.Address3
	case !pi.ToDS && pi.FromDS:
		// AP -> STA: Addr1=DA, Addr2=BSSID, Addr3=SA.
		pi.Dest = d.Address1
		pi.BSSID = d.Address2
		pi.Source = d.Address3
	case pi.ToDS && !pi.FromDS:
		// STA -> AP: Addr1=BSSID, Addr2=SA, Addr3=DA.
		pi.BSSID = d.Address1
		pi.Source = d.Address2
		pi.Dest = d.Address3
	default:
		// WDS: Addr1=RA, Addr2=TA, Addr3=DA, Addr4=SA.
		pi.Dest = d.Address3
		pi.Source = d.Address4
		pi.BSSID = d.Address2
	}
}

func managementIEPayload(packet gopacket.Packet, d *layers.Dot11) []byte {
	for _, lt := range []gopacket.LayerType{
		layers.LayerTypeDot11MgmtBeacon,
		layers.LayerTypeDot11MgmtProbeReq,
		layers.LayerTypeDot11MgmtProbeResp,
		layers.LayerTypeDot11MgmtAssociationReq,
		layers.LayerTypeDot11MgmtAssociationResp,
		layers.LayerTypeDot11MgmtReassociationReq,
		layers.LayerTypeDot11MgmtReassociationResp,
	} {
		if l := packet.Layer(lt); l != nil {
			if payload := l.LayerPayload(); len(payload) > 0 {
				return payload
			}
		}
	}

	// Fallback: gopacket may have decoded IEs into individual layers
	// instead of leaving them in the parent layer's payload.
	var ieData []byte
	for _, layer := range packet.Layers() {
		if layer.LayerType() == layers.LayerTypeDot11InformationElement {
			if ie, ok := layer.(*layers.Dot11InformationElement); ok {
				ieData = append(ieData, byte(ie.ID), byte(len(ie.Info)))
				ieData = append(ieData, ie.Info...)
			}
		}
	}
	return ieData
}

func (pi *PackInfo) recordError(tag int, err error) {
	pi.ParseErrors = append(pi.ParseErrors, fmt.Errorf("tag %d: %w", tag, err))
}
