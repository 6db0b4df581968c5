package dot11

import "fmt"

// RSNInfo is the parsed RSN information element (tag 48): cipher/AKM
// suite tables extended with the SAE/OWE suites the crypt-set bitfield
// names.
type RSNInfo struct {
	Version         uint16
	GroupCipher     string
	PairwiseCiphers []string
	AKMSuites       []string
	Capabilities    RSNCapabilities
}

// WPAInfo is the parsed WPA vendor IE body (Microsoft OUI, subtype 1),
// which shares RSN's cipher-suite-list shape after its own 2-byte
// version field.
type WPAInfo struct {
	Version         uint16
	GroupCipher     string
	PairwiseCiphers []string
	AKMSuites       []string
}

// RSNCapabilities is the two-byte RSN capabilities bitfield.
type RSNCapabilities struct {
	PreAuth          bool
	NoPairwise       bool
	PTKSAReplayCount uint8
	GTKSAReplayCount uint8
	MFPRequired      bool
	MFPCapable       bool
	PeerKeyEnabled   bool
}

func parseRSN(data []byte) (*RSNInfo, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("RSN IE too short: %d bytes", len(data))
	}

	rsn := &RSNInfo{}
	offset := 0

	rsn.Version = uint16(data[offset]) | uint16(data[offset+1])<<8
	offset += 2

	if offset+4 <= len(data) {
		rsn.GroupCipher = parseCipherSuite(data[offset : offset+4])
		offset += 4
	}

	if offset+2 <= len(data) {
		count := int(data[offset]) | int(data[offset+1])<<8
		offset += 2
		for i := 0; i < count && offset+4 <= len(data); i++ {
			rsn.PairwiseCiphers = append(rsn.PairwiseCiphers, parseCipherSuite(data[offset:offset+4]))
			offset += 4
		}
	}

	if offset+2 <= len(data) {
		count := int(data[offset]) | int(data[offset+1])<<8
		offset += 2
		for i := 0; i < count && offset+4 <= len(data); i++ {
			rsn.AKMSuites = append(rsn.AKMSuites, parseAKMSuite(data[offset:offset+4]))
			offset += 4
		}
	}

	if offset+2 <= len(data) {
		caps := uint16(data[offset]) | uint16(data[offset+1])<<8
		rsn.Capabilities = parseRSNCapabilities(caps)
	}

	return rsn, nil
}

func parseWPA(data []byte) (*WPAInfo, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("WPA IE too short: %d bytes", len(data))
	}

	wpa := &WPAInfo{}
	offset := 0

	wpa.Version = uint16(data[offset]) | uint16(data[offset+1])<<8
	offset += 2

	if offset+4 <= len(data) {
		wpa.GroupCipher = parseCipherSuite(data[offset : offset+4])
		offset += 4
	}

	if offset+2 <= len(data) {
		count := int(data[offset]) | int(data[offset+1])<<8
		offset += 2
		for i := 0; i < count && offset+4 <= len(data); i++ {
			wpa.PairwiseCiphers = append(wpa.PairwiseCiphers, parseCipherSuite(data[offset:offset+4]))
			offset += 4
		}
	}

	if offset+2 <= len(data) {
		count := int(data[offset]) | int(data[offset+1])<<8
		offset += 2
		for i := 0; i < count && offset+4 <= len(data); i++ {
			wpa.AKMSuites = append(wpa.AKMSuites, parseAKMSuite(data[offset:offset+4]))
			offset += 4
		}
	}

	return wpa, nil
}

func parseCipherSuite(data []byte) string {
	if len(data) < 4 {
		return "UNKNOWN"
	}
	switch data[3] {
	case 1:
		return "WEP-40"
	case 2:
		return "TKIP"
	case 4:
		return "CCMP"
	case 5:
		return "WEP-104"
	case 8:
		return "GCMP-128"
	case 9:
		return "GCMP-256"
	case 10:
		return "CCMP-256"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", data[3])
	}
}

func parseAKMSuite(data []byte) string {
	if len(data) < 4 {
		return "UNKNOWN"
	}
	switch data[3] {
	case 1:
		return "802.1X"
	case 2:
		return "PSK"
	case 3:
		return "FT-802.1X"
	case 4:
		return "FT-PSK"
	case 5:
		return "802.1X-SHA256"
	case 6:
		return "PSK-SHA256"
	case 8:
		return "SAE"
	case 9:
		return "FT-SAE"
	case 18:
		return "OWE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", data[3])
	}
}

func parseRSNCapabilities(caps uint16) RSNCapabilities {
	return RSNCapabilities{
		PreAuth:          caps&0x0001 != 0,
		NoPairwise:       caps&0x0002 != 0,
		PTKSAReplayCount: uint8((caps >> 2) & 0x03),
		GTKSAReplayCount: uint8((caps >> 4) & 0x03),
		MFPRequired:      caps&0x0040 != 0,
		MFPCapable:       caps&0x0080 != 0,
		PeerKeyEnabled:   caps&0x0200 != 0,
	}
}
