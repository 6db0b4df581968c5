package dot11

// CryptSet is a bitfield summarizing observed cipher/AKM combinations for
// a network, computed as the union over RSN and WPA IEs.
type CryptSet uint32

const (
	CryptWEP40 CryptSet = 1 << iota
	CryptWEP104
	CryptTKIP
	CryptCCMP
	CryptCCMP256
	CryptGCMP128
	CryptGCMP256
	CryptAKM8021X
	CryptAKMPSK
	CryptAKMFT8021X
	CryptAKMFTPSK
	CryptAKMSAE
	CryptAKMFTSAE
	CryptAKMOWE
	CryptMFPRequired
	CryptMFPCapable
)

func (c CryptSet) Has(bit CryptSet) bool { return c&bit != 0 }

// computeCryptSet folds RSN and WPA cipher/AKM suites plus MFP
// capability bits into pi.CryptSet.
func computeCryptSet(pi *PackInfo) {
	var set CryptSet

	addCipher := func(s string) {
		switch s {
		case "WEP-40":
			set |= CryptWEP40
		case "WEP-104":
			set |= CryptWEP104
		case "TKIP":
			set |= CryptTKIP
		case "CCMP":
			set |= CryptCCMP
		case "CCMP-256":
			set |= CryptCCMP256
		case "GCMP-128":
			set |= CryptGCMP128
		case "GCMP-256":
			set |= CryptGCMP256
		}
	}
	addAKM := func(s string) {
		switch s {
		case "802.1X":
			set |= CryptAKM8021X
		case "PSK":
			set |= CryptAKMPSK
		case "FT-802.1X":
			set |= CryptAKMFT8021X
		case "FT-PSK":
			set |= CryptAKMFTPSK
		case "SAE":
			set |= CryptAKMSAE
		case "FT-SAE":
			set |= CryptAKMFTSAE
		case "OWE":
			set |= CryptAKMOWE
		}
	}

	if pi.RSN != nil {
		addCipher(pi.RSN.GroupCipher)
		for _, c := range pi.RSN.PairwiseCiphers {
			addCipher(c)
		}
		for _, a := range pi.RSN.AKMSuites {
			addAKM(a)
		}
		if pi.RSN.Capabilities.MFPRequired {
			set |= CryptMFPRequired
		}
		if pi.RSN.Capabilities.MFPCapable {
			set |= CryptMFPCapable
		}
	}

	if pi.WPA != nil {
		addCipher(pi.WPA.GroupCipher)
		for _, c := range pi.WPA.PairwiseCiphers {
			addCipher(c)
		}
		for _, a := range pi.WPA.AKMSuites {
			addAKM(a)
		}
	}

	pi.CryptSet = set
}
