package dot11

import "hash/adler32"

// Tag numbers for the leaf parsers this package implements. The full IE
// tag space has hundreds of entries; only the tags the classifier and
// device model actually need get a typed parser here.
const (
	tagSSID              = 0
	tagSupportedRates    = 1
	tagDSParameterSet    = 3
	tagCountry           = 7
	tagHTOperation       = 61
	tagVHTOperation      = 192
	tagRSN               = 48
	tagMobilityDomain    = 54
	tagSupportedChannels = 36
	tagQBSSLoad          = 11
	tagExtendedCaps      = 127
	tagVendorSpecific    = 221
	tagExtension         = 255

	extTagHECapabilities  = 35
	extTagEHTCapabilities = 108
)

var (
	ouiMicrosoft = [3]byte{0x00, 0x50, 0xF2}
	ouiDJI       = [3]byte{0x26, 0x37, 0x0B}
)

// iterateIEs walks a TLV stream of (id byte, length byte, value)
// triples, stopping silently at the first malformed entry.
func iterateIEs(data []byte, fn func(id int, val []byte)) {
	offset, limit := 0, len(data)
	for offset < limit {
		if offset+2 > limit {
			return
		}
		id := int(data[offset])
		length := int(data[offset+1])
		offset += 2
		if offset+length > limit {
			return
		}
		fn(id, data[offset:offset+length])
		offset += length
	}
}

// walkIEs populates pi's IETags, IETagCsum, and leaf-parsed fields by
// iterating the management frame's IE stream once. ietag_csum is the
// Adler32 over the exact (tag number, tag length) byte stream — not the
// tag payload — matching the fingerprinting scheme.
func walkIEs(data []byte, pi *PackInfo) {
	var csumStream []byte

	iterateIEs(data, func(id int, val []byte) {
		csumStream = append(csumStream, byte(id), byte(len(val)))

		ref := IETagRef{Number: id}
		if id == tagVendorSpecific && len(val) >= 4 {
			ref.IsVendor = true
			copy(ref.VendorOUI[:], val[0:3])
			ref.VendorSubtype = int(val[3])
		}
		pi.IETags = append(pi.IETags, ref)

		switch id {
		case tagSSID:
			pi.SSID = parseSSID(val)
		case tagDSParameterSet:
			if len(val) >= 1 {
				pi.Channel = int(val[0])
			}
		case tagSupportedChannels:
			chans, err := parseSupportedChannels(val)
			if err != nil {
				pi.recordError(id, err)
				return
			}
			pi.SupportedChannels = chans
		case tagCountry:
			c, err := parseCountry(val)
			if err != nil {
				pi.recordError(id, err)
				return
			}
			pi.Country = c
		case tagRSN:
			rsn, err := parseRSN(val)
			if err != nil {
				pi.recordError(id, err)
				return
			}
			pi.RSN = rsn
		case tagMobilityDomain:
			md, err := parseMDIE(val)
			if err != nil {
				pi.recordError(id, err)
				return
			}
			pi.Mobility = md
		case tagQBSSLoad:
			q, err := parseQBSS(val)
			if err != nil {
				pi.recordError(id, err)
				return
			}
			pi.QBSS = q
		case tagVendorSpecific:
			handleVendorIE(val, pi)
		}
	})

	pi.IETagCsum = adler32.Checksum(csumStream)
}

func handleVendorIE(val []byte, pi *PackInfo) {
	if len(val) < 4 {
		return
	}
	var oui [3]byte
	copy(oui[:], val[0:3])
	subtype := val[3]

	switch {
	case oui == ouiMicrosoft && subtype == 0x01:
		// WPA vendor IE reuses the RSN body shape after the OUI/type header.
		if len(val) > 4 {
			wpa, err := parseWPA(val[4:])
			if err != nil {
				pi.recordError(tagVendorSpecific, err)
				return
			}
			pi.WPA = wpa
		}
	case oui == ouiMicrosoft && subtype == 0x04:
		if len(val) > 4 {
			pi.WPS = parseWPS(val[4:])
		}
	case oui == ouiDJI:
		pi.DroneID = parseDroneID(val[4:])
	}
}
