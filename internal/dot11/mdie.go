package dot11

import (
	"encoding/binary"
	"fmt"
)

// MobilityDomainInfo is the parsed 802.11r Mobility Domain IE (tag 54).
type MobilityDomainInfo struct {
	MDID           uint16
	OverDS         bool
	ResourceReq    bool
	FTCapabilities uint8
}

func parseMDIE(data []byte) (*MobilityDomainInfo, error) {
	if len(data) < 3 {
		return nil, fmt.Errorf("MDIE too short: %d bytes", len(data))
	}
	md := &MobilityDomainInfo{
		MDID:           binary.LittleEndian.Uint16(data[0:2]),
		FTCapabilities: data[2],
	}
	md.OverDS = md.FTCapabilities&0x01 != 0
	md.ResourceReq = md.FTCapabilities&0x02 != 0
	return md, nil
}
