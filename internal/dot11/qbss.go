package dot11

import (
	"encoding/binary"
	"fmt"
)

// QBSSInfo is the parsed 802.11e QBSS Load element (tag 11): station
// count, channel utilization, and available admission capacity.
type QBSSInfo struct {
	StationCount       uint16
	ChannelUtilization uint8
	AvailableAdmission uint16
}

func parseQBSS(data []byte) (*QBSSInfo, error) {
	if len(data) < 5 {
		return nil, fmt.Errorf("QBSS load IE too short: %d bytes", len(data))
	}
	return &QBSSInfo{
		StationCount:       binary.LittleEndian.Uint16(data[0:2]),
		ChannelUtilization: data[2],
		AvailableAdmission: binary.LittleEndian.Uint16(data[3:5]),
	}, nil
}
