package dot11

import "fmt"

// CountryInfo is the parsed 802.11d Country IE (tag 7): a two-letter
// country code plus zero or more (first_channel, num_channels, max_power)
// triplets.
type CountryInfo struct {
	Code          string
	ChannelRanges []CountryChannelRange
}

// CountryChannelRange is one (first channel, channel count, max tx power
// in dBm) triplet from the Country IE body.
type CountryChannelRange struct {
	FirstChannel int
	NumChannels  int
	MaxPowerDBM  int8
}

func parseCountry(data []byte) (*CountryInfo, error) {
	if len(data) < 3 {
		return nil, fmt.Errorf("country IE too short: %d bytes", len(data))
	}

	c := &CountryInfo{Code: sanitizePrintable(string(data[0:2]))}

	offset := 2
	// A trailing padding byte may be present to make the IE even length.
	for offset+3 <= len(data) {
		c.ChannelRanges = append(c.ChannelRanges, CountryChannelRange{
			FirstChannel: int(data[offset]),
			NumChannels:  int(data[offset+1]),
			MaxPowerDBM:  int8(data[offset+2]),
		})
		offset += 3
	}

	return c, nil
}
