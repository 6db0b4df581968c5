package dot11

import "fmt"

// parseSupportedChannels parses tag 36 (Supported Channels): a sequence
// of (first_channel, number_of_channels) byte pairs, each expanding to
// the inclusive channel range first..first+count-1.
//
// The original source's dot11_ie_36_supported_channels.cc pushes
// "start+count" for every entry in its inner loop instead of "start+i",
// so every emitted channel in a run is identical and wrong. This
// implements the intended enumeration instead; see
// TestSupportedChannelsIntendedVsBuggy for the documented divergence.
func parseSupportedChannels(data []byte) ([]int, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("supported channels IE has odd length: %d", len(data))
	}

	var channels []int
	for offset := 0; offset+2 <= len(data); offset += 2 {
		start := int(data[offset])
		count := int(data[offset+1])
		for i := 0; i < count; i++ {
			channels = append(channels, start+i)
		}
	}
	return channels, nil
}

// buggySupportedChannels reproduces the original source's output exactly,
// kept only so the divergence test can assert against it directly.
func buggySupportedChannels(data []byte) []int {
	var channels []int
	for offset := 0; offset+2 <= len(data); offset += 2 {
		start := int(data[offset])
		count := int(data[offset+1])
		for i := 0; i < count; i++ {
			channels = append(channels, start+count)
		}
	}
	return channels
}
