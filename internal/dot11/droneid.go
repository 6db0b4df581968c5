package dot11

// DroneIDInfo marks the presence of a DJI DroneID vendor IE (OUI
// 26:37:0B). The original dot11_ie_221_dji_droneid.cc decodes a large
// vendor-specific payload (serial number, GPS, flight telemetry); that
// decode is leaf-dissector territory and out of scope here. This parser
// only satisfies the classifier's "leaf parser returns present/absent
// plus a raw payload capture" contract.
type DroneIDInfo struct {
	Present bool
	Raw     []byte
}

func parseDroneID(data []byte) *DroneIDInfo {
	raw := make([]byte, len(data))
	copy(raw, data)
	return &DroneIDInfo{Present: true, Raw: raw}
}
