package dot11

// WPSInfo is extracted from the WPS vendor IE's TLV attribute stream
// (Microsoft OUI, subtype 4).
type WPSInfo struct {
	Manufacturer  string
	Model         string
	DeviceName    string
	State         string // "Unconfigured" | "Configured"
	Version       string // "1.0" | "2.0"
	Locked        bool
	ConfigMethods []string
}

func parseWPS(data []byte) *WPSInfo {
	info := &WPSInfo{}
	offset, limit := 0, len(data)

	for offset < limit {
		if offset+4 > limit {
			break
		}
		attrType := int(data[offset])<<8 | int(data[offset+1])
		attrLen := int(data[offset+2])<<8 | int(data[offset+3])
		offset += 4
		if offset+attrLen > limit {
			break
		}
		val := data[offset : offset+attrLen]

		switch attrType {
		case 0x1021:
			info.Manufacturer = string(val)
		case 0x1023:
			info.Model = string(val)
		case 0x1011:
			info.DeviceName = string(val)
		case 0x1044:
			if len(val) > 0 {
				switch val[0] {
				case 0x01:
					info.State = "Unconfigured"
				case 0x02:
					info.State = "Configured"
				}
			}
		case 0x104A:
			if len(val) > 0 {
				if val[0] == 0x10 {
					info.Version = "1.0"
				} else if val[0] >= 0x20 {
					info.Version = "2.0"
				}
			}
		case 0x1057:
			if len(val) > 0 && val[0] == 0x01 {
				info.Locked = true
			}
		case 0x1012:
			if len(val) >= 2 {
				pwdID := int(val[0])<<8 | int(val[1])
				switch pwdID {
				case 0x0000:
					info.ConfigMethods = append(info.ConfigMethods, "PIN")
				case 0x0004:
					info.ConfigMethods = append(info.ConfigMethods, "PBC")
				}
			}
		}

		offset += attrLen
	}

	return info
}
