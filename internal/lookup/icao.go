package lookup

import "fmt"

// AircraftTypeNames maps the original's single-character aircraft-type
// code to its human label, grounded on kis_adsb_icao's atype_map.
var AircraftTypeNames = map[byte]string{
	'1': "Glider",
	'2': "Balloon",
	'3': "Blimp/Dirigible",
	'4': "Fixed wing single engine",
	'5': "Fixed wing multiple engine",
	'6': "Helicopter / Rotorcraft",
	'7': "Weight-shifted-control",
	'8': "Powered parachute",
	'9': "Gyroplane",
	'H': "Hybrid lift",
	'O': "Other Aircraft",
	'U': "Unknown Aircraft",
}

// ICAORecord is a resolved ADS-B ICAO registration entry.
type ICAORecord struct {
	ICAO      uint32
	RegID     string
	ModelType string
	Model     string
	Owner     string
	AType     byte
}

func (r ICAORecord) AircraftTypeName() string {
	if name, ok := AircraftTypeNames[r.AType]; ok {
		return name
	}
	return AircraftTypeNames['U']
}

// ICAOTable resolves a 24-bit ADS-B ICAO address to its registration
// record, parsed from a six-column tab-separated format: icao-hex,
// regid, model_type, model, owner, atype.
type ICAOTable struct {
	t *Table[ICAORecord]
}

func OpenICAOTable(path string) (*ICAOTable, error) {
	unknown := ICAORecord{RegID: "Unknown", ModelType: "Unknown", Model: "Unknown", Owner: "Unknown", AType: 'U'}
	t, err := Open(path, Options[ICAORecord]{
		KeyOf: func(fields []string) (uint64, error) {
			if len(fields) == 0 {
				return 0, fmt.Errorf("empty row")
			}
			return parseHexKey(fields[0])
		},
		Parse: func(fields []string) (ICAORecord, error) {
			if len(fields) != 6 {
				return ICAORecord{}, fmt.Errorf("lookup: malformed ICAO row %q", fields)
			}
			key, err := parseHexKey(fields[0])
			if err != nil {
				return ICAORecord{}, err
			}
			if fields[5] == "" {
				return ICAORecord{}, fmt.Errorf("lookup: missing aircraft type in %q", fields)
			}
			return ICAORecord{
				ICAO:      uint32(key),
				RegID:     fields[1],
				ModelType: fields[2],
				Model:     fields[3],
				Owner:     fields[4],
				AType:     fields[5][0],
			}, nil
		},
		Unknown: unknown,
	})
	if err != nil {
		return nil, err
	}
	return &ICAOTable{t: t}, nil
}

func (i *ICAOTable) Lookup(icao uint32) (ICAORecord, bool) {
	return i.t.Lookup(uint64(icao))
}

func (i *ICAOTable) CacheStats() Stats { return i.t.CacheStats() }
