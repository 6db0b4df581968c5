package lookup

import "fmt"

// BluetoothOIDTable resolves a Bluetooth company/organizationally-unique
// identifier to its registered name, grounded on bluetooth_ids.h's
// kis_bt_oid/kis_bt_manuf pair of sparse-indexed gzip tables. Both share
// the same two-column "<id-hex>\t<name>" layout, so one loader serves
// either table depending on which file path is opened.
type BluetoothOIDTable struct {
	t *Table[string]
}

func OpenBluetoothOIDTable(path string) (*BluetoothOIDTable, error) {
	t, err := Open(path, Options[string]{
		KeyOf: func(fields []string) (uint64, error) {
			if len(fields) == 0 {
				return 0, fmt.Errorf("empty row")
			}
			return parseHexKey(fields[0])
		},
		Parse: func(fields []string) (string, error) {
			if len(fields) < 2 {
				return "", fmt.Errorf("lookup: malformed bluetooth OID row %q", fields)
			}
			return fields[1], nil
		},
		Unknown: "Unknown",
	})
	if err != nil {
		return nil, err
	}
	return &BluetoothOIDTable{t: t}, nil
}

func (b *BluetoothOIDTable) Lookup(oid uint32) (string, bool) {
	return b.t.Lookup(uint64(oid))
}

func (b *BluetoothOIDTable) IsUnknown(name string) bool {
	return name == "" || name == "Unknown"
}

func (b *BluetoothOIDTable) CacheStats() Stats { return b.t.CacheStats() }
