package lookup

import (
	"fmt"
	"net"
	"strings"
)

// VendorRecord is a resolved manufacturer entry, keyed purely by the
// parsed OUI integer rather than a separate database row.
type VendorRecord struct {
	Vendor      string
	VendorShort string
}

// OUITable resolves the first three octets of a MAC address to a
// manufacturer name, parsed from the gzip table described at
// OpenOUITable with a sparse-index lookup strategy. Longer MA-M and MA-S
// prefixes are not matched.
type OUITable struct {
	t *Table[VendorRecord]
}

// OpenOUITable loads a manuf.cc-style gzip table at path: each line is
// "<oui-hex>\t<vendor>[\t<vendor-short>]".
func OpenOUITable(path string) (*OUITable, error) {
	t, err := Open(path, Options[VendorRecord]{
		KeyOf: func(fields []string) (uint64, error) {
			return ouiKeyOf(fields)
		},
		Parse: func(fields []string) (VendorRecord, error) {
			if len(fields) < 2 {
				return VendorRecord{}, fmt.Errorf("lookup: malformed OUI row %q", fields)
			}
			rec := VendorRecord{Vendor: fields[1]}
			if len(fields) >= 3 {
				rec.VendorShort = fields[2]
			} else {
				rec.VendorShort = fields[1]
			}
			return rec, nil
		},
		Unknown: VendorRecord{Vendor: "Unknown", VendorShort: "Unknown"},
	})
	if err != nil {
		return nil, err
	}
	return &OUITable{t: t}, nil
}

func ouiKeyOf(fields []string) (uint64, error) {
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty row")
	}
	raw := strings.ReplaceAll(fields[0], ":", "")
	raw = strings.ReplaceAll(raw, "-", "")
	return parseHexKey(raw)
}

// macOUIKey folds the first three octets of a hardware address into the
// same uint64 key space used by the table's index.
func macOUIKey(mac net.HardwareAddr) (uint64, error) {
	if len(mac) < 3 {
		return 0, fmt.Errorf("lookup: mac %s too short for OUI lookup", mac)
	}
	return uint64(mac[0])<<16 | uint64(mac[1])<<8 | uint64(mac[2]), nil
}

// LookupMAC resolves the manufacturer for a hardware address.
func (o *OUITable) LookupMAC(mac net.HardwareAddr) (VendorRecord, bool) {
	key, err := macOUIKey(mac)
	if err != nil {
		return VendorRecord{Vendor: "Unknown", VendorShort: "Unknown"}, false
	}
	return o.t.Lookup(key)
}

// CacheStats exposes the underlying table's LRU counters.
func (o *OUITable) CacheStats() Stats { return o.t.CacheStats() }
