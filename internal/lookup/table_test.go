package lookup

import (
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGzipFixture(t *testing.T, lines []string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.txt.gz")

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	return path
}

func TestOUITableLookupByMAC(t *testing.T) {
	path := writeGzipFixture(t, []string{
		"000000\tXerox Corporation\tXerox",
		"0050f2\tMicrosoft Corp.\tMicrosoft",
		"00e04c\tRealtek Semiconductor\tRealtek",
	})

	tbl, err := OpenOUITable(path)
	require.NoError(t, err)

	mac, err := net.ParseMAC("00:50:f2:aa:bb:cc")
	require.NoError(t, err)
	rec, ok := tbl.LookupMAC(mac)
	assert.True(t, ok)
	assert.Equal(t, "Microsoft Corp.", rec.Vendor)
}

func TestOUITableUnknownMACReturnsFalse(t *testing.T) {
	path := writeGzipFixture(t, []string{
		"000000\tXerox Corporation\tXerox",
	})
	tbl, err := OpenOUITable(path)
	require.NoError(t, err)

	mac, err := net.ParseMAC("ff:ff:ff:aa:bb:cc")
	require.NoError(t, err)
	_, ok := tbl.LookupMAC(mac)
	assert.False(t, ok)
}

func TestICAOTableResolvesAircraftType(t *testing.T) {
	path := writeGzipFixture(t, []string{
		"a00001\tN12345\tFixed\tCessna 172\tJohn Doe\t4",
	})
	tbl, err := OpenICAOTable(path)
	require.NoError(t, err)

	rec, ok := tbl.Lookup(0xa00001)
	assert.True(t, ok)
	assert.Equal(t, "N12345", rec.RegID)
	assert.Equal(t, "Fixed wing single engine", rec.AircraftTypeName())
}

func TestBluetoothOIDTableLookup(t *testing.T) {
	path := writeGzipFixture(t, []string{
		"000001\tNokia Mobile Phones",
		"00000f\tBroadcom Corporation",
	})
	tbl, err := OpenBluetoothOIDTable(path)
	require.NoError(t, err)

	name, ok := tbl.Lookup(0x00000f)
	assert.True(t, ok)
	assert.Equal(t, "Broadcom Corporation", name)
	assert.False(t, tbl.IsUnknown(name))
}

func TestTableRejectsUnsortedInput(t *testing.T) {
	lines := make([]string, 0, indexStride*2+2)
	for i := 0; i < indexStride*2; i++ {
		lines = append(lines, "000001\tA")
	}
	// Force the stride-aligned line after a full block to regress.
	lines[indexStride] = "000000\tB"

	path := writeGzipFixture(t, lines)
	_, err := OpenOUITable(path)
	assert.Error(t, err)
}
