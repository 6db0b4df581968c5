package kconf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConf(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadParsesPlainAndAppendKeys(t *testing.T) {
	dir := t.TempDir()
	path := writeConf(t, dir, "kismet.conf", "# comment\nlogprefix=/var/log\nsource=wlan0\nsource+=wlan1\n")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/log", c.FetchOpt("logprefix"))
	assert.Equal(t, []string{"wlan0", "wlan1"}, c.FetchOptVec("source"))
}

func TestLoadFoldsKeysToLower(t *testing.T) {
	dir := t.TempDir()
	path := writeConf(t, dir, "kismet.conf", "LogPrefix=/tmp/x\n")
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x", c.FetchOpt("logprefix"))
}

func TestLoadRejectsEmptyValueAssignment(t *testing.T) {
	dir := t.TempDir()
	path := writeConf(t, dir, "kismet.conf", "logprefix=\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestIncludeRecursivelyParsesSubFile(t *testing.T) {
	dir := t.TempDir()
	writeConf(t, dir, "sub.conf", "subkey=subvalue\n")
	path := writeConf(t, dir, "kismet.conf", "include="+filepath.Join(dir, "sub.conf")+"\n")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "subvalue", c.FetchOpt("subkey"))
}

func TestOptIncludeSkipsMissingFileSilently(t *testing.T) {
	dir := t.TempDir()
	path := writeConf(t, dir, "kismet.conf", "opt_include="+filepath.Join(dir, "nope-*.conf")+"\nkey=value\n")
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "value", c.FetchOpt("key"))
}

func TestOptOverrideReplacesNonAppendKey(t *testing.T) {
	dir := t.TempDir()
	writeConf(t, dir, "override.conf", "mode=override\n")
	path := writeConf(t, dir, "kismet.conf", "mode=base\nopt_override="+filepath.Join(dir, "override.conf")+"\n")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "override", c.FetchOpt("mode"))
}

func TestOptOverrideAppendsWhenEveryEntryUsesPlus(t *testing.T) {
	dir := t.TempDir()
	writeConf(t, dir, "override.conf", "source+=wlan2\n")
	path := writeConf(t, dir, "kismet.conf", "source=wlan0\nopt_override="+filepath.Join(dir, "override.conf")+"\n")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"wlan0", "wlan2"}, c.FetchOptVec("source"))
}

func TestFetchOptBoolAndInt(t *testing.T) {
	dir := t.TempDir()
	path := writeConf(t, dir, "kismet.conf", "enabled=true\nworkers=8\n")
	c, err := Load(path)
	require.NoError(t, err)
	assert.True(t, c.FetchOptBool("enabled", false))
	assert.False(t, c.FetchOptBool("missing", false))
	assert.Equal(t, 8, c.FetchOptInt("workers", 1))
	assert.Equal(t, 1, c.FetchOptInt("missing", 1))
}

func TestExpandLogPathSubstitutesAllDirectives(t *testing.T) {
	now := time.Date(2026, 3, 5, 14, 30, 45, 0, time.UTC)
	got := ExpandLogPath("%p/%n-%d-%t.%l", PathExpandContext{
		Prefix: "/data", Name: "mylog", LogClass: "pcapng", Now: now,
	})
	assert.Equal(t, "/data/mylog-Mar-05-2026-14-30-45.pcapng", got)
}

func TestExpandLogPathLeavesIterationPlaceholder(t *testing.T) {
	got := ExpandLogPath("%n-%i.log", PathExpandContext{Name: "x"})
	assert.True(t, HasIterationDirective(got))
}

func TestIterationSearchSkipsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "log-%I.pcapng")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "log-000001.pcapng"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "log-000002.pcapng")+".gz", []byte("x"), 0o644))

	got, err := IterationSearch(base)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "log-000003.pcapng"), got)
}
