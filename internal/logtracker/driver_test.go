package logtracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kismetwireless/kismet-core/internal/kconf"
)

type fakeLogfile struct{ closed bool }

func (f *fakeLogfile) Close() error { f.closed = true; return nil }

type fakeDriver struct {
	name      string
	singleton bool
}

func (d fakeDriver) ClassName() string { return d.name }
func (d fakeDriver) Singleton() bool   { return d.singleton }
func (d fakeDriver) Build(path string) (Logfile, error) {
	return &fakeLogfile{}, nil
}

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	ctx := kconf.PathExpandContext{Prefix: t.TempDir(), DataDir: "logs"}
	return New(nil, ctx)
}

func TestOpenLogRejectsUnknownClass(t *testing.T) {
	tr := newTestTracker(t)
	_, err := tr.OpenLog("nosuch", "title", "%p/%S/%n.log")
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestOpenLogRejectsSecondSingletonInstance(t *testing.T) {
	tr := newTestTracker(t)
	tr.RegisterDriver(fakeDriver{name: "pcapng", singleton: true})

	_, err := tr.OpenLog("pcapng", "first", "%p/%S/%n-%i.log")
	require.NoError(t, err)

	_, err = tr.OpenLog("pcapng", "second", "%p/%S/%n-%i.log")
	assert.ErrorIs(t, err, ErrSingletonConflict)
}

func TestOpenLogAllowsMultipleNonSingletonInstances(t *testing.T) {
	tr := newTestTracker(t)
	tr.RegisterDriver(fakeDriver{name: "alertlog", singleton: false})

	_, err := tr.OpenLog("alertlog", "first", "%p/%S/%n-%i.log")
	require.NoError(t, err)
	_, err = tr.OpenLog("alertlog", "second", "%p/%S/%n-%i.log")
	require.NoError(t, err)

	assert.Len(t, tr.Active(), 2)
}

func TestCloseLogClosesAndRemovesEntry(t *testing.T) {
	tr := newTestTracker(t)
	tr.RegisterDriver(fakeDriver{name: "alertlog", singleton: false})

	uuid, err := tr.OpenLog("alertlog", "title", "%p/%S/%n-%i.log")
	require.NoError(t, err)

	err = tr.CloseLog(uuid)
	require.NoError(t, err)
	assert.Empty(t, tr.Active())

	err = tr.CloseLog(uuid)
	assert.Error(t, err, "closing an already-closed uuid must report an error")
}
