// Package logtracker enumerates log drivers, opens/closes log files
// with %-template path resolution, and streams live packets to HTTP
// subscribers as a sequence of PPI records (PPI header, TLV fields and
// frame bytes) without pcap-NG block framing.
package logtracker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	guuid "github.com/google/uuid"

	"github.com/kismetwireless/kismet-core/internal/kconf"
)

var (
	ErrUnknownDriver     = errors.New("logtracker: unknown log driver class")
	ErrSingletonConflict = errors.New("logtracker: singleton driver already has an open instance")
)

// Logfile is an open log instance; Close flushes and releases any
// underlying handle.
type Logfile interface {
	Close() error
}

// Driver is a log class's factory: a class name, a singleton flag, and
// a build method that produces a Logfile.
type Driver interface {
	ClassName() string
	Singleton() bool
	Build(path string) (Logfile, error)
}

type activeEntry struct {
	uuid   string
	class  string
	title  string
	path   string
	opened time.Time
	file   Logfile
}

// Tracker is the process-wide log driver registry and active-log
// vector, mutex-guarded.
type Tracker struct {
	mu      sync.Mutex
	drivers map[string]Driver
	active  []*activeEntry
	nextID  int
	cfg     *kconf.Config
	ctx     kconf.PathExpandContext
}

func New(cfg *kconf.Config, ctx kconf.PathExpandContext) *Tracker {
	return &Tracker{drivers: make(map[string]Driver), cfg: cfg, ctx: ctx}
}

// RegisterDriver adds a log class to the registry, keyed by its
// ClassName.
func (t *Tracker) RegisterDriver(d Driver) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.drivers[d.ClassName()] = d
}

// Drivers returns the registered class names.
func (t *Tracker) Drivers() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.drivers))
	for name := range t.drivers {
		out = append(out, name)
	}
	return out
}

// ActiveLog describes a currently-open log for status/enumeration
// endpoints.
type ActiveLog struct {
	UUID   string
	Class  string
	Title  string
	Path   string
	Opened time.Time
}

func (t *Tracker) Active() []ActiveLog {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ActiveLog, len(t.active))
	for i, e := range t.active {
		out[i] = ActiveLog{UUID: e.uuid, Class: e.class, Title: e.title, Path: e.path, Opened: e.opened}
	}
	return out
}

// OpenLog resolves the driver's configured path template, expands it,
// resolves any %i/%I iteration, and opens a new log instance.
func (t *Tracker) OpenLog(class, title, pathTemplate string) (uuid string, err error) {
	t.mu.Lock()
	driver, ok := t.drivers[class]
	if !ok {
		t.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrUnknownDriver, class)
	}
	if driver.Singleton() {
		for _, e := range t.active {
			if e.class == class {
				t.mu.Unlock()
				return "", ErrSingletonConflict
			}
		}
	}
	t.mu.Unlock()

	ctx := t.ctx
	ctx.Name = title
	ctx.LogClass = class
	expanded := kconf.ExpandLogPath(pathTemplate, ctx)
	resolved, err := kconf.IterationSearch(expanded)
	if err != nil {
		return "", fmt.Errorf("logtracker: resolve path for %s: %w", class, err)
	}
	if err := kconf.EnsureDir(resolved); err != nil {
		return "", fmt.Errorf("logtracker: ensure log dir: %w", err)
	}

	file, err := driver.Build(resolved)
	if err != nil {
		return "", fmt.Errorf("logtracker: open %s: %w", class, err)
	}

	entry := &activeEntry{
		uuid:   guuid.New().String(),
		class:  class,
		title:  title,
		path:   resolved,
		opened: time.Now(),
		file:   file,
	}

	t.mu.Lock()
	t.active = append(t.active, entry)
	t.mu.Unlock()

	return entry.uuid, nil
}

// CloseLog stops and removes the log identified by uuid.
func (t *Tracker) CloseLog(uuid string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, e := range t.active {
		if e.uuid == uuid {
			t.active = append(t.active[:i], t.active[i+1:]...)
			return e.file.Close()
		}
	}
	return fmt.Errorf("logtracker: no active log with uuid %s", uuid)
}
