package tracker

import (
	"sync"
	"sync/atomic"
	"time"
)

const numShards = 16

// shard holds a partition of the device map behind its own RWMutex.
type shard struct {
	mu      sync.RWMutex
	devices map[Key]*Device
}

// Registry is the single in-memory device tracker. Every accessor that
// would otherwise hand out a *Device across goroutine boundaries instead
// takes a closure that runs under the owning shard's lock, per the
// invariant that mutable references never escape.
type Registry struct {
	shards  [numShards]*shard
	nextID  atomic.Uint64
	created atomic.Int64
}

func New() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i] = &shard{devices: make(map[Key]*Device)}
	}
	return r
}

func (r *Registry) getShard(k Key) *shard {
	h := uint32(k.Phy)
	for i := 0; i < len(k.MAC); i++ {
		h = h*31 + uint32(k.MAC[i])
	}
	return r.shards[h%numShards]
}

// GetOrCreate returns the device for key, creating it via seed if absent.
// seed is only consulted on creation. Returns whether a new device was
// created.
func (r *Registry) GetOrCreate(k Key, seed func() *Device, now time.Time) (created bool, snapshot Device) {
	sh := r.getShard(k)

	sh.mu.Lock()
	d, ok := sh.devices[k]
	if !ok {
		d = seed()
		d.Key = k
		d.InternalID = r.nextID.Add(1)
		d.FirstSeen = now
		d.LastSeen = now
		sh.devices[k] = d
		created = true
		r.created.Add(1)
	}
	snapshot = *d
	sh.mu.Unlock()

	return created, snapshot
}

// With runs fn under the owning shard's write lock, allowing in-place mutation
// without ever exposing the pointer outside the shard's critical
// section. Returns false if the device does not exist.
func (r *Registry) With(k Key, fn func(d *Device)) bool {
	sh := r.getShard(k)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	d, ok := sh.devices[k]
	if !ok {
		return false
	}
	fn(d)
	return true
}

// Fetch returns a value copy of the device, safe to read without holding
// any lock. The PhyRecord field, if present, is still a shared pointer —
// callers must not mutate it outside a With closure.
func (r *Registry) Fetch(k Key) (Device, bool) {
	sh := r.getShard(k)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	d, ok := sh.devices[k]
	if !ok {
		return Device{}, false
	}
	return *d, true
}

// DevicesByPhy returns value-copy snapshots of every device on the given
// PHY, taken one shard at a time.
func (r *Registry) DevicesByPhy(phy PHY) []Device {
	var out []Device
	for _, sh := range r.shards {
		sh.mu.RLock()
		for k, d := range sh.devices {
			if k.Phy == phy {
				out = append(out, *d)
			}
		}
		sh.mu.RUnlock()
	}
	return out
}

// GetAllDevices returns value-copy snapshots of every tracked device.
func (r *Registry) GetAllDevices() []Device {
	var out []Device
	for _, sh := range r.shards {
		sh.mu.RLock()
		for _, d := range sh.devices {
			out = append(out, *d)
		}
		sh.mu.RUnlock()
	}
	return out
}

// Count returns the number of currently tracked devices across all
// shards.
func (r *Registry) Count() int {
	n := 0
	for _, sh := range r.shards {
		sh.mu.RLock()
		n += len(sh.devices)
		sh.mu.RUnlock()
	}
	return n
}

// ExpireIdle removes devices whose LastSeen is older than maxIdle,
// unless they have accumulated at least minIdlePackets, so a device
// with heavy traffic history is not silently dropped the instant it
// goes quiet. Returns the number of devices removed.
func (r *Registry) ExpireIdle(maxIdle time.Duration, minIdlePackets int64, now time.Time) int {
	removed := 0
	cutoff := now.Add(-maxIdle)
	for _, sh := range r.shards {
		sh.mu.Lock()
		for k, d := range sh.devices {
			if d.LastSeen.Before(cutoff) && d.PacketCount < minIdlePackets {
				delete(sh.devices, k)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// Clear removes every tracked device. Used by tests and by a full
// re-scan on source reset.
func (r *Registry) Clear() {
	for _, sh := range r.shards {
		sh.mu.Lock()
		sh.devices = make(map[Key]*Device)
		sh.mu.Unlock()
	}
}
