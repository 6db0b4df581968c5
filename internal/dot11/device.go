package dot11

import (
	"net"
	"sync"
	"time"
)

// AdvertisedSSID is one network's advertised state, keyed by the owning
// device's IE checksum so a beacon and a matching probe response with
// identical IE ordering merge into the same record.
type AdvertisedSSID struct {
	SSID SSIDInfo

	FirstSeen time.Time
	LastSeen  time.Time

	SeenBeacon    bool
	SeenProbeResp bool

	Channel  int
	CryptSet CryptSet

	// BeaconsSec is a sliding 1-second beacon counter: it counts beacons
	// observed within the current 1-second window and resets when a
	// beacon arrives after the window has elapsed, standing in for the
	// recurring per-second reset sweep without a separate timer goroutine.
	BeaconsSec  int
	windowStart time.Time
}

func (s *AdvertisedSSID) observeBeacon(now time.Time) {
	if s.windowStart.IsZero() || now.Sub(s.windowStart) >= time.Second {
		s.windowStart = now
		s.BeaconsSec = 0
	}
	s.BeaconsSec++
}

// ClientRecord is an associated station's state relative to the BSSID
// device that owns this record (DHCP/CDP/EAP-identity fields are leaf-
// dissector output and out of scope here).
type ClientRecord struct {
	BSSID string

	FirstSeen time.Time
	LastSeen  time.Time

	CryptSetTx CryptSet
	CryptSetRx CryptSet

	PacketCount int64
	ByteCount   int64

	HasGPS  bool
	LastLat float64
	LastLon float64
}

// DeviceState is the dot11-specific sub-record attached to a
// tracker.Device's PhyRecord field: accumulated role bits, advertised
// and probed SSID maps keyed by IE checksum, associated clients keyed
// by MAC, and EAPOL handshake state for one 802.11 tracked device.
type DeviceState struct {
	mu sync.Mutex

	Roles RoleMask

	AdvertisedSSIDs map[uint32]*AdvertisedSSID
	ProbedSSIDs     map[uint32]*AdvertisedSSID
	Clients         map[string]*ClientRecord

	Handshake *HandshakeState

	LastTSF    uint64
	WPSM3Count int
}

// NewDeviceState returns an empty dot11 sub-record for one device.
func NewDeviceState() *DeviceState {
	return &DeviceState{
		AdvertisedSSIDs: make(map[uint32]*AdvertisedSSID),
		ProbedSSIDs:     make(map[uint32]*AdvertisedSSID),
		Clients:         make(map[string]*ClientRecord),
		Handshake:       NewHandshakeState(),
	}
}

// Fold applies one classified frame's role bits and, for management
// frames carrying an SSID IE, upserts the advertised- or probed-SSID
// record keyed by pi.IETagCsum.
func (d *DeviceState) Fold(pi *PackInfo, res ClassifyResult, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.Roles |= res.Role

	if pi.SSID == nil {
		return
	}

	switch {
	case pi.IsBeacon, pi.IsProbeResp:
		rec := upsertSSID(d.AdvertisedSSIDs, pi, now)
		if pi.IsBeacon {
			rec.SeenBeacon = true
			rec.observeBeacon(now)
		}
		if pi.IsProbeResp {
			rec.SeenProbeResp = true
		}
	case pi.IsProbeReq:
		upsertSSID(d.ProbedSSIDs, pi, now)
	}
}

func upsertSSID(table map[uint32]*AdvertisedSSID, pi *PackInfo, now time.Time) *AdvertisedSSID {
	rec, ok := table[pi.IETagCsum]
	if !ok {
		rec = &AdvertisedSSID{SSID: *pi.SSID, FirstSeen: now}
		table[pi.IETagCsum] = rec
	}
	rec.LastSeen = now
	rec.Channel = pi.Channel
	rec.CryptSet = pi.CryptSet
	return rec
}

// FoldClient upserts the client sub-record keyed by mac (the frame's
// source, not the BSSID this DeviceState belongs to) — called whenever
// a frame's BSSID differs from its source. lat/lon/hasGPS attach the
// capturing station's current GPS fix, when any.
func (d *DeviceState) FoldClient(mac net.HardwareAddr, bssid net.HardwareAddr, pi *PackInfo, now time.Time, lat, lon float64, hasGPS bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := mac.String()
	c, ok := d.Clients[key]
	if !ok {
		c = &ClientRecord{BSSID: bssid.String(), FirstSeen: now}
		d.Clients[key] = c
	}
	c.LastSeen = now
	c.PacketCount++
	if pi.ToDS {
		c.CryptSetTx = pi.CryptSet
	}
	if pi.FromDS {
		c.CryptSetRx = pi.CryptSet
	}
	if hasGPS {
		c.HasGPS, c.LastLat, c.LastLon = true, lat, lon
	}
}

// ObserveHandshake folds an EAPOL key frame into the device's handshake
// state, returning any nonce alert raised.
func (d *DeviceState) ObserveHandshake(rec EAPOLRecord) HandshakeAlert {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Handshake.Observe(rec)
}

// ObserveTSF records the most recently observed BSS timestamp.
func (d *DeviceState) ObserveTSF(tsf uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.LastTSF = tsf
}

// ObserveWPS increments the per-device lifetime WPS message-3 sighting
// count. The classifier's brute-force alert uses its own per-BSSID
// one-minute window, not this counter.
func (d *DeviceState) ObserveWPS() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.WPSM3Count++
}

// DeviceStateSnapshot is a lock-free, HTTP-serializable view of a
// DeviceState, taken under its mutex.
type DeviceStateSnapshot struct {
	Roles            RoleMask
	AdvertisedSSIDs  map[uint32]*AdvertisedSSID
	ProbedSSIDs      map[uint32]*AdvertisedSSID
	Clients          map[string]*ClientRecord
	PresentHandshake uint32
	LastTSF          uint64
	WPSM3Count       int
}

// Snapshot returns a value copy safe to hand to an HTTP serializer
// without exposing the live, mutex-guarded maps to callers.
func (d *DeviceState) Snapshot() DeviceStateSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	ssids := make(map[uint32]*AdvertisedSSID, len(d.AdvertisedSSIDs))
	for k, v := range d.AdvertisedSSIDs {
		cp := *v
		ssids[k] = &cp
	}
	probed := make(map[uint32]*AdvertisedSSID, len(d.ProbedSSIDs))
	for k, v := range d.ProbedSSIDs {
		cp := *v
		probed[k] = &cp
	}
	clients := make(map[string]*ClientRecord, len(d.Clients))
	for k, v := range d.Clients {
		cp := *v
		clients[k] = &cp
	}

	return DeviceStateSnapshot{
		Roles:            d.Roles,
		AdvertisedSSIDs:  ssids,
		ProbedSSIDs:      probed,
		Clients:          clients,
		PresentHandshake: d.Handshake.PresentHandshake,
		LastTSF:          d.LastTSF,
		WPSM3Count:       d.WPSM3Count,
	}
}
