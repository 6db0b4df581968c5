package dot11

import (
	"fmt"
	"net"
	"sync"
	"time"
)

// RoleMask is the OR-merged set of roles a device has been observed
// playing.
type RoleMask uint32

const (
	RoleBeaconAP RoleMask = 1 << iota
	RoleClient
	RoleProbeAP
	RoleAdHoc
	RoleInferredWireless
)

// Alert is the classifier's alert shape (Type/Subtype/DeviceMAC/
// TargetMAC/Timestamp/Message/Details), reused for everything the
// classifier itself raises.
type Alert struct {
	Type      string
	Subtype   string
	DeviceMAC string
	TargetMAC string
	Timestamp time.Time
	Message   string
	Details   string
}

const (
	AlertTypeSpoof   = "SPOOF"
	AlertTypeAnomaly = "ANOMALY"
	AlertTypeBrute   = "BRUTEFORCE"
)

const (
	maxSSIDLen           = 32
	wpsBruteForceWindow  = time.Minute
	wpsBruteForceM3Limit = 5
)

// Classifier folds decoded PackInfo frames into role assignments and
// raises the alerts the classifier itself is responsible for:
// long/zero SSID, deauth/disassoc with invalid reason, WPS brute force,
// BSS-timestamp regression. It does not touch the device tracker
// directly — callers fold the returned role mask and alerts into their
// own device records.
type Classifier struct {
	bssts *BSSTSTracker

	mu         sync.Mutex
	wpsM3Count map[string][]time.Time // BSSID -> M3 timestamps within the window
}

// NewClassifier creates a Classifier using bsstsThreshold as the
// cumulative BSS-timestamp incident score (0 selects the default).
func NewClassifier(bsstsThreshold int) *Classifier {
	return &Classifier{
		bssts:      NewBSSTSTracker(bsstsThreshold),
		wpsM3Count: make(map[string][]time.Time),
	}
}

// ClassifyResult bundles the role bits to OR into a device's existing
// mask with any alerts raised while processing this frame.
type ClassifyResult struct {
	Role   RoleMask
	Alerts []Alert
}

// Classify derives role bits and raises per-frame alerts for pi, which
// must already carry a fully-decoded PackInfo (see Decode). now is the
// wall-clock time the frame was received, used by the BSSTS and
// WPS-brute-force windows.
func (c *Classifier) Classify(pi *PackInfo, now time.Time) ClassifyResult {
	var res ClassifyResult

	switch {
	case pi.IsBeacon:
		res.Role |= RoleBeaconAP
	case pi.IsProbeReq:
		res.Role |= RoleClient
	case pi.IsProbeResp:
		res.Role |= RoleProbeAP
	case pi.Type == FrameTypeData && pi.FromDS && !pi.ToDS:
		res.Role |= RoleClient
	case pi.IsNullFunc && pi.BSSID == nil:
		res.Role |= RoleInferredWireless
	}

	if pi.SSID != nil {
		res.Alerts = append(res.Alerts, c.ssidAlerts(pi, now)...)
	}

	if pi.IsDeauth || pi.IsDisassoc {
		if a := c.deauthAlert(pi, now); a != nil {
			res.Alerts = append(res.Alerts, *a)
		}
	}

	return res
}

func (c *Classifier) ssidAlerts(pi *PackInfo, now time.Time) []Alert {
	var alerts []Alert
	mac := macString(pi.Source)

	if pi.SSID.Len == 0 && !pi.SSID.Hidden {
		alerts = append(alerts, Alert{
			Type:      AlertTypeAnomaly,
			Subtype:   "SSID_ZERO_LENGTH",
			DeviceMAC: mac,
			Timestamp: now,
			Message:   "Zero-length SSID observed",
		})
	}
	if pi.SSID.Len > maxSSIDLen {
		alerts = append(alerts, Alert{
			Type:      AlertTypeAnomaly,
			Subtype:   "SSID_TOO_LONG",
			DeviceMAC: mac,
			Timestamp: now,
			Message:   fmt.Sprintf("SSID length %d exceeds maximum %d", pi.SSID.Len, maxSSIDLen),
		})
	}
	return alerts
}

// Valid 802.11 reason codes run from 1 to 68 (with gaps reserved by
// amendments); anything outside that range is flagged as an invalid
// deauth/disassoc reason. Reserved codes inside the range are not flagged.
func isValidReasonCode(code uint16) bool {
	return code >= 1 && code <= 68
}

func (c *Classifier) deauthAlert(pi *PackInfo, now time.Time) *Alert {
	if isValidReasonCode(pi.ReasonCode) {
		return nil
	}
	subtype := "DEAUTH_INVALID_REASON"
	if pi.IsDisassoc {
		subtype = "DISASSOC_INVALID_REASON"
	}
	return &Alert{
		Type:      AlertTypeAnomaly,
		Subtype:   subtype,
		DeviceMAC: macString(pi.Source),
		TargetMAC: macString(pi.Dest),
		Timestamp: now,
		Message:   "Deauthentication/disassociation with invalid reason code",
		Details:   fmt.Sprintf("reason=%d bssid=%s", pi.ReasonCode, macString(pi.BSSID)),
	}
}

// ObserveBSSTS feeds a beacon's TSF value through the BSS-timestamp
// spoof state machine for bssid, returning a spoof alert if the
// cumulative incident score crosses the configured threshold.
func (c *Classifier) ObserveBSSTS(bssid string, tsf uint64, now time.Time) *Alert {
	if !c.bssts.Observe(bssid, tsf, now) {
		return nil
	}
	return &Alert{
		Type:      AlertTypeSpoof,
		Subtype:   "BSSTS",
		DeviceMAC: bssid,
		Timestamp: now,
		Message:   "BSS timestamp regression exceeded incident threshold",
	}
}

// ObserveWPSM3 records a WPS message-3 sighting for bssid and returns a
// brute-force alert if more than wpsBruteForceM3Limit have occurred
// within the last minute.
func (c *Classifier) ObserveWPSM3(bssid string, now time.Time) *Alert {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := now.Add(-wpsBruteForceWindow)
	kept := c.wpsM3Count[bssid][:0]
	for _, t := range c.wpsM3Count[bssid] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)
	c.wpsM3Count[bssid] = kept

	if len(kept) > wpsBruteForceM3Limit {
		return &Alert{
			Type:      AlertTypeBrute,
			Subtype:   "WPS_BRUTEFORCE",
			DeviceMAC: bssid,
			Timestamp: now,
			Message:   fmt.Sprintf("%d WPS M3 messages observed for %s within %s", len(kept), bssid, wpsBruteForceWindow),
		}
	}
	return nil
}

func macString(mac net.HardwareAddr) string {
	if len(mac) == 0 {
		return ""
	}
	return mac.String()
}
