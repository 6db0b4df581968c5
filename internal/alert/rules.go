package alert

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/kismetwireless/kismet-core/internal/tracker"
)

// RuleType selects which device field a Rule matches against.
type RuleType string

const (
	RuleMAC    RuleType = "mac"
	RuleVendor RuleType = "vendor"
	RuleProbe  RuleType = "probe"
)

// Rule is a user-defined condition that raises an Alert when a device
// matches it.
type Rule struct {
	ID      string
	Type    RuleType
	Value   string
	Exact   bool
	Enabled bool
}

// RuleEngine evaluates registered rules against tracked devices and
// publishes matches onto a Bus (OUI/Karma/retry-rate heuristics are
// deliberately absent: the dot11 Classifier already covers those via
// its own alert set).
type RuleEngine struct {
	mu    sync.RWMutex
	rules []Rule
	bus   *Bus
}

func NewRuleEngine(bus *Bus) *RuleEngine {
	return &RuleEngine{bus: bus}
}

func (e *RuleEngine) AddRule(r Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = append(e.rules, r)
}

func (e *RuleEngine) Rules() []Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Evaluate checks every enabled rule against device, publishing one
// Alert per match. probedSSIDs is supplied separately since probe
// history lives in a PHY-specific child record, not the base
// tracker.Device.
func (e *RuleEngine) Evaluate(device tracker.Device, probedSSIDs []string) {
	e.mu.RLock()
	rules := e.rules
	e.mu.RUnlock()

	mac := device.Key.MAC
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}

		var matched, detail string
		switch rule.Type {
		case RuleMAC:
			if strings.EqualFold(mac, rule.Value) {
				matched, detail = "mac", fmt.Sprintf("MAC address match: %s", mac)
			}
		case RuleVendor:
			if matchString(device.Manufacturer, rule.Value, rule.Exact) {
				matched, detail = "vendor", fmt.Sprintf("vendor match: %s", device.Manufacturer)
			}
		case RuleProbe:
			for _, ssid := range probedSSIDs {
				if matchString(ssid, rule.Value, rule.Exact) {
					matched, detail = "probe", fmt.Sprintf("probed SSID match: %s", ssid)
					break
				}
			}
		}

		if matched == "" {
			continue
		}
		e.bus.Publish(Alert{
			Type:      "RULE",
			Subtype:   matched,
			Message:   fmt.Sprintf("rule %s triggered", rule.ID),
			DeviceMAC: mac,
			Details:   map[string]any{"rule_id": rule.ID, "detail": detail, "alert_id": uuid.New().String()},
		})
	}
}

func matchString(value, want string, exact bool) bool {
	if value == "" {
		return false
	}
	if exact {
		return strings.EqualFold(value, want)
	}
	return strings.Contains(strings.ToLower(value), strings.ToLower(want))
}
