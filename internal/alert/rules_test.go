package alert

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kismetwireless/kismet-core/internal/tracker"
)

func TestRuleEngineVendorRuleTriggersAlert(t *testing.T) {
	bus := NewBus()
	ch, unsubscribe := bus.Subscribe(4)
	defer unsubscribe()

	engine := NewRuleEngine(bus)
	engine.AddRule(Rule{ID: "apple-device", Type: RuleVendor, Value: "Apple", Enabled: true})

	device := tracker.Device{Key: tracker.Key{MAC: "aa:bb:cc:dd:ee:ff"}, Manufacturer: "Apple, Inc."}
	engine.Evaluate(device, nil)

	select {
	case a := <-ch:
		assert.Equal(t, "vendor", a.Subtype)
		assert.Equal(t, "aa:bb:cc:dd:ee:ff", a.DeviceMAC)
	default:
		t.Fatal("expected an alert to be published")
	}
}

func TestRuleEngineDisabledRuleDoesNotTrigger(t *testing.T) {
	bus := NewBus()
	ch, unsubscribe := bus.Subscribe(4)
	defer unsubscribe()

	engine := NewRuleEngine(bus)
	engine.AddRule(Rule{ID: "disabled", Type: RuleMAC, Value: "aa:bb:cc:dd:ee:ff", Enabled: false})

	engine.Evaluate(tracker.Device{Key: tracker.Key{MAC: "aa:bb:cc:dd:ee:ff"}}, nil)

	select {
	case <-ch:
		t.Fatal("disabled rule must not publish an alert")
	default:
	}
}

func TestRuleEngineProbeRuleMatchesSubstring(t *testing.T) {
	bus := NewBus()
	ch, unsubscribe := bus.Subscribe(4)
	defer unsubscribe()

	engine := NewRuleEngine(bus)
	engine.AddRule(Rule{ID: "hidden-lab-probe", Type: RuleProbe, Value: "HiddenLab", Enabled: true})

	engine.Evaluate(tracker.Device{Key: tracker.Key{MAC: "11:22:33:44:55:66"}}, []string{"HiddenLab-Guest"})

	select {
	case a := <-ch:
		assert.Equal(t, "probe", a.Subtype)
	default:
		t.Fatal("expected a probe-rule alert")
	}
}
