package config

import (
	"fmt"
	"regexp"
)

// reInterface validates network interface names to prevent shell
// injection and match Linux naming conventions.
var reInterface = regexp.MustCompile(`^[a-zA-Z0-9\-_]+$`)

const maxInterfaceNameLength = 16

// ValidateInterfaceName rejects empty, overlong, or specially-charactered
// interface names before they ever reach a pcap.OpenLive call.
func ValidateInterfaceName(name string) error {
	if name == "" {
		return fmt.Errorf("config: interface name cannot be empty")
	}
	if len(name) > maxInterfaceNameLength {
		return fmt.Errorf("config: interface name %q exceeds max length %d", name, maxInterfaceNameLength)
	}
	if !reInterface.MatchString(name) {
		return fmt.Errorf("config: interface name %q contains prohibited characters", name)
	}
	return nil
}
