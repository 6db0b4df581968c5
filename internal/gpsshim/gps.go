// Package gpsshim carries a GPS fix shape through the packet chain and
// tracker. GPS source internals (NMEA parsing, serial/network fix
// acquisition) are intentionally absent; this package only defines the
// Fix value and a Provider interface, extended with altitude and a
// fix-quality flag since PPI GPS framing needs both.
package gpsshim

import "time"

// Fix is a single GPS sample, matching the fields the PPI GPS field
// type and tracker GPS aggregate both need.
type Fix struct {
	Latitude  float64
	Longitude float64
	Altitude  float64
	Valid     bool
	Time      time.Time
}

// Provider supplies the current GPS fix, if any.
type Provider interface {
	CurrentFix() Fix
}

// StaticProvider always reports the same fix, for fixed installations
// or tests.
type StaticProvider struct {
	fix Fix
}

func NewStaticProvider(lat, lon, alt float64) *StaticProvider {
	return &StaticProvider{fix: Fix{Latitude: lat, Longitude: lon, Altitude: alt, Valid: true}}
}

func (s *StaticProvider) CurrentFix() Fix {
	fix := s.fix
	fix.Time = time.Now()
	return fix
}

// NullProvider reports no fix, for sources without a GPS attached.
type NullProvider struct{}

func (NullProvider) CurrentFix() Fix { return Fix{Valid: false} }
