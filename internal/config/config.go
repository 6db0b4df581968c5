// Package config resolves kismetd's startup configuration: command-line
// flags layered over environment variables, covering capture
// interfaces, HTTP bind address, kismet.conf path, static GPS fallback,
// and log directory.
package config

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds kismetd's resolved startup configuration.
type Config struct {
	Interfaces   []string
	HTTPAddr     string
	ConfigPath   string // path to a kconf-format kismet.conf, empty to skip
	LogDir       string
	Latitude     float64
	Longitude    float64
	MockMode     bool
	SessionDB    string // auth.Store persistence path
	OUIPath      string
	ICAOPath     string
	BluetoothPath string
	Debug        bool
}

// Load parses command-line flags layered over environment variables
// (flags win). Call after flag.Parse() side effects are acceptable,
// i.e. once per process.
func Load() *Config {
	cfg := &Config{}

	ifaceStr := getEnv("KISMET_INTERFACE", "wlan0")
	cfg.HTTPAddr = getEnv("KISMET_HTTP_ADDR", ":2501")
	cfg.ConfigPath = getEnv("KISMET_CONF", defaultConfigPath())
	cfg.LogDir = getEnv("KISMET_LOGDIR", defaultLogDir())
	cfg.Latitude = getEnvFloat("KISMET_LAT", 0)
	cfg.Longitude = getEnvFloat("KISMET_LNG", 0)
	cfg.MockMode = getEnvBool("KISMET_MOCK", false)
	cfg.SessionDB = getEnv("KISMET_SESSION_DB", defaultSessionDBPath())
	cfg.OUIPath = getEnv("KISMET_OUI_DB", "data/oui/ieee_oui.txt.gz")
	cfg.ICAOPath = getEnv("KISMET_ICAO_DB", "data/adsb/icao.txt.gz")
	cfg.BluetoothPath = getEnv("KISMET_BT_DB", "data/bluetooth/oid.txt.gz")

	flag.StringVar(&ifaceStr, "c", ifaceStr, "Capture source interface(s) (comma separated)")
	flag.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP/WS server bind address")
	flag.StringVar(&cfg.ConfigPath, "config", cfg.ConfigPath, "Path to kismet.conf")
	flag.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "Directory for log output")
	flag.Float64Var(&cfg.Latitude, "lat", cfg.Latitude, "Static GPS latitude fallback")
	flag.Float64Var(&cfg.Longitude, "lng", cfg.Longitude, "Static GPS longitude fallback")
	flag.BoolVar(&cfg.MockMode, "mock", cfg.MockMode, "Run against a synthetic packet source instead of a live capture")
	flag.StringVar(&cfg.SessionDB, "session-db", cfg.SessionDB, "Path to the auth session token store")
	flag.BoolVar(&cfg.Debug, "debug", false, "Enable verbose debug logging")

	flag.Parse()

	cfg.Interfaces = parseInterfaces(ifaceStr)
	return cfg
}

func parseInterfaces(s string) []string {
	var ifaces []string
	for _, p := range strings.Split(s, ",") {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}
		if err := ValidateInterfaceName(trimmed); err != nil {
			log.Printf("Warning: skipping invalid interface %q: %v", trimmed, err)
			continue
		}
		ifaces = append(ifaces, trimmed)
	}
	return ifaces
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "kismet.conf"
	}
	return filepath.Join(home, ".kismet", "kismet.conf")
}

func defaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	dir := filepath.Join(home, ".kismet", "logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("Warning: could not create log directory %s: %v", dir, err)
	}
	return dir
}

func defaultSessionDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "session.db"
	}
	dir := filepath.Join(home, ".kismet")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("Warning: could not create %s: %v", dir, err)
	}
	return filepath.Join(dir, "session.db")
}
