// Command kismetd is the wireless-monitoring server: it captures 802.11
// frames from one or more monitor-mode interfaces, walks them through the
// packet chain, tracks devices, serves the HTTP/WS control API, and opens
// a SQLite kismetdb log; no device snapshots are written to that log.
// Process wiring follows a signal-driven shutdown with a capture
// goroutine per interface and ordered deferred cleanup.
package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kismetwireless/kismet-core/internal/alert"
	"github.com/kismetwireless/kismet-core/internal/auth"
	"github.com/kismetwireless/kismet-core/internal/config"
	"github.com/kismetwireless/kismet-core/internal/dot11"
	"github.com/kismetwireless/kismet-core/internal/gpsshim"
	"github.com/kismetwireless/kismet-core/internal/httpd"
	"github.com/kismetwireless/kismet-core/internal/kconf"
	"github.com/kismetwireless/kismet-core/internal/logtracker"
	"github.com/kismetwireless/kismet-core/internal/lookup"
	"github.com/kismetwireless/kismet-core/internal/packetchain"
	"github.com/kismetwireless/kismet-core/internal/telemetry"
	"github.com/kismetwireless/kismet-core/internal/tracker"
)

const phyDot11 tracker.PHY = 1

// dot11Frame is the Classifier stage's output, carried through the
// frame's component map to the Tracker stage.
type dot11Frame struct {
	pi     *dot11.PackInfo
	result dot11.ClassifyResult
	eapol  *eapolObservation
}

// eapolObservation names the client device an EAPOL key frame should be
// folded into, plus the parsed record itself.
type eapolObservation struct {
	clientMAC net.HardwareAddr
	rec       dot11.EAPOLRecord
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("kismetd starting")

	cfg := config.Load()

	var kc *kconf.Config
	if loaded, err := kconf.Load(cfg.ConfigPath); err != nil {
		slog.Warn("could not load kismet.conf, using flag/env defaults", "path", cfg.ConfigPath, "error", err)
	} else {
		kc = loaded
	}
	_ = kc

	telemetry.InitMetrics()
	shutdownTracer, err := telemetry.InitTracer()
	if err != nil {
		slog.Warn("tracer init failed, continuing without tracing", "error", err)
	} else {
		defer shutdownTracer(context.Background())
	}

	registry := tracker.New()

	ouiTable, err := lookup.OpenOUITable(cfg.OUIPath)
	if err != nil {
		slog.Warn("OUI table unavailable, vendor lookups will report Unknown", "path", cfg.OUIPath, "error", err)
	}

	alertBus := alert.NewBus()
	ruleEngine := alert.NewRuleEngine(alertBus)
	ruleEngine.AddRule(alert.Rule{ID: "apple-device", Type: alert.RuleVendor, Value: "Apple", Enabled: true})
	ruleEngine.AddRule(alert.Rule{ID: "hidden-lab-probe", Type: alert.RuleProbe, Value: "HiddenLab", Enabled: true})

	var gpsProvider gpsshim.Provider = gpsshim.NullProvider{}
	if cfg.Latitude != 0 || cfg.Longitude != 0 {
		gpsProvider = gpsshim.NewStaticProvider(cfg.Latitude, cfg.Longitude, 0)
	}

	authStore, err := auth.New(cfg.SessionDB, nil)
	if err != nil {
		slog.Error("failed to open auth store", "error", err)
		os.Exit(1)
	}
	if skipped, err := authStore.Load(); err != nil {
		slog.Warn("could not load persisted auth store, starting empty", "path", cfg.SessionDB, "error", err)
	} else if skipped > 0 {
		slog.Warn("skipped malformed auth records on load", "count", skipped)
	}
	if err := authStore.Save(); err != nil {
		slog.Warn("could not persist auth store on startup", "error", err)
	}

	router := httpd.New(authStore, logger)

	logTracker := logtracker.New(kc, kconf.PathExpandContext{
		Prefix:      cfg.LogDir,
		StartupHome: cfg.LogDir,
		DataDir:     cfg.LogDir,
		Name:        "kismet",
	})

	sqliteSink, err := logtracker.OpenSQLiteSink(cfg.LogDir + "/kismet.db")
	if err != nil {
		slog.Warn("sqlite log sink unavailable", "error", err)
	} else {
		logTracker.RegisterDriver(sqliteSink)
		if _, err := logTracker.OpenLog("kismetdb", "kismet", "%p/%n.db"); err != nil {
			slog.Warn("failed to open kismetdb log", "error", err)
		}
		defer sqliteSink.Close()
	}

	liveStream := logtracker.NewLiveStream()

	chain := packetchain.New(logger)
	bsstsThreshold := 0
	if kc != nil {
		bsstsThreshold = kc.FetchOptInt("dot11_bssts_threshold", 0)
	}
	classifier := dot11.NewClassifier(bsstsThreshold)
	components := packetchain.NewComponentRegistry()
	dot11InfoID := components.RegisterComponent(packetchain.ComponentDot11Info)

	publishAlert := func(a alert.Alert) {
		alertBus.Publish(a)
		telemetry.AlertsRaised.WithLabelValues(a.Type).Inc()
	}

	// Classifier stage: decode the 802.11 header plus IEs, raise the
	// per-frame alerts the classifier itself is responsible for (SSID,
	// deauth/disassoc, BSS-timestamp, WPS brute-force), and attach the
	// decoded dot11_packinfo for the Tracker stage to fold.
	chain.RegisterHandler(packetchain.Classifier, 0, func(f *packetchain.Frame) int {
		now := f.Timestamp
		if now.IsZero() {
			now = time.Now()
		}

		pkt := gopacket.NewPacket(f.Data, layers.LayerTypeRadioTap, gopacket.NoCopy)
		pi, err := dot11.Decode(pkt)
		if err != nil {
			return 0
		}

		result := classifier.Classify(pi, now)
		for _, a := range result.Alerts {
			publishAlert(alert.Alert{Type: a.Type, Subtype: a.Subtype, Message: a.Message, DeviceMAC: a.DeviceMAC, TargetMAC: a.TargetMAC})
		}

		if pi.IsBeacon && pi.BSSID != nil {
			if a := classifier.ObserveBSSTS(pi.BSSID.String(), pi.TSF, now); a != nil {
				publishAlert(alert.Alert{Type: a.Type, Subtype: a.Subtype, Message: a.Message, DeviceMAC: a.DeviceMAC})
			}
		}
		// WPS message-3 sighting is approximated by any WPS IE observed
		// on a probe response, since the WPS leaf parser does not decode
		// the Message Type attribute needed to pick out M3 specifically.
		if pi.WPS != nil && pi.IsProbeResp && pi.BSSID != nil {
			if a := classifier.ObserveWPSM3(pi.BSSID.String(), now); a != nil {
				publishAlert(alert.Alert{Type: a.Type, Subtype: a.Subtype, Message: a.Message, DeviceMAC: a.DeviceMAC})
			}
		}

		df := &dot11Frame{pi: pi, result: result}
		if eapolKey, err := dot11.ParseEAPOLKey(pkt); err == nil {
			df.eapol = eapolObservationFor(pi, eapolKey, now)
		}
		f.SetComponent(dot11InfoID, df)
		return 0
	})

	// Tracker stage: fold the Classifier stage's output into the live
	// device model's dot11 sub-record (role OR-merge, advertised/probed
	// SSID-by-checksum maps, client-by-MAC sub-records, EAPOL handshake
	// state).
	chain.RegisterHandler(packetchain.Tracker, 0, func(f *packetchain.Frame) int {
		comp, ok := f.Component(dot11InfoID)
		if !ok {
			return 0
		}
		df := comp.(*dot11Frame)
		pi := df.pi
		now := f.Timestamp
		if now.IsZero() {
			now = time.Now()
		}

		var fixLat, fixLon float64
		var hasFix bool
		if fix := gpsProvider.CurrentFix(); fix.Valid {
			fixLat, fixLon, hasFix = fix.Latitude, fix.Longitude, true
		}

		if pi.Source != nil {
			key := tracker.Key{Phy: phyDot11, MAC: pi.Source.String()}
			registry.GetOrCreate(key, func() *tracker.Device {
				return &tracker.Device{Key: key, MAC: pi.Source, PhyRecord: dot11.NewDeviceState()}
			}, now)

			var snapshot tracker.Device
			registry.With(key, func(d *tracker.Device) {
				d.LastSeen = now
				d.PacketCount++
				d.ByteCount += int64(len(f.Data))
				if ouiTable != nil {
					if rec, ok := ouiTable.LookupMAC(pi.Source); ok {
						d.Manufacturer = rec.Vendor
					}
				}
				if hasFix {
					d.GPS.Observe(fixLat, fixLon)
				}

				state, ok := d.PhyRecord.(*dot11.DeviceState)
				if !ok {
					state = dot11.NewDeviceState()
					d.PhyRecord = state
				}
				state.Fold(pi, df.result, now)
				if pi.IsBeacon {
					state.ObserveTSF(pi.TSF)
				}
				if pi.WPS != nil && pi.IsProbeResp {
					state.ObserveWPS()
				}

				snapshot = *d
			})

			var probed []string
			if pi.IsProbeReq && pi.SSID != nil && pi.SSID.Printable != "" {
				probed = []string{pi.SSID.Printable}
			}
			ruleEngine.Evaluate(snapshot, probed)
		}

		// Client-of-BSSID fold: every frame whose BSSID
		// differs from its source maps the source device as a client of
		// the BSSID device.
		if pi.BSSID != nil && pi.Source != nil && pi.BSSID.String() != pi.Source.String() {
			bssidKey := tracker.Key{Phy: phyDot11, MAC: pi.BSSID.String()}
			registry.GetOrCreate(bssidKey, func() *tracker.Device {
				return &tracker.Device{Key: bssidKey, MAC: pi.BSSID, PhyRecord: dot11.NewDeviceState()}
			}, now)
			registry.With(bssidKey, func(bd *tracker.Device) {
				state, ok := bd.PhyRecord.(*dot11.DeviceState)
				if !ok {
					state = dot11.NewDeviceState()
					bd.PhyRecord = state
				}
				state.FoldClient(pi.Source, pi.BSSID, pi, now, fixLat, fixLon, hasFix)
			})
		}

		if df.eapol != nil {
			foldEAPOL(registry, df.eapol, now, publishAlert)
		}

		return 0
	})

	chain.RegisterHandler(packetchain.Logging, 0, func(f *packetchain.Frame) int {
		liveStream.Publish(logtracker.EncodePacket(105, 0, f.Data, nil, nil, nil, nil))
		return 0
	})

	registerRoutes(router, registry, alertBus, liveStream)

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: otelhttp.NewHandler(router, "kismetd")}
	go func() {
		slog.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	if !cfg.MockMode && len(cfg.Interfaces) > 0 {
		for _, iface := range cfg.Interfaces {
			go captureLoop(ctx, iface, chain)
		}
	} else {
		slog.Info("running without a live capture source (mock mode or no interfaces configured)")
	}

	go expireLoop(ctx, registry)

	<-ctx.Done()
	slog.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpSrv.Shutdown(shutdownCtx)

	if err := authStore.Save(); err != nil {
		slog.Warn("failed to persist auth store on shutdown", "error", err)
	}
}

func captureLoop(ctx context.Context, iface string, chain *packetchain.Chain) {
	handle, err := pcap.OpenLive(iface, 65536, true, pcap.BlockForever)
	if err != nil {
		slog.Error("failed to open capture interface", "interface", iface, "error", err)
		return
	}
	defer handle.Close()

	src := gopacket.NewPacketSource(handle, handle.LinkType())
	packets := src.Packets()
	for {
		select {
		case <-ctx.Done():
			return
		case pkt, ok := <-packets:
			if !ok {
				return
			}
			telemetry.PacketsCaptured.WithLabelValues(iface).Inc()
			f := packetchain.NewFrame(pkt.Data(), time.Now())
			chain.ProcessPacket(f)
			telemetry.PacketsProcessed.WithLabelValues("dot11").Inc()
		}
	}
}

func expireLoop(ctx context.Context, registry *tracker.Registry) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := registry.ExpireIdle(10*time.Minute, 4, time.Now())
			if removed > 0 {
				slog.Debug("expired idle devices", "count", removed)
			}
			telemetry.DevicesTracked.WithLabelValues("dot11").Set(float64(registry.Count()))
		}
	}
}

// eapolObservationFor derives the client MAC an EAPOL key frame's
// handshake record should be folded into and the direction label, using
// the same to-DS/from-DS fields dot11.Decode already resolved for pi.
func eapolObservationFor(pi *dot11.PackInfo, key *dot11.EAPOLKeyFrame, now time.Time) *eapolObservation {
	var clientMAC net.HardwareAddr
	direction := "to-ap"
	switch {
	case pi.ToDS && !pi.FromDS:
		clientMAC = pi.Source
		direction = "to-ap"
	case pi.FromDS && !pi.ToDS:
		clientMAC = pi.Dest
		direction = "from-ap"
	default:
		clientMAC = pi.Source
	}
	if clientMAC == nil {
		return nil
	}

	return &eapolObservation{
		clientMAC: clientMAC,
		rec: dot11.EAPOLRecord{
			WallTS:        now,
			Direction:     direction,
			MsgNum:        key.MessageNumber(),
			ReplayCounter: key.ReplayCounter,
			Nonce:         key.Nonce,
		},
	}
}

// foldEAPOL folds an observed EAPOL key frame into its client device's
// handshake state, creating the device if this is the first frame seen
// for it, and raises the nonce alerts reported by DeviceState.ObserveHandshake.
func foldEAPOL(registry *tracker.Registry, obs *eapolObservation, now time.Time, publishAlert func(alert.Alert)) {
	key := tracker.Key{Phy: phyDot11, MAC: obs.clientMAC.String()}
	registry.GetOrCreate(key, func() *tracker.Device {
		return &tracker.Device{Key: key, MAC: obs.clientMAC, PhyRecord: dot11.NewDeviceState()}
	}, now)

	registry.With(key, func(d *tracker.Device) {
		state, ok := d.PhyRecord.(*dot11.DeviceState)
		if !ok {
			state = dot11.NewDeviceState()
			d.PhyRecord = state
		}
		switch state.ObserveHandshake(obs.rec) {
		case dot11.HandshakeAlertNonceDuplicate:
			publishAlert(alert.Alert{Type: "ANOMALY", Subtype: "NONCE_DUPLICATE", DeviceMAC: obs.clientMAC.String(), Message: "duplicate EAPOL nonce across replay counters"})
		case dot11.HandshakeAlertNonceZero:
			publishAlert(alert.Alert{Type: "ANOMALY", Subtype: "NONCE_ZERO", DeviceMAC: obs.clientMAC.String(), Message: "all-zero EAPOL nonce observed"})
		}
	})
}
