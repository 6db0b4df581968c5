package main

import (
	"encoding/json"
	"net/http"

	"github.com/kismetwireless/kismet-core/internal/alert"
	"github.com/kismetwireless/kismet-core/internal/httpd"
	"github.com/kismetwireless/kismet-core/internal/logtracker"
	"github.com/kismetwireless/kismet-core/internal/tracker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// registerRoutes wires the HTTP/WS surface onto router: device, alert,
// and log endpoints.
func registerRoutes(router *httpd.Router, registry *tracker.Registry, alertBus *alert.Bus, stream *logtracker.LiveStream) {
	router.RegisterUnauthRoute("/system/status", []string{"GET"}, func(w http.ResponseWriter, r *http.Request, sess *httpd.Session) {
		writeJSON(w, map[string]any{
			"devices_tracked": registry.Count(),
		})
	})

	router.RegisterUnauthRoute("/metrics", []string{"GET"}, func(w http.ResponseWriter, r *http.Request, sess *httpd.Session) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	router.RegisterRoute("/devices/all", []string{"GET", "POST"}, []httpd.Role{httpd.AnyRole}, func(w http.ResponseWriter, r *http.Request, sess *httpd.Session) {
		serveSummarizedDevices(w, r, registry.GetAllDevices())
	})

	router.RegisterRoute("/pcap/stream", []string{"GET"}, []httpd.Role{httpd.RoleAdmin}, func(w http.ResponseWriter, r *http.Request, sess *httpd.Session) {
		stream.ServeHTTP(w, r)
	})

	router.RegisterWebsocketRoute("/ws/alerts", []httpd.Role{httpd.AnyRole}, func(ep *httpd.Endpoint, sess *httpd.Session) {
		ch, unsubscribe := alertBus.Subscribe(32)
		defer unsubscribe()
		for a := range ch {
			if err := ep.WriteJSON(a); err != nil {
				return
			}
		}
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// serveSummarizedDevices applies an optional fields request body to
// devices before writing them out in whatever format the caller asked
// for via ?format=.
func serveSummarizedDevices(w http.ResponseWriter, r *http.Request, devices []tracker.Device) {
	specs, err := httpd.ParseFieldSpecs(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	format := httpd.FormatFromRequest(r)

	if len(specs) == 0 {
		if err := httpd.WriteSummarized(w, format, devices); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	elements := make([]any, len(devices))
	for i, d := range devices {
		elements[i] = d
	}
	if err := httpd.WriteSummarized(w, format, httpd.Summarize(elements, specs)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
