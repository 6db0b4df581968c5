package logtracker

import (
	"net/http"
	"sync"

	"github.com/kismetwireless/kismet-core/internal/httpd"
)

// LiveStream fans PPI-framed packets out to HTTP stream subscribers,
// built on httpd.StreamBuffer's pull-based backpressure instead of
// push-only broadcast, since a slow HTTP client must not stall packet
// processing.
type LiveStream struct {
	mu      sync.Mutex
	buffers map[*httpd.StreamBuffer]struct{}
}

func NewLiveStream() *LiveStream {
	return &LiveStream{buffers: make(map[*httpd.StreamBuffer]struct{})}
}

// ServeHTTP registers a new StreamBuffer for the life of the request and
// drains it onto the response, removing the buffer again once the
// client disconnects or the handler returns.
func (ls *LiveStream) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	buf := httpd.NewStreamBuffer(64)
	buf.OnCancel(func() { ls.unregister(buf) })
	ls.register(buf)
	defer ls.unregister(buf)

	httpd.ServeChunked(w, req, "application/octet-stream", buf)
}

func (ls *LiveStream) register(buf *httpd.StreamBuffer) {
	ls.mu.Lock()
	ls.buffers[buf] = struct{}{}
	ls.mu.Unlock()
}

func (ls *LiveStream) unregister(buf *httpd.StreamBuffer) {
	ls.mu.Lock()
	delete(ls.buffers, buf)
	ls.mu.Unlock()
}

// Publish pushes a PPI-framed packet to every currently-connected
// subscriber. A subscriber whose buffer is full or canceled is skipped
// rather than blocking the packetchain.
func (ls *LiveStream) Publish(frame []byte) {
	ls.mu.Lock()
	targets := make([]*httpd.StreamBuffer, 0, len(ls.buffers))
	for buf := range ls.buffers {
		targets = append(targets, buf)
	}
	ls.mu.Unlock()

	for _, buf := range targets {
		if !buf.Running() {
			continue
		}
		go func(b *httpd.StreamBuffer) {
			_ = b.Put(frame)
		}(buf)
	}
}
