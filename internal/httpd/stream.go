package httpd

import (
	"context"
	"errors"
	"net/http"
	"sync"
)

// ErrStreamCanceled is returned by Wait/Get once a StreamBuffer has been
// canceled, e.g. by the client disconnecting.
var ErrStreamCanceled = errors.New("httpd: stream canceled")

// StreamBuffer is the bounded handoff between a handler's generator
// goroutine (producer) and the connection goroutine serializing chunked
// response bytes (consumer): wait, get, consume, complete, cancel.
type StreamBuffer struct {
	ch        chan []byte
	mu        sync.Mutex
	done      bool
	canceled  bool
	onCancel  func()
	cancelCtx context.Context
	cancel    context.CancelFunc
}

// NewStreamBuffer creates a stream buffer with the given channel
// capacity (number of pending chunks before Put blocks).
func NewStreamBuffer(capacity int) *StreamBuffer {
	ctx, cancel := context.WithCancel(context.Background())
	return &StreamBuffer{ch: make(chan []byte, capacity), cancelCtx: ctx, cancel: cancel}
}

// OnCancel registers a callback invoked exactly once when Cancel runs,
// e.g. to unregister a packetchain handler or remove a stream tracker
// entry.
func (b *StreamBuffer) OnCancel(fn func()) {
	b.mu.Lock()
	b.onCancel = fn
	b.mu.Unlock()
}

// Put enqueues a chunk, blocking if the buffer is full. Returns
// ErrStreamCanceled if the stream was canceled before or during the
// send.
func (b *StreamBuffer) Put(chunk []byte) error {
	select {
	case b.ch <- chunk:
		return nil
	case <-b.cancelCtx.Done():
		return ErrStreamCanceled
	}
}

// Get blocks until a chunk is available, the stream completes (nil,
// nil), or the stream is canceled (nil, ErrStreamCanceled).
func (b *StreamBuffer) Get() ([]byte, error) {
	select {
	case chunk, ok := <-b.ch:
		if !ok {
			return nil, nil
		}
		return chunk, nil
	case <-b.cancelCtx.Done():
		return nil, ErrStreamCanceled
	}
}

// Complete signals end-of-stream: no more chunks will be produced.
func (b *StreamBuffer) Complete() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done || b.canceled {
		return
	}
	b.done = true
	close(b.ch)
}

// Cancel stops the stream, running the registered OnCancel callback
// exactly once. Safe to call multiple times or concurrently with
// Complete.
func (b *StreamBuffer) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.canceled || b.done {
		return
	}
	b.canceled = true
	b.cancel()
	if b.onCancel != nil {
		b.onCancel()
	}
}

// Running reports whether the stream is still active (neither
// completed nor canceled). Generator goroutines must poll this between
// emissions to honor cancellation promptly.
func (b *StreamBuffer) Running() bool {
	select {
	case <-b.cancelCtx.Done():
		return false
	default:
		b.mu.Lock()
		defer b.mu.Unlock()
		return !b.done
	}
}

// ServeChunked drains a StreamBuffer onto w using chunked
// transfer-encoding (via http.Flusher), stopping on client disconnect
// by canceling the buffer.
func ServeChunked(w http.ResponseWriter, req *http.Request, contentType string, buf *StreamBuffer) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Transfer-Encoding", "chunked")
	flusher, _ := w.(http.Flusher)

	done := req.Context().Done()
	for {
		select {
		case <-done:
			buf.Cancel()
			return
		default:
		}
		chunk, err := buf.Get()
		if err != nil || chunk == nil {
			return
		}
		if _, werr := w.Write(chunk); werr != nil {
			buf.Cancel()
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}
