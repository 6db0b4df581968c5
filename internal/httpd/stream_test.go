package httpd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStreamBufferPutGetRoundTrip(t *testing.T) {
	buf := NewStreamBuffer(4)
	go func() {
		buf.Put([]byte("hello"))
		buf.Complete()
	}()

	chunk, err := buf.Get()
	assert.NoError(t, err)
	assert.Equal(t, []byte("hello"), chunk)

	chunk, err = buf.Get()
	assert.NoError(t, err)
	assert.Nil(t, chunk, "Get must return nil,nil once the stream completes")
}

func TestStreamBufferCancelInvokesCallbackOnce(t *testing.T) {
	buf := NewStreamBuffer(1)
	calls := 0
	buf.OnCancel(func() { calls++ })

	buf.Cancel()
	buf.Cancel()
	assert.Equal(t, 1, calls)
	assert.False(t, buf.Running())

	_, err := buf.Get()
	assert.ErrorIs(t, err, ErrStreamCanceled)
}

func TestStreamBufferPutAfterCancelReturnsCanceled(t *testing.T) {
	buf := NewStreamBuffer(0)
	buf.Cancel()

	done := make(chan error, 1)
	go func() { done <- buf.Put([]byte("x")) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrStreamCanceled)
	case <-time.After(time.Second):
		t.Fatal("Put did not return after cancel")
	}
}
