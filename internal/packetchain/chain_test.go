package packetchain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRegisterHandlerOrdersByPriorityThenRegistration(t *testing.T) {
	c := New(nil)
	var order []string

	c.RegisterHandler(Classifier, 10, func(f *Frame) int {
		order = append(order, "b")
		return 0
	})
	c.RegisterHandler(Classifier, 5, func(f *Frame) int {
		order = append(order, "a")
		return 0
	})
	c.RegisterHandler(Classifier, 10, func(f *Frame) int {
		order = append(order, "c")
		return 0
	})

	c.ProcessPacket(NewFrame([]byte("hello"), time.Now()))
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestHandlerReturningNegativeHaltsChain(t *testing.T) {
	c := New(nil)
	var ranTracker bool

	c.RegisterHandler(Classifier, 0, func(f *Frame) int { return -1 })
	c.RegisterHandler(Tracker, 0, func(f *Frame) int {
		ranTracker = true
		return 0
	})

	c.ProcessPacket(NewFrame([]byte("x"), time.Now()))
	assert.False(t, ranTracker)
}

func TestPanickingHandlerIsNonFatal(t *testing.T) {
	c := New(nil)
	var ranNext bool

	c.RegisterHandler(Classifier, 0, func(f *Frame) int { panic("boom") })
	c.RegisterHandler(Classifier, 1, func(f *Frame) int {
		ranNext = true
		return 0
	})

	assert.NotPanics(t, func() {
		c.ProcessPacket(NewFrame([]byte("x"), time.Now()))
	})
	assert.True(t, ranNext)
}

func TestRemoveHandlerIsIdempotent(t *testing.T) {
	c := New(nil)
	fn := func(f *Frame) int { return 0 }
	c.RemoveHandler(Classifier, fn)
	c.RegisterHandler(Classifier, 0, fn)
	c.RemoveHandler(Classifier, fn)
	c.RemoveHandler(Classifier, fn)
	assert.Empty(t, c.handlers[Classifier])
}

func TestDuplicateFlagSetOnRepeatedChecksum(t *testing.T) {
	c := New(nil)
	f1 := NewFrame([]byte("same payload"), time.Now())
	f2 := NewFrame([]byte("same payload"), time.Now())

	c.ProcessPacket(f1)
	c.ProcessPacket(f2)

	assert.False(t, f1.Duplicate)
	assert.True(t, f2.Duplicate)
}

func TestComponentRegistryInterningIsStable(t *testing.T) {
	r := NewComponentRegistry()
	id1 := r.RegisterComponent(ComponentDot11Info)
	id2 := r.RegisterComponent(ComponentDot11Info)
	id3 := r.RegisterComponent(ComponentGPS)

	assert.Equal(t, id1, id2)
	assert.NotEqual(t, id1, id3)
}

func TestComponentsAreMonotonicAcrossStages(t *testing.T) {
	c := New(nil)
	reg := NewComponentRegistry()
	dot11ID := reg.RegisterComponent(ComponentDot11Info)
	commonID := reg.RegisterComponent(ComponentCommonInfo)

	var afterClassifier, afterTracker []int

	c.RegisterHandler(Classifier, 0, func(f *Frame) int {
		f.SetComponent(dot11ID, "dot11-data")
		afterClassifier = f.ComponentIDs()
		return 0
	})
	c.RegisterHandler(Tracker, 0, func(f *Frame) int {
		f.SetComponent(commonID, "common-data")
		afterTracker = f.ComponentIDs()
		return 0
	})

	c.ProcessPacket(NewFrame([]byte("frame"), time.Now()))

	assert.Subset(t, afterTracker, afterClassifier)
	assert.Len(t, afterTracker, len(afterClassifier)+1)
}
