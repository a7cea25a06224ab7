package handsfree

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestState(t *testing.T) {
	s := NewState()
	var os []Snapshot
	s.OnChange(func(o Snapshot) { os = append(os, o) })

	s.SetListening(true)
	s.SetLastCommand("go to calendar")
	s.SetLastError("network")
	o := s.Snapshot()
	assert.True(t, o.IsListening)
	assert.Equal(t, "go to calendar", *o.LastCommand)
	assert.Equal(t, "network", *o.LastError)
	assert.Len(t, os, 3)

	// Snapshots are copies
	*o.LastCommand = "changed"
	assert.Equal(t, "go to calendar", *s.Snapshot().LastCommand)

	s.ClearLastError()
	s.SetGestureStatus(RunningStatus)
	s.SetGestureSupported(false)
	s.SetVoiceSupported(false)
	o = s.Snapshot()
	assert.Nil(t, o.LastError)
	assert.Equal(t, RunningStatus, o.GestureStatus)
	assert.False(t, o.GestureSupported)
	assert.False(t, o.VoiceSupported)
	assert.Equal(t, o, os[len(os)-1])
}

func TestLoop(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Start(ctx)
	defer l.Stop()

	var (
		m  sync.Mutex
		vs []int
	)
	for i := 0; i < 10; i++ {
		i := i
		l.Do(func() {
			m.Lock()
			defer m.Unlock()
			vs = append(vs, i)
		})
	}
	assert.Eventually(t, func() bool {
		m.Lock()
		defer m.Unlock()
		return len(vs) == 10
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, vs)

	var called bool
	Immediate.Do(func() { called = true })
	assert.True(t, called)
}
