package dispenser

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/kitty3000/core/model"
)

func TestState_ClearPendingOnlyMatchingSeq(t *testing.T) {
	s := NewState()
	seq := s.SetPending(model.CommandDispense)
	newer := s.SetPending(model.CommandAdjust)

	assert.False(t, s.ClearPending(seq))
	cmd, _ := s.Pending()
	assert.Equal(t, model.CommandAdjust, cmd)

	assert.True(t, s.ClearPending(newer))
	cmd, _ = s.Pending()
	assert.Equal(t, model.CommandNone, cmd)
}

func TestState_WakeIsSingleSlot(t *testing.T) {
	s := NewState()
	s.SetPending(model.CommandDispense)
	s.SetPending(model.CommandAdjust)
	<-s.Wake()
	select {
	case <-s.Wake():
		t.Fatal("expected a single pending wake-up")
	default:
	}
}

func TestState_TreatsClamp(t *testing.T) {
	s := NewState()
	assert.Equal(t, 0, s.SetTreats(-3))
	assert.Equal(t, 0, s.ConsumeTreat())
	s.SetTreats(1)
	assert.Equal(t, 0, s.ConsumeTreat())
}

func TestState_CounterShrinkingFrequency(t *testing.T) {
	s := NewState()
	for i := 0; i < 4; i++ {
		s.AdvanceCounter(10)
	}
	count, wrapped := s.AdvanceCounter(3)
	assert.True(t, wrapped)
	assert.Equal(t, 0, count)
}

func TestState_ConcurrentAccess(t *testing.T) {
	s := NewState()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.SetPending(model.CommandDispense)
				s.SetTreats(i + j)
				s.ConsumeTreat()
				_, seq := s.Pending()
				s.ClearPending(seq)
			}
		}(i)
	}
	wg.Wait()
	assert.GreaterOrEqual(t, s.Treats(), 0)
}
