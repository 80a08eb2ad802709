package flow

import (
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeginReplacesActiveFlow(t *testing.T) {
	m := NewManager()

	assert.Equal(t, StepNone, m.Current(1))

	m.Begin(1, StepFoodList)
	assert.Equal(t, StepFoodList, m.Current(1))

	// Only one step is active per user at a time.
	m.Begin(1, StepRecipeQuery)
	assert.Equal(t, StepRecipeQuery, m.Current(1))

	state, ok := m.Snapshot(1)
	require.True(t, ok)
	assert.Empty(t, state.Scratch)
}

func TestResetReturnsToIdleAndDropsScratch(t *testing.T) {
	m := NewManager()

	m.Begin(1, StepProfileHeight)
	m.Update(1, func(s *State) { s.Scratch["sex"] = "Мужчина" })

	m.Reset(1)
	assert.Equal(t, StepNone, m.Current(1))

	_, ok := m.Snapshot(1)
	assert.False(t, ok)
}

func TestUpdateAdvancesStepAndScratch(t *testing.T) {
	m := NewManager()

	m.Begin(5, StepProfileSex)
	ran := m.Update(5, func(s *State) {
		s.Scratch["sex"] = "Женщина"
		s.Step = StepProfileHeight
	})
	require.True(t, ran)
	assert.Equal(t, StepProfileHeight, m.Current(5))

	state, ok := m.Snapshot(5)
	require.True(t, ok)
	assert.Equal(t, "Женщина", state.Scratch["sex"])
}

func TestUpdateNoopWhenIdle(t *testing.T) {
	m := NewManager()
	ran := m.Update(5, func(s *State) { s.Scratch["x"] = "y" })
	assert.False(t, ran)
}

func TestUpdateToNoneClearsState(t *testing.T) {
	m := NewManager()
	m.Begin(5, StepAdminPrice)
	m.Update(5, func(s *State) { s.Step = StepNone })

	_, ok := m.Snapshot(5)
	assert.False(t, ok)
}

func TestUsersAreIndependent(t *testing.T) {
	m := NewManager()
	m.Begin(1, StepFoodList)
	m.Begin(2, StepRecipeKcal)

	m.Reset(1)
	assert.Equal(t, StepNone, m.Current(1))
	assert.Equal(t, StepRecipeKcal, m.Current(2))
}

func TestConcurrentUpdatesSameUserDoNotLoseWrites(t *testing.T) {
	m := NewManager()
	m.Begin(7, StepFoodList)

	const workers = 100
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Update(7, func(s *State) {
				n, _ := strconv.Atoi(s.Scratch["count"])
				s.Scratch["count"] = strconv.Itoa(n + 1)
			})
		}()
	}
	wg.Wait()

	state, ok := m.Snapshot(7)
	require.True(t, ok)
	assert.Equal(t, strconv.Itoa(workers), state.Scratch["count"])
}
