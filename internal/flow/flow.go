// internal/flow/flow.go
package flow

import "sync"

// Step names the multi-turn dialogue a user is currently inside. The empty
// step means idle.
type Step string

const (
	StepNone Step = ""

	StepRecipeQuery Step = "recipe_query"
	StepRecipeKcal  Step = "recipe_kcal"
	StepFoodList    Step = "food_list"
	StepFoodPhoto   Step = "food_photo"

	StepProfileSex      Step = "profile_sex"
	StepProfileHeight   Step = "profile_height"
	StepProfileWeight   Step = "profile_weight"
	StepProfileAge      Step = "profile_age"
	StepProfileActivity Step = "profile_activity"
	StepProfileGoal     Step = "profile_goal"

	StepAdminGrant     Step = "admin_grant"
	StepAdminRevoke    Step = "admin_revoke"
	StepAdminPrice     Step = "admin_price"
	StepAdminBroadcast Step = "admin_broadcast"
	StepAdminGreeting  Step = "admin_greeting"
)

// State is the per-user conversation state: the active step plus scratch
// data accumulated one message at a time. Process-memory only; lost on
// restart, which is acceptable because flows are short and resumable.
type State struct {
	Step    Step
	Scratch map[string]string
}

const shardCount = 16

type shard struct {
	mu     sync.Mutex
	states map[int64]*State
}

// Manager holds one State per user behind a sharded mutex map, so a
// read-modify-write on one user's step cannot be corrupted by a concurrent
// message from the same user. At most one step is active per user.
type Manager struct {
	shards [shardCount]shard
}

func NewManager() *Manager {
	m := &Manager{}
	for i := range m.shards {
		m.shards[i].states = make(map[int64]*State)
	}
	return m
}

func (m *Manager) shard(userID int64) *shard {
	return &m.shards[uint64(userID)%shardCount]
}

// Current returns the user's active step, or StepNone when idle.
func (m *Manager) Current(userID int64) Step {
	s := m.shard(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.states[userID]; ok {
		return state.Step
	}
	return StepNone
}

// Begin replaces whatever flow was active with a fresh state at the given
// step.
func (m *Manager) Begin(userID int64, step Step) {
	s := m.shard(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[userID] = &State{Step: step, Scratch: make(map[string]string)}
}

// Update runs fn against the user's state under the shard lock. It does
// nothing when the user is idle, and returns whether fn ran.
func (m *Manager) Update(userID int64, fn func(*State)) bool {
	s := m.shard(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[userID]
	if !ok {
		return false
	}
	fn(state)
	if state.Step == StepNone {
		delete(s.states, userID)
	}
	return true
}

// Snapshot returns a copy of the user's state for reading outside the lock.
func (m *Manager) Snapshot(userID int64) (State, bool) {
	s := m.shard(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[userID]
	if !ok {
		return State{}, false
	}
	copied := State{Step: state.Step, Scratch: make(map[string]string, len(state.Scratch))}
	for k, v := range state.Scratch {
		copied.Scratch[k] = v
	}
	return copied, true
}

// Reset returns the user to idle, dropping any scratch data.
func (m *Manager) Reset(userID int64) {
	s := m.shard(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
}
