package session

import (
	"sync"
	"time"

	"tavern/pkg/protocol"
)

const (
	maxTranscript = 200
	maxNotices    = 100
)

// Transcript entry kinds.
const (
	EntryAction   = "action"
	EntryDialogue = "dialogue"
	EntryEvent    = "event"
)

// TranscriptEntry is one line of the session's narrative log.
type TranscriptEntry struct {
	Kind    string    `json:"kind"`
	Speaker string    `json:"speaker,omitempty"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

// Notice is a non-fatal, user-visible status or error message.
type Notice struct {
	Level   string    `json:"level"` // info|warn|error
	Code    string    `json:"code,omitempty"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// GenerationJob tracks one asset-generation job reported by the Engine.
type GenerationJob struct {
	JobID     string  `json:"job_id"`
	AssetType string  `json:"asset_type,omitempty"`
	Progress  float64 `json:"progress"`
	Stage     string  `json:"stage,omitempty"`
	URL       string  `json:"url,omitempty"`
	Error     string  `json:"error,omitempty"`
	Done      bool    `json:"done"`
}

// State is the observable session state. The dispatcher is its only
// inbound writer; accessors return copies so readers never see a
// half-applied update.
type State struct {
	mu sync.RWMutex

	sessionID     string
	userID        string
	role          protocol.Role
	worldID       string
	engineVersion string

	roster      map[string]protocol.Participant
	rosterOrder []string

	scene      *protocol.SceneUpdate
	transcript []TranscriptEntry
	notices    []Notice

	llmActive    bool
	lastPong     time.Time
	assetBackend string
	generation   map[string]*GenerationJob

	now func() time.Time
}

// NewState returns an empty session state.
func NewState() *State {
	return &State{
		roster:     make(map[string]protocol.Participant),
		generation: make(map[string]*GenerationJob),
		now:        time.Now,
	}
}

// ApplyJoined seeds identity and roster from the Engine's join
// confirmation.
func (s *State) ApplyJoined(m *protocol.SessionJoined) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessionID = m.SessionID
	s.userID = m.UserID
	s.role = m.Role
	s.worldID = m.WorldID
	s.engineVersion = m.EngineVersion

	s.roster = make(map[string]protocol.Participant)
	s.rosterOrder = nil
	for _, p := range m.Participants {
		s.roster[p.UserID] = p
		s.rosterOrder = append(s.rosterOrder, p.UserID)
	}
}

// UpsertParticipant adds or updates a roster entry.
func (s *State) UpsertParticipant(p protocol.Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.roster[p.UserID]; !exists {
		s.rosterOrder = append(s.rosterOrder, p.UserID)
	}
	s.roster[p.UserID] = p
}

// RemoveParticipant drops a roster entry. Unknown ids are ignored.
func (s *State) RemoveParticipant(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.roster[userID]; !exists {
		return
	}
	delete(s.roster, userID)
	for i, id := range s.rosterOrder {
		if id == userID {
			s.rosterOrder = append(s.rosterOrder[:i], s.rosterOrder[i+1:]...)
			break
		}
	}
}

// Participants returns the roster in arrival order.
func (s *State) Participants() []protocol.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]protocol.Participant, 0, len(s.rosterOrder))
	for _, id := range s.rosterOrder {
		result = append(result, s.roster[id])
	}
	return result
}

// SessionID returns the joined session id, empty before join.
func (s *State) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// Role returns the role confirmed by the Engine.
func (s *State) Role() protocol.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// EngineVersion returns the version reported on join, if any.
func (s *State) EngineVersion() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engineVersion
}

// SetScene replaces the current scene.
func (s *State) SetScene(scene *protocol.SceneUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scene = scene
}

// Scene returns the current scene, if any.
func (s *State) Scene() (*protocol.SceneUpdate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scene, s.scene != nil
}

// Append adds a transcript entry, trimming the oldest past the cap.
func (s *State) Append(kind, speaker, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transcript = append(s.transcript, TranscriptEntry{
		Kind:    kind,
		Speaker: speaker,
		Text:    text,
		At:      s.now(),
	})
	if len(s.transcript) > maxTranscript {
		s.transcript = s.transcript[len(s.transcript)-maxTranscript:]
	}
}

// Transcript returns a copy of the narrative log, oldest first.
func (s *State) Transcript() []TranscriptEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]TranscriptEntry, len(s.transcript))
	copy(result, s.transcript)
	return result
}

// AddNotice records a user-visible status or error message.
func (s *State) AddNotice(level, code, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notices = append(s.notices, Notice{
		Level:   level,
		Code:    code,
		Message: message,
		At:      s.now(),
	})
	if len(s.notices) > maxNotices {
		s.notices = s.notices[len(s.notices)-maxNotices:]
	}
}

// Notices returns a copy of recent notices, oldest first.
func (s *State) Notices() []Notice {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Notice, len(s.notices))
	copy(result, s.notices)
	return result
}

// SetLLMActive toggles the "Engine is thinking" indicator.
func (s *State) SetLLMActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.llmActive = active
}

// LLMActive reports whether the Engine is generating a response.
func (s *State) LLMActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.llmActive
}

// MarkPong records heartbeat liveness.
func (s *State) MarkPong() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPong = s.now()
}

// LastPong returns the time of the most recent Pong, zero before any.
func (s *State) LastPong() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastPong
}

// SetAssetBackend records the asset-generation backend availability state.
func (s *State) SetAssetBackend(state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assetBackend = state
}

// AssetBackend returns the last reported backend state.
func (s *State) AssetBackend() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.assetBackend
}

// UpdateGeneration applies fn to the job with the given id, creating it on
// first sight.
func (s *State) UpdateGeneration(jobID string, fn func(*GenerationJob)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.generation[jobID]
	if !ok {
		job = &GenerationJob{JobID: jobID}
		s.generation[jobID] = job
	}
	fn(job)
}

// Generation returns a copy of the job with the given id.
func (s *State) Generation(jobID string) (GenerationJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.generation[jobID]
	if !ok {
		return GenerationJob{}, false
	}
	return *job, true
}

// Clear resets everything except identity config. Used on deliberate
// disconnect.
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessionID = ""
	s.engineVersion = ""
	s.roster = make(map[string]protocol.Participant)
	s.rosterOrder = nil
	s.scene = nil
	s.transcript = nil
	s.notices = nil
	s.llmActive = false
	s.generation = make(map[string]*GenerationJob)
}
