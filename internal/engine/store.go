package engine

import "sync"

// Store owns the room-keyed game records and the per-room presence flags.
// It is constructed once at process start and injected into the engine;
// nothing in this package keeps module-level mutable state.
type Store struct {
	mu       sync.Mutex
	rooms    map[string]*RoomState
	presence map[string]bool
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		rooms:    make(map[string]*RoomState),
		presence: make(map[string]bool),
	}
}

// Get returns the game record for a room, if one exists.
func (s *Store) Get(roomID string) (*RoomState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.rooms[roomID]
	return st, ok
}

// GetOrCreate returns the game record for a room, creating an Idle one if
// the room has never had a game.
func (s *Store) GetOrCreate(roomID string) *RoomState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.rooms[roomID]
	if !ok {
		st = newRoomState(roomID)
		s.rooms[roomID] = st
	}
	return st
}

// Delete removes a room's game record entirely.
func (s *Store) Delete(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, roomID)
}

// Rooms returns a snapshot of all current game records.
func (s *Store) Rooms() []*RoomState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*RoomState, 0, len(s.rooms))
	for _, st := range s.rooms {
		out = append(out, st)
	}
	return out
}

// Len returns the number of rooms with a game record.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

// MarkPresence flags the bot as announced in a room. It returns true only
// the first time, so the announcement broadcast happens once per room until
// presence is explicitly cleared.
func (s *Store) MarkPresence(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.presence[roomID] {
		return false
	}
	s.presence[roomID] = true
	return true
}

// HasPresence reports whether the bot has announced itself in a room.
func (s *Store) HasPresence(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presence[roomID]
}

// ClearPresence removes the bot's presence flag for a room.
func (s *Store) ClearPresence(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.presence, roomID)
}
