package broadcast

import (
	"strings"
	"sync"
)

// Event is a single recorded broadcast line.
type Event struct {
	RoomID   string
	SocketID string
	Sender   string
	Text     string
	Image    string
}

// Recorder captures broadcasts for inspection in tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// ToRoom records a room-wide line.
func (r *Recorder) ToRoom(roomID, sender, text, image string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{RoomID: roomID, Sender: sender, Text: text, Image: image})
}

// ToSocket records a single-recipient line.
func (r *Recorder) ToSocket(socketID, sender, text, image string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{SocketID: socketID, Sender: sender, Text: text, Image: image})
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Contains reports whether any recorded line contains the substring.
func (r *Recorder) Contains(substr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range r.events {
		if strings.Contains(ev.Text, substr) {
			return true
		}
	}
	return false
}

// CountContaining returns how many recorded lines contain the substring.
func (r *Recorder) CountContaining(substr string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if strings.Contains(ev.Text, substr) {
			n++
		}
	}
	return n
}

// Reset discards all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
