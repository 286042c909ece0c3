package calsync

import (
	"sync"

	"github.com/cinemacal/cinemacal/internal/calendar"
)

// SyncMap links screenings to the calendar events created for them. Each
// screening has at most one event and each event at most one screening.
type SyncMap struct {
	mu          sync.RWMutex
	byScreening map[string]string
	byEvent     map[string]string
}

func NewSyncMap() *SyncMap {
	return &SyncMap{
		byScreening: make(map[string]string),
		byEvent:     make(map[string]string),
	}
}

// Link records screeningID -> eventID, replacing any link either side had.
func (m *SyncMap) Link(screeningID, eventID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.link(screeningID, eventID)
}

func (m *SyncMap) link(screeningID, eventID string) {
	if old, ok := m.byScreening[screeningID]; ok {
		delete(m.byEvent, old)
	}
	if old, ok := m.byEvent[eventID]; ok {
		delete(m.byScreening, old)
	}
	m.byScreening[screeningID] = eventID
	m.byEvent[eventID] = screeningID
}

// Unlink clears both directions for screeningID.
func (m *SyncMap) Unlink(screeningID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev, ok := m.byScreening[screeningID]; ok {
		delete(m.byEvent, ev)
		delete(m.byScreening, screeningID)
	}
}

func (m *SyncMap) EventFor(screeningID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ev, ok := m.byScreening[screeningID]
	return ev, ok
}

func (m *SyncMap) ScreeningFor(eventID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byEvent[eventID]
	return s, ok
}

// Rebuild replaces the map with the back-references carried by events.
// When several events reference one screening the first wins.
func (m *SyncMap) Rebuild(events []calendar.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.byScreening = make(map[string]string)
	m.byEvent = make(map[string]string)
	for _, ev := range events {
		if ev.ScreeningRef == "" {
			continue
		}
		if _, exists := m.byScreening[ev.ScreeningRef]; exists {
			continue
		}
		m.link(ev.ScreeningRef, ev.ID)
	}
}

func (m *SyncMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byScreening)
}
