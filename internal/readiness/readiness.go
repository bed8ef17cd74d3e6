package readiness

import "sync"

// Signal is a registry of named notifications, the process-side stand-in for
// window.addEventListener. It does not dedupe dispatches.
type Signal struct {
	mu        sync.Mutex
	listeners map[string][]func()
	fired     map[string]int
}

func New() *Signal {
	return &Signal{
		listeners: make(map[string][]func()),
		fired:     make(map[string]int),
	}
}

func (s *Signal) AddEventListener(signalName string, handler func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[signalName] = append(s.listeners[signalName], handler)
}

// Dispatch runs every listener registered for signalName and returns how
// many ran.
func (s *Signal) Dispatch(signalName string) int {
	s.mu.Lock()
	s.fired[signalName]++
	snapshot := append([]func(){}, s.listeners[signalName]...)
	s.mu.Unlock()

	for _, listener := range snapshot {
		listener()
	}
	return len(snapshot)
}

func (s *Signal) Fired(signalName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fired[signalName] > 0
}

func (s *Signal) Listeners(signalName string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners[signalName])
}
