package menu

import (
	"sync"
)

// Store holds the configuration currently published to the top bar.
type Store struct {
	mu        sync.RWMutex
	current   Config
	version   uint64
	nextID    int
	listeners map[int]func(Config, uint64)
}

// NewStore constructs a Store showing Defaults.
func NewStore() *Store {
	return &Store{current: Defaults(), listeners: make(map[int]func(Config, uint64))}
}

// SetMenuProps applies opts on top of the current configuration. Since the current
// configuration was itself derived from Defaults, keys no option ever set keep their
// default value. Calling it without options resets to Defaults. An invalid result is
// rejected and the store is left unchanged.
func (s *Store) SetMenuProps(opts ...Option) error {
	s.mu.Lock()
	var next Config
	if len(opts) == 0 {
		next = Defaults()
	} else {
		next = s.current.Clone()
		for _, opt := range opts {
			if opt != nil {
				opt(&next)
			}
		}
		if err := next.Validate(); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	s.current = next
	s.version++
	version := s.version
	listeners := make([]func(Config, uint64), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(next.Clone(), version)
	}
	return nil
}

// Reset restores Defaults.
func (s *Store) Reset() {
	_ = s.SetMenuProps()
}

// Publish applies a page's configuration and returns the release func the page must
// call when it is done rendering. Release resets the store and is safe to call more
// than once.
func (s *Store) Publish(opts ...Option) (release func(), err error) {
	if err := s.SetMenuProps(opts...); err != nil {
		return func() {}, err
	}
	var once sync.Once
	return func() { once.Do(s.Reset) }, nil
}

// Current returns a deep copy of the configuration.
func (s *Store) Current() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Version increments on every change, including resets.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Subscribe registers fn for every change. The returned func unsubscribes.
func (s *Store) Subscribe(fn func(cfg Config, version uint64)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}
