package notify

import (
	"sort"

	"github.com/gosuda/participa/internal/messenger"
)

// Registry is a simple map-based MessengerRegistry. It is populated at startup
// and read-only afterwards.
type Registry struct {
	messengers map[string]messenger.Messenger
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		messengers: make(map[string]messenger.Messenger),
	}
}

// Register adds a messenger under its own platform name.
func (r *Registry) Register(m messenger.Messenger) {
	r.messengers[m.Platform()] = m
}

// Get returns the messenger for the given platform, or false if not registered.
func (r *Registry) Get(platform string) (messenger.Messenger, bool) {
	m, ok := r.messengers[platform]
	return m, ok
}

// Platforms lists the registered platform names in sorted order.
func (r *Registry) Platforms() []string {
	names := make([]string, 0, len(r.messengers))
	for name := range r.messengers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
