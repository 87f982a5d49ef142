package eventlog

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rzbill/devlog/internal/entry"
	"github.com/rzbill/devlog/internal/logerr"
)

// AutoID asks Modules.Register to pick the first free user id.
const AutoID uint8 = 0

// DefaultMaxUserModules bounds the user module table when Options leaves it unset.
const DefaultMaxUserModules = 8

// Module is an id/name pair.
type Module struct {
	ID   uint8
	Name string
}

// Modules maps module ids to names. System ids are fixed; user ids are
// allocated at or above entry.ModulePerUser. There is no removal.
type Modules struct {
	mu   *sync.Mutex // shared with the owning Registry
	max  int
	user map[uint8]string
}

func newModules(mu *sync.Mutex, max int) *Modules {
	if max <= 0 {
		max = DefaultMaxUserModules
	}
	return &Modules{mu: mu, max: max, user: make(map[uint8]string, max)}
}

// Register binds name to id, or to the first free user id when id is AutoID.
func (m *Modules) Register(id uint8, name string) (uint8, error) {
	if name == "" {
		return 0, fmt.Errorf("module name required: %w", logerr.ErrInvalidArgument)
	}
	if id != AutoID && id < entry.ModulePerUser {
		return 0, fmt.Errorf("module id %d below user range %d: %w", id, entry.ModulePerUser, logerr.ErrInvalidArgument)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if id != AutoID {
		if _, taken := m.user[id]; taken {
			return 0, fmt.Errorf("module id %d: %w", id, logerr.ErrDuplicate)
		}
	}
	if len(m.user) >= m.max {
		return 0, fmt.Errorf("module table (%d): %w", m.max, logerr.ErrFull)
	}
	if id == AutoID {
		for cand := int(entry.ModulePerUser); cand <= int(entry.ModuleMax); cand++ {
			if _, taken := m.user[uint8(cand)]; !taken {
				id = uint8(cand)
				break
			}
		}
		if id == AutoID {
			return 0, fmt.Errorf("no free module id: %w", logerr.ErrFull)
		}
	}
	m.user[id] = name
	return id, nil
}

// Name resolves a module id.
func (m *Modules) Name(id uint8) (string, error) {
	if name, ok := entry.SystemModules[id]; ok {
		return name, nil
	}
	m.mu.Lock()
	name, ok := m.user[id]
	m.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("module %d: %w", id, logerr.ErrNotFound)
	}
	return name, nil
}

// NameOr returns the module name or its decimal id when unknown.
func (m *Modules) NameOr(id uint8) string {
	if name, err := m.Name(id); err == nil {
		return name
	}
	return fmt.Sprintf("%d", id)
}

// List returns system and user modules ordered by id.
func (m *Modules) List() []Module {
	out := make([]Module, 0, len(entry.SystemModules)+m.max)
	for id, name := range entry.SystemModules {
		out = append(out, Module{ID: id, Name: name})
	}
	m.mu.Lock()
	for id, name := range m.user {
		out = append(out, Module{ID: id, Name: name})
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Lookup finds a module id by name.
func (m *Modules) Lookup(name string) (uint8, error) {
	for _, mod := range m.List() {
		if mod.Name == name {
			return mod.ID, nil
		}
	}
	return 0, fmt.Errorf("module %q: %w", name, logerr.ErrNotFound)
}
