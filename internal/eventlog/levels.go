package eventlog

import (
	"fmt"
	"sync/atomic"

	"github.com/rzbill/devlog/internal/logerr"
)

// MaxFilterLevel is the highest minimum level a module can be assigned.
const MaxFilterLevel uint8 = 15

// ModuleLevel is a module id with its configured minimum level.
type ModuleLevel struct {
	Module uint8
	Level  uint8
}

// Levels holds per-module minimum severities. Reads and writes are lock-free.
type Levels struct {
	enabled bool
	min     [256]atomic.Uint32
}

func newLevels(enabled bool) *Levels { return &Levels{enabled: enabled} }

// Enabled reports whether per-module filtering is available.
func (lv *Levels) Enabled() bool { return lv.enabled }

// Get returns the minimum level for module, 0 when unset or disabled.
func (lv *Levels) Get(module uint8) uint8 {
	if !lv.enabled {
		return 0
	}
	return uint8(lv.min[module].Load())
}

// Set assigns the minimum level for module.
func (lv *Levels) Set(module, level uint8) error {
	if !lv.enabled {
		return fmt.Errorf("module levels: %w", logerr.ErrUnsupported)
	}
	if level > MaxFilterLevel {
		return fmt.Errorf("level %d > %d: %w", level, MaxFilterLevel, logerr.ErrInvalidArgument)
	}
	lv.min[module].Store(uint32(level))
	return nil
}

// List returns modules whose level differs from the default.
func (lv *Levels) List() []ModuleLevel {
	if !lv.enabled {
		return nil
	}
	var out []ModuleLevel
	for i := range lv.min {
		if v := lv.min[i].Load(); v != 0 {
			out = append(out, ModuleLevel{Module: uint8(i), Level: uint8(v)})
		}
	}
	return out
}
