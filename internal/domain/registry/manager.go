package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/utils"
)

// DefaultMaxModules bounds the library when Options leave it unset
const DefaultMaxModules = 1000

// Options configures a Manager
type Options struct {
	// Dir persists saved modules as JSON; empty keeps them in memory only
	Dir        string
	MaxModules int
	Logger     *zap.Logger
}

// Manager holds the module library. Reads are lock-free; writes to the
// persistence directory are serialized.
type Manager struct {
	modules sync.Map // id -> *Module
	count   int64    // Atomic
	max     int64
	dir     string
	hasher  *utils.Hasher
	logger  *zap.Logger

	writeMu sync.Mutex
	now     func() time.Time
}

// NewManager creates a library, creating Dir when set
func NewManager(opts Options) (*Manager, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MaxModules <= 0 {
		opts.MaxModules = DefaultMaxModules
	}
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create module dir: %w", err)
		}
	}
	return &Manager{
		max:    int64(opts.MaxModules),
		dir:    opts.Dir,
		hasher: utils.DefaultHasher(),
		logger: opts.Logger.Named("registry"),
		now:    time.Now,
	}, nil
}

// Save validates and stores a module, persisting it when the library has a
// directory. Saving an existing id replaces it and keeps its creation time.
func (m *Manager) Save(ctx context.Context, mod *Module) error {
	stored, err := m.prepare(mod, true)
	if err != nil {
		return err
	}
	if !m.Exists(stored.ID) && atomic.LoadInt64(&m.count) >= m.max {
		return fmt.Errorf("%w: %d modules", ErrFull, m.max)
	}
	if m.dir != "" {
		if err := m.persist(ctx, stored); err != nil {
			return err
		}
	}
	if err := m.store(stored); err != nil {
		if m.dir != "" {
			_ = os.Remove(m.modulePath(stored.ID))
		}
		return err
	}
	*mod = *stored
	return nil
}

// Register stores a module without persisting it. Seeded modules use this so
// their source files stay the only copy on disk.
func (m *Manager) Register(mod *Module) error {
	stored, err := m.prepare(mod, true)
	if err != nil {
		return err
	}
	return m.store(stored)
}

// restore stores a previously persisted module with its timestamps intact
func (m *Manager) restore(mod *Module) error {
	stored, err := m.prepare(mod, false)
	if err != nil {
		return err
	}
	return m.store(stored)
}

func (m *Manager) prepare(mod *Module, touch bool) (*Module, error) {
	if mod == nil {
		return nil, fmt.Errorf("%w: nil module", ErrInvalidModule)
	}
	if !ValidID(mod.ID) {
		return nil, fmt.Errorf("%w: id %q must match %s", ErrInvalidModule, mod.ID, idPattern)
	}
	if strings.TrimSpace(mod.Source) == "" {
		return nil, fmt.Errorf("%w: %s has no source", ErrInvalidModule, mod.ID)
	}
	if err := utils.ValidateDimension("width", mod.Width, 0); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModule, err)
	}
	if err := utils.ValidateDimension("height", mod.Height, 0); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModule, err)
	}

	stored := *mod
	if stored.Name == "" {
		stored.Name = stored.ID
	}
	stored.Tags = append([]string(nil), mod.Tags...)
	stored.Hash = m.hasher.HashString(stored.Source)

	now := m.now()
	if touch || stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = now
	}
	if prev, ok := m.modules.Load(stored.ID); ok && touch {
		stored.CreatedAt = prev.(*Module).CreatedAt
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = stored.UpdatedAt
	}
	return &stored, nil
}

func (m *Manager) store(mod *Module) error {
	if _, existed := m.modules.Load(mod.ID); existed {
		m.modules.Store(mod.ID, mod)
		return nil
	}
	if atomic.AddInt64(&m.count, 1) > m.max {
		atomic.AddInt64(&m.count, -1)
		return fmt.Errorf("%w: %d modules", ErrFull, m.max)
	}
	if _, raced := m.modules.LoadOrStore(mod.ID, mod); raced {
		atomic.AddInt64(&m.count, -1)
		m.modules.Store(mod.ID, mod)
	}
	return nil
}

// persist writes mod to {dir}/{id}.json via a temporary file
func (m *Manager) persist(ctx context.Context, mod *Module) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := sonic.ConfigStd.MarshalIndent(mod, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal module: %w", err)
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	path := m.modulePath(mod.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write module: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write module: %w", err)
	}
	return nil
}

// Load returns the module stored under id
func (m *Manager) Load(_ context.Context, id string) (*Module, error) {
	if v, ok := m.modules.Load(id); ok {
		return v.(*Module), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Exists reports whether id is in the library
func (m *Manager) Exists(id string) bool {
	_, ok := m.modules.Load(id)
	return ok
}

// List returns metadata sorted by id, filtered by tag when tag is not empty
func (m *Manager) List(tag string) []Metadata {
	var out []Metadata
	m.modules.Range(func(_, value interface{}) bool {
		mod := value.(*Module)
		if tag == "" || mod.HasTag(tag) {
			out = append(out, mod.ToMetadata())
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Delete removes a module and its persisted copy
func (m *Manager) Delete(ctx context.Context, id string) error {
	if _, ok := m.modules.Load(id); !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if m.dir != "" {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.writeMu.Lock()
		err := os.Remove(m.modulePath(id))
		m.writeMu.Unlock()
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete module: %w", err)
		}
	}
	if _, existed := m.modules.LoadAndDelete(id); existed {
		atomic.AddInt64(&m.count, -1)
	}
	return nil
}

// Len returns the number of modules
func (m *Manager) Len() int {
	return int(atomic.LoadInt64(&m.count))
}

// Stats returns library statistics
func (m *Manager) Stats() Stats {
	stats := Stats{Tags: make(map[string]int)}
	m.modules.Range(func(_, value interface{}) bool {
		mod := value.(*Module)
		stats.Modules++
		stats.Bytes += len(mod.Source)
		for _, t := range mod.Tags {
			stats.Tags[t]++
		}
		if stats.LastUpdated == nil || mod.UpdatedAt.After(*stats.LastUpdated) {
			updated := mod.UpdatedAt
			stats.LastUpdated = &updated
		}
		return true
	})
	return stats
}

// Dir returns the persistence directory, empty when in memory only
func (m *Manager) Dir() string {
	return m.dir
}

func (m *Manager) modulePath(id string) string {
	return filepath.Join(m.dir, id+".json")
}
