package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/bytedance/sonic"
	"github.com/charlievieth/fastwalk"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/transform"
)

// DefaultSeedPattern selects module sources under the seed directory
const DefaultSeedPattern = "**/*.{jsx,tsx,js,ts}"

// manifestExts are tried in order next to each source file
var manifestExts = []string{".yaml", ".yml", ".toml"}

// manifest describes a seeded module. Every field is optional.
type manifest struct {
	ID          string   `yaml:"id" toml:"id"`
	Name        string   `yaml:"name" toml:"name"`
	Description string   `yaml:"description" toml:"description"`
	Tags        []string `yaml:"tags" toml:"tags"`
	Width       float64  `yaml:"width" toml:"width"`
	Height      float64  `yaml:"height" toml:"height"`
}

// SeedResult counts what a seeding pass did
type SeedResult struct {
	Loaded   int `json:"loaded"`
	Restored int `json:"restored"`
	Failed   int `json:"failed"`
}

// Seeder loads module sources from disk into a Manager
type Seeder struct {
	manager  *Manager
	dir      string
	pattern  string
	maxBytes int
	logger   *zap.Logger
}

// NewSeeder creates a seeder reading dir
func NewSeeder(manager *Manager, dir string, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{
		manager: manager,
		dir:     dir,
		pattern: DefaultSeedPattern,
		logger:  logger.Named("seeder"),
	}
}

// WithPattern replaces the source glob
func (s *Seeder) WithPattern(pattern string) *Seeder {
	s.pattern = pattern
	return s
}

// WithMaxBytes rejects sources larger than n bytes
func (s *Seeder) WithMaxBytes(n int) *Seeder {
	s.maxBytes = n
	return s
}

// Seed registers every source under the directory, then restores modules
// previously saved there as JSON. Saved modules replace seeded ones with the
// same id. Individual failures are logged and counted.
func (s *Seeder) Seed(ctx context.Context) (SeedResult, error) {
	var res SeedResult
	if !doublestar.ValidatePattern(s.pattern) {
		return res, fmt.Errorf("invalid seed pattern %q", s.pattern)
	}
	if _, err := os.Stat(s.dir); os.IsNotExist(err) {
		s.logger.Warn("module directory not found", zap.String("dir", s.dir))
		return res, nil
	}

	sources, saved, err := s.scan(ctx)
	if err != nil {
		return res, err
	}

	for _, rel := range sources {
		if err := s.loadSource(rel); err != nil {
			s.logger.Warn("failed to seed module", zap.String("file", rel), zap.Error(err))
			res.Failed++
			continue
		}
		res.Loaded++
	}
	for _, name := range saved {
		if err := s.restore(name); err != nil {
			s.logger.Warn("failed to restore module", zap.String("file", name), zap.Error(err))
			res.Failed++
			continue
		}
		res.Restored++
	}

	s.logger.Info("seeding complete",
		zap.String("dir", s.dir),
		zap.Int("loaded", res.Loaded),
		zap.Int("restored", res.Restored),
		zap.Int("failed", res.Failed))
	return res, nil
}

// scan returns source paths matching the pattern and top-level JSON files,
// both relative to the directory and sorted
func (s *Seeder) scan(ctx context.Context) ([]string, []string, error) {
	var (
		mu      sync.Mutex
		sources []string
		saved   []string
	)
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, s.dir, func(p string, d os.DirEntry, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != s.dir && (strings.HasPrefix(d.Name(), ".") || d.Name() == "node_modules") {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(s.dir, p)
		if err != nil {
			return nil
		}
		slash := filepath.ToSlash(rel)
		switch {
		case !strings.Contains(slash, "/") && strings.HasSuffix(slash, ".json"):
			mu.Lock()
			saved = append(saved, rel)
			mu.Unlock()
		default:
			if ok, _ := doublestar.Match(s.pattern, slash); ok {
				mu.Lock()
				sources = append(sources, rel)
				mu.Unlock()
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walk %s: %w", s.dir, err)
	}
	sort.Strings(sources)
	sort.Strings(saved)
	return sources, saved, nil
}

func (s *Seeder) loadSource(rel string) error {
	path := filepath.Join(s.dir, rel)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	source, err := transform.Normalize(data, s.maxBytes)
	if err != nil {
		return err
	}

	mod := &Module{
		ID:     ModuleID(rel),
		Source: source,
		Origin: filepath.ToSlash(rel),
	}
	mf, err := readManifest(strings.TrimSuffix(path, filepath.Ext(path)))
	if err != nil {
		return err
	}
	if mf != nil {
		if mf.ID != "" {
			mod.ID = mf.ID
		}
		mod.Name = mf.Name
		mod.Description = mf.Description
		mod.Tags = mf.Tags
		mod.Width = mf.Width
		mod.Height = mf.Height
	}
	return s.manager.Register(mod)
}

func (s *Seeder) restore(name string) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return err
	}
	var mod Module
	if err := sonic.Unmarshal(data, &mod); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", name, err)
	}
	if want := strings.TrimSuffix(name, ".json"); mod.ID != want {
		return fmt.Errorf("%w: %s holds id %q", ErrInvalidModule, name, mod.ID)
	}
	return s.manager.restore(&mod)
}

// readManifest decodes the first sidecar found next to base. A missing
// sidecar is not an error.
func readManifest(base string) (*manifest, error) {
	for _, ext := range manifestExts {
		data, err := os.ReadFile(base + ext)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}

		var mf manifest
		if ext == ".toml" {
			err = toml.Unmarshal(data, &mf)
		} else {
			err = yaml.Unmarshal(data, &mf)
		}
		if err != nil {
			return nil, fmt.Errorf("invalid manifest %s: %w", base+ext, err)
		}
		return &mf, nil
	}
	return nil, nil
}

// ModuleID derives an id from a source path relative to the seed directory:
// lower-cased, extension dropped, separators and other characters replaced
// by dashes.
func ModuleID(rel string) string {
	rel = strings.TrimSuffix(filepath.ToSlash(rel), filepath.Ext(rel))
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(rel) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
			dash = false
		case !dash && sb.Len() > 0:
			sb.WriteByte('-')
			dash = true
		}
	}
	id := strings.TrimRight(sb.String(), "-")
	if id == "" || id[0] == '_' {
		id = "module" + id
	}
	if len(id) > 64 {
		id = strings.TrimRight(id[:64], "-")
	}
	return id
}
