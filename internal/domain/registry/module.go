package registry

import (
	"errors"
	"regexp"
	"time"
)

var (
	// ErrNotFound is returned for unknown module ids
	ErrNotFound = errors.New("module not found")
	// ErrInvalidModule is returned when a module fails validation
	ErrInvalidModule = errors.New("invalid module")
	// ErrFull is returned when saving a new module into a full library
	ErrFull = errors.New("module library is full")
)

// idPattern restricts ids to names that are safe as file names and URL
// segments
var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// Module is a named component source
type Module struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Width       float64   `json:"width,omitempty"`
	Height      float64   `json:"height,omitempty"`
	Source      string    `json:"source"`
	Hash        string    `json:"hash"`
	Origin      string    `json:"origin,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Metadata is a module without its source
type Metadata struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Width       float64   `json:"width,omitempty"`
	Height      float64   `json:"height,omitempty"`
	Bytes       int       `json:"bytes"`
	Hash        string    `json:"hash"`
	Origin      string    `json:"origin,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ToMetadata drops the source
func (m *Module) ToMetadata() Metadata {
	return Metadata{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Tags:        m.Tags,
		Width:       m.Width,
		Height:      m.Height,
		Bytes:       len(m.Source),
		Hash:        m.Hash,
		Origin:      m.Origin,
		UpdatedAt:   m.UpdatedAt,
	}
}

// HasTag reports whether the module carries tag
func (m *Module) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Stats summarizes the library
type Stats struct {
	Modules     int            `json:"modules"`
	Bytes       int            `json:"bytes"`
	Tags        map[string]int `json:"tags"`
	LastUpdated *time.Time     `json:"last_updated,omitempty"`
}

// ValidID reports whether id can name a module
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}
