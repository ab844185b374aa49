package profile

import (
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/inodb/vibe-str/internal/locus"
)

var (
	// ErrNotFound is returned when no stored profile has the requested name.
	ErrNotFound = errors.New("profile not found")

	// ErrFrozen is returned when modifying a frozen store.
	ErrFrozen = errors.New("profile store is frozen")
)

// NotFoundError reports a failed profile lookup.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("profile %q not found", e.Name)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// MixDefinition names the contributors of a mixture group.
type MixDefinition struct {
	Group        string
	Count        int
	Contributors []string
}

// Name returns the store name of the mixture, "<group>-<count>".
func (d MixDefinition) Name() string {
	return d.Group + "-" + strconv.Itoa(d.Count)
}

// Store maps sample names to profiles. It is built once per run; after Freeze
// it is read-only and safe for concurrent lookups.
type Store struct {
	catalog  *locus.Catalog
	profiles []*Profile
	byName   map[string]*Profile
	frozen   bool
	logger   *zap.Logger
}

// NewStore creates an empty store.
func NewStore(catalog *locus.Catalog) *Store {
	return &Store{
		catalog: catalog,
		byName:  make(map[string]*Profile),
		logger:  zap.NewNop(),
	}
}

// SetLogger sets the logger for warning messages.
func (s *Store) SetLogger(l *zap.Logger) {
	s.logger = l
}

// Add stores a profile. A profile whose name is already present replaces the
// earlier one for lookups; the collision is logged as a warning.
func (s *Store) Add(p *Profile) error {
	if s.frozen {
		return ErrFrozen
	}
	if _, dup := s.byName[p.Name]; dup {
		s.logger.Warn("duplicate sample name in profile store, keeping the last",
			zap.String("sample", p.Name))
	}
	s.profiles = append(s.profiles, p)
	s.byName[p.Name] = p
	return nil
}

// Get returns the profile with exactly the given name.
func (s *Store) Get(name string) (*Profile, error) {
	p, ok := s.byName[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return p, nil
}

// Profiles returns all stored profiles in insertion order, including
// shadowed duplicates.
func (s *Store) Profiles() []*Profile {
	return append([]*Profile(nil), s.profiles...)
}

// Len returns the number of distinct names.
func (s *Store) Len() int {
	return len(s.byName)
}

// AddMixes synthesizes one mixture profile per definition by folding the
// contributors together in listed order. The stored contributor profiles are
// not modified. A missing contributor aborts with a NotFoundError.
func (s *Store) AddMixes(defs []MixDefinition) error {
	if s.frozen {
		return ErrFrozen
	}
	for _, d := range defs {
		if d.Count < 1 || len(d.Contributors) < d.Count {
			return fmt.Errorf("mixture %s: %d contributors listed for count %d",
				d.Group, len(d.Contributors), d.Count)
		}

		var mix *Profile
		for _, name := range d.Contributors[:d.Count] {
			p, err := s.Get(name)
			if err != nil {
				return fmt.Errorf("mixture %s: %w", d.Name(), err)
			}
			if mix == nil {
				mix = p.Clone(d.Name())
				continue
			}
			mix.CombineWith(p)
		}

		if err := s.Add(mix); err != nil {
			return err
		}
		s.logger.Debug("added mixture profile",
			zap.String("name", mix.Name),
			zap.Strings("contributors", d.Contributors[:d.Count]))
	}
	return nil
}

// Freeze makes the store read-only.
func (s *Store) Freeze() {
	s.frozen = true
}

// Frozen reports whether Freeze has been called.
func (s *Store) Frozen() bool {
	return s.frozen
}
