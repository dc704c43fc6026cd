// Package catalog holds the Nigerian administrative reference data used to
// validate upload rows: states (36 plus the FCT) and the LGAs within them.
//
// A Catalog is built once and never written afterwards, so it is safe to
// share between goroutines without locking.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed nigeria.yaml
var nigeriaYAML []byte

// State is one top-level administrative area.
type State struct {
	Key     string   `yaml:"key" json:"key"`
	Label   string   `yaml:"label" json:"label"`
	Aliases []string `yaml:"aliases,omitempty" json:"aliases,omitempty"`
	LGAs    []string `yaml:"lgas,omitempty" json:"-"`
}

type document struct {
	States []State `yaml:"states"`
}

// Catalog is an immutable lookup over states and LGAs.
type Catalog struct {
	states []State
	// byName maps every lower-cased key, label and alias to an index in states.
	byName map[string]int
	// lgas maps a state key to its lower-cased LGA names. States without
	// LGA data have no entry.
	lgas map[string]map[string]struct{}
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the catalog compiled into the binary. It is parsed on first use.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(nigeriaYAML)
		if err != nil {
			panic(fmt.Sprintf("catalog: embedded data is invalid: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// LoadFile reads a replacement catalog from disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a Catalog from a YAML document.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(doc.States) == 0 {
		return nil, errors.New("parse catalog: no states defined")
	}

	c := &Catalog{
		states: doc.States,
		byName: make(map[string]int, len(doc.States)*2),
		lgas:   make(map[string]map[string]struct{}),
	}

	for i, s := range doc.States {
		key := fold(s.Key)
		if key == "" {
			return nil, fmt.Errorf("parse catalog: state %d has no key", i+1)
		}
		names := append([]string{s.Key, s.Label}, s.Aliases...)
		for _, name := range names {
			n := fold(name)
			if n == "" {
				continue
			}
			if prev, ok := c.byName[n]; ok && prev != i {
				return nil, fmt.Errorf("parse catalog: name %q used by %s and %s", name, doc.States[prev].Key, s.Key)
			}
			c.byName[n] = i
		}

		if len(s.LGAs) > 0 {
			set := make(map[string]struct{}, len(s.LGAs))
			for _, lga := range s.LGAs {
				set[fold(lga)] = struct{}{}
			}
			c.lgas[key] = set
		}
	}

	return c, nil
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (c *Catalog) lookup(input string) (State, bool) {
	i, ok := c.byName[fold(input)]
	if !ok {
		return State{}, false
	}
	return c.states[i], true
}

// IsValidState reports whether input names a state by key, label or alias,
// ignoring case and surrounding whitespace.
func (c *Catalog) IsValidState(input string) bool {
	_, ok := c.lookup(input)
	return ok
}

// NormalizeStateKey returns the canonical key for a state key, label or alias.
// Unknown input comes back trimmed and lower-cased.
func (c *Catalog) NormalizeStateKey(input string) string {
	if s, ok := c.lookup(input); ok {
		return s.Key
	}
	return fold(input)
}

// HasLGAEntriesFor reports whether LGA data exists for the given state.
func (c *Catalog) HasLGAEntriesFor(state string) bool {
	_, ok := c.lgas[fold(c.NormalizeStateKey(state))]
	return ok
}

// IsValidLGA reports whether lga belongs to state.
//
// States with no LGA data accept any value: missing reference data must not
// block otherwise valid rows. States with data require a case-insensitive
// exact match.
func (c *Catalog) IsValidLGA(state, lga string) bool {
	if !c.HasLGAEntriesFor(state) {
		return true
	}
	_, ok := c.lgas[fold(c.NormalizeStateKey(state))][fold(lga)]
	return ok
}

// States returns every state in catalog order.
func (c *Catalog) States() []State {
	out := make([]State, len(c.states))
	copy(out, c.states)
	return out
}

// LGAs returns the LGA names for a state. The second result is false when
// the state is unknown; a known state without LGA data yields an empty list.
func (c *Catalog) LGAs(state string) ([]string, bool) {
	s, ok := c.lookup(state)
	if !ok {
		return nil, false
	}
	out := make([]string, len(s.LGAs))
	copy(out, s.LGAs)
	return out, true
}
