package weapon

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownWeapon is returned when a weapon id has no registered Def.
var ErrUnknownWeapon = errors.New("weapon: unknown weapon")

// Registry holds weapon definitions indexed by ID.
type Registry struct {
	defs map[string]*Def
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Def)}
}

// NewRegistryFrom builds a Registry from defs.
//
// Postcondition: returns an error on the first duplicate or invalid Def.
func NewRegistryFrom(defs []*Def) (*Registry, error) {
	r := NewRegistry()
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds d to the registry.
//
// Precondition: d must not be nil.
// Postcondition: Def(d.ID) returns d; returns error if d.ID already registered.
func (r *Registry) Register(d *Def) error {
	if _, exists := r.defs[d.ID]; exists {
		return fmt.Errorf("weapon: Registry.Register: weapon ID %q already registered", d.ID)
	}
	r.defs[d.ID] = d
	return nil
}

// Def returns the definition for id.
func (r *Registry) Def(id string) (*Def, error) {
	d, ok := r.defs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownWeapon, id)
	}
	return d, nil
}

// All returns every Def ordered by Slot, then ID.
func (r *Registry) All() []*Def {
	out := make([]*Def, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Slot != out[j].Slot {
			return out[i].Slot < out[j].Slot
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Allowed returns All filtered by an allow-list of weapon ids. A nil
// allow-list admits every weapon.
func (r *Registry) Allowed(allow map[string]bool) []*Def {
	all := r.All()
	if allow == nil {
		return all
	}
	var out []*Def
	for _, d := range all {
		if allow[d.ID] {
			out = append(out, d)
		}
	}
	return out
}
