// Package domains is the catalog of built-in planning domains.
package domains

import (
	"fmt"
	"sort"
	"strings"

	"github.com/openfroyo/goalnet/pkg/domains/logistics"
	"github.com/openfroyo/goalnet/pkg/domains/satellite"
	"github.com/openfroyo/goalnet/pkg/engine"
)

// Domain describes a built-in capability set and its bundled problems.
type Domain struct {
	// Name is the unique domain name referenced by problem files.
	Name string

	// Description is a one-line summary for listings.
	Description string

	// Register installs the domain's operators and methods.
	Register func(reg *engine.Registry)

	// Problems returns fresh copies of the bundled example problems.
	Problems func() []*engine.Problem
}

var builtin = map[string]Domain{
	logistics.Name: {
		Name:        logistics.Name,
		Description: "packages moved by truck within cities and by airplane between airports",
		Register:    logistics.Register,
		Problems:    logistics.Problems,
	},
	satellite.Name: {
		Name:        satellite.Name,
		Description: "satellites power, calibrate and point instruments to take images",
		Register:    satellite.Register,
		Problems:    satellite.Problems,
	},
}

// Names returns the built-in domain names in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every built-in domain in name order.
func All() []Domain {
	out := make([]Domain, 0, len(builtin))
	for _, name := range Names() {
		out = append(out, builtin[name])
	}
	return out
}

// Lookup returns the built-in domain with the given name.
func Lookup(name string) (Domain, error) {
	d, ok := builtin[name]
	if !ok {
		return Domain{}, fmt.Errorf("unknown domain %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return d, nil
}

// NewRegistry returns a registry populated with the named domain.
func NewRegistry(name string) (*engine.Registry, error) {
	d, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	reg := engine.NewRegistry()
	d.Register(reg)
	return reg, nil
}

// Problem returns a bundled problem by domain and problem name.
func Problem(domain, problem string) (*engine.Problem, error) {
	d, err := Lookup(domain)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, p := range d.Problems() {
		if p.Name == problem {
			return p, nil
		}
		names = append(names, p.Name)
	}
	return nil, fmt.Errorf("domain %s has no example %q (available: %s)", domain, problem, strings.Join(names, ", "))
}
