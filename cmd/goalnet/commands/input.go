package commands

import (
	"errors"
	"fmt"

	"github.com/openfroyo/goalnet/pkg/config"
	"github.com/openfroyo/goalnet/pkg/domains"
	"github.com/openfroyo/goalnet/pkg/engine"
)

// inputSource says where a problem and its capabilities come from.
type inputSource struct {
	// path is the problem file. Empty when example is set.
	path string

	// domain overrides the problem's domain, or selects the domain of example.
	domain string

	// script overrides the problem's domain script.
	script string

	// example names a problem bundled with a built-in domain.
	example string
}

// planInput is a problem together with the registry it is planned against.
type planInput struct {
	problem  *engine.Problem
	registry *engine.Registry

	// file and script are the files the input was read from.
	file   string
	script string
}

// files returns the files an input depends on, for watching.
func (in *planInput) files() []string {
	var files []string
	if in.file != "" {
		files = append(files, in.file)
	}
	if in.script != "" {
		files = append(files, in.script)
	}
	return files
}

// loadInput resolves a problem and builds its registry, from a built-in
// domain or from a domain script.
func loadInput(src inputSource, maxSteps uint64) (*planInput, error) {
	in := &planInput{}

	switch {
	case src.example != "" && src.path != "":
		return nil, errors.New("give either a problem file or --example, not both")

	case src.example != "":
		if src.domain == "" {
			return nil, errors.New("--example requires --domain")
		}
		p, err := domains.Problem(src.domain, src.example)
		if err != nil {
			return nil, err
		}
		in.problem = p

	case src.path != "":
		pf, err := config.NewLoader().LoadProblem(src.path)
		if err != nil {
			return nil, err
		}
		in.problem = pf.Problem
		in.file = pf.Path
		in.script = pf.Script
		if src.domain != "" {
			in.problem.Domain = src.domain
		}

	default:
		return nil, errors.New("a problem file or --example is required")
	}

	if src.script != "" {
		in.script = src.script
	}

	if in.script != "" {
		sd, err := config.LoadScriptDomain(in.script, maxSteps)
		if err != nil {
			return nil, err
		}
		if in.problem.Domain == "" {
			in.problem.Domain = sd.Name
		}
		in.registry = sd.NewRegistry()
		return in, nil
	}

	reg, err := domains.NewRegistry(in.problem.Domain)
	if err != nil {
		return nil, fmt.Errorf("problem %s: %w", in.problem.Name, err)
	}
	in.registry = reg
	return in, nil
}
