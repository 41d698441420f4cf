package catalog

import (
	"cuelang.org/go/cue/token"

	"github.com/roach88/hackpath/internal/content"
)

// declared is a node or routine together with where it was written.
type declared struct {
	pos  token.Pos
	file string
	line int
}

func (d declared) errorf(code, id, msg string) *LoadError {
	return &LoadError{Code: code, ID: id, Message: msg, Pos: d.pos, File: d.file, Line: d.line}
}

type nodeDecl struct {
	declared
	node content.Node
}

type routineDecl struct {
	declared
	routine content.Routine
}

// source is the format-independent result of parsing.
type source struct {
	nodes    []nodeDecl
	routines []routineDecl
	files    int
}

// Result is a loaded catalog.
type Result struct {
	Catalog   *content.Catalog
	FileCount int

	// Warnings holds findings that did not fail the load.
	Warnings []*LoadError
}

// build validates src and indexes it. Any non-warning finding fails.
func build(src *source) (*Result, []error) {
	findings := validate(src)
	var errs []error
	var warnings []*LoadError
	for _, f := range findings {
		if f.Warning {
			warnings = append(warnings, f)
			continue
		}
		errs = append(errs, f)
	}
	if len(errs) > 0 {
		return &Result{FileCount: src.files, Warnings: warnings}, errs
	}

	nodes := make([]content.Node, len(src.nodes))
	for i, d := range src.nodes {
		nodes[i] = d.node
	}
	routines := make([]content.Routine, len(src.routines))
	for i, d := range src.routines {
		routines[i] = d.routine
	}
	c, err := content.NewCatalog(nodes, routines)
	if err != nil {
		return &Result{FileCount: src.files, Warnings: warnings}, []error{&LoadError{Code: ErrCodeGeneric, Message: err.Error()}}
	}
	return &Result{Catalog: c, FileCount: src.files, Warnings: warnings}, nil
}
