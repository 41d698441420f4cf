package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"

	"github.com/roach88/hackpath/internal/content"
)

//go:embed schema.cue
var schemaCUE string

type levelCUE struct {
	Title    string   `json:"title"`
	Requires []string `json:"requires"`
}

type hackCUE struct {
	Title    string   `json:"title"`
	Level    string   `json:"level"`
	Required bool     `json:"required"`
	Requires []string `json:"requires"`
}

type routineCUE struct {
	Title string   `json:"title"`
	Steps []string `json:"steps"`
}

// LoadCUEDir loads every .cue file of dir as one CUE instance.
func LoadCUEDir(dir string) (*Result, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("catalog directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing catalog directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := FindFiles(dir, ".cue")
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	src, errs := decodeCUE(ctx, ctx.BuildInstance(inst))
	if len(errs) > 0 {
		return nil, errs
	}
	src.files = len(files)
	return build(src)
}

// CompileCUE loads a single CUE document.
func CompileCUE(data []byte, filename string) (*Result, []error) {
	ctx := cuecontext.New()
	src, errs := decodeCUE(ctx, ctx.CompileBytes(data, cue.Filename(filename)))
	if len(errs) > 0 {
		return nil, errs
	}
	src.files = 1
	return build(src)
}

func decodeCUE(ctx *cue.Context, value cue.Value) (*source, []error) {
	if err := value.Err(); err != nil {
		return nil, []error{cueError(ErrCodeBuildFailed, err)}
	}

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue")).LookupPath(cue.ParsePath("#Catalog"))
	if err := schema.Err(); err != nil {
		return nil, []error{cueError(ErrCodeBuildFailed, err)}
	}
	value = schema.Unify(value)
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, []error{cueError(ErrCodeDecode, err)}
	}

	src := &source{}
	var errs []error

	// Levels first so a level precedes its hacks in authored order.
	eachField(value, "level", &errs, func(id string, v cue.Value) {
		var decl levelCUE
		if err := v.Decode(&decl); err != nil {
			errs = append(errs, cueError(ErrCodeDecode, err))
			return
		}
		src.nodes = append(src.nodes, nodeDecl{
			declared: declared{pos: v.Pos()},
			node: content.Node{
				ID:            id,
				Kind:          content.KindLevel,
				Title:         decl.Title,
				Prerequisites: decl.Requires,
			},
		})
	})
	eachField(value, "hack", &errs, func(id string, v cue.Value) {
		var decl hackCUE
		if err := v.Decode(&decl); err != nil {
			errs = append(errs, cueError(ErrCodeDecode, err))
			return
		}
		src.nodes = append(src.nodes, nodeDecl{
			declared: declared{pos: v.Pos()},
			node: content.Node{
				ID:               id,
				Kind:             content.KindHack,
				Title:            decl.Title,
				Prerequisites:    decl.Requires,
				ParentLevelID:    decl.Level,
				RequiredInParent: decl.Required,
			},
		})
	})
	eachField(value, "routine", &errs, func(id string, v cue.Value) {
		var decl routineCUE
		if err := v.Decode(&decl); err != nil {
			errs = append(errs, cueError(ErrCodeDecode, err))
			return
		}
		src.routines = append(src.routines, routineDecl{
			declared: declared{pos: v.Pos()},
			routine:  content.Routine{ID: id, Title: decl.Title, Steps: decl.Steps},
		})
	})
	return src, errs
}

func eachField(root cue.Value, path string, errs *[]error, fn func(id string, v cue.Value)) {
	v := root.LookupPath(cue.ParsePath(path))
	if !v.Exists() {
		return
	}
	iter, err := v.Fields()
	if err != nil {
		*errs = append(*errs, cueError(ErrCodeGeneric, fmt.Errorf("iterating %s: %w", path, err)))
		return
	}
	for iter.Next() {
		fn(iter.Selector().Unquoted(), iter.Value())
	}
}

// cueError keeps the position of the first CUE error, if any.
func cueError(code string, err error) *LoadError {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: code, Message: err.Error()}
	}
	first := errs[0]
	le := &LoadError{Code: code, Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}

// FindFiles walks dir and returns the paths with one of the extensions.
func FindFiles(dir string, exts ...string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		for _, ext := range exts {
			if filepath.Ext(path) == ext {
				files = append(files, path)
				break
			}
		}
		return nil
	})
	return files, err
}
