package catalog

import (
	"bytes"
	"errors"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/roach88/hackpath/internal/content"
)

type yamlFile struct {
	Levels   []yamlLevel   `yaml:"levels"`
	Hacks    []yamlHack    `yaml:"hacks"`
	Routines []yamlRoutine `yaml:"routines"`
}

type yamlLevel struct {
	ID       string   `yaml:"id"`
	Title    string   `yaml:"title"`
	Requires []string `yaml:"requires"`
}

type yamlHack struct {
	ID       string   `yaml:"id"`
	Title    string   `yaml:"title"`
	Level    string   `yaml:"level"`
	Required bool     `yaml:"required"`
	Requires []string `yaml:"requires"`
}

type yamlRoutine struct {
	ID    string   `yaml:"id"`
	Title string   `yaml:"title"`
	Steps []string `yaml:"steps"`
}

// entryLines returns the line of every list entry under each top-level key.
func entryLines(data []byte) map[string][]int {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil || len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil
	}
	out := make(map[string][]int)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		if val.Kind != yaml.SequenceNode {
			continue
		}
		for _, item := range val.Content {
			out[key.Value] = append(out[key.Value], item.Line)
		}
	}
	return out
}

func lineAt(lines map[string][]int, key string, i int) int {
	if i < len(lines[key]) {
		return lines[key][i]
	}
	return 0
}

// LoadYAML parses a YAML catalog. Unknown fields are rejected.
func LoadYAML(r io.Reader, filename string) (*Result, []error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, File: filename, Message: err.Error()}}
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var file yamlFile
	if err := decoder.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, []error{&LoadError{Code: ErrCodeNoFiles, File: filename, Message: "empty catalog"}}
		}
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, File: filename, Message: err.Error()}}
	}

	lines := entryLines(data)
	src := &source{files: 1}
	for i, l := range file.Levels {
		src.nodes = append(src.nodes, nodeDecl{
			declared: declared{file: filename, line: lineAt(lines, "levels", i)},
			node: content.Node{
				ID:            l.ID,
				Kind:          content.KindLevel,
				Title:         l.Title,
				Prerequisites: l.Requires,
			},
		})
	}
	for i, h := range file.Hacks {
		src.nodes = append(src.nodes, nodeDecl{
			declared: declared{file: filename, line: lineAt(lines, "hacks", i)},
			node: content.Node{
				ID:               h.ID,
				Kind:             content.KindHack,
				Title:            h.Title,
				Prerequisites:    h.Requires,
				ParentLevelID:    h.Level,
				RequiredInParent: h.Required,
			},
		})
	}
	for i, rt := range file.Routines {
		src.routines = append(src.routines, routineDecl{
			declared: declared{file: filename, line: lineAt(lines, "routines", i)},
			routine:  content.Routine{ID: rt.ID, Title: rt.Title, Steps: rt.Steps},
		})
	}
	return build(src)
}
