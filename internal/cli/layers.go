package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/hackpath/internal/catalog"
	"github.com/roach88/hackpath/internal/graph"
)

// LayersResult is the unlock-order layering of a catalog.
type LayersResult struct {
	Layers   [][]string    `json:"layers"`
	Unplaced []string      `json:"unplaced,omitempty"`
	Issues   []graph.Issue `json:"issues,omitempty"`
}

// NewLayersCommand creates the layers command.
func NewLayersCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "layers [catalog]",
		Short: "Show the unlock-order layers of a catalog",
		Long: `Resolve the prerequisite graph into layers. Every node's prerequisites
lie in earlier layers. Nodes on or behind a cycle are reported and left out.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatterFor(rootOpts, cmd)
			path, err := catalogPath(rootOpts, args)
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
			}
			res, errs := catalog.Load(path)
			if len(errs) > 0 {
				return f.Fail(ExitCommandError, catalogCode(errs[0]), errs[0].Error(), nil)
			}
			return printLayers(f, layersOf(res))
		},
	}
}

func layersOf(res *catalog.Result) LayersResult {
	l := graph.Build(res.Catalog.Nodes()).Layers()
	return LayersResult{Layers: l.Layers, Unplaced: l.Unplaced, Issues: l.Issues}
}

func printLayers(f *OutputFormatter, r LayersResult) error {
	var err error
	if len(r.Unplaced) > 0 {
		err = NewExitError(ExitFailure, fmt.Sprintf("%s: %d node(s) excluded from layering", ErrCodeIntegrity, len(r.Unplaced)))
	}
	if f.JSON() {
		if perr := f.Success(r); perr != nil {
			return perr
		}
		return err
	}

	rows := make([][]string, 0, len(r.Layers))
	for i, layer := range r.Layers {
		rows = append(rows, []string{strconv.Itoa(i), strings.Join(layer, ", ")})
	}
	f.Table([]string{"Layer", "Nodes"}, rows, []columnAlignment{alignRight, alignLeft})
	for _, issue := range r.Issues {
		fmt.Fprintf(f.Writer, "  ! %s %s: %s\n", issue.Code, issue.NodeID, issue.Message)
	}
	return err
}
