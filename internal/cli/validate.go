package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/hackpath/internal/catalog"
)

// Finding is one catalog finding in CLI output.
type Finding struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	ID       string `json:"id,omitempty"`
	Position string `json:"position,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool      `json:"valid"`
	Nodes    int       `json:"nodes"`
	Routines int       `json:"routines"`
	Files    int       `json:"files"`
	Errors   []Finding `json:"errors,omitempty"`
	Warnings []Finding `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [catalog]",
		Short: "Validate a content catalog",
		Long: `Load a CUE directory, .cue file or YAML catalog and report every
finding. Dangling prerequisites are warnings; everything else fails.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatterFor(rootOpts, cmd)
			path, err := catalogPath(rootOpts, args)
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
			}
			return runValidate(f, path)
		},
	}
}

// catalogPath returns the positional catalog argument, the --catalog flag
// or paths.catalog, in that order.
func catalogPath(opts *RootOptions, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if opts.Catalog != "" {
		return opts.Catalog, nil
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return "", err
	}
	if cfg.Paths.Catalog == "" {
		return "", errors.New("no catalog given; pass a path or set paths.catalog")
	}
	return cfg.Paths.Catalog, nil
}

func runValidate(f *OutputFormatter, path string) error {
	res, errs := catalog.Load(path)

	result := ValidationResult{Valid: len(errs) == 0}
	if res != nil {
		result.Files = res.FileCount
		result.Warnings = findings(res.Warnings)
		if res.Catalog != nil {
			result.Routines = len(res.Catalog.Routines())
			result.Nodes = len(res.Catalog.Nodes())
		}
	}
	f.VerboseLog("Loaded %d catalog file(s) from %s", result.Files, path)

	// load failures before parsing are command errors
	if res == nil && len(errs) > 0 {
		return f.Fail(ExitCommandError, catalogCode(errs[0]), errs[0].Error(), nil)
	}

	for _, err := range errs {
		var le *catalog.LoadError
		if errors.As(err, &le) {
			result.Errors = append(result.Errors, finding(le))
		} else {
			result.Errors = append(result.Errors, Finding{Code: ErrCodeGeneric, Message: err.Error()})
		}
	}

	if !result.Valid {
		if f.JSON() {
			_ = f.Error(result.Errors[0].Code, result.Errors[0].Message, result)
		} else {
			fmt.Fprintln(f.Writer, "✗ Validation failed")
			fmt.Fprintln(f.Writer)
			for _, e := range result.Errors {
				if e.Position != "" {
					fmt.Fprintln(f.Writer, e.Position)
				}
				fmt.Fprintf(f.Writer, "  %s: %s\n\n", e.Code, e.Message)
			}
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
	}

	if f.JSON() {
		return f.Success(result)
	}
	fmt.Fprintf(f.Writer, "✓ Catalog valid: %d node(s), %d routine(s)\n", result.Nodes, result.Routines)
	for _, w := range result.Warnings {
		fmt.Fprintf(f.Writer, "  ! %s: %s\n", w.Code, w.Message)
	}
	return nil
}

func finding(le *catalog.LoadError) Finding {
	return Finding{Code: le.Code, Message: le.Message, ID: le.ID, Position: le.Position()}
}

func findings(les []*catalog.LoadError) []Finding {
	if len(les) == 0 {
		return nil
	}
	out := make([]Finding, len(les))
	for i, le := range les {
		out[i] = finding(le)
	}
	return out
}
