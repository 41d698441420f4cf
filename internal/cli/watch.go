package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/hackpath/internal/catalog"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch [catalog]",
		Short: "Re-validate and re-layer a catalog whenever it changes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatterFor(rootOpts, cmd)
			path, err := catalogPath(rootOpts, args)
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
			}
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
			}
			logger, err := newLogger(cfg, rootOpts, f.GetErrWriter())
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
			}

			err = catalog.Watch(cmd.Context(), path, debounce, logger, func(res *catalog.Result, errs []error) {
				if len(errs) > 0 {
					for _, e := range errs {
						_ = f.Error(catalogCode(e), e.Error(), nil)
					}
					return
				}
				// integrity problems are already reported per issue
				_ = printLayers(f, layersOf(res))
			})
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", catalog.DefaultDebounce, "quiet period before reloading")
	return cmd
}
