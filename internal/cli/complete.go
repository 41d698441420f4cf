package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// CompleteResult is the output of the complete command.
type CompleteResult struct {
	Node          string   `json:"node"`
	ViewCount     int      `json:"view_count"`
	CompletedAt   string   `json:"completed_at"`
	NewlyUnlocked []string `json:"newly_unlocked"`
	SavedLocally  bool     `json:"saved_locally"`
}

// NewCompleteCommand creates the complete command.
func NewCompleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <node>",
		Short: "Mark a hack complete",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatterFor(rootOpts, cmd)
			ctx := cmd.Context()
			return withApp(ctx, rootOpts, f, func(app *App) error {
				before, err := app.Engine.Unlocked(ctx)
				if err != nil {
					return engineError(f, err)
				}
				rec, err := app.Engine.RecordCompletion(ctx, args[0])
				if err != nil {
					return engineError(f, err)
				}
				after, err := app.Engine.Unlocked(ctx)
				if err != nil {
					return engineError(f, err)
				}

				result := CompleteResult{
					Node:          rec.NodeID,
					ViewCount:     rec.ViewCount,
					CompletedAt:   rec.CompletedAt.UTC().Format(time.RFC3339),
					NewlyUnlocked: []string{},
					SavedLocally:  app.Engine.SavedLocally(),
				}
				for _, id := range app.Catalog.IDs() {
					if after.Has(id) && !before.Has(id) {
						result.NewlyUnlocked = append(result.NewlyUnlocked, id)
					}
				}

				if f.JSON() {
					return f.Success(result)
				}
				fmt.Fprintf(f.Writer, "✓ %s complete (viewed %d time(s))\n", result.Node, result.ViewCount)
				if len(result.NewlyUnlocked) > 0 {
					fmt.Fprintf(f.Writer, "Unlocked: %s\n", strings.Join(result.NewlyUnlocked, ", "))
				}
				return nil
			})
		},
	}
}

// NewPositionCommand creates the position command.
func NewPositionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "position <routine> [index]",
		Short: "Show or set the playback position of a routine",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatterFor(rootOpts, cmd)
			ctx := cmd.Context()
			return withApp(ctx, rootOpts, f, func(app *App) error {
				if len(args) == 2 {
					index, err := strconv.Atoi(args[1])
					if err != nil {
						return f.Fail(ExitCommandError, ErrCodeUsage, fmt.Sprintf("index %q is not a number", args[1]), nil)
					}
					if err := app.Engine.UpdatePosition(ctx, args[0], index); err != nil {
						return engineError(f, err)
					}
				}
				rp, err := app.Engine.RoutineProgress(ctx, args[0])
				if err != nil {
					return engineError(f, err)
				}
				row := RoutineRow{
					ID:         rp.RoutineID,
					Position:   rp.CurrentPosition,
					TotalSteps: rp.TotalSteps,
				}
				if s, err := app.Engine.GetProgress(ctx, rp.RoutineID); err == nil {
					row.Percentage = s.Percentage
				}
				if f.JSON() {
					return f.Success(row)
				}
				fmt.Fprintf(f.Writer, "%s: step %d of %d\n", row.ID, row.Position+1, row.TotalSteps)
				return nil
			})
		},
	}
}

// NewAutoplayCommand creates the autoplay command.
func NewAutoplayCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "autoplay [on|off]",
		Short:     "Show or set the device autoplay preference",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatterFor(rootOpts, cmd)
			return withApp(cmd.Context(), rootOpts, f, func(app *App) error {
				if len(args) == 1 {
					var enabled bool
					switch strings.ToLower(args[0]) {
					case "on", "true":
						enabled = true
					case "off", "false":
					default:
						return f.Fail(ExitCommandError, ErrCodeUsage, fmt.Sprintf("want on or off, got %q", args[0]), nil)
					}
					if err := app.Engine.SetAutoplay(enabled); err != nil {
						return engineError(f, err)
					}
				}
				enabled, err := app.Engine.Autoplay()
				if err != nil {
					return engineError(f, err)
				}
				if f.JSON() {
					return f.Success(map[string]bool{"autoplay": enabled})
				}
				fmt.Fprintf(f.Writer, "autoplay: %s\n", onOff(enabled))
				return nil
			})
		},
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
