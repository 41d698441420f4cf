package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/hackpath/internal/content"
	"github.com/roach88/hackpath/internal/progress"
)

// LevelRow is one level in the progress report.
type LevelRow struct {
	ID          string `json:"id"`
	Title       string `json:"title,omitempty"`
	Unlocked    bool   `json:"unlocked"`
	Completed   int    `json:"completed"`
	Total       int    `json:"total"`
	Percentage  int    `json:"percentage"`
	IsCompleted bool   `json:"is_completed"`
}

// RoutineRow is one routine in the progress report.
type RoutineRow struct {
	ID         string `json:"id"`
	Title      string `json:"title,omitempty"`
	Position   int    `json:"position"`
	TotalSteps int    `json:"total_steps"`
	Percentage int    `json:"percentage"`
}

// ProgressReport is the output of the progress command.
type ProgressReport struct {
	Identity     string       `json:"identity"` // "anon" or "user"
	User         string       `json:"user,omitempty"`
	SavedLocally bool         `json:"saved_locally"`
	Autoplay     bool         `json:"autoplay"`
	Levels       []LevelRow   `json:"levels"`
	Routines     []RoutineRow `json:"routines"`
}

// NewProgressCommand creates the progress command.
func NewProgressCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "progress [level-or-routine]",
		Short: "Show progress and lock state",
		Long: `Without arguments, report every level and routine. With an id, print
the summary of that level or routine.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatterFor(rootOpts, cmd)
			return withApp(cmd.Context(), rootOpts, f, func(app *App) error {
				if len(args) == 1 {
					return runProgressOf(cmd.Context(), f, app, args[0])
				}
				return runProgress(cmd.Context(), f, app)
			})
		},
	}
}

func runProgressOf(ctx context.Context, f *OutputFormatter, app *App, id string) error {
	s, err := app.Engine.GetProgress(ctx, id)
	if err != nil {
		return engineError(f, err)
	}
	if f.JSON() {
		return f.Success(s)
	}
	fmt.Fprintf(f.Writer, "%s: %d%% (%d/%d)\n", content.NormalizeID(id), s.Percentage, s.CompletedCount, s.TotalCount)
	return nil
}

func buildReport(ctx context.Context, app *App) (ProgressReport, error) {
	eng := app.Engine
	id := eng.Session().Identity()
	autoplay, err := eng.Autoplay()
	if err != nil {
		return ProgressReport{}, err
	}
	report := ProgressReport{
		Identity:     id.Kind.String(),
		SavedLocally: eng.SavedLocally(),
		Autoplay:     autoplay,
		Levels:       []LevelRow{},
		Routines:     []RoutineRow{},
	}
	if !id.IsAnonymous() {
		report.User = id.Key
	}

	for _, level := range app.Catalog.NodesOfKind(content.KindLevel) {
		lp, err := eng.LevelProgress(ctx, level.ID)
		if err != nil {
			return ProgressReport{}, err
		}
		s := progress.LevelSummary(lp)
		report.Levels = append(report.Levels, LevelRow{
			ID:          level.ID,
			Title:       level.Title,
			Unlocked:    lp.IsUnlocked,
			Completed:   s.CompletedCount,
			Total:       s.TotalCount,
			Percentage:  s.Percentage,
			IsCompleted: s.IsCompleted,
		})
	}
	for _, r := range app.Catalog.Routines() {
		rp, err := eng.RoutineProgress(ctx, r.ID)
		if err != nil {
			return ProgressReport{}, err
		}
		s := progress.ComputeRoutineProgress(r, rp.CompletedStepIDs)
		report.Routines = append(report.Routines, RoutineRow{
			ID:         r.ID,
			Title:      r.Title,
			Position:   rp.CurrentPosition,
			TotalSteps: rp.TotalSteps,
			Percentage: s.Percentage,
		})
	}
	return report, nil
}

func runProgress(ctx context.Context, f *OutputFormatter, app *App) error {
	report, err := buildReport(ctx, app)
	if err != nil {
		return engineError(f, err)
	}
	if f.JSON() {
		return f.Success(report)
	}

	levelRows := make([][]string, 0, len(report.Levels))
	for _, l := range report.Levels {
		levelRows = append(levelRows, []string{
			l.ID, lockLabel(l.Unlocked),
			fmt.Sprintf("%d/%d", l.Completed, l.Total),
			strconv.Itoa(l.Percentage) + "%",
		})
	}
	f.Table([]string{"Level", "State", "Required", "Progress"}, levelRows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight})

	if len(report.Routines) > 0 {
		routineRows := make([][]string, 0, len(report.Routines))
		for _, r := range report.Routines {
			routineRows = append(routineRows, []string{
				r.ID,
				fmt.Sprintf("%d/%d", r.Position+1, r.TotalSteps),
				strconv.Itoa(r.Percentage) + "%",
			})
		}
		f.Table([]string{"Routine", "Step", "Progress"}, routineRows,
			[]columnAlignment{alignLeft, alignRight, alignRight})
	}

	if report.SavedLocally {
		fmt.Fprintln(f.Writer, "Progress saved locally")
	}
	return nil
}

func lockLabel(unlocked bool) string {
	if unlocked {
		return "unlocked"
	}
	return "locked"
}
