package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/spf13/cobra"

	"github.com/roach88/hackpath/internal/tracker"
)

// SyncResult reports one reconciliation attempt.
type SyncResult struct {
	User        string `json:"user,omitempty"`
	Attempted   bool   `json:"attempted"`
	Success     bool   `json:"success"`
	Cleared     bool   `json:"cleared"`
	Completions int    `json:"completions"`
	Positions   int    `json:"positions"`
}

func syncResult(out tracker.Outcome, attempted bool) SyncResult {
	return SyncResult{
		User:        out.Identity.Key,
		Attempted:   attempted,
		Success:     out.Success,
		Cleared:     out.Cleared,
		Completions: len(out.Merged.Completions),
		Positions:   len(out.Merged.Positions),
	}
}

// NewSignInCommand creates the signin command.
func NewSignInCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "signin <user>",
		Short: "Sign in and merge this device's progress into the account",
		Long: `Switch to a user account. Progress recorded on this device is merged
into the account and removed locally once the account service confirms it.
If the service is unreachable the progress stays on the device and
"hackpath sync" retries later.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatterFor(rootOpts, cmd)
			ctx := cmd.Context()
			return withApp(ctx, rootOpts, f, func(app *App) error {
				out, err := app.Engine.ReconcileOnSignIn(ctx, args[0])
				if err != nil {
					return engineError(f, err)
				}
				result := syncResult(out, true)
				if f.JSON() {
					return f.Success(result)
				}
				fmt.Fprintf(f.Writer, "✓ Signed in as %s (%d completion(s) in account)\n", result.User, result.Completions)
				return nil
			})
		},
	}
}

// NewSignOutCommand creates the signout command.
func NewSignOutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Return to this device's anonymous progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatterFor(rootOpts, cmd)
			return withApp(cmd.Context(), rootOpts, f, func(app *App) error {
				if err := app.Engine.SignOut(); err != nil {
					return engineError(f, err)
				}
				id := app.Engine.Session().Identity()
				if f.JSON() {
					return f.Success(map[string]string{"identity": id.Kind.String()})
				}
				fmt.Fprintf(f.Writer, "✓ Signed out; progress is kept on %s\n", describe(id))
				return nil
			})
		},
	}
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	var once bool
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Retry a pending sign-in migration",
		Long: `Retry merging device progress into the signed-in account. With --once
a single attempt is made; otherwise the attempt repeats every interval
until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatterFor(rootOpts, cmd)
			ctx := cmd.Context()
			return withApp(ctx, rootOpts, f, func(app *App) error {
				if once {
					return syncOnce(ctx, f, app)
				}
				every := interval
				if every <= 0 {
					every = app.Config.SyncInterval()
				}
				return syncEvery(ctx, f, app, every)
			})
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "make one attempt and exit")
	cmd.Flags().DurationVar(&interval, "interval", 0, "retry interval (default sync.interval_seconds)")
	return cmd
}

func syncOnce(ctx context.Context, f *OutputFormatter, app *App) error {
	session := app.Engine.Session()
	pending := session.Pending()
	out, err := app.Engine.RetryPending(ctx)
	if err != nil {
		return engineError(f, err)
	}
	result := syncResult(out, pending)
	if !pending {
		result.User = ""
		if id := session.Identity(); !id.IsAnonymous() {
			result.User = id.Key
		}
	}
	if f.JSON() {
		return f.Success(result)
	}
	if !pending {
		fmt.Fprintln(f.Writer, "Nothing to sync")
		return nil
	}
	fmt.Fprintf(f.Writer, "✓ Synced %d completion(s) to %s\n", result.Completions, result.User)
	return nil
}

// syncEvery runs RetryPending on a gocron schedule until ctx is done. Runs
// never overlap.
func syncEvery(ctx context.Context, f *OutputFormatter, app *App, every time.Duration) error {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	_, err := s.Every(every).Do(func() {
		if !app.Engine.Session().Pending() {
			app.Logger.Debug("nothing to sync")
			return
		}
		out, err := app.Engine.RetryPending(ctx)
		if err != nil {
			app.Logger.Warn("sync attempt failed", "error", err)
			return
		}
		app.Logger.Info("synced pending progress",
			"user", out.Identity.Key,
			"completions", len(out.Merged.Completions),
			"cleared", out.Cleared,
		)
	})
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("schedule sync: %v", err), nil)
	}

	f.VerboseLog("Syncing every %s", every)
	s.StartAsync()
	<-ctx.Done()
	s.Stop()
	return nil
}
