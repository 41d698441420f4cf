package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/hackpath/internal/catalog"
	"github.com/roach88/hackpath/internal/config"
	"github.com/roach88/hackpath/internal/content"
	"github.com/roach88/hackpath/internal/engine"
	"github.com/roach88/hackpath/internal/logging"
	"github.com/roach88/hackpath/internal/remote"
	"github.com/roach88/hackpath/internal/store"
	"github.com/roach88/hackpath/internal/telemetry"
	"github.com/roach88/hackpath/internal/tracker"
)

// App is everything a progress command needs: the device store, the
// optional account service, the catalog and the engine over them.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Store   *store.Store
	Remote  *remote.Service // nil without an account service
	Catalog *content.Catalog
	Engine  *engine.Engine

	shutdown func(context.Context) error
}

// loadConfig reads the configuration named by the global flags.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	res, err := config.Load(config.Options{Path: opts.ConfigPath, EnvFile: opts.EnvFile})
	if err != nil {
		return nil, err
	}
	if opts.Catalog != "" {
		res.Config.Paths.Catalog = opts.Catalog
	}
	return res.Config, nil
}

func newLogger(cfg *config.Config, opts *RootOptions, w io.Writer) (*slog.Logger, error) {
	level := cfg.Logging.Level
	if opts.Verbose {
		level = "debug"
	}
	return logging.New(logging.Options{Level: level, Format: cfg.Logging.Format, Output: w})
}

// openApp wires the stack described by the configuration. Failures are
// printed through f and returned as ExitErrors.
func openApp(ctx context.Context, opts *RootOptions, f *OutputFormatter) (*App, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}
	logger, err := newLogger(cfg, opts, f.GetErrWriter())
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}

	app := &App{Config: cfg, Logger: logger}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	app.shutdown, err = telemetry.Setup(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
	}

	if cfg.Paths.Catalog == "" {
		return nil, f.Fail(ExitCommandError, ErrCodeConfig, "no catalog configured; set paths.catalog or pass --catalog", nil)
	}
	res, errs := catalog.Load(cfg.Paths.Catalog)
	if len(errs) > 0 {
		return nil, f.Fail(ExitCommandError, catalogCode(errs[0]), errs[0].Error(), nil)
	}
	for _, w := range res.Warnings {
		logger.Warn(w.Message, "code", w.Code, "id", w.ID, "at", w.Position())
	}
	app.Catalog = res.Catalog

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}
	app.Store, err = store.Open(cfg.Paths.StorePath)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}

	var rem tracker.Remote
	if cfg.RemoteEnabled() {
		app.Remote, err = remote.Open(ctx, cfg.Remote.Driver, cfg.Remote.DSN, remote.WithLogger(logger))
		if err != nil {
			return nil, f.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
		}
		rem = app.Remote
	}

	policy := cfg.RetryPolicy()
	policy.Logger = logger
	session, err := tracker.NewSession(ctx, app.Store, rem,
		tracker.WithLogger(logger),
		tracker.WithRetryPolicy(policy),
	)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}
	app.Engine = engine.New(app.Catalog, session,
		engine.WithLogger(logger),
		engine.WithCountdown(cfg.Playback.CountdownSeconds),
	)

	ok = true
	return app, nil
}

// Close releases the store lock, the database and the tracer provider.
func (a *App) Close() error {
	var errs []error
	if a.Remote != nil {
		errs = append(errs, a.Remote.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	if a.shutdown != nil {
		errs = append(errs, a.shutdown(context.Background()))
	}
	return errors.Join(errs...)
}

// engineError maps engine and tracker errors to CLI output.
func engineError(f *OutputFormatter, err error) error {
	switch {
	case errors.Is(err, engine.ErrUnknownNode):
		return f.Fail(ExitCommandError, ErrCodeUnknownNode, err.Error(), nil)
	case errors.Is(err, engine.ErrNotCompletable):
		return f.Fail(ExitCommandError, ErrCodeNotCompletable, err.Error(), nil)
	case errors.Is(err, engine.ErrPositionOutOfRange):
		return f.Fail(ExitCommandError, ErrCodePositionRange, err.Error(), nil)
	case errors.Is(err, tracker.ErrNoRemote):
		return f.Fail(ExitCommandError, ErrCodeNoRemote, "no account service configured; set remote.driver and remote.dsn", nil)
	case tracker.IsRemoteSyncError(err):
		return f.Fail(ExitFailure, ErrCodeRemoteSync, err.Error(), nil)
	case tracker.IsPersistenceWriteError(err):
		return f.Fail(ExitFailure, ErrCodeStore, err.Error(), nil)
	default:
		return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
}

func catalogCode(err error) string {
	var le *catalog.LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return ErrCodeGeneric
}

func withApp(ctx context.Context, opts *RootOptions, f *OutputFormatter, fn func(*App) error) error {
	app, err := openApp(ctx, opts, f)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

func describe(id content.Identity) string {
	if id.IsAnonymous() {
		return "this device"
	}
	return fmt.Sprintf("user %s", id.Key)
}
