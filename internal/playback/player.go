package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/hackpath/internal/content"
	"github.com/roach88/hackpath/internal/progress"
)

// DefaultCountdown is the number of one-second ticks before auto-advance.
const DefaultCountdown = 5

// Sink receives the progress a player produces. tracker.Tracker satisfies it.
type Sink interface {
	RecordCompletion(ctx context.Context, nodeID string) (content.CompletionRecord, error)
	UpdatePosition(ctx context.Context, pos content.RoutinePosition) error
}

// ErrEmptyRoutine is returned by New for a routine without steps.
var ErrEmptyRoutine = errors.New("playback: routine has no steps")

// Config configures a Player.
type Config struct {
	Routine content.Routine
	Sink    Sink

	// Start is the index shown in Idle, typically the stored position.
	Start int
	// Completed holds step ids already completed by this identity.
	Completed content.Set

	Autoplay  bool
	Countdown int           // ticks; 0 means DefaultCountdown
	Tick      time.Duration // 0 means one second
	Clock     Clock         // nil means RealClock
	Logger    *slog.Logger  // nil means slog.Default

	// OnChange, when set, is called after every transition with the new
	// status. It runs without the player lock held.
	OnChange func(Status)
}

// Player plays one routine. All methods are safe for concurrent use.
type Player struct {
	routine   content.Routine
	sink      Sink
	clock     Clock
	logger    *slog.Logger
	countdown int
	tick      time.Duration
	onChange  func(Status)

	mu            sync.Mutex
	state         State
	index         int
	remaining     int
	autoNavigated bool
	autoplay      bool
	completed     content.Set
	closed        bool

	// Timer ownership: at most one live timer, identified by gen.
	stop func() bool
	gen  uint64

	// Persistence runs in order: each write waits for the previous one,
	// so lastDone closing means every earlier write has finished.
	lastDone chan struct{}
}

// New returns an Idle player.
func New(cfg Config) (*Player, error) {
	if cfg.Routine.TotalSteps() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyRoutine, cfg.Routine.ID)
	}
	if cfg.Sink == nil {
		return nil, errors.New("playback: nil sink")
	}
	p := &Player{
		routine:   cfg.Routine,
		sink:      cfg.Sink,
		clock:     cfg.Clock,
		logger:    cfg.Logger,
		countdown: cfg.Countdown,
		tick:      cfg.Tick,
		onChange:  cfg.OnChange,
		state:     Idle,
		autoplay:  cfg.Autoplay,
		completed: cfg.Completed.Clone(),
	}
	if p.clock == nil {
		p.clock = RealClock{}
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.countdown <= 0 {
		p.countdown = DefaultCountdown
	}
	if p.tick <= 0 {
		p.tick = time.Second
	}
	p.index = p.clamp(cfg.Start)
	return p, nil
}

// Status returns the current status.
func (p *Player) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.statusLocked()
}

// Open starts playing index as a direct entry. Autoplay never advances
// past an item opened this way.
func (p *Player) Open(index int) {
	p.transition(func() bool {
		p.cancelTimerLocked()
		p.index = p.clamp(index)
		p.state = Playing
		p.autoNavigated = false
		p.persistPositionLocked()
		return true
	})
}

// GoNext moves to the next step. No-op on the last step.
func (p *Player) GoNext() {
	p.navigate(func(i int) int { return i + 1 })
}

// GoPrevious moves to the previous step. No-op on the first step.
func (p *Player) GoPrevious() {
	p.navigate(func(i int) int { return i - 1 })
}

// JumpTo moves to index, clamped to the routine.
func (p *Player) JumpTo(index int) {
	p.navigate(func(int) int { return index })
}

func (p *Player) navigate(target func(int) int) {
	p.transition(func() bool {
		wasCounting := p.state == AutoAdvancing
		p.cancelTimerLocked()

		next := p.clamp(target(p.index))
		if next == p.index && !wasCounting {
			return false
		}
		p.index = next
		p.state = Playing
		p.autoNavigated = true
		p.persistPositionLocked()
		return true
	})
}

// VideoEnded handles the end of the current step's video.
//
// The step is recorded complete. On the last step every remaining step is
// completed, 100% is persisted and the player enters Completed. Otherwise,
// when autoplay is on and the step was reached by in-player navigation, a
// countdown starts; else the player pauses.
func (p *Player) VideoEnded() {
	p.transition(func() bool {
		if p.state != Playing {
			return false
		}
		p.cancelTimerLocked()
		p.completeLocked(p.routine.Steps[p.index])

		last := p.routine.TotalSteps() - 1
		switch {
		case p.index == last:
			for _, step := range p.routine.Steps {
				if !p.completed.Has(step) {
					p.completeLocked(step)
				}
			}
			p.state = Completed
			p.persistPositionLocked()
		case p.autoplay && p.autoNavigated:
			p.state = AutoAdvancing
			p.remaining = p.countdown
			p.persistPositionLocked()
			p.startTickLocked()
		default:
			p.state = Paused
			p.persistPositionLocked()
		}
		return true
	})
}

// Cancel stops a running countdown. The player pauses at the unchanged
// index.
func (p *Player) Cancel() {
	p.transition(func() bool {
		if p.state != AutoAdvancing {
			return false
		}
		p.cancelTimerLocked()
		p.state = Paused
		return true
	})
}

// KeyInput reports user input on the player; it cancels a countdown.
func (p *Player) KeyInput() {
	p.Cancel()
}

// Pause pauses playback or a countdown.
func (p *Player) Pause() {
	p.transition(func() bool {
		if p.state != Playing && p.state != AutoAdvancing {
			return false
		}
		p.cancelTimerLocked()
		p.state = Paused
		return true
	})
}

// Resume continues a paused step.
func (p *Player) Resume() {
	p.transition(func() bool {
		if p.state != Paused {
			return false
		}
		p.state = Playing
		return true
	})
}

// SetAutoplay changes the autoplay flag. Disabling it during a countdown
// cancels the countdown.
func (p *Player) SetAutoplay(enabled bool) {
	p.transition(func() bool {
		changed := p.autoplay != enabled
		p.autoplay = enabled
		if !enabled && p.state == AutoAdvancing {
			p.cancelTimerLocked()
			p.state = Paused
			return true
		}
		return changed
	})
}

// Flush waits for every write queued before the call to reach the sink.
func (p *Player) Flush() {
	p.mu.Lock()
	last := p.lastDone
	p.mu.Unlock()
	if last != nil {
		<-last
	}
}

// Close cancels the timer and waits for queued writes. No timer fires and
// no transition happens after Close.
func (p *Player) Close() {
	p.mu.Lock()
	p.cancelTimerLocked()
	p.closed = true
	p.mu.Unlock()
	p.Flush()
}

// transition runs fn under the lock and notifies OnChange when fn reports
// a change.
func (p *Player) transition(fn func() bool) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	changed := fn()
	status := p.statusLocked()
	p.mu.Unlock()

	if changed && p.onChange != nil {
		p.onChange(status)
	}
}

func (p *Player) startTickLocked() {
	p.gen++
	gen := p.gen
	p.stop = p.clock.AfterFunc(p.tick, func() { p.onTick(gen) })
}

func (p *Player) cancelTimerLocked() {
	p.gen++
	if p.stop != nil {
		p.stop()
		p.stop = nil
	}
	p.remaining = 0
}

func (p *Player) onTick(gen uint64) {
	p.transition(func() bool {
		if gen != p.gen || p.state != AutoAdvancing {
			return false
		}
		p.stop = nil
		p.remaining--
		if p.remaining > 0 {
			p.startTickLocked()
			return true
		}
		p.gen++
		p.index = p.clamp(p.index + 1)
		p.state = Playing
		p.autoNavigated = true
		p.persistPositionLocked()
		return true
	})
}

func (p *Player) clamp(i int) int {
	return max(0, min(i, p.routine.TotalSteps()-1))
}

func (p *Player) statusLocked() Status {
	return Status{
		RoutineID:     p.routine.ID,
		State:         p.state,
		Index:         p.index,
		Countdown:     p.remaining,
		AutoNavigated: p.autoNavigated,
		Autoplay:      p.autoplay,
		Percentage:    progress.ComputeRoutineProgress(p.routine, p.completed).Percentage,
		Completed:     p.completed.Clone(),
	}
}

func (p *Player) completeLocked(step string) {
	p.completed.Add(step)
	p.enqueueLocked("record_completion", func(ctx context.Context) error {
		_, err := p.sink.RecordCompletion(ctx, step)
		return err
	})
}

func (p *Player) persistPositionLocked() {
	pos := content.RoutinePosition{
		RoutineID: p.routine.ID,
		Position:  p.index,
		Progress:  progress.ComputeRoutineProgress(p.routine, p.completed).Percentage,
		UpdatedAt: p.clock.Now(),
	}
	p.enqueueLocked("update_position", func(ctx context.Context) error {
		return p.sink.UpdatePosition(ctx, pos)
	})
}

// enqueueLocked starts a write that runs after every earlier one.
func (p *Player) enqueueLocked(op string, write func(ctx context.Context) error) {
	prev := p.lastDone
	done := make(chan struct{})
	p.lastDone = done
	routineID := p.routine.ID

	go func() {
		defer close(done)
		if prev != nil {
			<-prev
		}
		if err := write(context.Background()); err != nil {
			p.logger.Warn("playback write failed",
				"op", op,
				"routine", routineID,
				"error", err,
			)
		}
	}()
}
