// Package playback plays trajectories on the motors of a robot.
package playback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gwillem/dxlmotion/pkg/motion"
	"github.com/gwillem/dxlmotion/pkg/robot"
)

// ErrAlreadyRunning is returned by Start while a playback is in progress.
var ErrAlreadyRunning = errors.New("playback already running")

// State represents the current state of playback.
type State struct {
	Goals     map[robot.MotorName]float64
	Positions map[robot.MotorName]float64
	Elapsed   time.Duration
	Suspended bool
	Done      bool
	Timestamp time.Time
	Error     error
}

// Config holds configuration for the player.
type Config struct {
	Hz           int     // state updates per second
	ControllerHz float64 // trajectory samples per second
	Motors       []robot.MotorName
	Trajectory   TrajectoryFunc
	Hold         bool // keep torque on when playback ends
	Logger       *zap.SugaredLogger
}

type track struct {
	name robot.MotorName
	ctrl *motion.Controller[motion.Value]
}

// Player runs one motion controller per motor next to the robot's bus sync.
type Player struct {
	robot  *robot.Robot
	cfg    Config
	logger *zap.SugaredLogger

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	tracks  []track
	stateCh chan State
	logCh   chan string
}

// New creates a player for r.
func New(r *robot.Robot, cfg Config) (*Player, error) {
	if cfg.Trajectory == nil {
		return nil, motion.ErrNoTrajectory
	}
	if cfg.Hz <= 0 {
		cfg.Hz = 30
	}
	if len(cfg.Motors) == 0 {
		cfg.Motors = r.Names()
	}
	for _, name := range cfg.Motors {
		if _, ok := r.Motor(name); !ok {
			return nil, fmt.Errorf("unknown motor %q", name)
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}

	return &Player{
		robot:   r,
		cfg:     cfg,
		logger:  cfg.Logger,
		stateCh: make(chan State, 1),
		logCh:   make(chan string, 10),
	}, nil
}

// States returns a channel that receives state updates. Only the latest
// state is kept when the reader falls behind.
func (p *Player) States() <-chan State {
	return p.stateCh
}

// Logs returns a channel that receives log messages.
func (p *Player) Logs() <-chan string {
	return p.logCh
}

// Hz returns the state update frequency.
func (p *Player) Hz() int {
	return p.cfg.Hz
}

func (p *Player) log(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	p.logger.Info(msg)
	select {
	case p.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Start plays the trajectories and blocks until every controller finished,
// Stop was called or ctx is done. It returns the first controller failure.
func (p *Player) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return ErrAlreadyRunning
	}
	tracks, err := p.buildTracks()
	if err != nil {
		p.mu.Unlock()
		return err
	}
	p.running = true
	p.cancel = cancel
	p.tracks = tracks
	p.mu.Unlock()

	p.robot.SetCompliant(false)
	p.log("Playing %d motors, sampling at %.0f Hz", len(tracks), p.cfg.ControllerHz)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := p.robot.Run(gctx)
		if gctx.Err() != nil {
			return nil
		}
		return err
	})

	g.Go(func() error {
		err := p.runTracks(gctx, tracks)
		// Push the last samples out before the sync stops.
		if serr := p.robot.Sync().Step(context.Background()); serr != nil {
			p.log("Final write error: %v", serr)
		}
		cancel()
		return err
	})

	g.Go(func() error {
		p.report(gctx)
		return nil
	})

	err = g.Wait()
	p.shutdown(err)
	return err
}

func (p *Player) buildTracks() ([]track, error) {
	tracks := make([]track, 0, len(p.cfg.Motors))
	for _, name := range p.cfg.Motors {
		m, _ := p.robot.Motor(name)
		start, ok := m.CurrentPosition()
		if !ok {
			start, _ = m.GoalPosition()
		}
		tf := p.cfg.Trajectory(name, start)
		if tf == nil {
			continue
		}

		ctrl, err := motion.NewPose(m, tf, motion.Config{
			Hz:     p.cfg.ControllerHz,
			Logger: p.logger,
			Name:   string(name),
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		tracks = append(tracks, track{name: name, ctrl: ctrl})
	}
	if len(tracks) == 0 {
		return nil, motion.ErrNoTrajectory
	}
	return tracks, nil
}

// runTracks starts every controller and waits for all of them. A failing
// controller, or one that cannot start, stops the others.
func (p *Player) runTracks(ctx context.Context, tracks []track) error {
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range tracks {
		if err := t.ctrl.Start(); err != nil {
			for _, started := range tracks[:i] {
				started.ctrl.Stop()
			}
			_ = g.Wait()
			return fmt.Errorf("%s: %w", t.name, err)
		}
		g.Go(func() error {
			select {
			case <-t.ctrl.Done():
			case <-gctx.Done():
				t.ctrl.Stop()
			}
			if err := t.ctrl.Wait(); err != nil {
				return fmt.Errorf("%s: %w", t.name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (p *Player) report(ctx context.Context) {
	ticker := time.NewTicker(time.Second / time.Duration(p.cfg.Hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sendState(p.snapshot())
		}
	}
}

func (p *Player) snapshot() State {
	p.mu.RLock()
	tracks := p.tracks
	p.mu.RUnlock()

	s := State{
		Goals:     make(map[robot.MotorName]float64, len(tracks)),
		Positions: p.robot.Positions(),
		Timestamp: time.Now(),
	}
	for _, t := range tracks {
		if e := t.ctrl.Elapsed(); e > s.Elapsed {
			s.Elapsed = e
		}
		s.Suspended = s.Suspended || t.ctrl.Suspended()
		if m, ok := p.robot.Motor(t.name); ok {
			if goal, ok := m.GoalPosition(); ok {
				s.Goals[t.name] = goal
			}
		}
	}
	return s
}

func (p *Player) sendState(s State) {
	select {
	case p.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-p.stateCh:
		default:
		}
		select {
		case p.stateCh <- s:
		default:
		}
	}
}

// Suspend pauses every controller. Paused time does not count towards the
// trajectories.
func (p *Player) Suspend() {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, t := range p.tracks {
		t.ctrl.Suspend()
	}
	if p.running {
		p.log("Paused")
	}
}

// Resume continues suspended controllers.
func (p *Player) Resume() {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, t := range p.tracks {
		t.ctrl.Resume()
	}
	if p.running {
		p.log("Resumed")
	}
}

// Stop ends a running playback. Start returns once everything has stopped.
func (p *Player) Stop() {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.cancel != nil {
		p.cancel()
	}
}

// Running reports whether Start is in progress.
func (p *Player) Running() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

func (p *Player) shutdown(err error) {
	p.mu.Lock()
	p.running = false
	p.cancel = nil
	p.mu.Unlock()

	if !p.cfg.Hold {
		p.robot.SetCompliant(true)
		if serr := p.robot.Sync().Step(context.Background()); serr != nil {
			p.log("Warning: failed to release motors: %v", serr)
		} else {
			p.log("Motors released (torque disabled)")
		}
	}

	final := p.snapshot()
	final.Done = true
	final.Error = err
	p.sendState(final)

	if err != nil {
		p.log("Playback failed: %v", err)
		return
	}
	p.log("Playback finished")
}
