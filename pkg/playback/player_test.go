package playback

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap/zaptest"
	"go.viam.com/test"

	"github.com/gwillem/dxlmotion/pkg/bus"
	"github.com/gwillem/dxlmotion/pkg/motion"
	"github.com/gwillem/dxlmotion/pkg/robot"
)

func fakeRobot(t *testing.T) (*robot.Robot, *bus.FakeDriver) {
	t.Helper()
	cfg := &robot.Config{Driver: robot.DriverFake, SyncHz: 200, Motors: robot.Calibration{
		"pan":  {ID: 1},
		"tilt": {ID: 2},
	}}
	d := bus.NewFakeDriver()
	test.That(t, d.AddMotor(1, 12), test.ShouldBeNil)
	test.That(t, d.AddMotor(2, 12), test.ShouldBeNil)
	d.Move(2, 10)

	r, err := robot.OpenWithDriver(context.Background(), d, cfg, zaptest.NewLogger(t).Sugar())
	test.That(t, err, test.ShouldBeNil)
	t.Cleanup(func() { r.Close() })
	return r, d
}

func lastState(t *testing.T, p *Player) State {
	t.Helper()
	select {
	case s := <-p.States():
		return s
	case <-time.After(time.Second):
		t.Fatal("no state received")
		return State{}
	}
}

func TestNew(t *testing.T) {
	r, _ := fakeRobot(t)

	_, err := New(r, Config{})
	test.That(t, errors.Is(err, motion.ErrNoTrajectory), test.ShouldBeTrue)

	_, err = New(r, Config{Trajectory: Ramp(1, time.Second), Motors: []robot.MotorName{"elbow"}})
	test.That(t, err, test.ShouldNotBeNil)

	p, err := New(r, Config{Trajectory: Ramp(1, time.Second)})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Hz(), test.ShouldEqual, 30)
	test.That(t, p.cfg.Motors, test.ShouldResemble, []robot.MotorName{"pan", "tilt"})
}

func TestPlayer_MoveTo(t *testing.T) {
	r, d := fakeRobot(t)
	p, err := New(r, Config{
		ControllerHz: 100,
		Trajectory:   MoveTo(map[robot.MotorName]float64{"pan": 40, "tilt": -20}, 100*time.Millisecond),
		Hold:         true,
		Logger:       zaptest.NewLogger(t).Sugar(),
	})
	test.That(t, err, test.ShouldBeNil)

	test.That(t, p.Start(context.Background()), test.ShouldBeNil)
	test.That(t, p.Running(), test.ShouldBeFalse)

	pan, _ := d.Servo(1)
	test.That(t, pan.Compliant, test.ShouldBeFalse)
	test.That(t, pan.Position, test.ShouldEqual, 40.0)
	tilt, _ := d.Servo(2)
	test.That(t, tilt.Position, test.ShouldEqual, -20.0)

	final := lastState(t, p)
	test.That(t, final.Done, test.ShouldBeTrue)
	test.That(t, final.Error, test.ShouldBeNil)
	test.That(t, final.Goals["pan"], test.ShouldEqual, 40.0)
	test.That(t, final.Elapsed, test.ShouldBeGreaterThanOrEqualTo, 100*time.Millisecond)
}

func TestPlayer_ReleasesMotors(t *testing.T) {
	r, d := fakeRobot(t)
	p, err := New(r, Config{
		ControllerHz: 100,
		Motors:       []robot.MotorName{"tilt"},
		Trajectory:   Ramp(5, 30*time.Millisecond),
	})
	test.That(t, err, test.ShouldBeNil)

	test.That(t, p.Start(context.Background()), test.ShouldBeNil)

	tilt, _ := d.Servo(2)
	test.That(t, tilt.Compliant, test.ShouldBeTrue)
	test.That(t, tilt.Goal, test.ShouldEqual, 15.0)
}

func TestPlayer_AlreadyRunningAndStop(t *testing.T) {
	r, _ := fakeRobot(t)
	p, err := New(r, Config{
		ControllerHz: 50,
		Trajectory:   Sweep(10, time.Second, 0),
	})
	test.That(t, err, test.ShouldBeNil)

	done := make(chan error, 1)
	go func() { done <- p.Start(context.Background()) }()

	for i := 0; i < 100 && !p.Running(); i++ {
		time.Sleep(5 * time.Millisecond)
	}
	test.That(t, p.Running(), test.ShouldBeTrue)

	err = p.Start(context.Background())
	test.That(t, errors.Is(err, ErrAlreadyRunning), test.ShouldBeTrue)

	p.Suspend()
	time.Sleep(60 * time.Millisecond)
	s := lastState(t, p)
	test.That(t, s.Suspended, test.ShouldBeTrue)
	p.Resume()

	p.Stop()
	select {
	case err := <-done:
		test.That(t, err, test.ShouldBeNil)
	case <-time.After(2 * time.Second):
		t.Fatal("playback did not stop")
	}
}

func TestPlayer_ContextCancel(t *testing.T) {
	r, _ := fakeRobot(t)
	p, err := New(r, Config{Trajectory: Sweep(10, time.Second, 0)})
	test.That(t, err, test.ShouldBeNil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	test.That(t, p.Start(ctx), test.ShouldBeNil)
}

type brokenTrajectory struct{}

func (brokenTrajectory) Value(time.Duration) (motion.Value, error) {
	return motion.NoChange, errors.New("no data")
}

func (brokenTrajectory) Finished(time.Duration) bool { return false }

func TestPlayer_TrajectoryFailure(t *testing.T) {
	r, _ := fakeRobot(t)
	p, err := New(r, Config{
		Trajectory: func(name robot.MotorName, start float64) motion.Trajectory[motion.Value] {
			if name == "tilt" {
				return brokenTrajectory{}
			}
			return motion.Sine{Amplitude: 5, Period: time.Second, Offset: start}
		},
	})
	test.That(t, err, test.ShouldBeNil)

	err = p.Start(context.Background())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "tilt")
	test.That(t, err.Error(), test.ShouldContainSubstring, "no data")

	final := lastState(t, p)
	test.That(t, final.Done, test.ShouldBeTrue)
	test.That(t, final.Error, test.ShouldEqual, err)
}

func TestPlayer_NothingToPlay(t *testing.T) {
	r, _ := fakeRobot(t)
	p, err := New(r, Config{Trajectory: MoveTo(nil, time.Second)})
	test.That(t, err, test.ShouldBeNil)

	err = p.Start(context.Background())
	test.That(t, errors.Is(err, motion.ErrNoTrajectory), test.ShouldBeTrue)
	test.That(t, p.Running(), test.ShouldBeFalse)
}

func TestRunTracks_StartFailureStopsStarted(t *testing.T) {
	r, _ := fakeRobot(t)
	p, err := New(r, Config{Trajectory: Ramp(1, time.Second)})
	test.That(t, err, test.ShouldBeNil)

	pan, _ := r.Motor("pan")
	endless, err := motion.NewPose(pan, motion.Sine{Amplitude: 5, Period: time.Second}, motion.Config{Hz: 50})
	test.That(t, err, test.ShouldBeNil)

	tilt, _ := r.Motor("tilt")
	stopped, err := motion.NewPose(tilt, motion.Constant{V: 0, Duration: time.Second}, motion.Config{Hz: 50})
	test.That(t, err, test.ShouldBeNil)
	stopped.Stop()

	done := make(chan error, 1)
	go func() {
		done <- p.runTracks(context.Background(), []track{
			{name: "pan", ctrl: endless},
			{name: "tilt", ctrl: stopped},
		})
	}()

	select {
	case err := <-done:
		test.That(t, errors.Is(err, motion.ErrStopped), test.ShouldBeTrue)
		test.That(t, err.Error(), test.ShouldContainSubstring, "tilt")
	case <-time.After(2 * time.Second):
		t.Fatal("runTracks did not return")
	}
	test.That(t, endless.State(), test.ShouldEqual, motion.StateStopped)
}
