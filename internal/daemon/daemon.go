package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/marcin-skalski/mondrian/internal/status"
)

var (
	// ErrFaulted wraps the error that ended a Run.
	ErrFaulted = errors.New("monitor faulted")

	errStopRequested = errors.New("stop requested")
)

const (
	DefaultPollInterval  = 120 * time.Second
	DefaultCheckInterval = 200 * time.Millisecond
	DefaultNightSleep    = 4 * time.Hour
)

// Nudger signals host activity around each poll.
type Nudger interface {
	Pre(ctx context.Context) error
	Post(ctx context.Context) error
}

// Clock abstracts time so waits can be driven by tests.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time        { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// WorkingHours is the local-time window [Start, End) in which polling happens
// when throttling is on. Start > End wraps past midnight; Start == End is
// always on.
type WorkingHours struct {
	Start int
	End   int
}

func (h WorkingHours) Contains(t time.Time) bool {
	hour := t.Hour()
	switch {
	case h.Start == h.End:
		return true
	case h.Start < h.End:
		return hour >= h.Start && hour < h.End
	default:
		return hour >= h.Start || hour < h.End
	}
}

type Options struct {
	PollInterval  time.Duration
	CheckInterval time.Duration
	Throttle      bool
	Hours         WorkingHours
	NightSleep    time.Duration
	Clock         Clock
}

func (o *Options) setDefaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.CheckInterval <= 0 {
		o.CheckInterval = DefaultCheckInterval
	}
	if o.NightSleep <= 0 {
		o.NightSleep = DefaultNightSleep
	}
	if o.Clock == nil {
		o.Clock = realClock{}
	}
}

type Daemon struct {
	agg        *Aggregator
	categories []JobCategory
	sink       Sink
	nudger     Nudger
	opts       Options
	logger     *slog.Logger

	stopRequested atomic.Bool
	lifecycle     *lifecycle
}

func New(agg *Aggregator, categories []JobCategory, sink Sink, nudger Nudger, opts Options, logger *slog.Logger) (*Daemon, error) {
	lc, err := newLifecycle()
	if err != nil {
		return nil, err
	}
	opts.setDefaults()

	return &Daemon{
		agg:        agg,
		categories: append([]JobCategory(nil), categories...),
		sink:       sink,
		nudger:     nudger,
		opts:       opts,
		logger:     logger,
		lifecycle:  lc,
	}, nil
}

// State reports the lifecycle state; safe from any goroutine.
func (d *Daemon) State() State {
	return d.lifecycle.state()
}

// Stop asks Run to return. It is observed at the next checkpoint, at most one
// check interval later unless a fetch is in flight. A Stop before Run makes
// that Run return without polling.
func (d *Daemon) Stop() {
	d.stopRequested.Store(true)
}

func (d *Daemon) active(ctx context.Context) bool {
	return !d.stopRequested.Load() && ctx.Err() == nil
}

// Run polls until Stop is called, ctx is cancelled, or a cycle fails. A failed
// cycle publishes a shutdown and leaves the daemon Faulted for good.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.lifecycle.fire(eventStart); err != nil {
		return fmt.Errorf("start monitor: %w", err)
	}

	d.logger.Info("monitor started",
		"poll_interval", d.opts.PollInterval,
		"categories", len(d.categories)+2,
		"throttle", d.opts.Throttle)

	for d.active(ctx) {
		if d.opts.Throttle && !d.opts.Hours.Contains(d.opts.Clock.Now()) {
			d.logger.Info("outside working hours, sleeping",
				"start_hour", d.opts.Hours.Start,
				"end_hour", d.opts.Hours.End,
				"sleep", d.opts.NightSleep)
			d.wait(ctx, d.opts.NightSleep)
			continue
		}

		err := d.guardedCycle(ctx)
		if errors.Is(err, errStopRequested) {
			break
		}
		if err != nil {
			if !d.active(ctx) {
				// a stop or cancellation surfaced as a fetch error
				d.logger.Debug("cycle interrupted by stop", "err", err)
				break
			}
			return d.fault(err)
		}

		d.wait(ctx, d.opts.PollInterval)
	}

	// the request is consumed by the Run it ended
	d.stopRequested.Store(false)
	if err := d.lifecycle.fire(eventStop); err != nil {
		return err
	}
	d.logger.Info("monitor stopped")
	return nil
}

func (d *Daemon) fault(err error) error {
	d.logger.Error("poll cycle failed, shutting down", "err", err)
	d.sink.PublishShutdown()
	if ferr := d.lifecycle.fire(eventFault); ferr != nil {
		d.logger.Error("lifecycle", "err", ferr)
	}
	return fmt.Errorf("%w: %w", ErrFaulted, err)
}

// guardedCycle turns a panic anywhere in the cycle into an error.
func (d *Daemon) guardedCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during poll: %v", r)
		}
	}()
	return d.cycle(ctx)
}

func (d *Daemon) cycle(ctx context.Context) error {
	start := d.opts.Clock.Now()
	logger := d.logger.With("cycle", uuid.NewString())

	if err := d.nudger.Pre(ctx); err != nil {
		return fmt.Errorf("nudge: %w", err)
	}

	err := d.publishAll(ctx, logger)
	if err != nil && d.active(ctx) {
		return err
	}

	// the pointer goes home even when a stop cut the cycle short
	if perr := d.nudger.Post(context.WithoutCancel(ctx)); perr != nil {
		return fmt.Errorf("nudge: %w", perr)
	}
	if err != nil {
		logger.Info("poll cycle cut short by stop")
		return err
	}

	logger.Info("poll cycle complete", "duration", d.opts.Clock.Now().Sub(start).Round(time.Millisecond))
	return nil
}

func (d *Daemon) publishAll(ctx context.Context, logger *slog.Logger) error {
	for _, cat := range d.categories {
		level, err := d.agg.JobLevel(ctx, cat)
		if err != nil {
			return err
		}
		logger.Debug("publish", "category", cat.Name(), "level", level)
		d.sink.Publish(cat.Name(), level)

		if !d.active(ctx) {
			return errStopRequested
		}
	}

	counts, err := d.agg.ReviewCounts(ctx)
	if err != nil {
		return err
	}
	ready, reviewed := d.agg.ReviewLevels(counts)
	logger.Debug("publish review",
		"ready_for_review", counts.Ready,
		"ready_level", ready,
		"reviewed", counts.Reviewed,
		"reviewed_level", reviewed)
	d.sink.Publish(status.CategoryReadyForReview, ready)
	d.sink.Publish(status.CategoryReviewed, reviewed)
	return nil
}

// wait sleeps for total in CheckInterval steps and returns false if it was
// interrupted by a stop.
func (d *Daemon) wait(ctx context.Context, total time.Duration) bool {
	deadline := d.opts.Clock.Now().Add(total)
	for d.active(ctx) {
		remaining := deadline.Sub(d.opts.Clock.Now())
		if remaining <= 0 {
			return true
		}
		d.opts.Clock.Sleep(min(remaining, d.opts.CheckInterval))
	}
	return false
}
