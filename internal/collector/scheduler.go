package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/itsearth/pulse/internal/dedup"
	"github.com/itsearth/pulse/internal/signal"
	"github.com/itsearth/pulse/internal/store"
)

// Defaults for the scheduling knobs. All are overridable via Config.
const (
	DefaultInterval     = 30 * time.Minute
	DefaultPacingDelay  = 2 * time.Second
	DefaultRetryDelay   = 5 * time.Second
	DefaultMaxRetries   = 3
	DefaultFetchTimeout = 15 * time.Second
)

// Config configures a Scheduler.
type Config struct {
	// Interval is the duration between collection cycles.
	Interval time.Duration
	// PacingDelay is the pause between consecutive locations within a
	// cycle. Locations are processed sequentially on purpose: avoiding
	// source rate limits takes priority over cycle wall-clock time.
	PacingDelay time.Duration
	// RetryDelay is the pause before retrying a failed cycle.
	RetryDelay time.Duration
	// MaxRetries bounds cycle-level retries. After exhaustion the cycle
	// is abandoned until the next scheduled tick.
	MaxRetries int
	// FetchTimeout bounds each individual source fetch so a hung adapter
	// cannot stall the cycle past its interval.
	FetchTimeout time.Duration
	// Logger for scheduler activity.
	Logger *slog.Logger
	// Metrics for cycle and source instrumentation.
	Metrics *Metrics
	// Insights, when set, derives and persists monetization insights
	// after each successful cycle. Collection is the only writer of
	// insight rows; dashboard reads never generate them.
	Insights InsightGenerator
	// Clock abstracts time for tests. Defaults to the wall clock.
	Clock Clock
}

// InsightGenerator turns freshly collected history into persisted
// monetization insights.
type InsightGenerator interface {
	GenerateInsights(ctx context.Context) (int, error)
}

// Scheduler drives periodic collection cycles over a fixed, ordered
// location list. Within a cycle locations are processed sequentially in
// supply order; individual source failures are isolated per location and
// never abort the cycle.
type Scheduler struct {
	cfg       Config
	locations []signal.Location
	sources   signal.Sources
	gate      dedup.Gate
	store     store.Store

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewScheduler creates a Scheduler. Zero config fields take defaults.
func NewScheduler(cfg Config, locations []signal.Location, sources signal.Sources, gate dedup.Gate, st store.Store) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.PacingDelay <= 0 {
		cfg.PacingDelay = DefaultPacingDelay
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = NewClock()
	}

	return &Scheduler{
		cfg:       cfg,
		locations: locations,
		sources:   sources,
		gate:      gate,
		store:     st,
	}
}

// Start begins periodic collection. It is a no-op if the scheduler is
// already running. The first cycle runs immediately; subsequent cycles run
// every Interval.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	go s.run(ctx, stopCh, doneCh)
	return nil
}

// Stop prevents future cycles from starting and waits for the loop to
// exit. A cycle already in flight runs to completion; Stop does not
// cancel it. Concurrent Stop calls are safe: only the first closes the
// stop channel and waits, later callers return immediately.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stopCh := s.stopCh
	doneCh := s.doneCh
	s.mu.Unlock()

	close(stopCh)
	<-doneCh
}

// IsRunning returns whether the scheduler is currently running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// run is the main scheduler loop. The channels are passed in rather than
// read from the struct so a Stop/Start pair cannot hand this loop a
// later generation's channels.
func (s *Scheduler) run(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	s.cfg.Logger.Info("collection scheduler started",
		slog.Duration("interval", s.cfg.Interval),
		slog.Int("locations", len(s.locations)))

	// Initial cycle runs immediately.
	s.RunCycleWithRetry(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.cfg.Logger.Info("collection scheduler stopping due to context cancellation")
			return
		case <-stopCh:
			s.cfg.Logger.Info("collection scheduler stopping")
			return
		case <-ticker.C:
			s.RunCycleWithRetry(ctx)
		}
	}
}

// RunCycleWithRetry executes one collection cycle with bounded retries.
// The retry counter always ends at zero: it resets on success and after
// abandonment, so a bad cycle never poisons the next scheduled tick.
func (s *Scheduler) RunCycleWithRetry(ctx context.Context) {
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		start := s.cfg.Clock.Now()
		err := s.collectCycle(ctx)
		elapsed := s.cfg.Clock.Now().Sub(start)

		if s.cfg.Metrics != nil {
			s.cfg.Metrics.ObserveCycleDuration(elapsed.Seconds())
		}

		if err == nil {
			if s.cfg.Metrics != nil {
				s.cfg.Metrics.IncCyclesTotal(StatusSuccess)
			}
			s.cfg.Logger.Info("collection cycle completed",
				slog.Duration("duration", elapsed),
				slog.Int("attempt", attempt))
			s.finishCycle(ctx)
			return
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			s.cfg.Logger.Info("collection cycle interrupted", slog.String("error", err.Error()))
			return
		}

		if s.cfg.Metrics != nil {
			s.cfg.Metrics.IncCyclesTotal(StatusFailure)
		}
		s.cfg.Logger.Error("collection cycle failed",
			slog.String("error", err.Error()),
			slog.Int("attempt", attempt),
			slog.Int("max_retries", s.cfg.MaxRetries))

		if attempt == s.cfg.MaxRetries {
			break
		}
		if err := s.cfg.Clock.Sleep(ctx, s.cfg.RetryDelay); err != nil {
			return
		}
	}

	if s.cfg.Metrics != nil {
		s.cfg.Metrics.IncCyclesTotal(StatusAbandoned)
	}
	s.cfg.Logger.Error("collection cycle abandoned until next scheduled interval",
		slog.Int("retries", s.cfg.MaxRetries))
}

// finishCycle runs the post-cycle aggregation step over the fresh history
// and reports cumulative bucket write statistics.
func (s *Scheduler) finishCycle(ctx context.Context) {
	if s.cfg.Insights != nil {
		n, err := s.cfg.Insights.GenerateInsights(ctx)
		if err != nil {
			s.cfg.Logger.Warn("insight generation failed", slog.String("error", err.Error()))
		} else if n > 0 {
			s.cfg.Logger.Info("monetization insights persisted", slog.Int("count", n))
		}
	}
	s.store.BucketStats().LogSummary(s.cfg.Logger)
}

// collectCycle performs one full pass over the monitored locations. Only a
// genuinely unexpected failure escaping the per-location loop (a panic, or
// context cancellation) fails the cycle; per-source and per-write failures
// are absorbed inside collectLocation.
func (s *Scheduler) collectCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("collection cycle panic: %v", r)
		}
	}()

	for i, loc := range s.locations {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		s.collectLocation(ctx, loc)

		// Pace between locations, not after the last one.
		if i < len(s.locations)-1 {
			if err := s.cfg.Clock.Sleep(ctx, s.cfg.PacingDelay); err != nil {
				return err
			}
		}
	}
	return nil
}

// collectLocation fetches, normalizes, and persists the three source
// signals for one location. Each source is isolated: a fetch failure is
// logged and that source's contribution is omitted for this cycle.
func (s *Scheduler) collectLocation(ctx context.Context, loc signal.Location) {
	now := s.cfg.Clock.Now()

	var social, news *signal.SocialEngagement

	if raw, err := s.fetchSocial(ctx, loc); err != nil {
		s.logSourceFailure(loc, SourceSocial, err)
	} else {
		social = signal.NormalizeSocial(loc, raw, now)
		s.persistSocial(ctx, social)
	}

	if raw, err := s.fetchNetwork(ctx, loc); err != nil {
		s.logSourceFailure(loc, SourceNetwork, err)
	} else {
		rec := signal.NormalizeNetwork(loc, raw, now)
		s.persistNetwork(ctx, rec)
	}

	if raw, err := s.fetchNews(ctx, loc); err != nil {
		s.logSourceFailure(loc, SourceNews, err)
	} else {
		news = signal.NormalizeNews(loc, raw, now)
		s.persistSocial(ctx, news)
	}

	s.recordActivity(ctx, loc, social, news, now)
}

// fetchSocial runs the social fetch under the per-fetch deadline.
func (s *Scheduler) fetchSocial(ctx context.Context, loc signal.Location) (*signal.RawSocial, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()
	return s.sources.Social.FetchSocial(ctx, loc)
}

func (s *Scheduler) fetchNetwork(ctx context.Context, loc signal.Location) (*signal.RawNetwork, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()
	return s.sources.Network.FetchNetwork(ctx, loc)
}

func (s *Scheduler) fetchNews(ctx context.Context, loc signal.Location) (*signal.RawNews, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()
	return s.sources.News.FetchNews(ctx, loc)
}

func (s *Scheduler) logSourceFailure(loc signal.Location, source string, err error) {
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.IncSourceFailures(source)
	}
	s.cfg.Logger.Warn("source fetch failed, omitting contribution for this cycle",
		slog.String("location", loc.Name),
		slog.String("source", source),
		slog.String("error", err.Error()))
}

func (s *Scheduler) persistSocial(ctx context.Context, rec *signal.SocialEngagement) {
	err := s.store.InsertSocial(ctx, rec)
	s.countPersist(store.TableSocial, rec.LocationName, err)
}

func (s *Scheduler) persistNetwork(ctx context.Context, rec *signal.NetworkPerformance) {
	err := s.store.InsertNetwork(ctx, rec)
	s.countPersist(store.TableNetwork, rec.LocationName, err)
}

// countPersist classifies a persistence outcome. An unavailable store is a
// skip (already warned by the gateway); anything else is an error worth an
// error-level log, but neither aborts the cycle.
func (s *Scheduler) countPersist(table, location string, err error) {
	status := PersistOK
	switch {
	case err == nil:
	case errors.Is(err, store.ErrUnavailable):
		status = PersistSkipped
	default:
		status = PersistError
		s.cfg.Logger.Error("record persistence failed",
			slog.String("table", table),
			slog.String("location", location),
			slog.String("error", err.Error()))
	}
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.IncRecordsPersisted(table, status)
	}
}

// recordActivity updates the location's hourly heatmap bucket behind the
// dedup gate. With no successful source this cycle there is nothing to
// record.
func (s *Scheduler) recordActivity(ctx context.Context, loc signal.Location, social, news *signal.SocialEngagement, now time.Time) {
	if social == nil && news == nil {
		return
	}

	var interactions, uniqueUsers int64
	if social != nil {
		interactions += social.PostCount + social.LikeCount + social.RetweetCount + social.ReplyCount
		uniqueUsers += social.UniqueUsers
	}
	if news != nil {
		interactions += news.PostCount
	}

	date, hour := signal.BucketKeyFor(now)

	decision, err := s.gate.ShouldWrite(ctx, loc.Name, date, hour)
	if err != nil {
		if s.cfg.Metrics != nil {
			s.cfg.Metrics.IncDedupErrors()
		}
		// Fail open: a broken dedup gate must not drop activity data.
		decision.Allow = true
	}
	if !decision.Allow {
		if s.cfg.Metrics != nil {
			s.cfg.Metrics.IncWritesSuppressed()
		}
		s.cfg.Logger.Debug("activity write coalesced within cooldown window",
			slog.String("location", loc.Name),
			slog.String("date", date),
			slog.Int("hour", hour),
			slog.Int64("coalesced_count", decision.Count))
		return
	}

	bucket := signal.ActivityBucket{
		LocationName:      loc.Name,
		ActivityDate:      date,
		Hour:              hour,
		TotalInteractions: interactions,
		UniqueUsers:       uniqueUsers,
		// Currently-active users are not directly observable from batch
		// signals; estimated as a fixed fraction of unique users.
		ActiveUsers: uniqueUsers * 3 / 10,
	}
	err = s.store.RecordActivity(ctx, bucket)
	s.countPersist(store.TableActivity, loc.Name, err)
}
