package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Aggregator owns the cached totals and daily log and writes both back to
// Storage after every mutation.
type Aggregator struct {
	mu      sync.Mutex
	storage Storage
	now     func() time.Time
	loc     *time.Location
	log     *slog.Logger

	totals Totals
	daily  []DailyStat
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithLocation sets the time zone that decides which calendar day an event
// belongs to (default time.Local).
func WithLocation(loc *time.Location) Option {
	return func(a *Aggregator) {
		if loc != nil {
			a.loc = loc
		}
	}
}

// WithLogger sets the logger used for storage warnings.
func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.log = l
		}
	}
}

// errUndecodable marks a stored record whose JSON cannot be parsed.
var errUndecodable = errors.New("undecodable record")

// New creates an Aggregator and loads the persisted records. Absent or
// undecodable records start from zero. A storage read failure is returned
// so that a later write cannot overwrite history that was never loaded.
func New(storage Storage, opts ...Option) (*Aggregator, error) {
	a := &Aggregator{
		storage: storage,
		now:     time.Now,
		loc:     time.Local,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.load(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Aggregator) load() error {
	var totals Totals
	switch err := a.loadJSON(TotalsKey, &totals); {
	case errors.Is(err, errUndecodable):
		a.log.Warn("analytics: totals unreadable, starting from zero", slog.String("error", err.Error()))
		totals = Totals{}
	case err != nil:
		return err
	}

	var daily []DailyStat
	switch err := a.loadJSON(DailyKey, &daily); {
	case errors.Is(err, errUndecodable):
		a.log.Warn("analytics: daily log unreadable, starting empty", slog.String("error", err.Error()))
		daily = nil
	case err != nil:
		return err
	}
	if n := len(daily); n > MaxDailyEntries {
		daily = append([]DailyStat(nil), daily[n-MaxDailyEntries:]...)
	}

	a.totals, a.daily = totals, daily
	return nil
}

func (a *Aggregator) loadJSON(key string, v any) error {
	raw, err := a.storage.Load(key)
	if err != nil {
		return fmt.Errorf("analytics: read %s: %w", key, err)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w: %w", key, errUndecodable, err)
	}
	return nil
}

func (a *Aggregator) saveJSON(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := a.storage.Save(key, b); err != nil {
		a.log.Warn("analytics: write failed, update kept in memory",
			slog.String("key", key), slog.String("error", err.Error()))
		return err
	}
	return nil
}

// RecordVisit counts a page visit and stamps the last-visit time.
func (a *Aggregator) RecordVisit() error { return a.Record(KindVisit) }

// RecordGenerated counts a generated code.
func (a *Aggregator) RecordGenerated() error { return a.Record(KindGenerated) }

// RecordScanned counts a scanned code.
func (a *Aggregator) RecordScanned() error { return a.Record(KindScanned) }

// Record increments the totals counter for k, persists the totals, then
// bumps today's daily entry. The returned error reports failed writes only;
// the cached state is updated regardless.
func (a *Aggregator) Record(k Kind) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch k {
	case KindVisit:
		a.totals.TotalVisits++
		a.totals.LastVisit = a.now().UTC()
	case KindGenerated:
		a.totals.QRCodesGenerated++
	case KindScanned:
		a.totals.QRCodesScanned++
	default:
		return fmt.Errorf("analytics: unknown kind %q", k)
	}
	totalsErr := a.saveJSON(TotalsKey, a.totals)
	dailyErr := a.bumpDaily(k)
	return errors.Join(totalsErr, dailyErr)
}

// bumpDaily must be called with a.mu held.
func (a *Aggregator) bumpDaily(k Kind) error {
	today := a.now().In(a.loc).Format(dateLayout)

	found := false
	for i := range a.daily {
		if a.daily[i].Date == today {
			a.daily[i].bump(k)
			found = true
			break
		}
	}
	if !found {
		entry := DailyStat{Date: today}
		entry.bump(k)
		a.daily = append(a.daily, entry)
	}
	if n := len(a.daily); n > MaxDailyEntries {
		a.daily = append([]DailyStat(nil), a.daily[n-MaxDailyEntries:]...)
	}
	return a.saveJSON(DailyKey, a.daily)
}

// Totals returns a copy of the lifetime counters.
func (a *Aggregator) Totals() Totals {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.totals
}

// Daily returns a copy of the daily log, oldest first.
func (a *Aggregator) Daily() []DailyStat {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]DailyStat{}, a.daily...)
}

// Summary derives the reporting statistics from the current state.
func (a *Aggregator) Summary() Summary {
	a.mu.Lock()
	defer a.mu.Unlock()
	return ComputeSummary(a.totals, a.daily)
}

// Location returns the time zone that decides the day key.
func (a *Aggregator) Location() *time.Location { return a.loc }

// Reset removes both persisted records. Later reads behave as first use.
func (a *Aggregator) Reset() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totals = Totals{}
	a.daily = nil
	return errors.Join(
		a.storage.Delete(TotalsKey),
		a.storage.Delete(DailyKey),
	)
}

// Run records every Kind received on events until ctx is done or events
// is closed. Write failures are logged and do not stop the loop.
func (a *Aggregator) Run(ctx context.Context, events <-chan Kind) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case k, ok := <-events:
			if !ok {
				return nil
			}
			if err := a.Record(k); err != nil {
				a.log.Error("analytics: record event", slog.String("kind", string(k)), slog.String("error", err.Error()))
			}
		}
	}
}
