package history

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"currency-converter/internal/domain/model"
	"currency-converter/pkg/logger"

	"github.com/shopspring/decimal"
)

const DefaultRetention = 24 * time.Hour

type point struct {
	at   time.Time
	rate decimal.Decimal
}

// series is the time series of one pair, ascending by timestamp.
// Its own mutex guards points; the store lock only guards the index.
type series struct {
	mu     sync.Mutex
	points []point
}

func (s *series) insert(at time.Time, rate decimal.Decimal) {
	i := sort.Search(len(s.points), func(i int) bool {
		return !s.points[i].at.Before(at)
	})
	if i < len(s.points) && s.points[i].at.Equal(at) {
		s.points[i].rate = rate
		return
	}
	s.points = append(s.points, point{})
	copy(s.points[i+1:], s.points[i:])
	s.points[i] = point{at: at, rate: rate}
}

// prune drops points strictly older than cutoff and reports how many went.
func (s *series) prune(cutoff time.Time) int {
	i := sort.Search(len(s.points), func(i int) bool {
		return !s.points[i].at.Before(cutoff)
	})
	if i == 0 {
		return 0
	}
	s.points = append(s.points[:0], s.points[i:]...)
	return i
}

// MemoryStore keeps a bounded window of observed rates per currency pair.
// Entries older than the retention window are dropped whenever their pair
// is written or read.
type MemoryStore struct {
	mu        sync.RWMutex
	series    map[model.CurrencyPair]*series
	retention time.Duration
	now       func() time.Time
	log       *logger.Logger
}

type Option func(*MemoryStore)

// WithClock replaces time.Now as the reference for pruning.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		s.now = now
	}
}

func NewMemoryStore(retention time.Duration, log *logger.Logger, opts ...Option) *MemoryStore {
	if retention <= 0 {
		retention = DefaultRetention
	}
	s := &MemoryStore{
		series:    make(map[model.CurrencyPair]*series),
		retention: retention,
		now:       time.Now,
		log:       log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Record(ctx context.Context, pair model.CurrencyPair, at time.Time, rate decimal.Decimal) error {
	pair = model.NewCurrencyPair(pair.Base, pair.Quote)
	ser := s.getOrCreate(pair)

	ser.mu.Lock()
	ser.insert(at, rate)
	removed := ser.prune(s.cutoff())
	ser.mu.Unlock()

	if removed > 0 {
		s.log.Debug("Removed old history entries", "pair", pair.Key(), "count", removed)
	}
	s.log.Debug("Stored conversion rate", "pair", pair.Key(), "rate", rate.String(), "at", at)
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, base model.Currency) (*model.ExchangeRateHistory, error) {
	base = base.Normalize()
	cutoff := s.cutoff()

	rows := make(map[int64]*model.HistoryRow)
	for pair, ser := range s.snapshot(func(p model.CurrencyPair) bool { return p.Base == base }) {
		for _, p := range s.pruneAndCopy(pair, ser, cutoff) {
			key := p.at.UnixNano()
			row, ok := rows[key]
			if !ok {
				row = &model.HistoryRow{Timestamp: p.at, Rates: make(map[model.Currency]decimal.Decimal)}
				rows[key] = row
			}
			row.Rates[pair.Quote] = p.rate
		}
	}

	if len(rows) == 0 {
		s.log.Warn("No conversion history available", "base", base)
		return nil, fmt.Errorf("%w: no conversion history available for %s", model.ErrNotFound, base)
	}

	result := &model.ExchangeRateHistory{
		Base:      base,
		Timestamp: s.now(),
		Rates:     make([]model.HistoryRow, 0, len(rows)),
	}
	for _, row := range rows {
		result.Rates = append(result.Rates, *row)
	}
	sort.Slice(result.Rates, func(i, j int) bool {
		return result.Rates[i].Timestamp.Before(result.Rates[j].Timestamp)
	})

	s.log.Info("Retrieved conversion history", "base", base, "time_points", len(result.Rates))
	return result, nil
}

func (s *MemoryStore) Latest(ctx context.Context, pair model.CurrencyPair) (decimal.Decimal, time.Time, error) {
	pair = model.NewCurrencyPair(pair.Base, pair.Quote)

	s.mu.RLock()
	ser, ok := s.series[pair]
	s.mu.RUnlock()

	if ok {
		points := s.pruneAndCopy(pair, ser, s.cutoff())
		if n := len(points); n > 0 {
			return points[n-1].rate, points[n-1].at, nil
		}
	}

	return decimal.Zero, time.Time{}, fmt.Errorf("%w: no conversion history available for %s", model.ErrNotFound, pair.Key())
}

// Pairs lists every pair with at least one retained entry, sorted by key.
func (s *MemoryStore) Pairs(ctx context.Context) []model.CurrencyPair {
	cutoff := s.cutoff()

	pairs := make([]model.CurrencyPair, 0)
	for pair, ser := range s.snapshot(nil) {
		if len(s.pruneAndCopy(pair, ser, cutoff)) > 0 {
			pairs = append(pairs, pair)
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].Key() < pairs[j].Key()
	})
	return pairs
}

func (s *MemoryStore) Clear(ctx context.Context) {
	s.mu.Lock()
	s.series = make(map[model.CurrencyPair]*series)
	s.mu.Unlock()

	s.log.Info("Cleared all conversion history")
}

func (s *MemoryStore) cutoff() time.Time {
	return s.now().Add(-s.retention)
}

func (s *MemoryStore) getOrCreate(pair model.CurrencyPair) *series {
	s.mu.RLock()
	ser, ok := s.series[pair]
	s.mu.RUnlock()
	if ok {
		return ser
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ser, ok = s.series[pair]; !ok {
		ser = &series{}
		s.series[pair] = ser
	}
	return ser
}

// snapshot copies the index so per-pair work happens without the store lock.
func (s *MemoryStore) snapshot(match func(model.CurrencyPair) bool) map[model.CurrencyPair]*series {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[model.CurrencyPair]*series, len(s.series))
	for pair, ser := range s.series {
		if match == nil || match(pair) {
			out[pair] = ser
		}
	}
	return out
}

func (s *MemoryStore) pruneAndCopy(pair model.CurrencyPair, ser *series, cutoff time.Time) []point {
	ser.mu.Lock()
	removed := ser.prune(cutoff)
	points := make([]point, len(ser.points))
	copy(points, ser.points)
	ser.mu.Unlock()

	if removed > 0 {
		s.log.Debug("Removed old history entries", "pair", pair.Key(), "count", removed)
	}
	return points
}
