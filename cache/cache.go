package cache

import (
	"context"
	"sync"
	"time"

	"github.com/amansk/librelink-mcp-server/defs"
	"github.com/amansk/librelink-mcp-server/librelink"
)

// Source is a TTL read-through decorator over a reading source. Caching lives
// here, outside the analytics engine, so the engine stays pure.
type Source struct {
	src librelink.Source

	currentTTL time.Duration
	historyTTL time.Duration
	now        func() time.Time

	mu      sync.Mutex
	current *currentEntry
	history map[int]*historyEntry
	sensors *sensorEntry
}

type currentEntry struct {
	reading defs.Reading
	expires time.Time
}

type historyEntry struct {
	readings []defs.Reading
	expires  time.Time
}

type sensorEntry struct {
	sensors []defs.SensorInfo
	expires time.Time
}

func Wrap(src librelink.Source, currentTTL, historyTTL time.Duration) *Source {
	if currentTTL <= 0 {
		currentTTL = defs.DefaultCurrentTTL
	}
	if historyTTL <= 0 {
		historyTTL = defs.DefaultHistoryTTL
	}
	return &Source{
		src:        src,
		currentTTL: currentTTL,
		historyTTL: historyTTL,
		now:        time.Now,
		history:    make(map[int]*historyEntry),
	}
}

func (s *Source) FetchCurrent(ctx context.Context) (defs.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && s.now().Before(s.current.expires) {
		return s.current.reading, nil
	}

	r, err := s.src.FetchCurrent(ctx)
	if err != nil {
		return defs.Reading{}, err
	}
	s.current = &currentEntry{reading: r, expires: s.now().Add(s.currentTTL)}
	return r, nil
}

// FetchHistory caches per requested window size. Errors are never cached.
func (s *Source) FetchHistory(ctx context.Context, hoursBack int) ([]defs.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.history[hoursBack]; ok && s.now().Before(e.expires) {
		return e.readings, nil
	}

	trs, err := s.src.FetchHistory(ctx, hoursBack)
	if err != nil {
		return nil, err
	}
	s.history[hoursBack] = &historyEntry{readings: trs, expires: s.now().Add(s.historyTTL)}
	return trs, nil
}

func (s *Source) FetchSensorInfo(ctx context.Context) ([]defs.SensorInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sensors != nil && s.now().Before(s.sensors.expires) {
		return s.sensors.sensors, nil
	}

	sensors, err := s.src.FetchSensorInfo(ctx)
	if err != nil {
		return nil, err
	}
	s.sensors = &sensorEntry{sensors: sensors, expires: s.now().Add(s.historyTTL)}
	return sensors, nil
}

func (s *Source) ValidateConnection(ctx context.Context) error {
	return s.src.ValidateConnection(ctx)
}
