package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/example/geostreak/internal/calendar"
	"github.com/example/geostreak/internal/database"
	"github.com/example/geostreak/internal/referencedata"
	"github.com/example/geostreak/pkg/models"
)

func testCountry(id string, level int) models.Country {
	capital := models.NewAnswerableField(models.TextValue("Capital of "+id), level)
	return models.Country{
		ID:            id,
		Name:          models.NewAnswerableField(models.TextValue("Country "+id), level),
		Capital:       &capital,
		AssignedLevel: level,
	}
}

// testCatalog builds n countries per level, ids like L1C03
func testCatalog(perLevel map[int]int) *referencedata.Catalog {
	var countries []models.Country
	for level, n := range perLevel {
		for i := 0; i < n; i++ {
			countries = append(countries, testCountry(fmt.Sprintf("L%dC%02d", level, i), level))
		}
	}
	return referencedata.NewCatalog(countries)
}

// steppingClock is a clock whose time the test moves by hand
type steppingClock struct {
	mu  sync.Mutex
	now time.Time
}

func newSteppingClock(start time.Time) (*steppingClock, *calendar.Clock) {
	s := &steppingClock{now: start}
	return s, &calendar.Clock{Location: start.Location(), Now: s.Now}
}

func (s *steppingClock) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *steppingClock) Advance(d time.Duration) {
	s.mu.Lock()
	s.now = s.now.Add(d)
	s.mu.Unlock()
}

func (s *steppingClock) NextDay() { s.Advance(24 * time.Hour) }

type staticCatalog struct {
	catalog *referencedata.Catalog
	err     error
}

func (s staticCatalog) Catalog() (*referencedata.Catalog, error) {
	return s.catalog, s.err
}

type memoryStore struct {
	mu       sync.Mutex
	data     map[int64]*models.PlayerProgress
	saves    int
	failLoad bool
	failSave bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[int64]*models.PlayerProgress)}
}

var errBroken = errors.New("disk on fire")

func (s *memoryStore) Load(_ context.Context, playerID int64) (*models.PlayerProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failLoad {
		return nil, fmt.Errorf("%w: %v", database.ErrPersistence, errBroken)
	}
	p, ok := s.data[playerID]
	if !ok {
		return nil, database.ErrNotFound
	}
	return p.Clone(), nil
}

func (s *memoryStore) Save(_ context.Context, p *models.PlayerProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave {
		return fmt.Errorf("%w: %v", database.ErrPersistence, errBroken)
	}
	s.saves++
	s.data[p.PlayerID] = p.Clone()
	return nil
}

func (s *memoryStore) Delete(_ context.Context, playerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, playerID)
	return nil
}

func (s *memoryStore) get(playerID int64) *models.PlayerProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.data[playerID]; ok {
		return p.Clone()
	}
	return nil
}

type recordingReminders struct {
	mu        sync.Mutex
	grant     bool
	scheduled [][2]int
	cancelled int
	hours     []int
}

func (r *recordingReminders) RequestPermission(context.Context, int64) bool { return r.grant }

func (r *recordingReminders) ScheduleReminders(_ context.Context, _ int64, forDays, atHour int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scheduled = append(r.scheduled, [2]int{forDays, atHour})
	return nil
}

func (r *recordingReminders) CancelToday(context.Context, int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled++
	return nil
}

func (r *recordingReminders) UpdateHour(_ context.Context, _ int64, hour int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hours = append(r.hours, hour)
	return nil
}
