package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classbridge/report-api/internal/models"
)

type mockMarkReader struct {
	mu       sync.Mutex
	marks    map[int64][]models.MarkRecord
	failFor  map[int64]bool
	inFlight int32
	peak     int32
	block    chan struct{}
}

func (m *mockMarkReader) ListByStudent(ctx context.Context, scope models.Scope, studentID int64) ([]models.MarkRecord, error) {
	current := atomic.AddInt32(&m.inFlight, 1)
	defer atomic.AddInt32(&m.inFlight, -1)
	for {
		peak := atomic.LoadInt32(&m.peak)
		if current <= peak || atomic.CompareAndSwapInt32(&m.peak, peak, current) {
			break
		}
	}
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[studentID] {
		return nil, errors.New("mark source unavailable")
	}
	return m.marks[studentID], nil
}

func testScope() models.Scope {
	return models.Scope{SchoolID: "sch-1", YearID: "year-1", TermID: "term-1", ClassID: "class-1"}
}

func testRoster(n int) []models.Student {
	roster := make([]models.Student, 0, n)
	for i := 1; i <= n; i++ {
		roster = append(roster, models.Student{ID: int64(i), SchoolID: "sch-1", ClassID: "class-1"})
	}
	return roster
}

func TestScoreServiceAverageRounding(t *testing.T) {
	reader := &mockMarkReader{marks: map[int64][]models.MarkRecord{
		1: {{Total: 70}, {Total: 80}, {Total: 50}},
	}}
	svc := NewScoreService(reader, 1, nil)

	aggregates, err := svc.Aggregate(context.Background(), testScope(), testRoster(1), nil)
	require.NoError(t, err)
	require.Len(t, aggregates, 1)
	// (70+80+50)/3 = 66.666… rounds to two decimals.
	assert.Equal(t, 66.67, aggregates[0].Average)
	assert.Equal(t, 3, aggregates[0].Subjects)
}

func TestScoreServiceNoRecordsAveragesZero(t *testing.T) {
	reader := &mockMarkReader{marks: map[int64][]models.MarkRecord{}}
	svc := NewScoreService(reader, 1, nil)

	aggregates, err := svc.Aggregate(context.Background(), testScope(), testRoster(1), nil)
	require.NoError(t, err)
	require.Len(t, aggregates, 1)
	assert.Equal(t, 0.0, aggregates[0].Average)
	assert.Equal(t, 0, aggregates[0].Subjects)
	assert.False(t, aggregates[0].Failed)
}

func TestScoreServiceToleratesPartialFailures(t *testing.T) {
	reader := &mockMarkReader{
		marks: map[int64][]models.MarkRecord{
			1: {{Total: 80}},
			3: {{Total: 60}},
		},
		failFor: map[int64]bool{2: true},
	}
	svc := NewScoreService(reader, 2, nil)

	aggregates, err := svc.Aggregate(context.Background(), testScope(), testRoster(3), nil)
	require.NoError(t, err)
	require.Len(t, aggregates, 3)
	assert.False(t, aggregates[0].Failed)
	assert.True(t, aggregates[1].Failed)
	assert.Equal(t, 0.0, aggregates[1].Average)
	assert.Equal(t, 60.0, aggregates[2].Average)
}

func TestScoreServiceBoundsConcurrency(t *testing.T) {
	reader := &mockMarkReader{
		marks: map[int64][]models.MarkRecord{},
		block: make(chan struct{}),
	}
	svc := NewScoreService(reader, 3, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := svc.Aggregate(context.Background(), testScope(), testRoster(12), nil)
		assert.NoError(t, err)
	}()
	close(reader.block)
	<-done
	assert.LessOrEqual(t, atomic.LoadInt32(&reader.peak), int32(3))
}

func TestScoreServiceReportsProgress(t *testing.T) {
	reader := &mockMarkReader{marks: map[int64][]models.MarkRecord{}}
	svc := NewScoreService(reader, 2, nil)

	var mu sync.Mutex
	var calls []int
	progress := func(done, total int) {
		mu.Lock()
		calls = append(calls, done)
		assert.Equal(t, 5, total)
		mu.Unlock()
	}

	_, err := svc.Aggregate(context.Background(), testScope(), testRoster(5), progress)
	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, calls, 5)
	assert.Equal(t, 5, calls[len(calls)-1])
}

func TestScoreServiceStopsOnCancel(t *testing.T) {
	reader := &mockMarkReader{
		marks: map[int64][]models.MarkRecord{},
		block: make(chan struct{}),
	}
	svc := NewScoreService(reader, 2, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Aggregate(ctx, testScope(), testRoster(4), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
