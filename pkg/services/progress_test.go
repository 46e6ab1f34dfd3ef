package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dukex/opsplan/pkg/events"
	"github.com/dukex/opsplan/pkg/mocks"
	"github.com/dukex/opsplan/pkg/models"
	"github.com/dukex/opsplan/pkg/persistence/sqldb"
	"github.com/dukex/opsplan/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Wednesday.
var progressNow = time.Date(2026, time.February, 4, 12, 0, 0, 0, time.UTC)

func seedCommandProject(t *testing.T, store *sqldb.Persistence, target, done, sprintTarget int) {
	t.Helper()

	ctx := context.Background()

	require.NoError(t, store.Progress().SaveCommandProject(ctx, &models.CommandProject{ID: "cp-1", ProjectID: "project-1", Name: "Order 42", Target: target, Done: done}))

	if sprintTarget >= 0 {
		require.NoError(t, store.Progress().SaveSprint(ctx, &models.Sprint{ID: "sprint-1", CommandProjectID: "cp-1", Target: sprintTarget}))
	}

	require.NoError(t, store.Progress().SavePlanning(ctx, &models.Planning{
		ID:               "planning-1",
		CommandProjectID: "cp-1",
		OperationID:      "op-1",
		StartAt:          progressNow.AddDate(0, 0, -30),
		EndAt:            progressNow.AddDate(0, 0, 30),
	}))
}

func newTestProgress(store *sqldb.Persistence) *Progress {
	p := NewProgress(store, nil, nil, testutil.Logger())
	p.now = func() time.Time { return progressNow }

	return p
}

func TestProgress_Report(t *testing.T) {
	store := testutil.OpenSQLite(t)
	seedCommandProject(t, store, 100, 65, 30)

	p := newTestProgress(store)
	ctx := t.Context()

	for _, at := range []time.Time{
		progressNow.Add(-2 * time.Hour),
		progressNow.AddDate(0, 0, -1).Add(-2 * time.Hour),
	} {
		require.NoError(t, store.Progress().RecordHistory(ctx, &models.OperationHistory{ID: at.String(), PlanningID: "planning-1", Count: 3, CreatedAt: at}))
	}

	monday := time.Date(2026, time.February, 2, 0, 0, 0, 0, time.UTC)

	report, err := p.Report(ctx, "cp-1", monday.AddDate(0, 0, -7), monday.AddDate(0, 0, 7))
	require.NoError(t, err)

	assert.Equal(t, "Order 42", report.Name)
	assert.InDelta(t, 65.0, report.Overall.Value, 0.001)
	assert.True(t, report.Overall.HasTarget)
	require.NotNil(t, report.Sprints)
	assert.Equal(t, 4, report.Sprints.Total)
	assert.Equal(t, 2, report.Sprints.Completed)
	assert.Equal(t, 6, report.Recorded)
	require.Len(t, report.Weekly, 2)
	assert.Equal(t, 0, report.Weekly[0].Count)
	assert.Equal(t, 6, report.Weekly[1].Count)
	assert.Len(t, report.Daily, 14)
	assert.Equal(t, 6, report.HourOfDay[10])
}

func TestProgress_Report_NoTargetNoSprint(t *testing.T) {
	store := testutil.OpenSQLite(t)
	seedCommandProject(t, store, 0, 12, -1)

	report, err := newTestProgress(store).Report(t.Context(), "cp-1", time.Time{}, time.Time{})
	require.NoError(t, err)

	assert.False(t, report.Overall.HasTarget)
	assert.Zero(t, report.Overall.Value)
	assert.Nil(t, report.Sprints)
	assert.Equal(t, progressNow, report.To)
	assert.Equal(t, progressNow.Add(-DefaultReportWindow), report.From)
}

func TestProgress_Report_Errors(t *testing.T) {
	store := testutil.OpenSQLite(t)
	seedCommandProject(t, store, 100, 10, 0)

	p := newTestProgress(store)

	_, err := p.Report(t.Context(), "cp-1", progressNow.AddDate(0, 0, -7), progressNow)
	require.Error(t, err)
	assert.True(t, IsValidationError(err), "a zero sprint target fails fast")

	_, err = p.Report(t.Context(), "cp-1", progressNow, progressNow.AddDate(0, 0, -1))
	require.ErrorIs(t, err, ErrValidation)

	_, err = p.Report(t.Context(), "missing", progressNow.AddDate(0, 0, -7), progressNow)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestProgress_Report_Cached(t *testing.T) {
	store := testutil.OpenSQLite(t)
	seedCommandProject(t, store, 100, 50, -1)

	c := &mocks.MockCache{}
	c.On("Get", mock.Anything, "progress:cp-1").Return(nil, false, nil).Once()
	c.On("Set", mock.Anything, "progress:cp-1", mock.Anything, defaultReportTTL).Return(nil).Once()

	p := NewProgress(store, c, nil, testutil.Logger())
	p.now = func() time.Time { return progressNow }

	report, err := p.Report(t.Context(), "cp-1", time.Time{}, time.Time{})
	require.NoError(t, err)

	cached, err := json.Marshal(&Report{CommandProjectID: "cp-1", Name: "from cache"})
	require.NoError(t, err)

	c.On("Get", mock.Anything, "progress:cp-1").Return(cached, true, nil).Once()

	again, err := p.Report(t.Context(), "cp-1", time.Time{}, time.Time{})
	require.NoError(t, err)

	assert.Equal(t, "Order 42", report.Name)
	assert.Equal(t, "from cache", again.Name)
	c.AssertExpectations(t)
}

func TestProgress_RecordHistory(t *testing.T) {
	store := testutil.OpenSQLite(t)
	seedCommandProject(t, store, 100, 0, -1)

	c := &mocks.MockCache{}
	c.On("Delete", mock.Anything, []string{"progress:cp-1"}).Return(nil).Once()

	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, "cp-1", mock.MatchedBy(func(e events.OperationHistoryRecorded) bool {
		return e.PlanningID == "planning-1" && e.Count == 4
	})).Return(nil).Once()

	p := NewProgress(store, c, bus, testutil.Logger())
	p.now = func() time.Time { return progressNow }
	ctx := t.Context()

	history, err := p.RecordHistory(ctx, "planning-1", 4)
	require.NoError(t, err)
	assert.Equal(t, progressNow, history.CreatedAt)

	recorded, err := store.Progress().History(ctx, "cp-1", progressNow.Add(-time.Hour), progressNow.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, 4, recorded[0].Count)

	_, err = p.RecordHistory(ctx, "planning-1", 0)
	require.ErrorIs(t, err, ErrValidation)

	_, err = p.RecordHistory(ctx, "missing", 1)
	require.ErrorIs(t, err, ErrNotFound)

	c.AssertExpectations(t)
	bus.AssertExpectations(t)
}

func TestProgress_HandleHistoryRecorded(t *testing.T) {
	c := &mocks.MockCache{}
	c.On("Delete", mock.Anything, []string{"progress:cp-9"}).Return(nil).Once()

	bus := &mocks.MockEventBus{}
	bus.On("Handle", events.OperationHistoryRecordedEvent, mock.Anything).Return(nil).Once()

	p := NewProgress(mocks.NewMockPersistence(), c, nil, testutil.Logger())

	require.NoError(t, p.RegisterHandlers(bus))
	require.NoError(t, p.handleHistoryRecorded(context.Background(), &events.OperationHistoryRecorded{CommandProjectID: "cp-9"}))
	require.Error(t, p.handleHistoryRecorded(context.Background(), &events.NodeDeleted{}))

	c.AssertExpectations(t)
	bus.AssertExpectations(t)
}

func TestProgress_Refresh(t *testing.T) {
	store := mocks.NewMockPersistence()
	store.ProgressRepo.On("CommandProjects", mock.Anything).Return([]*models.CommandProject{
		{ID: "cp-1", Target: 10, Done: 5},
		{ID: "cp-2", Target: 10, Done: 1},
	}, nil)
	store.ProgressRepo.On("CommandProject", mock.Anything, "cp-1").Return(&models.CommandProject{ID: "cp-1", Target: 10, Done: 5}, nil)
	store.ProgressRepo.On("CommandProject", mock.Anything, "cp-2").Return(nil, errors.New("timeout"))
	store.ProgressRepo.On("SprintByCommandProject", mock.Anything, "cp-1").Return(&models.Sprint{ID: "s", CommandProjectID: "cp-1", Target: 5}, nil)
	store.ProgressRepo.On("History", mock.Anything, "cp-1", mock.Anything, mock.Anything).Return([]*models.OperationHistory{}, nil)

	c := &mocks.MockCache{}
	c.On("Set", mock.Anything, "progress:cp-1", mock.Anything, defaultReportTTL).Return(nil).Once()

	p := NewProgress(store, c, nil, testutil.Logger())
	p.now = func() time.Time { return progressNow }

	err := p.Refresh(context.Background())
	require.ErrorIs(t, err, ErrPersistenceFailure)
	assert.Contains(t, err.Error(), "cp-2")

	c.AssertExpectations(t)
}

func TestProgress_StartRefresh(t *testing.T) {
	p := NewProgress(mocks.NewMockPersistence(), nil, nil, testutil.Logger())

	require.Error(t, p.StartRefresh("not a schedule"))

	require.NoError(t, p.StartRefresh("@every 1h"))
	p.StopRefresh()
}
