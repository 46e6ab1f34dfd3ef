package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/opsplan/pkg/cache"
	"github.com/dukex/opsplan/pkg/eventbus"
	"github.com/dukex/opsplan/pkg/events"
	"github.com/dukex/opsplan/pkg/models"
	"github.com/dukex/opsplan/pkg/persistence"
	"github.com/dukex/opsplan/pkg/progress"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

const (
	// DefaultReportWindow is the history window of a report requested without bounds.
	DefaultReportWindow = 28 * 24 * time.Hour

	defaultReportTTL = 10 * time.Minute
)

// Report is the progress of one command project over a history window.
type Report struct {
	CommandProjectID string                   `json:"command_project_id"`
	Name             string                   `json:"name"`
	Target           int                      `json:"target"`
	Done             int                      `json:"done"`
	Overall          progress.Overall         `json:"overall"`
	Sprints          *progress.SprintProgress `json:"sprints,omitempty"`
	From             time.Time                `json:"from"`
	To               time.Time                `json:"to"`
	Recorded         int                      `json:"recorded"`
	Weekly           []progress.Bucket        `json:"weekly"`
	Daily            []progress.Bucket        `json:"daily"`
	HourOfDay        [24]int                  `json:"hour_of_day"`
	GeneratedAt      time.Time                `json:"generated_at"`
}

// Progress computes command project reports. Reports for the default window are
// cached and dropped whenever new history is recorded for their command project.
type Progress struct {
	persistence persistence.Persistence
	cache       cache.Cache
	publisher   publisher
	logger      *slog.Logger
	ttl         time.Duration
	now         func() time.Time
	cron        *cron.Cron
}

// NewProgress creates a new progress service. c and bus may be nil.
func NewProgress(persistence persistence.Persistence, c cache.Cache, bus eventbus.EventPublisher, logger *slog.Logger) *Progress {
	if c == nil {
		c = cache.Noop{}
	}

	return &Progress{
		persistence: persistence,
		cache:       c,
		publisher:   publisher{bus: bus, logger: logger},
		logger:      logger,
		ttl:         defaultReportTTL,
		now:         time.Now,
	}
}

// Report returns the progress of a command project for history recorded in [from, to).
// Zero bounds select the default window ending now; that report is served from cache.
func (p *Progress) Report(ctx context.Context, commandProjectID string, from, to time.Time) (*Report, error) {
	if from.IsZero() && to.IsZero() {
		return p.defaultReport(ctx, commandProjectID)
	}

	if to.IsZero() {
		to = p.now()
	}

	if from.IsZero() {
		from = to.Add(-DefaultReportWindow)
	}

	if !from.Before(to) {
		return nil, NewValidationError("Report", "invalid_window", "from must be before to", fmt.Errorf("window %s..%s is empty", from, to))
	}

	return p.compute(ctx, commandProjectID, from, to)
}

func (p *Progress) defaultReport(ctx context.Context, commandProjectID string) (*Report, error) {
	key := reportKey(commandProjectID)

	cached, ok, err := p.cache.Get(ctx, key)
	if err != nil {
		p.logger.WarnContext(ctx, "Progress cache read failed", "command_project_id", commandProjectID, "error", err)
	}

	if ok {
		var report Report
		if err := json.Unmarshal(cached, &report); err == nil {
			return &report, nil
		}

		p.logger.WarnContext(ctx, "Discarding unreadable cached report", "command_project_id", commandProjectID)
	}

	to := p.now()

	report, err := p.compute(ctx, commandProjectID, to.Add(-DefaultReportWindow), to)
	if err != nil {
		return nil, err
	}

	p.store(ctx, report)

	return report, nil
}

func (p *Progress) compute(ctx context.Context, commandProjectID string, from, to time.Time) (*Report, error) {
	commandProject, err := p.persistence.Progress().CommandProject(ctx, commandProjectID)
	if err != nil {
		return nil, storageError("Report", err)
	}

	report := &Report{
		CommandProjectID: commandProject.ID,
		Name:             commandProject.Name,
		Target:           commandProject.Target,
		Done:             commandProject.Done,
		Overall:          progress.Percent(commandProject.Done, commandProject.Target),
		From:             from.UTC(),
		To:               to.UTC(),
		GeneratedAt:      p.now().UTC(),
	}

	sprint, err := p.persistence.Progress().SprintByCommandProject(ctx, commandProjectID)
	switch {
	case err == nil:
		sprints, err := progress.Sprints(commandProject.Target, commandProject.Done, sprint.Target)
		if err != nil {
			return nil, &ServiceError{Op: "Report", Code: "invalid_sprint_target", Message: fmt.Sprintf("sprint %s has target %d", sprint.ID, sprint.Target), Err: err}
		}

		report.Sprints = &sprints
	case errors.Is(err, persistence.ErrSprintNotFound):
	default:
		return nil, storageError("Report", err)
	}

	history, err := p.persistence.Progress().History(ctx, commandProjectID, from, to)
	if err != nil {
		return nil, storageError("Report", err)
	}

	report.Recorded = progress.Total(history)
	report.Weekly = progress.Weekly(history, from, to)
	report.Daily = progress.Daily(history, from, to)
	report.HourOfDay = progress.HourOfDay(history)

	return report, nil
}

// RecordHistory appends completed units to a planning and invalidates the cached
// report of its command project.
func (p *Progress) RecordHistory(ctx context.Context, planningID string, count int) (*models.OperationHistory, error) {
	if count <= 0 {
		return nil, NewValidationError("RecordHistory", "invalid_count", "count must be positive", fmt.Errorf("count %d", count))
	}

	planning, err := p.persistence.Progress().Planning(ctx, planningID)
	if err != nil {
		return nil, storageError("RecordHistory", err)
	}

	history := &models.OperationHistory{
		ID:         uuid.Must(uuid.NewV7()).String(),
		PlanningID: planningID,
		Count:      count,
		CreatedAt:  p.now().UTC(),
	}

	if err := p.persistence.Progress().RecordHistory(ctx, history); err != nil {
		return nil, storageError("RecordHistory", err)
	}

	p.invalidate(ctx, planning.CommandProjectID)

	p.publisher.publish(ctx, planning.CommandProjectID, events.OperationHistoryRecorded{
		BaseEvent:        events.NewBaseEvent(events.OperationHistoryRecordedEvent),
		HistoryID:        history.ID,
		PlanningID:       planningID,
		CommandProjectID: planning.CommandProjectID,
		Count:            count,
	})

	return history, nil
}

// RegisterHandlers subscribes the cache invalidation to history events recorded by
// other instances sharing the bus.
func (p *Progress) RegisterHandlers(bus eventbus.EventSubscriber) error {
	return bus.Handle(events.OperationHistoryRecordedEvent, p.handleHistoryRecorded)
}

func (p *Progress) handleHistoryRecorded(ctx context.Context, event any) error {
	recorded, ok := event.(*events.OperationHistoryRecorded)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}

	p.invalidate(ctx, recorded.CommandProjectID)

	return nil
}

// Refresh recomputes and caches the default report of every command project.
func (p *Progress) Refresh(ctx context.Context) error {
	commandProjects, err := p.persistence.Progress().CommandProjects(ctx)
	if err != nil {
		return storageError("Refresh", err)
	}

	var errs []error

	for _, commandProject := range commandProjects {
		to := p.now()

		report, err := p.compute(ctx, commandProject.ID, to.Add(-DefaultReportWindow), to)
		if err != nil {
			errs = append(errs, fmt.Errorf("command project %s: %w", commandProject.ID, err))

			continue
		}

		p.store(ctx, report)
	}

	p.logger.InfoContext(ctx, "Refreshed progress reports", "command_projects", len(commandProjects), "failed", len(errs))

	return errors.Join(errs...)
}

// StartRefresh runs Refresh on a standard cron schedule until StopRefresh.
func (p *Progress) StartRefresh(schedule string) error {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid refresh schedule '%s': %w", schedule, err)
	}

	p.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	if _, err := p.cron.AddFunc(schedule, func() {
		if err := p.Refresh(context.Background()); err != nil {
			p.logger.Error("Progress refresh failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule progress refresh: %w", err)
	}

	p.cron.Start()
	p.logger.Info("Scheduled progress refresh", "schedule", schedule)

	return nil
}

// StopRefresh stops the refresh schedule and waits for a running refresh to finish.
func (p *Progress) StopRefresh() {
	if p.cron == nil {
		return
	}

	<-p.cron.Stop().Done()
}

func (p *Progress) store(ctx context.Context, report *Report) {
	payload, err := json.Marshal(report)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to encode report", "command_project_id", report.CommandProjectID, "error", err)

		return
	}

	if err := p.cache.Set(ctx, reportKey(report.CommandProjectID), payload, p.ttl); err != nil {
		p.logger.WarnContext(ctx, "Progress cache write failed", "command_project_id", report.CommandProjectID, "error", err)
	}
}

func (p *Progress) invalidate(ctx context.Context, commandProjectID string) {
	if err := p.cache.Delete(ctx, reportKey(commandProjectID)); err != nil {
		p.logger.WarnContext(ctx, "Progress cache invalidation failed", "command_project_id", commandProjectID, "error", err)
	}
}

func reportKey(commandProjectID string) string {
	return "progress:" + commandProjectID
}
