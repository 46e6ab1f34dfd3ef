package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/opsplan/pkg/models"
	"github.com/dukex/opsplan/pkg/persistence"
)

// ProgressRepository handles command, sprint, planning and history records.
type ProgressRepository struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

// NewProgressRepository creates a new progress repository.
func NewProgressRepository(db *sql.DB, dialect Dialect, logger *slog.Logger) *ProgressRepository {
	return &ProgressRepository{db: db, dialect: dialect, logger: logger}
}

func (r *ProgressRepository) CommandProject(ctx context.Context, id string) (*models.CommandProject, error) {
	query := `SELECT id, project_id, name, target, done FROM command_projects WHERE id = $1`

	commandProject, err := scanCommandProject(r.db.QueryRowContext(ctx, r.dialect.Rebind(query), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("command project %s: %w", id, persistence.ErrCommandProjectNotFound)
		}

		return nil, fmt.Errorf("failed to get command project %s: %w", id, err)
	}

	return commandProject, nil
}

func (r *ProgressRepository) CommandProjects(ctx context.Context) ([]*models.CommandProject, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, project_id, name, target, done FROM command_projects ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query command projects: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	commandProjects := make([]*models.CommandProject, 0)

	for rows.Next() {
		commandProject, err := scanCommandProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan command project: %w", err)
		}

		commandProjects = append(commandProjects, commandProject)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating command projects: %w", err)
	}

	return commandProjects, nil
}

func (r *ProgressRepository) SaveCommandProject(ctx context.Context, commandProject *models.CommandProject) error {
	query := `
		INSERT INTO command_projects (id, project_id, name, target, done)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			project_id = EXCLUDED.project_id,
			name = EXCLUDED.name,
			target = EXCLUDED.target,
			done = EXCLUDED.done
	`

	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(query),
		commandProject.ID,
		commandProject.ProjectID,
		commandProject.Name,
		commandProject.Target,
		commandProject.Done,
	)
	if err != nil {
		return fmt.Errorf("failed to save command project %s: %w", commandProject.ID, err)
	}

	return nil
}

func (r *ProgressRepository) SprintByCommandProject(ctx context.Context, commandProjectID string) (*models.Sprint, error) {
	query := `SELECT id, command_project_id, target FROM sprints WHERE command_project_id = $1`

	var sprint models.Sprint

	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), commandProjectID).Scan(&sprint.ID, &sprint.CommandProjectID, &sprint.Target)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("sprint of command project %s: %w", commandProjectID, persistence.ErrSprintNotFound)
		}

		return nil, fmt.Errorf("failed to get sprint of command project %s: %w", commandProjectID, err)
	}

	return &sprint, nil
}

func (r *ProgressRepository) SaveSprint(ctx context.Context, sprint *models.Sprint) error {
	query := `
		INSERT INTO sprints (id, command_project_id, target)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			command_project_id = EXCLUDED.command_project_id,
			target = EXCLUDED.target
	`

	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), sprint.ID, sprint.CommandProjectID, sprint.Target)
	if err != nil {
		return fmt.Errorf("failed to save sprint %s: %w", sprint.ID, err)
	}

	return nil
}

func (r *ProgressRepository) Planning(ctx context.Context, id string) (*models.Planning, error) {
	query := `SELECT id, command_project_id, operation_id, operator_id, post_id, start_at, end_at FROM plannings WHERE id = $1`

	var planning models.Planning

	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), id).Scan(
		&planning.ID,
		&planning.CommandProjectID,
		&planning.OperationID,
		&planning.OperatorID,
		&planning.PostID,
		&planning.StartAt,
		&planning.EndAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("planning %s: %w", id, persistence.ErrPlanningNotFound)
		}

		return nil, fmt.Errorf("failed to get planning %s: %w", id, err)
	}

	return &planning, nil
}

func (r *ProgressRepository) SavePlanning(ctx context.Context, planning *models.Planning) error {
	query := `
		INSERT INTO plannings (id, command_project_id, operation_id, operator_id, post_id, start_at, end_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			command_project_id = EXCLUDED.command_project_id,
			operation_id = EXCLUDED.operation_id,
			operator_id = EXCLUDED.operator_id,
			post_id = EXCLUDED.post_id,
			start_at = EXCLUDED.start_at,
			end_at = EXCLUDED.end_at
	`

	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(query),
		planning.ID,
		planning.CommandProjectID,
		planning.OperationID,
		planning.OperatorID,
		planning.PostID,
		planning.StartAt.UTC(),
		planning.EndAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save planning %s: %w", planning.ID, err)
	}

	return nil
}

func (r *ProgressRepository) RecordHistory(ctx context.Context, history *models.OperationHistory) error {
	if history.CreatedAt.IsZero() {
		history.CreatedAt = time.Now()
	}

	history.CreatedAt = history.CreatedAt.UTC()

	query := `INSERT INTO operation_histories (id, planning_id, count, created_at) VALUES ($1, $2, $3, $4)`

	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), history.ID, history.PlanningID, history.Count, history.CreatedAt)
	if err != nil {
		if r.dialect.IsUniqueViolation(err) {
			err = fmt.Errorf("%w: %w", persistence.ErrDuplicateID, err)
		}

		return fmt.Errorf("failed to record history for planning %s: %w", history.PlanningID, err)
	}

	return nil
}

// History returns the history of every planning of a command project created in [from, to), oldest first.
func (r *ProgressRepository) History(ctx context.Context, commandProjectID string, from, to time.Time) ([]*models.OperationHistory, error) {
	query := `
		SELECT h.id, h.planning_id, h.count, h.created_at
		FROM operation_histories h
		JOIN plannings p ON p.id = h.planning_id
		WHERE p.command_project_id = $1 AND h.created_at >= $2 AND h.created_at < $3
		ORDER BY h.created_at, h.id
	`

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), commandProjectID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query operation history: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	histories := make([]*models.OperationHistory, 0)

	for rows.Next() {
		var history models.OperationHistory
		if err := rows.Scan(&history.ID, &history.PlanningID, &history.Count, &history.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan operation history: %w", err)
		}

		histories = append(histories, &history)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating operation history: %w", err)
	}

	return histories, nil
}

func scanCommandProject(row scanner) (*models.CommandProject, error) {
	var commandProject models.CommandProject

	err := row.Scan(
		&commandProject.ID,
		&commandProject.ProjectID,
		&commandProject.Name,
		&commandProject.Target,
		&commandProject.Done,
	)
	if err != nil {
		return nil, err
	}

	return &commandProject, nil
}
