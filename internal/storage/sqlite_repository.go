package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const (
	sqliteTimeLayout = time.RFC3339Nano
	sqliteDayLayout  = time.DateOnly
)

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &SQLiteRepository{db: db, now: time.Now}, nil
}

// OpenSQLite opens the database at path and applies pending migrations.
func OpenSQLite(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := MigrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// SetClock overrides the time source used for completion and update stamps.
func (r *SQLiteRepository) SetClock(now func() time.Time) {
	r.now = now
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (r *SQLiteRepository) CreateTask(ctx context.Context, in Task) error {
	return r.withTx(ctx, func(q querier) error {
		return createTask(ctx, q, in)
	})
}

func createTask(ctx context.Context, q querier, in Task) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO tasks (id, board_id, title, description, status, priority, scheduled_at, timezone,
			time_estimate_minutes, time_spent_minutes, progress_percentage, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.BoardID, in.Title, in.Description, in.Status, in.Priority, nullTime(in.ScheduledAt), timezoneOrUTC(in.Timezone),
		in.TimeEstimateMinutes, in.TimeSpentMinutes, in.ProgressPercentage, nullTime(in.CompletedAt),
		mustTime(in.CreatedAt), mustTime(updatedOrCreated(in)),
	)
	if err != nil {
		return err
	}
	return replaceTags(ctx, q, in.ID, in.Tags)
}

func (r *SQLiteRepository) GetTask(ctx context.Context, id string) (Task, error) {
	return getTask(ctx, r.db, id)
}

func getTask(ctx context.Context, q querier, id string) (Task, error) {
	row := q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Task{}, ErrNotFound
		}
		return Task{}, err
	}
	tags, err := listTags(ctx, q, task.ID)
	if err != nil {
		return Task{}, err
	}
	task.Tags = tags
	return task, nil
}

func (r *SQLiteRepository) UpdateTask(ctx context.Context, in Task) error {
	return r.withTx(ctx, func(q querier) error {
		return updateTask(ctx, q, in)
	})
}

func updateTask(ctx context.Context, q querier, in Task) error {
	res, err := q.ExecContext(ctx, `
		UPDATE tasks
		SET board_id = ?, title = ?, description = ?, status = ?, priority = ?, scheduled_at = ?, timezone = ?,
			time_estimate_minutes = ?, time_spent_minutes = ?, progress_percentage = ?, completed_at = ?, updated_at = ?
		WHERE id = ?`,
		in.BoardID, in.Title, in.Description, in.Status, in.Priority, nullTime(in.ScheduledAt), timezoneOrUTC(in.Timezone),
		in.TimeEstimateMinutes, in.TimeSpentMinutes, in.ProgressPercentage, nullTime(in.CompletedAt),
		mustTime(updatedOrCreated(in)), in.ID,
	)
	if err != nil {
		return err
	}
	if err := checkRowsAffected(res); err != nil {
		return err
	}
	return replaceTags(ctx, q, in.ID, in.Tags)
}

func (r *SQLiteRepository) DeleteTask(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListTasks(ctx context.Context, filter TaskListFilter) ([]Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	clauses := make([]string, 0, 3)
	args := make([]any, 0, 5)
	if filter.BoardID != "" {
		clauses = append(clauses, "board_id = ?")
		args = append(args, filter.BoardID)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Recurring != nil {
		exists := "EXISTS (SELECT 1 FROM recurrence_rules r WHERE r.task_id = tasks.id)"
		if !*filter.Recurring {
			exists = "NOT " + exists
		}
		clauses = append(clauses, exists)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at ASC, id ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	out := make([]Task, 0)
	for rows.Next() {
		task, scanErr := scanTask(rows)
		if scanErr != nil {
			_ = rows.Close()
			return nil, scanErr
		}
		out = append(out, task)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		tags, tagErr := listTags(ctx, r.db, out[i].ID)
		if tagErr != nil {
			return nil, tagErr
		}
		out[i].Tags = tags
	}
	return out, nil
}

func replaceTags(ctx context.Context, q querier, taskID string, tags []string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM task_tags WHERE task_id = ?`, taskID); err != nil {
		return fmt.Errorf("clear tags: %w", err)
	}
	for i, name := range tags {
		if _, err := q.ExecContext(ctx,
			`INSERT OR IGNORE INTO task_tags (task_id, name, position) VALUES (?, ?, ?)`,
			taskID, name, i,
		); err != nil {
			return fmt.Errorf("insert tag %q: %w", name, err)
		}
	}
	return nil
}

func listTags(ctx context.Context, q querier, taskID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT name FROM task_tags WHERE task_id = ? ORDER BY position ASC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) PutRecurrence(ctx context.Context, in RecurrenceRule) error {
	return putRecurrence(ctx, r.db, in)
}

func putRecurrence(ctx context.Context, q querier, in RecurrenceRule) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO recurrence_rules (task_id, pattern, interval_value, days_of_week, days_of_month, months_of_year, end_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(task_id) DO UPDATE SET
			pattern = excluded.pattern,
			interval_value = excluded.interval_value,
			days_of_week = excluded.days_of_week,
			days_of_month = excluded.days_of_month,
			months_of_year = excluded.months_of_year,
			end_date = excluded.end_date`,
		in.TaskID, in.Pattern, in.IntervalValue, joinInts(in.DaysOfWeek), joinInts(in.DaysOfMonth), joinInts(in.MonthsOfYear),
		nullDay(in.EndDate), mustTime(in.CreatedAt),
	)
	return err
}

func (r *SQLiteRepository) GetRecurrence(ctx context.Context, taskID string) (RecurrenceRule, error) {
	return getRecurrence(ctx, r.db, taskID)
}

func getRecurrence(ctx context.Context, q querier, taskID string) (RecurrenceRule, error) {
	row := q.QueryRowContext(ctx, `
		SELECT task_id, pattern, interval_value, days_of_week, days_of_month, months_of_year, end_date, created_at
		FROM recurrence_rules WHERE task_id = ?`, taskID)
	item, err := scanRecurrence(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RecurrenceRule{}, ErrNotFound
		}
		return RecurrenceRule{}, err
	}
	return item, nil
}

func (r *SQLiteRepository) DeleteRecurrence(ctx context.Context, taskID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recurrence_rules WHERE task_id = ?`, taskID)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

const taskColumns = `id, board_id, title, description, status, priority, scheduled_at, timezone,
	time_estimate_minutes, time_spent_minutes, progress_percentage, completed_at, created_at, updated_at`

func nullTime(v *time.Time) any {
	if v == nil || v.IsZero() {
		return nil
	}
	return v.UTC().Format(sqliteTimeLayout)
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

// nullDay stores the calendar date of v as written, ignoring its location.
func nullDay(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.Format(sqliteDayLayout)
}

func parseNullableTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	tm, err := time.Parse(sqliteTimeLayout, v.String)
	if err != nil {
		return nil, err
	}
	return &tm, nil
}

func parseRequiredTime(v string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, v)
}

func parseNullableDay(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	day, err := time.Parse(sqliteDayLayout, v.String)
	if err != nil {
		return nil, err
	}
	return &day, nil
}

func timezoneOrUTC(name string) string {
	if strings.TrimSpace(name) == "" {
		return "UTC"
	}
	return name
}

func updatedOrCreated(in Task) time.Time {
	if in.UpdatedAt.IsZero() {
		return in.CreatedAt
	}
	return in.UpdatedAt
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func splitInts(raw string) ([]int, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("parse int list %q: %w", raw, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func applyPagination(args *[]any, limit, offset int) string {
	sql := ""
	if limit > 0 {
		sql += " LIMIT ?"
		*args = append(*args, limit)
	} else if offset > 0 {
		sql += " LIMIT -1"
	}
	if offset > 0 {
		sql += " OFFSET ?"
		*args = append(*args, offset)
	}
	return sql
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (Task, error) {
	var out Task
	var scheduled sql.NullString
	var completed sql.NullString
	var created, updated string
	if err := s.Scan(&out.ID, &out.BoardID, &out.Title, &out.Description, &out.Status, &out.Priority, &scheduled, &out.Timezone,
		&out.TimeEstimateMinutes, &out.TimeSpentMinutes, &out.ProgressPercentage, &completed, &created, &updated); err != nil {
		return Task{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return Task{}, err
	}
	updatedAt, err := parseRequiredTime(updated)
	if err != nil {
		return Task{}, err
	}
	scheduledAt, err := parseNullableTime(scheduled)
	if err != nil {
		return Task{}, err
	}
	completedAt, err := parseNullableTime(completed)
	if err != nil {
		return Task{}, err
	}
	out.CreatedAt = createdAt
	out.UpdatedAt = updatedAt
	out.ScheduledAt = scheduledAt
	out.CompletedAt = completedAt
	return out, nil
}

func scanRecurrence(s scanner) (RecurrenceRule, error) {
	var out RecurrenceRule
	var dow, dom, moy string
	var end sql.NullString
	var created string
	if err := s.Scan(&out.TaskID, &out.Pattern, &out.IntervalValue, &dow, &dom, &moy, &end, &created); err != nil {
		return RecurrenceRule{}, err
	}
	var err error
	if out.DaysOfWeek, err = splitInts(dow); err != nil {
		return RecurrenceRule{}, err
	}
	if out.DaysOfMonth, err = splitInts(dom); err != nil {
		return RecurrenceRule{}, err
	}
	if out.MonthsOfYear, err = splitInts(moy); err != nil {
		return RecurrenceRule{}, err
	}
	if out.EndDate, err = parseNullableDay(end); err != nil {
		return RecurrenceRule{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return RecurrenceRule{}, err
	}
	out.CreatedAt = createdAt
	return out, nil
}

func checkRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
