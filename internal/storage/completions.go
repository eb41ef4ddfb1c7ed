package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/sandeepkv93/taskboard/internal/completion"
	"github.com/sandeepkv93/taskboard/internal/identity"
	"github.com/sandeepkv93/taskboard/internal/model"
)

func (r *SQLiteRepository) CompletionMap(ctx context.Context, templateID string) (completion.Map, error) {
	items, err := r.ListCompletions(ctx, templateID)
	if err != nil {
		return nil, &completion.StoreError{Op: "read", Key: templateID, Err: err}
	}
	out := make(completion.Map, len(items))
	for _, item := range items {
		key := identity.Key(item.Identity)
		out[key] = model.CompletionRecord{
			Identity:    key,
			TemplateID:  item.TemplateID,
			Completed:   item.Completed,
			CompletedAt: item.CompletedAt,
		}
	}
	return out, nil
}

func (r *SQLiteRepository) ListCompletions(ctx context.Context, templateID string) ([]Completion, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT identity, template_id, day, completed, completed_at, updated_at
		FROM completions WHERE template_id = ? ORDER BY day ASC`, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Completion, 0)
	for rows.Next() {
		item, scanErr := scanCompletion(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// SetCompletion upserts the record for key. Concurrent writers to the same
// key resolve last-write-wins.
func (r *SQLiteRepository) SetCompletion(ctx context.Context, key identity.Key, completed bool) error {
	templateID, day, err := identity.Parse(key)
	if err != nil {
		return &completion.StoreError{Op: "write", Key: string(key), Err: err}
	}
	now := r.now().UTC()
	var completedAt *time.Time
	if completed {
		completedAt = &now
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO completions (identity, template_id, day, completed, completed_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(identity) DO UPDATE SET
			completed = excluded.completed,
			completed_at = excluded.completed_at,
			updated_at = excluded.updated_at`,
		string(key), templateID, day.Format(sqliteDayLayout), boolInt(completed), nullTime(completedAt), mustTime(now),
	)
	if err != nil {
		return &completion.StoreError{Op: "write", Key: string(key), Err: err}
	}
	return nil
}

// Prune deletes completion rows whose occurrence day is before the calendar
// day of before.
func (r *SQLiteRepository) Prune(ctx context.Context, before time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM completions WHERE day < ?`, before.Format(sqliteDayLayout))
	if err != nil {
		return 0, &completion.StoreError{Op: "prune", Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, &completion.StoreError{Op: "prune", Err: err}
	}
	return int(affected), nil
}

func scanCompletion(s scanner) (Completion, error) {
	var out Completion
	var completed int
	var completedAt sql.NullString
	var updated string
	if err := s.Scan(&out.Identity, &out.TemplateID, &out.Day, &completed, &completedAt, &updated); err != nil {
		return Completion{}, err
	}
	at, err := parseNullableTime(completedAt)
	if err != nil {
		return Completion{}, err
	}
	updatedAt, err := parseRequiredTime(updated)
	if err != nil {
		return Completion{}, err
	}
	out.Completed = completed == 1
	out.CompletedAt = at
	out.UpdatedAt = updatedAt
	return out, nil
}
