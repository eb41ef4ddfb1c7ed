package storage

import (
	"context"
	"errors"
	"time"

	"github.com/sandeepkv93/taskboard/internal/completion"
	"github.com/sandeepkv93/taskboard/internal/model"
)

var ErrNotFound = errors.New("storage: not found")

type Repository interface {
	CreateTask(ctx context.Context, in Task) error
	GetTask(ctx context.Context, id string) (Task, error)
	UpdateTask(ctx context.Context, in Task) error
	DeleteTask(ctx context.Context, id string) error
	ListTasks(ctx context.Context, filter TaskListFilter) ([]Task, error)

	PutRecurrence(ctx context.Context, in RecurrenceRule) error
	GetRecurrence(ctx context.Context, taskID string) (RecurrenceRule, error)
	DeleteRecurrence(ctx context.Context, taskID string) error

	SaveTemplate(ctx context.Context, tmpl model.TaskTemplate) error
	GetTemplate(ctx context.Context, id string) (model.TaskTemplate, error)
	ListTemplates(ctx context.Context, filter TaskListFilter) ([]model.TaskTemplate, error)

	ListCompletions(ctx context.Context, templateID string) ([]Completion, error)
	completion.Store
	Prune(ctx context.Context, before time.Time) (int, error)
}

var (
	_ Repository        = (*SQLiteRepository)(nil)
	_ completion.Pruner = (*SQLiteRepository)(nil)
)
