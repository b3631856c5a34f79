package memory

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/zoonderkins/augment-lite-mcp/internal/errors"
)

// Task statuses. Transitions are unrestricted; setting done stamps
// completed_at.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
	StatusCancelled  = "cancelled"
)

// Task is one tracked work item. ParentID links subtasks.
type Task struct {
	ID          int64  `json:"id"`
	Project     string `json:"project"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	Priority    int    `json:"priority"`
	ParentID    *int64 `json:"parent_id,omitempty"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
	CompletedAt *int64 `json:"completed_at,omitempty"`
	Metadata    string `json:"metadata,omitempty"`
}

// TaskUpdate holds the fields an update call may change. Nil pointers
// leave the column untouched.
type TaskUpdate struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *int
	Metadata    *string
}

// TaskStore persists tasks per project.
type TaskStore struct {
	db *sql.DB
}

// NewTaskStore opens (or creates) the task database at path.
func NewTaskStore(path string) (*TaskStore, error) {
	db, err := openDB(path, `
CREATE TABLE IF NOT EXISTS tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	priority INTEGER NOT NULL DEFAULT 0,
	parent_id INTEGER,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	completed_at INTEGER,
	metadata TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_tasks_project_status ON tasks (project, status);
CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks (parent_id);`)
	if err != nil {
		return nil, err
	}
	return &TaskStore{db: db}, nil
}

func validStatus(status string) bool {
	switch status {
	case StatusPending, StatusInProgress, StatusDone, StatusCancelled:
		return true
	}
	return false
}

// Add inserts a task and returns it with its assigned id.
func (s *TaskStore) Add(project, title, description string, priority int, parentID *int64, metadata string) (*Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperrors.InvalidInput("task title must not be empty")
	}
	if parentID != nil {
		if _, err := s.Get(project, *parentID); err != nil {
			return nil, err
		}
	}
	now := time.Now().Unix()
	res, err := s.db.Exec(`
INSERT INTO tasks (project, title, description, status, priority, parent_id, created_at, updated_at, metadata)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		project, title, description, StatusPending, priority, parentID, now, now, metadata)
	if err != nil {
		return nil, fmt.Errorf("add task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("task id: %w", err)
	}
	return s.Get(project, id)
}

// Get returns a single task scoped to project.
func (s *TaskStore) Get(project string, id int64) (*Task, error) {
	row := s.db.QueryRow(
		"SELECT id, project, title, description, status, priority, parent_id, created_at, updated_at, completed_at, metadata FROM tasks WHERE project=? AND id=?",
		project, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound(fmt.Sprintf("task %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// List returns project tasks, optionally filtered by status, ordered by
// priority descending then creation time.
func (s *TaskStore) List(project, status string) ([]Task, error) {
	query := "SELECT id, project, title, description, status, priority, parent_id, created_at, updated_at, completed_at, metadata FROM tasks WHERE project=?"
	args := []any{project}
	if status != "" {
		if !validStatus(status) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("invalid status %q", status))
		}
		query += " AND status=?"
		args = append(args, status)
	}
	query += " ORDER BY priority DESC, created_at ASC, id ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// Update changes the given fields. Moving to done stamps completed_at;
// moving away from done clears it.
func (s *TaskStore) Update(project string, id int64, upd TaskUpdate) (*Task, error) {
	if _, err := s.Get(project, id); err != nil {
		return nil, err
	}

	var sets []string
	var args []any
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return nil, apperrors.InvalidInput("task title must not be empty")
		}
		sets = append(sets, "title=?")
		args = append(args, title)
	}
	if upd.Description != nil {
		sets = append(sets, "description=?")
		args = append(args, *upd.Description)
	}
	if upd.Status != nil {
		if !validStatus(*upd.Status) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("invalid status %q", *upd.Status))
		}
		sets = append(sets, "status=?")
		args = append(args, *upd.Status)
		if *upd.Status == StatusDone {
			sets = append(sets, "completed_at=?")
			args = append(args, time.Now().Unix())
		} else {
			sets = append(sets, "completed_at=NULL")
		}
	}
	if upd.Priority != nil {
		sets = append(sets, "priority=?")
		args = append(args, *upd.Priority)
	}
	if upd.Metadata != nil {
		sets = append(sets, "metadata=?")
		args = append(args, *upd.Metadata)
	}
	if len(sets) == 0 {
		return nil, apperrors.InvalidInput("no fields to update")
	}
	sets = append(sets, "updated_at=?")
	args = append(args, time.Now().Unix())
	args = append(args, project, id)

	_, err := s.db.Exec("UPDATE tasks SET "+strings.Join(sets, ", ")+" WHERE project=? AND id=?", args...)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return s.Get(project, id)
}

// Delete removes a task. With subtasks=true its children go with it,
// otherwise their parent_id is cleared so they become top-level.
func (s *TaskStore) Delete(project string, id int64, subtasks bool) error {
	if _, err := s.Get(project, id); err != nil {
		return err
	}
	if subtasks {
		if _, err := s.db.Exec("DELETE FROM tasks WHERE project=? AND parent_id=?", project, id); err != nil {
			return fmt.Errorf("delete subtasks: %w", err)
		}
	} else {
		if _, err := s.db.Exec("UPDATE tasks SET parent_id=NULL WHERE project=? AND parent_id=?", project, id); err != nil {
			return fmt.Errorf("detach subtasks: %w", err)
		}
	}
	if _, err := s.db.Exec("DELETE FROM tasks WHERE project=? AND id=?", project, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// Current returns the active task: the first in_progress one by the
// standard list order, or nil when nothing is in flight.
func (s *TaskStore) Current(project string) (*Task, error) {
	tasks, err := s.List(project, StatusInProgress)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, nil
	}
	return &tasks[0], nil
}

// Stats counts project tasks by status.
func (s *TaskStore) Stats(project string) (map[string]int, error) {
	rows, err := s.db.Query("SELECT status, COUNT(*) FROM tasks WHERE project=? GROUP BY status", project)
	if err != nil {
		return nil, fmt.Errorf("task stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stats := map[string]int{
		StatusPending:    0,
		StatusInProgress: 0,
		StatusDone:       0,
		StatusCancelled:  0,
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[status] = n
	}
	return stats, rows.Err()
}

// Purge removes every task in a project's partition.
func (s *TaskStore) Purge(project string) error {
	if _, err := s.db.Exec("DELETE FROM tasks WHERE project=?", project); err != nil {
		return fmt.Errorf("task purge: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *TaskStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*Task, error) {
	var t Task
	var parent sql.NullInt64
	var completed sql.NullInt64
	err := row.Scan(&t.ID, &t.Project, &t.Title, &t.Description, &t.Status, &t.Priority,
		&parent, &t.CreatedAt, &t.UpdatedAt, &completed, &t.Metadata)
	if err != nil {
		return nil, err
	}
	if parent.Valid {
		t.ParentID = &parent.Int64
	}
	if completed.Valid {
		t.CompletedAt = &completed.Int64
	}
	return &t, nil
}
