package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/zoonderkins/augment-lite-mcp/internal/memory"
)

// memoryPartition maps a tool's project argument to a memory partition.
// Empty means the global partition; "auto" resolves from the working
// directory.
func (s *Server) memoryPartition(project string) (string, error) {
	if project == "" {
		return "", nil
	}
	p, err := s.resolveProject(project, false)
	if err != nil {
		return "", err
	}
	return p.Name, nil
}

// MemorySetInput is the input schema for memory.set.
type MemorySetInput struct {
	Key     string `json:"key" jsonschema:"memory key"`
	Value   string `json:"value" jsonschema:"value to store"`
	Project string `json:"project,omitempty" jsonschema:"project partition; empty for the global partition"`
}

func (s *Server) handleMemorySet(ctx context.Context, req *mcp.CallToolRequest, in MemorySetInput) (
	*mcp.CallToolResult, Payload, error,
) {
	partition, err := s.memoryPartition(in.Project)
	if err != nil {
		return nil, failure(err), nil
	}
	if err := s.mem.Set(partition, in.Key, in.Value); err != nil {
		return nil, failure(err), nil
	}
	return nil, ok(), nil
}

// MemoryKeyInput is the input schema for memory.get and memory.delete.
type MemoryKeyInput struct {
	Key     string `json:"key" jsonschema:"memory key"`
	Project string `json:"project,omitempty" jsonschema:"project partition; empty for the global partition"`
}

// MemoryGetOutput is the output schema for memory.get.
type MemoryGetOutput struct {
	Payload
	Key   string `json:"key,omitempty"`
	Value string `json:"value,omitempty"`
	Found bool   `json:"found"`
}

func (s *Server) handleMemoryGet(ctx context.Context, req *mcp.CallToolRequest, in MemoryKeyInput) (
	*mcp.CallToolResult, MemoryGetOutput, error,
) {
	partition, err := s.memoryPartition(in.Project)
	if err != nil {
		return nil, MemoryGetOutput{Payload: failure(err)}, nil
	}
	value, found, err := s.mem.Get(partition, in.Key)
	if err != nil {
		return nil, MemoryGetOutput{Payload: failure(err)}, nil
	}
	return nil, MemoryGetOutput{Payload: ok(), Key: in.Key, Value: value, Found: found}, nil
}

// MemoryListInput is the input schema for memory.list.
type MemoryListInput struct {
	Project string `json:"project,omitempty" jsonschema:"project partition; empty for the global partition"`
}

// MemoryEntryOutput is one entry in a memory.list response. UpdatedAt
// is unix seconds.
type MemoryEntryOutput struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	UpdatedAt int64  `json:"updated_at"`
}

// MemoryListOutput is the output schema for memory.list.
type MemoryListOutput struct {
	Payload
	Entries []MemoryEntryOutput `json:"entries"`
}

func (s *Server) handleMemoryList(ctx context.Context, req *mcp.CallToolRequest, in MemoryListInput) (
	*mcp.CallToolResult, MemoryListOutput, error,
) {
	partition, err := s.memoryPartition(in.Project)
	if err != nil {
		return nil, MemoryListOutput{Payload: failure(err)}, nil
	}
	entries, err := s.mem.List(partition)
	if err != nil {
		return nil, MemoryListOutput{Payload: failure(err)}, nil
	}
	out := MemoryListOutput{Payload: ok(), Entries: []MemoryEntryOutput{}}
	for _, e := range entries {
		out.Entries = append(out.Entries, MemoryEntryOutput{Key: e.Key, Value: e.Value, UpdatedAt: e.UpdatedAt})
	}
	return nil, out, nil
}

func (s *Server) handleMemoryDelete(ctx context.Context, req *mcp.CallToolRequest, in MemoryKeyInput) (
	*mcp.CallToolResult, Payload, error,
) {
	partition, err := s.memoryPartition(in.Project)
	if err != nil {
		return nil, failure(err), nil
	}
	if err := s.mem.Delete(partition, in.Key); err != nil {
		return nil, failure(err), nil
	}
	return nil, ok(), nil
}

// TaskAddInput is the input schema for task.add.
type TaskAddInput struct {
	Title       string `json:"title" jsonschema:"task title"`
	Description string `json:"description,omitempty" jsonschema:"longer task description"`
	Priority    int    `json:"priority,omitempty" jsonschema:"higher sorts first, default 0"`
	ParentID    *int64 `json:"parent_id,omitempty" jsonschema:"id of the parent task for subtasks"`
	Metadata    string `json:"metadata,omitempty" jsonschema:"free-form metadata, stored verbatim"`
	Project     string `json:"project,omitempty" jsonschema:"project partition; empty for the global partition"`
}

// TaskOutput is the output schema for tools returning one task.
type TaskOutput struct {
	Payload
	Task *memory.Task `json:"task,omitempty"`
}

func (s *Server) handleTaskAdd(ctx context.Context, req *mcp.CallToolRequest, in TaskAddInput) (
	*mcp.CallToolResult, TaskOutput, error,
) {
	partition, err := s.memoryPartition(in.Project)
	if err != nil {
		return nil, TaskOutput{Payload: failure(err)}, nil
	}
	task, err := s.tasks.Add(partition, in.Title, in.Description, in.Priority, in.ParentID, in.Metadata)
	if err != nil {
		return nil, TaskOutput{Payload: failure(err)}, nil
	}
	return nil, TaskOutput{Payload: ok(), Task: task}, nil
}

// TaskListInput is the input schema for task.list.
type TaskListInput struct {
	Status  string `json:"status,omitempty" jsonschema:"filter: pending, in_progress, done, or cancelled"`
	Project string `json:"project,omitempty" jsonschema:"project partition; empty for the global partition"`
}

// TaskListOutput is the output schema for task.list.
type TaskListOutput struct {
	Payload
	Tasks []memory.Task  `json:"tasks"`
	Stats map[string]int `json:"stats,omitempty"`
}

func (s *Server) handleTaskList(ctx context.Context, req *mcp.CallToolRequest, in TaskListInput) (
	*mcp.CallToolResult, TaskListOutput, error,
) {
	partition, err := s.memoryPartition(in.Project)
	if err != nil {
		return nil, TaskListOutput{Payload: failure(err)}, nil
	}
	tasks, err := s.tasks.List(partition, in.Status)
	if err != nil {
		return nil, TaskListOutput{Payload: failure(err)}, nil
	}
	stats, err := s.tasks.Stats(partition)
	if err != nil {
		return nil, TaskListOutput{Payload: failure(err)}, nil
	}
	if tasks == nil {
		tasks = []memory.Task{}
	}
	return nil, TaskListOutput{Payload: ok(), Tasks: tasks, Stats: stats}, nil
}

// TaskUpdateInput is the input schema for task.update.
type TaskUpdateInput struct {
	ID          int64   `json:"id" jsonschema:"task id"`
	Title       *string `json:"title,omitempty" jsonschema:"new title"`
	Description *string `json:"description,omitempty" jsonschema:"new description"`
	Status      *string `json:"status,omitempty" jsonschema:"new status: pending, in_progress, done, or cancelled"`
	Priority    *int    `json:"priority,omitempty" jsonschema:"new priority"`
	Metadata    *string `json:"metadata,omitempty" jsonschema:"new metadata"`
	Project     string  `json:"project,omitempty" jsonschema:"project partition; empty for the global partition"`
}

func (s *Server) handleTaskUpdate(ctx context.Context, req *mcp.CallToolRequest, in TaskUpdateInput) (
	*mcp.CallToolResult, TaskOutput, error,
) {
	partition, err := s.memoryPartition(in.Project)
	if err != nil {
		return nil, TaskOutput{Payload: failure(err)}, nil
	}
	task, err := s.tasks.Update(partition, in.ID, memory.TaskUpdate{
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		Metadata:    in.Metadata,
	})
	if err != nil {
		return nil, TaskOutput{Payload: failure(err)}, nil
	}
	return nil, TaskOutput{Payload: ok(), Task: task}, nil
}

// TaskCurrentInput is the input schema for task.current.
type TaskCurrentInput struct {
	Project string `json:"project,omitempty" jsonschema:"project partition; empty for the global partition"`
}

func (s *Server) handleTaskCurrent(ctx context.Context, req *mcp.CallToolRequest, in TaskCurrentInput) (
	*mcp.CallToolResult, TaskOutput, error,
) {
	partition, err := s.memoryPartition(in.Project)
	if err != nil {
		return nil, TaskOutput{Payload: failure(err)}, nil
	}
	task, err := s.tasks.Current(partition)
	if err != nil {
		return nil, TaskOutput{Payload: failure(err)}, nil
	}
	return nil, TaskOutput{Payload: ok(), Task: task}, nil
}

// TaskDeleteInput is the input schema for task.delete.
type TaskDeleteInput struct {
	ID       int64  `json:"id" jsonschema:"task id"`
	Subtasks bool   `json:"subtasks,omitempty" jsonschema:"delete subtasks too instead of detaching them"`
	Project  string `json:"project,omitempty" jsonschema:"project partition; empty for the global partition"`
}

func (s *Server) handleTaskDelete(ctx context.Context, req *mcp.CallToolRequest, in TaskDeleteInput) (
	*mcp.CallToolResult, Payload, error,
) {
	partition, err := s.memoryPartition(in.Project)
	if err != nil {
		return nil, failure(err), nil
	}
	if err := s.tasks.Delete(partition, in.ID, in.Subtasks); err != nil {
		return nil, failure(err), nil
	}
	return nil, ok(), nil
}
