// Package tasktree materializes full task hierarchies from the flat
// parent-reference representation in storage. Given a root task it
// recursively loads every descendant, producing a task value whose Subtasks
// field holds the complete transitive subtree.
package tasktree

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/taskforest/taskforest-api/internal/domain"
	"github.com/taskforest/taskforest-api/internal/platform/logger"
	"github.com/taskforest/taskforest-api/internal/store"
)

// DefaultMaxDepth bounds recursion for pathological hierarchies. Legitimate
// task trees are nowhere near this deep; hitting the bound indicates
// corrupted data.
const DefaultMaxDepth = 100

// Assembler expands stored tasks into fully populated trees.
type Assembler interface {
	// ExpandTask returns a copy of the task with its Subtasks field replaced
	// by the complete, recursively expanded descendant forest.
	// Returns store.ErrCycleDetected if the stored parent references form a
	// cycle, and store.ErrDepthExceeded if the hierarchy is deeper than the
	// configured bound.
	ExpandTask(ctx context.Context, task *domain.Task) (*domain.Task, error)

	// ExpandForest loads all root tasks and expands each independently.
	// The forest is ordered by the store's insertion order.
	ExpandForest(ctx context.Context) ([]*domain.Task, error)
}

// assembler is the store-backed Assembler implementation. It issues one
// FindByParent query per tree node, depth-first; a subtree is fully expanded
// before its parent returns.
type assembler struct {
	taskStore store.TaskStore
	maxDepth  int
	logger    *slog.Logger
}

// Option configures an Assembler.
type Option func(*assembler)

// WithMaxDepth overrides the recursion depth bound.
func WithMaxDepth(depth int) Option {
	return func(a *assembler) {
		a.maxDepth = depth
	}
}

// NewAssembler creates a store-backed Assembler.
// If logger is nil, a default logger will be used.
func NewAssembler(taskStore store.TaskStore, logger *slog.Logger, opts ...Option) Assembler {
	if taskStore == nil {
		panic("taskStore cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	a := &assembler{
		taskStore: taskStore,
		maxDepth:  DefaultMaxDepth,
		logger:    logger.With(slog.String("component", "tasktree")),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// ExpandTask implements Assembler.ExpandTask
func (a *assembler) ExpandTask(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, a.logger)

	visited := map[uuid.UUID]struct{}{}
	expanded, err := a.expand(ctx, task, visited, 0)
	if err != nil {
		log.Warn("task tree expansion failed",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return nil, err
	}

	return expanded, nil
}

// ExpandForest implements Assembler.ExpandForest
func (a *assembler) ExpandForest(ctx context.Context) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, a.logger)

	roots, err := a.taskStore.FindRoots(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load root tasks: %w", err)
	}

	forest := make([]*domain.Task, 0, len(roots))
	for _, root := range roots {
		// Each root gets its own visited set; sharing one across trees
		// would reject tasks reachable from two roots, which the flat
		// parent reference cannot produce anyway.
		expanded, err := a.ExpandTask(ctx, root)
		if err != nil {
			return nil, err
		}
		forest = append(forest, expanded)
	}

	log.Debug("task forest expanded", slog.Int("roots", len(forest)))
	return forest, nil
}

// expand performs the depth-first expansion of a single node. The visited set
// carries every task ID on the path from the root; revisiting one means the
// stored data contains a cycle, so we fail fast instead of recursing forever.
func (a *assembler) expand(
	ctx context.Context,
	task *domain.Task,
	visited map[uuid.UUID]struct{},
	depth int,
) (*domain.Task, error) {
	if depth > a.maxDepth {
		return nil, fmt.Errorf("%w: depth %d at task %s", store.ErrDepthExceeded, depth, task.ID)
	}

	if _, seen := visited[task.ID]; seen {
		return nil, fmt.Errorf("%w: task %s revisited", store.ErrCycleDetected, task.ID)
	}
	visited[task.ID] = struct{}{}
	defer delete(visited, task.ID)

	children, err := a.taskStore.FindByParent(ctx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load subtasks of %s: %w", task.ID, err)
	}

	node := *task
	node.Subtasks = make([]*domain.Task, 0, len(children))
	for _, child := range children {
		expanded, err := a.expand(ctx, child, visited, depth+1)
		if err != nil {
			return nil, err
		}
		node.Subtasks = append(node.Subtasks, expanded)
	}

	return &node, nil
}
