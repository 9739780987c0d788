// Package pipeline provides the ordered-stage engine that threads frames
// through a voice session.
//
// A pipeline is an ordered list of stages. A frame entering Downstream
// visits stage 1 → N; a frame entering Upstream visits stage N → 1. Each
// stage may pass the frame on, transform it, absorb it, or originate new
// frames in either direction. Frames leaving the Downstream end are handed
// to the session sink; frames leaving the Upstream end terminate at the
// transport boundary.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/voxstore/voxstore/pkg/frame"
)

// ErrTerminated is returned by a Task after a stage error has torn the
// pipeline down. The session owner is responsible for closing the
// transport when it sees this.
var ErrTerminated = errors.New("pipeline: terminated")

// Emit pairs a frame with the direction it should continue in.
type Emit struct {
	Frame     frame.Frame
	Direction frame.Direction
}

// Forward is the common stage result: one frame continuing unchanged.
func Forward(f frame.Frame, dir frame.Direction) []Emit {
	return []Emit{{Frame: f, Direction: dir}}
}

// Stage is a single processing unit in the pipeline.
//
// Stages must forward frame kinds they do not handle. The engine does no
// frame-type filtering of its own.
type Stage interface {
	// Name identifies the stage in logs and error messages.
	Name() string

	// Process handles one frame and returns the frames that continue
	// through the pipeline. Returning an empty slice absorbs the frame.
	Process(ctx context.Context, f frame.Frame, dir frame.Direction) ([]Emit, error)
}

// Sink receives frames that exit the Downstream end of the pipeline.
type Sink func(f frame.Frame)

// Engine runs frames through an ordered stage list.
type Engine struct {
	stages []Stage
	sink   Sink
	logger *slog.Logger
}

// New creates an engine. sink may be nil, in which case frames exiting
// the Downstream end are discarded.
func New(stages []Stage, sink Sink) *Engine {
	if sink == nil {
		sink = func(frame.Frame) {}
	}
	return &Engine{
		stages: stages,
		sink:   sink,
		logger: slog.Default().With("component", "pipeline"),
	}
}

// Push injects a frame at the pipeline boundary: Downstream frames enter
// before stage 1, Upstream frames after stage N. It returns the first
// stage error encountered, wrapped with the failing stage's name.
func (e *Engine) Push(ctx context.Context, f frame.Frame, dir frame.Direction) error {
	start := 0
	if dir == frame.Upstream {
		start = len(e.stages) - 1
	}
	return e.dispatch(ctx, f, dir, start)
}

// dispatch runs f through the stage at idx and recursively routes every
// emission. Depth-first traversal in emission order keeps per-direction
// frame ordering stable within a session.
func (e *Engine) dispatch(ctx context.Context, f frame.Frame, dir frame.Direction, idx int) error {
	if idx >= len(e.stages) {
		e.sink(f)
		return nil
	}
	if idx < 0 {
		// Upstream boundary; the transport input owns this edge.
		return nil
	}

	stage := e.stages[idx]
	emits, err := stage.Process(ctx, f, dir)
	if err != nil {
		return fmt.Errorf("stage %s: %w", stage.Name(), err)
	}

	for _, em := range emits {
		next := idx + 1
		if em.Direction == frame.Upstream {
			next = idx - 1
		}
		if err := e.dispatch(ctx, em.Frame, em.Direction, next); err != nil {
			return err
		}
	}
	return nil
}

// Task owns one session's running pipeline. After the first stage error
// the task is terminated: the error is recorded, Done is closed, and all
// further pushes fail with ErrTerminated.
type Task struct {
	engine *Engine

	mu   sync.Mutex
	err  error
	done chan struct{}
}

// NewTask wraps an engine for session use.
func NewTask(e *Engine) *Task {
	return &Task{engine: e, done: make(chan struct{})}
}

// Push feeds one frame into the pipeline. Frames are processed in call
// order; callers push from a single goroutine per session.
func (t *Task) Push(ctx context.Context, f frame.Frame, dir frame.Direction) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}

	if err := t.engine.Push(ctx, f, dir); err != nil {
		t.err = fmt.Errorf("%w: %v", ErrTerminated, err)
		t.engine.logger.Error("pipeline terminated", "error", err)
		close(t.done)
		return t.err
	}
	return nil
}

// Done is closed when the task has terminated due to a stage error.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Err returns the terminal error, or nil while the task is healthy.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}
