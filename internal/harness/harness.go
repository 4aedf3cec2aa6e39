// Package harness provides a scenario-driven conformance framework for the
// session engine.
//
// Scenarios are yaml files describing an ordered sequence of view operations
// (see Step for the op vocabulary). A scenario runs against a fresh session
// with a manual clock pinned to a fixed epoch, so every timestamp, duration,
// and allocated id in the resulting trace is reproducible. Traces are
// compared against golden files via goldie; run with -update to regenerate.
package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/agentfs/agentfs/internal/clock"
	"github.com/agentfs/agentfs/internal/fs"
	"github.com/agentfs/agentfs/internal/kv"
	"github.com/agentfs/agentfs/internal/record"
	"github.com/agentfs/agentfs/internal/session"
	"github.com/agentfs/agentfs/internal/tools"
)

// scenarioEpoch is the manual clock's starting position for every scenario.
const scenarioEpoch = 1_700_000_000_000

// TraceEvent is one executed step in a scenario trace.
type TraceEvent struct {
	Op     string `json:"op"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Result is the full trace of a scenario execution.
type Result struct {
	Scenario string       `json:"scenario"`
	Trace    []TraceEvent `json:"trace"`
}

// Run executes a scenario against a fresh session stored under dataDir and
// returns the trace. A step failing without expect_error, failing with the
// wrong code, or succeeding despite expect_error aborts the run.
func Run(scenario *Scenario, dataDir string) (*Result, error) {
	ctx := context.Background()
	clk := clock.NewManual(scenarioEpoch)
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	mgr := session.NewManagerWithClock(session.Config{DataDir: dataDir}, quiet, clk)
	defer mgr.Close()

	s, err := mgr.Open(ctx, "scenario")
	if err != nil {
		return nil, fmt.Errorf("open scenario session: %w", err)
	}
	defer s.Close()

	result := &Result{Scenario: scenario.Name, Trace: []TraceEvent{}}
	for i, step := range scenario.Steps {
		event := TraceEvent{Op: opLabel(step)}

		value, err := execStep(ctx, s, clk, step)
		switch {
		case err != nil && step.ExpectError == "":
			return nil, fmt.Errorf("step %d (%s): unexpected error: %w", i, event.Op, err)
		case err != nil:
			code := errorCode(err)
			if code != step.ExpectError {
				return nil, fmt.Errorf("step %d (%s): error code %s, want %s", i, event.Op, code, step.ExpectError)
			}
			event.Error = code
		case step.ExpectError != "":
			return nil, fmt.Errorf("step %d (%s): succeeded, want error %s", i, event.Op, step.ExpectError)
		default:
			event.Result = value
		}

		result.Trace = append(result.Trace, event)
	}
	return result, nil
}

// execStep dispatches one step to its view operation.
func execStep(ctx context.Context, s *session.Session, clk *clock.Manual, step Step) (any, error) {
	switch step.Op {
	case "fs.write":
		return nil, s.FS().WriteFile(ctx, step.Path, []byte(step.Content))
	case "fs.read":
		content, err := s.FS().ReadFile(ctx, step.Path)
		if err != nil {
			return nil, err
		}
		return string(content), nil
	case "fs.ls":
		return s.FS().Readdir(ctx, step.Path)
	case "fs.stat":
		return s.FS().Stat(ctx, step.Path)
	case "fs.mkdir":
		return nil, s.FS().Mkdir(ctx, step.Path)
	case "fs.mkdir_all":
		return nil, s.FS().MkdirAll(ctx, step.Path)
	case "fs.rm":
		return nil, s.FS().Remove(ctx, step.Path, step.Recursive)
	case "fs.mv":
		return nil, s.FS().Rename(ctx, step.Path, step.NewPath)
	case "kv.set":
		value, err := kv.FromNative(step.Value)
		if err != nil {
			return nil, err
		}
		return nil, s.KV().Set(ctx, step.Key, value)
	case "kv.get":
		value, err := s.KV().Get(ctx, step.Key)
		if err != nil {
			return nil, err
		}
		return kv.Native(value), nil
	case "kv.del":
		return nil, s.KV().Delete(ctx, step.Key)
	case "kv.keys":
		return s.KV().Keys(ctx, step.Prefix)
	case "tools.start":
		return s.Tools().Start(ctx, step.Name, step.Input)
	case "tools.success":
		return nil, s.Tools().Success(ctx, step.ID, step.Output)
	case "tools.error":
		return nil, s.Tools().Error(ctx, step.ID, step.Message)
	case "tools.stats":
		return s.Tools().GetStats(ctx)
	case "tools.recent":
		return s.Tools().GetRecent(ctx, step.Since)
	case "clock.advance":
		clk.Advance(step.Millis)
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown op %q", step.Op)
	}
}

// opLabel renders a step as "op primary-args" for the trace.
func opLabel(step Step) string {
	switch step.Op {
	case "fs.mv":
		return fmt.Sprintf("%s %s %s", step.Op, step.Path, step.NewPath)
	case "fs.write", "fs.read", "fs.ls", "fs.stat", "fs.mkdir", "fs.mkdir_all", "fs.rm":
		return fmt.Sprintf("%s %s", step.Op, step.Path)
	case "kv.set", "kv.get", "kv.del":
		return fmt.Sprintf("%s %s", step.Op, step.Key)
	case "kv.keys":
		if step.Prefix == "" {
			return step.Op
		}
		return fmt.Sprintf("%s %s", step.Op, step.Prefix)
	case "tools.start":
		return fmt.Sprintf("%s %s", step.Op, step.Name)
	case "tools.success", "tools.error":
		return fmt.Sprintf("%s %d", step.Op, step.ID)
	case "tools.recent":
		return fmt.Sprintf("%s %d", step.Op, step.Since)
	case "clock.advance":
		return fmt.Sprintf("%s %d", step.Op, step.Millis)
	default:
		return step.Op
	}
}

// errorCode maps view errors onto the stable codes scenarios assert on.
func errorCode(err error) string {
	if code := fs.CodeOf(err); code != "" {
		return string(code)
	}
	switch {
	case errors.Is(err, kv.ErrNotFound),
		errors.Is(err, tools.ErrNotFound),
		errors.Is(err, record.ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, tools.ErrAlreadyTerminal):
		return "ALREADY_TERMINAL"
	case errors.Is(err, tools.ErrInvalidName):
		return "INVALID_NAME"
	case errors.Is(err, kv.ErrInvalidKey):
		return "INVALID_KEY"
	case errors.Is(err, record.ErrUnavailable):
		return "STORE_UNAVAILABLE"
	default:
		return "UNKNOWN"
	}
}
