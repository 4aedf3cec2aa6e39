package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/agentfs/agentfs/internal/clock"
	"github.com/agentfs/agentfs/internal/record"
)

// Collection is the record-store collection holding the ledger.
const Collection = "tools"

// Sequence name for call id allocation.
const idSequence = "tool_call_id"

// Status is a tool call's lifecycle state.
type Status string

const (
	// StatusPending means the call has started but not completed.
	StatusPending Status = "pending"
	// StatusSuccess is the successful terminal state.
	StatusSuccess Status = "success"
	// StatusError is the failed terminal state.
	StatusError Status = "error"
)

// terminal reports whether a status is final.
func (s Status) terminal() bool {
	return s == StatusSuccess || s == StatusError
}

// Call is one tool invocation record.
type Call struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Input       map[string]any `json:"input,omitempty"`
	Status      Status         `json:"status"`
	StartedAt   int64          `json:"started_at"`              // Unix milliseconds
	CompletedAt int64          `json:"completed_at,omitempty"`  // Unix milliseconds, terminal only
	Output      map[string]any `json:"output,omitempty"`        // success only
	Message     string         `json:"message,omitempty"`       // error only
	DurationMS  int64          `json:"duration_ms,omitempty"`   // CompletedAt - StartedAt
}

// Stat is the per-name aggregate over completed calls.
type Stat struct {
	Name          string  `json:"name"`
	TotalCalls    int64   `json:"total_calls"`
	Successful    int64   `json:"successful"`
	Failed        int64   `json:"failed"`
	AvgDurationMS float64 `json:"avg_duration_ms"`
}

// statRecord is the persisted form of a Stat: counters plus a running
// duration sum, so the mean never needs a ledger re-scan.
type statRecord struct {
	Total      int64 `json:"total"`
	Successful int64 `json:"successful"`
	Failed     int64 `json:"failed"`
	DurSumMS   int64 `json:"dur_sum_ms"`
}

// ErrNotFound reports a completion against an unknown call id.
var ErrNotFound = errors.New("tool call not found")

// ErrAlreadyTerminal reports a second completion of the same call.
var ErrAlreadyTerminal = errors.New("tool call already terminal")

// ErrInvalidName reports an empty tool name.
var ErrInvalidName = errors.New("invalid tool name")

// Ledger is the tool-call view over a session's record store.
type Ledger struct {
	store *record.Store
	clock clock.Clock
}

// New creates a ledger view.
func New(store *record.Store, clk clock.Clock) *Ledger {
	return &Ledger{store: store, clock: clk}
}

// Start records a pending tool call and returns its id. Ids within a session
// are strictly increasing and reflect call-start order; an id is issued
// exactly once. Start returns immediately - completion comes later via
// Success or Error.
func (l *Ledger) Start(ctx context.Context, name string, input map[string]any) (int64, error) {
	if name == "" {
		return 0, ErrInvalidName
	}

	var id int64
	err := l.store.Update(ctx, func(tx *record.Tx) error {
		var err error
		id, err = tx.NextSequence(idSequence)
		if err != nil {
			return err
		}

		call := Call{
			ID:        id,
			Name:      name,
			Input:     input,
			Status:    StatusPending,
			StartedAt: l.clock.NowMillis(),
		}
		data, err := json.Marshal(call)
		if err != nil {
			return fmt.Errorf("marshal call: %w", err)
		}
		if err := tx.Put(Collection, callKey(id), data); err != nil {
			return err
		}
		return tx.Put(Collection, timeKey(call.StartedAt, id), []byte{})
	})
	if err != nil {
		return 0, fmt.Errorf("start %q: %w", name, err)
	}
	return id, nil
}

// Success transitions the call to its successful terminal state with the
// given output payload.
func (l *Ledger) Success(ctx context.Context, id int64, output map[string]any) error {
	return l.complete(ctx, id, StatusSuccess, output, "")
}

// Error transitions the call to its failed terminal state with an error
// message.
func (l *Ledger) Error(ctx context.Context, id int64, message string) error {
	return l.complete(ctx, id, StatusError, nil, message)
}

// complete applies the single allowed terminal transition and updates the
// per-name statistics in the same transaction, so the ledger and its summary
// never diverge.
func (l *Ledger) complete(ctx context.Context, id int64, terminal Status, output map[string]any, message string) error {
	return l.store.Update(ctx, func(tx *record.Tx) error {
		data, err := tx.Get(Collection, callKey(id))
		if errors.Is(err, record.ErrNotFound) {
			return fmt.Errorf("complete call %d: %w", id, ErrNotFound)
		}
		if err != nil {
			return err
		}

		var call Call
		if err := json.Unmarshal(data, &call); err != nil {
			return fmt.Errorf("unmarshal call %d: %w", id, err)
		}
		if call.Status.terminal() {
			return fmt.Errorf("complete call %d (%s): %w", id, call.Status, ErrAlreadyTerminal)
		}

		now := l.clock.NowMillis()
		call.Status = terminal
		call.CompletedAt = now
		call.DurationMS = now - call.StartedAt
		call.Output = output
		call.Message = message

		updated, err := json.Marshal(call)
		if err != nil {
			return fmt.Errorf("marshal call %d: %w", id, err)
		}
		if err := tx.Put(Collection, callKey(id), updated); err != nil {
			return err
		}

		return bumpStats(tx, call)
	})
}

// bumpStats folds a newly terminal call into its tool's aggregate record.
// Stats reflect completed calls only; pending calls are invisible here.
func bumpStats(tx *record.Tx, call Call) error {
	var stats statRecord
	data, err := tx.Get(Collection, statKey(call.Name))
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &stats); err != nil {
			return fmt.Errorf("unmarshal stats %q: %w", call.Name, err)
		}
	case !errors.Is(err, record.ErrNotFound):
		return err
	}

	stats.Total++
	stats.DurSumMS += call.DurationMS
	if call.Status == StatusSuccess {
		stats.Successful++
	} else {
		stats.Failed++
	}

	updated, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal stats %q: %w", call.Name, err)
	}
	return tx.Put(Collection, statKey(call.Name), updated)
}

// Get returns the call with the given id.
func (l *Ledger) Get(ctx context.Context, id int64) (Call, error) {
	var call Call
	err := l.store.View(ctx, func(tx *record.Tx) error {
		var err error
		call, err = getCall(tx, id)
		return err
	})
	if err != nil {
		return Call{}, err
	}
	return call, nil
}

func getCall(tx *record.Tx, id int64) (Call, error) {
	data, err := tx.Get(Collection, callKey(id))
	if errors.Is(err, record.ErrNotFound) {
		return Call{}, fmt.Errorf("call %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Call{}, err
	}
	var call Call
	if err := json.Unmarshal(data, &call); err != nil {
		return Call{}, fmt.Errorf("unmarshal call %d: %w", id, err)
	}
	return call, nil
}

// GetStats returns one aggregate per tool name observed in a terminal state,
// sorted by name ascending. That ordering is the contract, not an accident:
// stats live under name-ordered keys and the scan order is returned as-is.
func (l *Ledger) GetStats(ctx context.Context) ([]Stat, error) {
	recs, err := l.store.ScanRange(ctx, Collection, []byte{prefixStat}, familyEnd(prefixStat))
	if err != nil {
		return nil, err
	}

	stats := make([]Stat, 0, len(recs))
	for _, rec := range recs {
		var sr statRecord
		if err := json.Unmarshal(rec.Value, &sr); err != nil {
			return nil, fmt.Errorf("unmarshal stats %q: %w", rec.Key[1:], err)
		}
		stat := Stat{
			Name:       string(rec.Key[1:]),
			TotalCalls: sr.Total,
			Successful: sr.Successful,
			Failed:     sr.Failed,
		}
		if sr.Total > 0 {
			stat.AvgDurationMS = float64(sr.DurSumMS) / float64(sr.Total)
		}
		stats = append(stats, stat)
	}
	return stats, nil
}

// GetRecent returns all calls with start timestamp >= since (Unix
// milliseconds), ascending by (start, id). The time index bounds the scan -
// no full-ledger walk.
func (l *Ledger) GetRecent(ctx context.Context, since int64) ([]Call, error) {
	var calls []Call
	err := l.store.View(ctx, func(tx *record.Tx) error {
		recs, err := tx.ScanRange(Collection, timeKey(since, 0), familyEnd(prefixTime))
		if err != nil {
			return err
		}
		calls = make([]Call, 0, len(recs))
		for _, rec := range recs {
			call, err := getCall(tx, timeKeyID(rec.Key))
			if err != nil {
				return err
			}
			calls = append(calls, call)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return calls, nil
}

// GetByName returns up to limit most recent calls of one tool, ascending by
// start. A limit <= 0 means no limit.
func (l *Ledger) GetByName(ctx context.Context, name string, limit int) ([]Call, error) {
	if name == "" {
		return nil, ErrInvalidName
	}

	var calls []Call
	err := l.store.View(ctx, func(tx *record.Tx) error {
		recs, err := tx.ScanRange(Collection, []byte{prefixCall}, familyEnd(prefixCall))
		if err != nil {
			return err
		}
		calls = []Call{}
		for _, rec := range recs {
			var call Call
			if err := json.Unmarshal(rec.Value, &call); err != nil {
				return fmt.Errorf("unmarshal call: %w", err)
			}
			if call.Name == name {
				calls = append(calls, call)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(calls) > limit {
		calls = calls[len(calls)-limit:]
	}
	return calls, nil
}
