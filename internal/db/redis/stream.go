package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/vibematch/internal/db"
)

// XAddMulti appends entries with server-assigned ids as one MULTI/EXEC
// transaction in a single round-trip. A command rejected while queueing
// (OOM, READONLY) aborts the whole batch, so a failed call appends nothing.
func (s *Store) XAddMulti(ctx context.Context, key string, entries [][]db.FieldValue) error {
	if len(entries) == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, 0, len(entries)+2)
	cmds = append(cmds, s.b().Multi().Build())
	for i, fields := range entries {
		if len(fields) == 0 {
			return &db.Error{Op: db.OpXAdd, Err: fmt.Errorf("entry %d has no fields", i)}
		}
		cmd := s.b().Xadd().Key(key).Id("*").FieldValue()
		for _, f := range fields {
			cmd = cmd.FieldValue(f.Field, f.Value)
		}
		cmds = append(cmds, cmd.Build())
	}
	cmds = append(cmds, s.b().Exec().Build())

	results := s.client.DoMulti(ctx, cmds...)
	if len(results) != len(cmds) {
		return &db.Error{Op: db.OpXAdd, Err: fmt.Errorf("key %s: got %d replies for %d commands", key, len(results), len(cmds))}
	}

	// MULTI and the queued XADDs report queueing errors.
	for i, res := range results[:len(results)-1] {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpXAdd, Err: fmt.Errorf("key %s queue %d: %w", key, i, err)}
		}
	}

	replies, err := results[len(results)-1].ToArray()
	if err != nil {
		return &db.Error{Op: db.OpXAdd, Err: fmt.Errorf("key %s exec: %w", key, err)}
	}
	for i, r := range replies {
		if err := r.Error(); err != nil {
			return &db.Error{Op: db.OpXAdd, Err: fmt.Errorf("key %s entry %d: %w", key, i, err)}
		}
	}
	return nil
}

// XRange returns every entry in the stream, oldest first.
func (s *Store) XRange(ctx context.Context, key string) ([]db.StreamEntry, error) {
	cmd := s.b().Xrange().Key(key).Start("-").End("+").Build()
	raw, err := s.do(ctx, cmd).AsXRange()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return []db.StreamEntry{}, nil
		}
		return nil, &db.Error{Op: db.OpXRange, Err: err}
	}

	entries := make([]db.StreamEntry, len(raw))
	for i, e := range raw {
		entries[i] = db.StreamEntry{ID: e.ID, Fields: e.FieldValues}
	}
	return entries, nil
}
