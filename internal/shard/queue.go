package shard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const (
	defaultVisibilityTimeout = 30 * time.Second
	maxPopCount              = 100
)

// QueueJob is one row of the queue table.
type QueueJob struct {
	QueueName string          `db:"queue_name" json:"queue"`
	JobID     string          `db:"job_id" json:"jobId"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	Priority  int             `db:"priority" json:"priority"`
	Status    string          `db:"status" json:"status"`
	Attempt   int             `db:"attempt" json:"attempt"`
	CreatedAt int64           `db:"created_at" json:"createdAt"`
}

// QueueStatus is the per-status job count for a queue.
type QueueStatus struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
}

// QueuePush enqueues items with the given priority (higher pops first).
// Each item must carry its own job id.
func (s *Shard) QueuePush(ctx context.Context, queue string, items []QueueJob, priority int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := nowUnix()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("queue push: %w", err)
	}
	defer tx.Rollback()

	for _, item := range items {
		p := item.Priority
		if p == 0 {
			p = priority
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO queue_jobs (queue_name, job_id, payload, priority, status, attempt, created_at, visible_at)
			 VALUES (?, ?, ?, ?, 'pending', 0, ?, 0)
			 ON CONFLICT(queue_name, job_id) DO UPDATE SET payload = excluded.payload, priority = excluded.priority`,
			queue, item.JobID, string(item.Payload), p, now)
		if err != nil {
			return fmt.Errorf("queue push: %w", err)
		}
	}
	return tx.Commit()
}

// QueuePop atomically selects up to count pending items (clamped to 100)
// ordered by (priority DESC, seq ASC) and checks them out: they are hidden
// from further pops for a visibility window and returned to the caller. seq
// is the table's autoincrement rowid alias, not created_at: nowUnix() is
// second-granularity, so two same-priority items pushed within the same
// second would tie under created_at alone and fall back to SQLite's
// undefined tie order; seq is monotonic per insert and breaks the tie
// correctly. If the caller never acknowledges them, the hygiene sweep
// returns them to pending once the window elapses, incrementing attempt.
// Also runs that sweep first, so a job whose window already lapsed is
// eligible again in the same call.
func (s *Shard) QueuePop(ctx context.Context, queue string, count int) ([]QueueJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sweepQueueVisibility(ctx, queue); err != nil {
		return nil, err
	}
	count = clampPopCount(count)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("queue pop: %w", err)
	}
	defer tx.Rollback()

	var jobs []QueueJob
	err = tx.SelectContext(ctx, &jobs,
		`SELECT queue_name, job_id, payload, priority, status, attempt, created_at
		 FROM queue_jobs WHERE queue_name = ? AND status = 'pending'
		 ORDER BY priority DESC, seq ASC LIMIT ?`,
		queue, count)
	if err != nil {
		return nil, fmt.Errorf("queue pop select: %w", err)
	}

	visibleAt := nowUnix() + int64(defaultVisibilityTimeout.Seconds())
	for i := range jobs {
		if _, err := tx.ExecContext(ctx,
			`UPDATE queue_jobs SET status = 'processing', visible_at = ? WHERE queue_name = ? AND job_id = ?`,
			visibleAt, queue, jobs[i].JobID); err != nil {
			return nil, fmt.Errorf("queue pop checkout: %w", err)
		}
		jobs[i].Status = "processing"
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("queue pop commit: %w", err)
	}
	return jobs, nil
}

// QueuePeek returns up to count pending items in pop order, without
// removing them.
func (s *Shard) QueuePeek(ctx context.Context, queue string, count int) ([]QueueJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sweepQueueVisibility(ctx, queue); err != nil {
		return nil, err
	}
	count = clampPopCount(count)

	var jobs []QueueJob
	err := s.db.SelectContext(ctx, &jobs,
		`SELECT queue_name, job_id, payload, priority, status, attempt, created_at
		 FROM queue_jobs WHERE queue_name = ? AND status = 'pending'
		 ORDER BY priority DESC, seq ASC LIMIT ?`,
		queue, count)
	if err != nil {
		return nil, fmt.Errorf("queue peek: %w", err)
	}
	return jobs, nil
}

// QueueStatusOf reports the pending/processing counts for queue, running
// the visibility sweep first.
func (s *Shard) QueueStatusOf(ctx context.Context, queue string) (QueueStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sweepQueueVisibility(ctx, queue); err != nil {
		return QueueStatus{}, err
	}

	var status QueueStatus
	if err := s.db.GetContext(ctx, &status.Pending, `SELECT COUNT(*) FROM queue_jobs WHERE queue_name = ? AND status = 'pending'`, queue); err != nil {
		return QueueStatus{}, fmt.Errorf("queue status: %w", err)
	}
	if err := s.db.GetContext(ctx, &status.Processing, `SELECT COUNT(*) FROM queue_jobs WHERE queue_name = ? AND status = 'processing'`, queue); err != nil {
		return QueueStatus{}, fmt.Errorf("queue status: %w", err)
	}
	return status, nil
}

// QueueClear deletes jobs from queue, optionally filtered to a single
// status ("pending" or "processing"); empty status clears everything.
func (s *Shard) QueueClear(ctx context.Context, queue, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if status == "" {
		_, err = s.db.ExecContext(ctx, `DELETE FROM queue_jobs WHERE queue_name = ?`, queue)
	} else {
		_, err = s.db.ExecContext(ctx, `DELETE FROM queue_jobs WHERE queue_name = ? AND status = ?`, queue, status)
	}
	if err != nil {
		return fmt.Errorf("queue clear: %w", err)
	}
	return nil
}

// sweepQueueVisibility moves processing jobs whose visibility window has
// elapsed back to pending, incrementing their attempt count.
func (s *Shard) sweepQueueVisibility(ctx context.Context, queue string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE queue_jobs SET status = 'pending', attempt = attempt + 1, visible_at = 0
		 WHERE queue_name = ? AND status = 'processing' AND visible_at <= ?`,
		queue, nowUnix())
	return err
}

func clampPopCount(count int) int {
	if count <= 0 {
		return maxPopCount
	}
	if count > maxPopCount {
		return maxPopCount
	}
	return count
}
