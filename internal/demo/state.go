// Package demo tracks the dashboard's demo period state machine and the
// exclusive reset lock. State lives in Redis so every service instance agrees
// on the current period.
package demo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/runsheet-systems/runsheet-data/internal/model"
)

// State labels follow the demo script: morning baseline, then afternoon,
// evening, and night overlays. Reset returns to the morning baseline
// unconditionally.
const (
	StateMorningBaseline = "morning_baseline"
	StateAfternoon       = "afternoon"
	StateEvening         = "evening"
	StateNight           = "night"
)

// BaselineBatchID is the reserved batch marker written by a reset.
const BaselineBatchID = "morning_baseline"

var stateRank = map[string]int{
	StateMorningBaseline: 0,
	StateAfternoon:       1,
	StateEvening:         2,
	StateNight:           3,
}

// PeriodFromBatchID derives the demo period label from a batch id: the
// reserved baseline marker maps to morning_baseline, otherwise the prefix
// before the first underscore names the period (afternoon_ops -> afternoon).
// Unrecognized labels are a ValidationError; the resolver itself never depends
// on period names, only on operational_time ordering.
func PeriodFromBatchID(batchID string) (string, error) {
	if batchID == BaselineBatchID {
		return StateMorningBaseline, nil
	}
	label := batchID
	if i := strings.IndexByte(batchID, '_'); i > 0 {
		label = batchID[:i]
	}
	switch label {
	case "morning":
		return StateMorningBaseline, nil
	case StateAfternoon, StateEvening, StateNight:
		return label, nil
	}
	return "", &model.ValidationError{Field: "batch_id", Value: batchID, Row: -1, Reason: "unrecognized period label"}
}

const (
	stateKey     = "runsheet:demo:state"
	resetLockKey = "runsheet:demo:reset_lock"
)

// Tracker stores the demo state and the reset advisory lock in Redis.
type Tracker struct {
	redis   *redis.Client
	lockTTL time.Duration
}

// NewTracker creates a tracker. lockTTL bounds how long a crashed reset can
// hold the lock; zero selects 30 seconds.
func NewTracker(client *redis.Client, lockTTL time.Duration) *Tracker {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &Tracker{redis: client, lockTTL: lockTTL}
}

// Current returns the last applied period, defaulting to morning_baseline when
// nothing has been recorded yet.
func (t *Tracker) Current(ctx context.Context) (string, error) {
	val, err := t.redis.Get(ctx, stateKey).Result()
	if errors.Is(err, redis.Nil) {
		return StateMorningBaseline, nil
	}
	if err != nil {
		return "", fmt.Errorf("get demo state: %w", err)
	}
	return val, nil
}

// Advance records a successfully applied period. The state only moves forward
// through the script; re-applying an earlier period leaves it unchanged (the
// resolver already discards the stale records). The read-compare-set runs
// under WATCH so concurrent instances cannot regress the state.
func (t *Tracker) Advance(ctx context.Context, period string) error {
	rank, ok := stateRank[period]
	if !ok {
		return &model.ValidationError{Field: "period", Value: period, Row: -1, Reason: "unrecognized period label"}
	}

	advance := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, stateKey).Result()
		if errors.Is(err, redis.Nil) {
			current = StateMorningBaseline
		} else if err != nil {
			return err
		}
		if rank < stateRank[current] {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, stateKey, period, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < 3; attempt++ {
		err := t.redis.Watch(ctx, advance, stateKey)
		if err == nil {
			return nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return fmt.Errorf("set demo state: %w", err)
		}
	}
	return fmt.Errorf("set demo state: %w", redis.TxFailedErr)
}

// ResetState unconditionally returns the state machine to morning_baseline.
func (t *Tracker) ResetState(ctx context.Context) error {
	if err := t.redis.Set(ctx, stateKey, StateMorningBaseline, 0).Err(); err != nil {
		return fmt.Errorf("reset demo state: %w", err)
	}
	return nil
}

// AcquireResetLock takes the global advisory lock for the bulk-replace window.
// Returns ErrResetInProgress when another reset holds it.
func (t *Tracker) AcquireResetLock(ctx context.Context) error {
	ok, err := t.redis.SetNX(ctx, resetLockKey, time.Now().UTC().Format(time.RFC3339Nano), t.lockTTL).Result()
	if err != nil {
		return fmt.Errorf("acquire reset lock: %w", err)
	}
	if !ok {
		return model.ErrResetInProgress
	}
	return nil
}

// ReleaseResetLock drops the advisory lock.
func (t *Tracker) ReleaseResetLock(ctx context.Context) error {
	if err := t.redis.Del(ctx, resetLockKey).Err(); err != nil {
		return fmt.Errorf("release reset lock: %w", err)
	}
	return nil
}

// ResetInProgress reports whether a reset currently holds the lock. Uploads
// observing the lock are rejected immediately rather than queued.
func (t *Tracker) ResetInProgress(ctx context.Context) (bool, error) {
	n, err := t.redis.Exists(ctx, resetLockKey).Result()
	if err != nil {
		return false, fmt.Errorf("check reset lock: %w", err)
	}
	return n > 0, nil
}
