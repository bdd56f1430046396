package notification

import (
	"context"
	"log/slog"
	"sync"

	"github.com/frahmantamala/claim-workflow/internal/user"
)

// Store holds the set of users waiting for a digest. Membership is keyed
// by user UID; adding an already pending user is a no-op.
type Store interface {
	Add(uid string) (added bool, err error)
	All() ([]string, error)
	Remove(uid string) error
}

// Directory resolves a pending UID to the user whose roles decide which
// digest counts they receive.
type Directory interface {
	FindByUID(uid string) (*user.User, error)
}

// Queue coalesces notification triggers between flushes. Any number of
// events for the same user collapse into a single digest; the counts are
// computed fresh at flush time, so stale snapshots are impossible.
type Queue struct {
	store    Store
	dir      Directory
	counter  Counter
	renderer Renderer
	deliver  Deliverer
	logger   *slog.Logger

	flushMu sync.Mutex
}

func NewQueue(store Store, dir Directory, counter Counter, renderer Renderer, deliver Deliverer, logger *slog.Logger) *Queue {
	return &Queue{
		store:    store,
		dir:      dir,
		counter:  counter,
		renderer: renderer,
		deliver:  deliver,
		logger:   logger,
	}
}

// Enqueue marks the user as pending. Duplicate enqueues before the next
// flush are absorbed by the store.
func (q *Queue) Enqueue(uid string) error {
	added, err := q.store.Add(uid)
	if err != nil {
		q.logger.Error("failed to enqueue digest recipient", "error", err, "user_uid", uid)
		return err
	}
	if added {
		q.logger.Info("digest recipient queued", "user_uid", uid)
	}
	return nil
}

// Flush drains the pending set. Each entry is taken out of the store
// before its digest is built, so a trigger that lands mid-delivery
// re-adds the user and is picked up by the next flush instead of being
// deleted together with the entry it coalesced into. A failed render or
// delivery logs the error and puts the entry back rather than aborting
// the batch. Only one flush runs at a time; the interval worker and the
// manual trigger share the same lock.
func (q *Queue) Flush(ctx context.Context) error {
	q.flushMu.Lock()
	defer q.flushMu.Unlock()

	pending, err := q.store.All()
	if err != nil {
		q.logger.Error("failed to load pending digest recipients", "error", err)
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	q.logger.Info("flushing digest queue", "pending", len(pending))

	for _, uid := range pending {
		if err := q.store.Remove(uid); err != nil {
			q.logger.Error("failed to take pending recipient, entry retained", "error", err, "user_uid", uid)
			continue
		}
		if err := q.flushOne(ctx, uid); err != nil {
			q.logger.Error("digest delivery failed, entry requeued",
				"error", err,
				"user_uid", uid)
			if _, addErr := q.store.Add(uid); addErr != nil {
				q.logger.Error("failed to requeue recipient after delivery failure", "error", addErr, "user_uid", uid)
			}
			continue
		}
	}

	return nil
}

func (q *Queue) flushOne(ctx context.Context, uid string) error {
	u, err := q.dir.FindByUID(uid)
	if err != nil {
		return err
	}

	counts, err := CountsFor(u, q.counter)
	if err != nil {
		return err
	}

	msg, err := q.renderer.Render(u, counts)
	if err != nil {
		return err
	}

	if err := q.deliver.Deliver(ctx, u, msg); err != nil {
		return err
	}

	q.logger.Info("digest delivered",
		"user_uid", uid,
		"to_check", counts.ToCheck,
		"to_sign", counts.ToSign,
		"to_assign", counts.ToAssign,
		"own_to_sign", counts.OwnToSign,
		"own_to_print", counts.OwnToPrint)

	return nil
}
