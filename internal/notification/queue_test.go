package notification

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/claim-workflow/internal/claim"
	"github.com/frahmantamala/claim-workflow/internal/user"
)

func TestNotification(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Notification Suite")
}

type mockDirectory struct {
	users map[string]*user.User
}

func (m *mockDirectory) FindByUID(uid string) (*user.User, error) {
	if u, ok := m.users[uid]; ok {
		return u, nil
	}
	return nil, user.ErrUserNotFound
}

// mockCounter answers counts from a fixed table keyed by uid and state.
// The shared pool is kept per submitter so the exclusion in
// CountInStateExcluding is exercised.
type mockCounter struct {
	financeAdmin map[string]map[claim.State]int64
	manager      map[string]map[claim.State]int64
	submitter    map[string]map[claim.State]int64
	pool         map[claim.State]map[string]int64
}

func newMockCounter() *mockCounter {
	return &mockCounter{
		financeAdmin: make(map[string]map[claim.State]int64),
		manager:      make(map[string]map[claim.State]int64),
		submitter:    make(map[string]map[claim.State]int64),
		pool:         make(map[claim.State]map[string]int64),
	}
}

func (m *mockCounter) CountForFinanceAdmin(uid string, state claim.State) (int64, error) {
	return m.financeAdmin[uid][state], nil
}

func (m *mockCounter) CountForManager(uid string, state claim.State) (int64, error) {
	return m.manager[uid][state], nil
}

func (m *mockCounter) CountForSubmitter(uid string, state claim.State) (int64, error) {
	return m.submitter[uid][state], nil
}

func (m *mockCounter) CountInStateExcluding(state claim.State, excludeUID string) (int64, error) {
	var total int64
	for submitterUID, count := range m.pool[state] {
		if submitterUID == excludeUID {
			continue
		}
		total += count
	}
	return total, nil
}

type recordingDeliverer struct {
	delivered []Message
	failFor   map[string]bool
	onDeliver func(u *user.User)
}

func (d *recordingDeliverer) Deliver(_ context.Context, u *user.User, msg Message) error {
	if d.onDeliver != nil {
		d.onDeliver(u)
	}
	if d.failFor[u.UID] {
		return errors.New("relay unavailable")
	}
	d.delivered = append(d.delivered, msg)
	return nil
}

func newTestUser(uid, email string, roles ...user.Role) *user.User {
	u := &user.User{UID: uid, FirstName: "Test", Email: email}
	u.SetRoles(roles)
	return u
}

var _ = Describe("Digest Queue", func() {
	var (
		store     *MemoryStore
		directory *mockDirectory
		counter   *mockCounter
		deliverer *recordingDeliverer
		queue     *Queue
	)

	BeforeEach(func() {
		store = NewMemoryStore()
		directory = &mockDirectory{users: map[string]*user.User{
			"user-1":  newTestUser("user-1", "user1@example.com", user.RoleUser),
			"admin-1": newTestUser("admin-1", "admin1@example.com", user.RoleFinanceAdmin),
		}}
		counter = newMockCounter()
		deliverer = &recordingDeliverer{failFor: make(map[string]bool)}

		renderer, err := NewTemplateRenderer("Pending claims")
		Expect(err).NotTo(HaveOccurred())

		queue = NewQueue(store, directory, counter, renderer, deliverer, slog.Default())
	})

	Describe("Enqueue", func() {
		It("absorbs duplicate enqueues into one pending entry", func() {
			Expect(queue.Enqueue("user-1")).To(Succeed())
			Expect(queue.Enqueue("user-1")).To(Succeed())
			Expect(queue.Enqueue("user-1")).To(Succeed())

			pending, err := store.All()
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(ConsistOf("user-1"))
		})

		It("keeps distinct users as distinct entries", func() {
			Expect(queue.Enqueue("user-1")).To(Succeed())
			Expect(queue.Enqueue("admin-1")).To(Succeed())

			pending, err := store.All()
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(ConsistOf("user-1", "admin-1"))
		})
	})

	Describe("Flush", func() {
		It("delivers one digest per pending user and empties the set", func() {
			Expect(queue.Enqueue("user-1")).To(Succeed())
			Expect(queue.Enqueue("user-1")).To(Succeed())
			Expect(queue.Enqueue("admin-1")).To(Succeed())

			Expect(queue.Flush(context.Background())).To(Succeed())

			Expect(deliverer.delivered).To(HaveLen(2))
			pending, err := store.All()
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(BeEmpty())
		})

		It("does nothing when the set is empty", func() {
			Expect(queue.Flush(context.Background())).To(Succeed())
			Expect(deliverer.delivered).To(BeEmpty())
		})

		It("retains a user whose delivery failed and flushes the rest", func() {
			deliverer.failFor["user-1"] = true
			Expect(queue.Enqueue("user-1")).To(Succeed())
			Expect(queue.Enqueue("admin-1")).To(Succeed())

			Expect(queue.Flush(context.Background())).To(Succeed())

			Expect(deliverer.delivered).To(HaveLen(1))
			Expect(deliverer.delivered[0].To).To(Equal("admin1@example.com"))

			pending, err := store.All()
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(ConsistOf("user-1"))
		})

		It("retains a user the directory cannot resolve", func() {
			Expect(queue.Enqueue("ghost")).To(Succeed())

			Expect(queue.Flush(context.Background())).To(Succeed())

			pending, err := store.All()
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(ConsistOf("ghost"))
		})

		It("defers a user enqueued while their digest is being delivered", func() {
			Expect(queue.Enqueue("user-1")).To(Succeed())
			deliverer.onDeliver = func(u *user.User) {
				Expect(queue.Enqueue(u.UID)).To(Succeed())
			}

			Expect(queue.Flush(context.Background())).To(Succeed())

			Expect(deliverer.delivered).To(HaveLen(1))
			pending, err := store.All()
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(ConsistOf("user-1"))

			deliverer.onDeliver = nil
			Expect(queue.Flush(context.Background())).To(Succeed())

			Expect(deliverer.delivered).To(HaveLen(2))
			pending, err = store.All()
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(BeEmpty())
		})

		It("delivers again after a retained user is flushed successfully", func() {
			deliverer.failFor["user-1"] = true
			Expect(queue.Enqueue("user-1")).To(Succeed())
			Expect(queue.Flush(context.Background())).To(Succeed())

			deliverer.failFor["user-1"] = false
			Expect(queue.Flush(context.Background())).To(Succeed())

			Expect(deliverer.delivered).To(HaveLen(1))
			pending, err := store.All()
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(BeEmpty())
		})
	})
})

var _ = Describe("Digest Counts", func() {
	var counter *mockCounter

	BeforeEach(func() {
		counter = newMockCounter()
	})

	Context("for a finance admin", func() {
		It("includes review, signing and assignment pools plus own counts", func() {
			counter.financeAdmin["admin-1"] = map[claim.State]int64{
				claim.StateAssignedToFinanceAdmin: 3,
				claim.StateToSignByFinanceAdmin:   2,
			}
			counter.pool[claim.StateToBeAssigned] = map[string]int64{
				"user-7": 3,
				"user-8": 2,
			}
			counter.submitter["admin-1"] = map[claim.State]int64{
				claim.StateToSignByUser: 1,
				claim.StateSigned:       4,
			}

			counts, err := CountsFor(newTestUser("admin-1", "a@example.com", user.RoleFinanceAdmin), counter)
			Expect(err).NotTo(HaveOccurred())
			Expect(counts).To(Equal(DigestCounts{
				ToCheck:    3,
				ToSign:     2,
				ToAssign:   5,
				OwnToSign:  1,
				OwnToPrint: 4,
			}))
		})

		It("leaves the admin's own submissions out of the assignment pool", func() {
			counter.pool[claim.StateToBeAssigned] = map[string]int64{
				"user-7":  3,
				"admin-1": 2,
			}

			counts, err := CountsFor(newTestUser("admin-1", "a@example.com", user.RoleFinanceAdmin), counter)
			Expect(err).NotTo(HaveOccurred())
			Expect(counts.ToAssign).To(Equal(int64(3)))
		})
	})

	Context("for a manager", func() {
		It("includes assigned claims but never the assignment pool", func() {
			counter.manager["prof-1"] = map[claim.State]int64{
				claim.StateAssignedToProf: 2,
				claim.StateToSignByProf:   1,
			}
			counter.pool[claim.StateToBeAssigned] = map[string]int64{"user-9": 9}

			counts, err := CountsFor(newTestUser("prof-1", "p@example.com", user.RoleProf), counter)
			Expect(err).NotTo(HaveOccurred())
			Expect(counts.ToCheck).To(Equal(int64(2)))
			Expect(counts.ToSign).To(Equal(int64(1)))
			Expect(counts.ToAssign).To(BeZero())
		})
	})

	Context("for a plain user", func() {
		It("includes only the user's own claims", func() {
			counter.submitter["user-1"] = map[claim.State]int64{
				claim.StateToSignByUser: 2,
				claim.StateSigned:       1,
			}
			counter.financeAdmin["user-1"] = map[claim.State]int64{
				claim.StateAssignedToFinanceAdmin: 7,
			}

			counts, err := CountsFor(newTestUser("user-1", "u@example.com", user.RoleUser), counter)
			Expect(err).NotTo(HaveOccurred())
			Expect(counts).To(Equal(DigestCounts{OwnToSign: 2, OwnToPrint: 1}))
		})
	})
})
