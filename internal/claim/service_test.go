package claim

import (
	"context"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/claim-workflow/internal"
	"github.com/frahmantamala/claim-workflow/internal/core/events"
	"github.com/frahmantamala/claim-workflow/internal/user"
)

type mockRepository struct {
	claims    map[string]*Claim
	saveErr   error
	saveCalls int
}

func newMockRepository() *mockRepository {
	return &mockRepository{claims: make(map[string]*Claim)}
}

func (m *mockRepository) Create(c *Claim) error {
	m.claims[c.UID] = c
	return nil
}

func (m *mockRepository) GetByUID(uid string) (*Claim, error) {
	if c, ok := m.claims[uid]; ok {
		return c, nil
	}
	return nil, ErrClaimNotFound
}

func (m *mockRepository) Save(c *Claim) error {
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.claims[c.UID] = c
	return nil
}

func (m *mockRepository) DeleteItem(*LineItem) error {
	return nil
}

func (m *mockRepository) FindBySubmitter(submitterUID string) ([]*Claim, error) {
	var out []*Claim
	for _, c := range m.claims {
		if c.SubmitterUID == submitterUID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockRepository) FindByState(state State) ([]*Claim, error) {
	var out []*Claim
	for _, c := range m.claims {
		if c.State == state {
			out = append(out, c)
		}
	}
	return out, nil
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

func directoryUser(uid string, roles ...user.Role) *user.User {
	u := &user.User{UID: uid, Email: uid + "@example.com"}
	u.SetRoles(roles)
	return u
}

// capturedEvents subscribes to the bus and records what the orchestrator
// published, in order.
type capturedEvents struct {
	stateChanges []*events.ClaimStateChangedEvent
	rejections   []*events.ClaimRejectedEvent
}

func (c *capturedEvents) register(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeClaimStateChanged, func(_ context.Context, e events.Event) error {
		c.stateChanges = append(c.stateChanges, e.(*events.ClaimStateChangedEvent))
		return nil
	})
	bus.Subscribe(events.EventTypeClaimRejected, func(_ context.Context, e events.Event) error {
		c.rejections = append(c.rejections, e.(*events.ClaimRejectedEvent))
		return nil
	})
}

var _ = Describe("Claim Service", func() {
	var (
		repo      *mockRepository
		directory *mockDirectory
		captured  *capturedEvents
		service   *Service
		docCfg    internal.DocumentConfig
	)

	managerUID := "prof-1"

	BeforeEach(func() {
		repo = newMockRepository()
		directory = &mockDirectory{users: map[string]*user.User{
			"user-1":  directoryUser("user-1", user.RoleUser),
			"prof-1":  directoryUser("prof-1", user.RoleUser, user.RoleProf),
			"admin-1": directoryUser("admin-1", user.RoleUser, user.RoleFinanceAdmin),
		}}
		captured = &capturedEvents{}

		bus := events.NewEventBus(slog.Default())
		captured.register(bus)

		docCfg = internal.DocumentConfig{
			MaxUploadSize:     10 * 1024 * 1024,
			MinAttachmentSize: 100,
			MaxAttachmentSize: 1024 * 1024,
		}

		service = NewService(repo, directory, bus, docCfg, slog.Default())
	})

	validCreate := func() CreateClaimDTO {
		return CreateClaimDTO{
			ClaimDate:       time.Now(),
			FinanceAdminUID: "admin-1",
			Accounting:      "ACC-100",
		}
	}

	signedClaim := func(submitterUID string, state State, pdfSize int64) *Claim {
		c, err := service.CreateClaim(submitterUID, validCreate())
		Expect(err).NotTo(HaveOccurred())
		c.State = state
		c.SetGeneratedPDF("application/pdf", pdfSize, make([]byte, pdfSize))
		return c
	}

	Describe("CreateClaim", func() {
		It("opens a draft claim for the submitter", func() {
			c, err := service.CreateClaim("user-1", validCreate())
			Expect(err).NotTo(HaveOccurred())
			Expect(c.State).To(Equal(StateDraft))
			Expect(c.SubmitterUID).To(Equal("user-1"))
			Expect(c.FinanceAdminUID).To(Equal("admin-1"))
		})

		It("rejects an unknown finance admin", func() {
			dto := validCreate()
			dto.FinanceAdminUID = "nobody"

			_, err := service.CreateClaim("user-1", dto)
			Expect(err).To(MatchError(user.ErrUserNotFound))
		})

		It("rejects an incomplete payload", func() {
			_, err := service.CreateClaim("user-1", CreateClaimDTO{})
			_, isApp := internal.IsAppError(err)
			Expect(isApp).To(BeTrue())
		})

		It("notifies nobody for a draft", func() {
			_, err := service.CreateClaim("user-1", validCreate())
			Expect(err).NotTo(HaveOccurred())
			Expect(captured.stateChanges).To(BeEmpty())
		})
	})

	Describe("UploadSignedPDF", func() {
		It("advances the claim and queues the new responsible party", func() {
			c := signedClaim("user-1", StateToSignByUser, 500)
			c.ManagerUID = &managerUID

			updated, err := service.UploadSignedPDF(context.Background(), c.UID, Upload{
				ContentType: "application/pdf",
				Size:        650,
				Content:     make([]byte, 650),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.State).To(Equal(StateToSignByProf))

			Expect(captured.stateChanges).To(HaveLen(1))
			Expect(captured.stateChanges[0].ClaimUID).To(Equal(c.UID))
			Expect(captured.stateChanges[0].NotifyUID).To(Equal("prof-1"))
		})

		It("notifies the submitter when their own signature is next", func() {
			c := signedClaim("user-1", StateAssignedToFinanceAdmin, 500)

			updated, err := service.UploadSignedPDF(context.Background(), c.UID, Upload{
				ContentType: "application/pdf",
				Size:        650,
				Content:     make([]byte, 650),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.State).To(Equal(StateToSignByUser))
			Expect(captured.stateChanges[0].NotifyUID).To(Equal("user-1"))
		})

		It("branches on the submitter's roles out of draft", func() {
			c := signedClaim("prof-1", StateDraft, 500)

			updated, err := service.UploadSignedPDF(context.Background(), c.UID, Upload{
				ContentType: "application/pdf",
				Size:        650,
				Content:     make([]byte, 650),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.State).To(Equal(StateToBeAssigned))
			Expect(captured.stateChanges[0].NotifyUID).To(Equal("admin-1"))
		})

		It("persists nothing when the guard rejects the upload", func() {
			c := signedClaim("user-1", StateToSignByUser, 500)

			_, err := service.UploadSignedPDF(context.Background(), c.UID, Upload{
				ContentType: "application/pdf",
				Size:        500,
				Content:     make([]byte, 500),
			})
			Expect(err).To(HaveOccurred())
			Expect(repo.saveCalls).To(BeZero())
			Expect(captured.stateChanges).To(BeEmpty())
			Expect(c.State).To(Equal(StateToSignByUser))
		})

		It("fails on a terminal claim without touching the document", func() {
			c := signedClaim("user-1", StatePrinted, 500)

			_, err := service.UploadSignedPDF(context.Background(), c.UID, Upload{
				ContentType: "application/pdf",
				Size:        650,
				Content:     make([]byte, 650),
			})
			Expect(err).To(MatchError(ErrUnexpectedState))
			Expect(c.SignedPDF.FileSize).To(Equal(int64(500)))
		})

		It("skips the notification when the manager is not assigned yet", func() {
			c := signedClaim("user-1", StateAssignedToFinanceAdmin, 500)
			c.State = StateToSignByUser

			_, err := service.UploadSignedPDF(context.Background(), c.UID, Upload{
				ContentType: "application/pdf",
				Size:        650,
				Content:     make([]byte, 650),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(captured.stateChanges).To(BeEmpty())
		})
	})

	Describe("RejectClaim", func() {
		It("requires a comment", func() {
			c := signedClaim("user-1", StateToSignByProf, 500)

			_, err := service.RejectClaim(context.Background(), c.UID, RejectClaimDTO{})
			_, isApp := internal.IsAppError(err)
			Expect(isApp).To(BeTrue())
			Expect(c.State).To(Equal(StateToSignByProf))
		})

		It("rejects the claim and queues the submitter", func() {
			c := signedClaim("user-1", StateToSignByProf, 500)

			updated, err := service.RejectClaim(context.Background(), c.UID, RejectClaimDTO{Comment: "wrong project"})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.State).To(Equal(StateRejected))

			Expect(captured.rejections).To(HaveLen(1))
			Expect(captured.rejections[0].SubmitterUID).To(Equal("user-1"))
			Expect(captured.rejections[0].Comment).To(Equal("wrong project"))
		})
	})

	Describe("Items", func() {
		var claimUID string

		BeforeEach(func() {
			c, err := service.CreateClaim("user-1", validCreate())
			Expect(err).NotTo(HaveOccurred())
			claimUID = c.UID
		})

		itemDTO := func(amount float64) LineItemDTO {
			return LineItemDTO{
				ItemDate:       time.Now().Add(-24 * time.Hour),
				CostCategory:   "travel",
				Explanation:    "train to conference",
				Currency:       "CHF",
				ExchangeRate:   1.0,
				OriginalAmount: amount,
				Project:        "P1",
			}
		}

		It("adds an item and reflects it in the derived total", func() {
			item, err := service.AddItem(claimUID, itemDTO(120))
			Expect(err).NotTo(HaveOccurred())
			Expect(item.State).To(Equal(ItemStateInitial))

			c, err := service.GetClaim(claimUID)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.TotalAmount()).To(BeNumerically("~", 120, 1e-9))
		})

		It("rejects an item dated in the future", func() {
			dto := itemDTO(50)
			dto.ItemDate = time.Now().Add(48 * time.Hour)

			_, err := service.AddItem(claimUID, dto)
			_, isApp := internal.IsAppError(err)
			Expect(isApp).To(BeTrue())
		})

		It("updates an item and recomputes the total", func() {
			item, err := service.AddItem(claimUID, itemDTO(120))
			Expect(err).NotTo(HaveOccurred())

			updated, err := service.UpdateItem(claimUID, item.UID, itemDTO(200))
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.State).To(Equal(ItemStateCreated))

			c, _ := service.GetClaim(claimUID)
			Expect(c.TotalAmount()).To(BeNumerically("~", 200, 1e-9))
		})

		It("deletes an item and shrinks the total", func() {
			first, err := service.AddItem(claimUID, itemDTO(120))
			Expect(err).NotTo(HaveOccurred())
			_, err = service.AddItem(claimUID, itemDTO(80))
			Expect(err).NotTo(HaveOccurred())

			Expect(service.DeleteItem(claimUID, first.UID)).To(Succeed())

			c, _ := service.GetClaim(claimUID)
			Expect(c.TotalAmount()).To(BeNumerically("~", 80, 1e-9))
		})

		It("fails on an unknown item", func() {
			_, err := service.UpdateItem(claimUID, "missing", itemDTO(10))
			Expect(err).To(MatchError(ErrItemNotFound))
		})

		It("attaches a receipt inside the size band", func() {
			item, err := service.AddItem(claimUID, itemDTO(120))
			Expect(err).NotTo(HaveOccurred())

			err = service.AttachItemReceipt(claimUID, item.UID, Upload{
				ContentType: "image/png",
				Size:        4096,
				Content:     make([]byte, 4096),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(item.Attachment).NotTo(BeNil())
		})

		It("rejects a receipt below the band", func() {
			item, err := service.AddItem(claimUID, itemDTO(120))
			Expect(err).NotTo(HaveOccurred())

			err = service.AttachItemReceipt(claimUID, item.UID, Upload{
				ContentType: "image/png",
				Size:        50,
				Content:     make([]byte, 50),
			})
			Expect(err).To(HaveOccurred())
			Expect(item.Attachment).To(BeNil())
		})
	})
})
