package claim

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/claim-workflow/internal/document"
	"github.com/frahmantamala/claim-workflow/internal/user"
)

func TestClaim(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Claim Module Suite")
}

const testMaxUploadSize = int64(10 * 1024 * 1024)

func newTestClaim() *Claim {
	return NewClaim("user-1", time.Now(), "admin-1", "ACC-100")
}

var _ = Describe("Claim State Machine", func() {
	plainUser := []user.Role{user.RoleUser}
	profUser := []user.Role{user.RoleUser, user.RoleProf}
	adminUser := []user.Role{user.RoleUser, user.RoleFinanceAdmin}

	Describe("NextState", func() {
		Context("from draft", func() {
			It("routes a plain user's claim to their manager", func() {
				next, err := NextState(StateDraft, plainUser)
				Expect(err).NotTo(HaveOccurred())
				Expect(next).To(Equal(StateAssignedToProf))
			})

			It("routes a professor's claim straight to the assignment pool", func() {
				next, err := NextState(StateDraft, profUser)
				Expect(err).NotTo(HaveOccurred())
				Expect(next).To(Equal(StateToBeAssigned))
			})

			It("routes a finance admin's claim straight to the assignment pool", func() {
				next, err := NextState(StateDraft, adminUser)
				Expect(err).NotTo(HaveOccurred())
				Expect(next).To(Equal(StateToBeAssigned))
			})
		})

		It("walks a plain user's claim through the whole chain", func() {
			chain := []State{
				StateAssignedToProf,
				StateToBeAssigned,
				StateAssignedToFinanceAdmin,
				StateToSignByUser,
				StateToSignByProf,
				StateToSignByFinanceAdmin,
				StateSigned,
				StatePrinted,
			}

			current := StateDraft
			for _, want := range chain {
				next, err := NextState(current, plainUser)
				Expect(err).NotTo(HaveOccurred())
				Expect(next).To(Equal(want))
				current = next
			}
		})

		It("has no transition out of printed", func() {
			_, err := NextState(StatePrinted, plainUser)
			Expect(err).To(MatchError(ErrUnexpectedState))
		})

		It("has no transition out of rejected", func() {
			_, err := NextState(StateRejected, adminUser)
			Expect(err).To(MatchError(ErrUnexpectedState))
		})
	})

	Describe("Advance", func() {
		It("moves the claim exactly one step", func() {
			c := newTestClaim()
			Expect(c.Advance(plainUser)).To(Succeed())
			Expect(c.State).To(Equal(StateAssignedToProf))
		})

		It("leaves a rejected claim untouched", func() {
			c := newTestClaim()
			c.Reject("missing receipts")

			err := c.Advance(plainUser)
			Expect(err).To(MatchError(ErrUnexpectedState))
			Expect(c.State).To(Equal(StateRejected))
		})
	})

	Describe("Reject", func() {
		It("moves the claim to rejected from any active state and keeps the comment", func() {
			c := newTestClaim()
			c.State = StateToSignByProf

			c.Reject("amounts do not match the receipts")

			Expect(c.State).To(Equal(StateRejected))
			Expect(c.RejectComment).NotTo(BeNil())
			Expect(*c.RejectComment).To(Equal("amounts do not match the receipts"))
		})
	})

	Describe("TotalAmount", func() {
		It("sums the calculated amounts of the line items", func() {
			c := newTestClaim()
			c.Items = append(c.Items,
				NewLineItem(time.Now(), "travel", "train", "CHF", 1.0, 120, "P1"),
				NewLineItem(time.Now(), "hotel", "one night", "EUR", 0.95, 200, "P1"),
			)
			Expect(c.TotalAmount()).To(BeNumerically("~", 120+200*0.95, 1e-9))
		})

		It("is zero for a claim without items", func() {
			Expect(newTestClaim().TotalAmount()).To(BeZero())
		})
	})
})

var _ = Describe("Signing Uploads", func() {
	plainUser := []user.Role{user.RoleUser}

	var c *Claim

	BeforeEach(func() {
		c = newTestClaim()
		c.State = StateToSignByUser
		c.SignedPDF = document.New(document.KindGenerated, "application/pdf", 500, make([]byte, 500))
	})

	It("rejects a signed upload when no PDF was ever exported", func() {
		fresh := newTestClaim()
		fresh.State = StateToSignByUser

		err := fresh.SignPDF(plainUser, "application/pdf", 600, make([]byte, 600), testMaxUploadSize)
		Expect(err).To(MatchError(document.ErrNoPriorDocument))
		Expect(fresh.State).To(Equal(StateToSignByUser))
		Expect(fresh.SignedPDF).To(BeNil())
	})

	It("rejects an upload that did not grow", func() {
		err := c.SignPDF(plainUser, "application/pdf", 500, make([]byte, 500), testMaxUploadSize)
		Expect(err).To(MatchError(document.ErrNotModified))
		Expect(c.State).To(Equal(StateToSignByUser))
		Expect(c.SignedPDF.FileSize).To(Equal(int64(500)))
	})

	It("rejects an upload at or above the size limit", func() {
		err := c.SignPDF(plainUser, "application/pdf", testMaxUploadSize, nil, testMaxUploadSize)
		Expect(err).To(MatchError(document.ErrTooLarge))
		Expect(c.State).To(Equal(StateToSignByUser))
	})

	It("replaces the document and advances on a valid upload", func() {
		err := c.SignPDF(plainUser, "application/pdf", 650, make([]byte, 650), testMaxUploadSize)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.State).To(Equal(StateToSignByProf))
		Expect(c.SignedPDF.FileSize).To(Equal(int64(650)))
	})

	It("leaves the document untouched when the state has no transition", func() {
		c.State = StatePrinted

		err := c.SignPDF(plainUser, "application/pdf", 650, make([]byte, 650), testMaxUploadSize)
		Expect(err).To(MatchError(ErrUnexpectedState))
		Expect(c.State).To(Equal(StatePrinted))
		Expect(c.SignedPDF.FileSize).To(Equal(int64(500)))
	})

	Describe("SetGeneratedPDF", func() {
		It("creates the signing slot on first export", func() {
			fresh := newTestClaim()
			fresh.SetGeneratedPDF("application/pdf", 400, make([]byte, 400))
			Expect(fresh.SignedPDF).NotTo(BeNil())
			Expect(fresh.SignedPDF.Kind).To(Equal(document.KindGenerated))
		})

		It("overwrites freely on re-export, even with a smaller file", func() {
			c.SetGeneratedPDF("application/pdf", 300, make([]byte, 300))
			Expect(c.SignedPDF.FileSize).To(Equal(int64(300)))
		})
	})
})

var _ = Describe("Line Items", func() {
	It("starts in the initial state with the amount fixed at write time", func() {
		item := NewLineItem(time.Now(), "travel", "taxi", "USD", 0.9, 50, "P2")
		Expect(item.State).To(Equal(ItemStateInitial))
		Expect(item.CalculatedAmount).To(BeNumerically("~", 45, 1e-9))
	})

	It("becomes successfully created on update and recomputes the amount", func() {
		item := NewLineItem(time.Now(), "travel", "taxi", "USD", 0.9, 50, "P2")
		item.Update(item.ItemDate, "travel", "taxi to airport", "USD", 0.92, 60, "P2")

		Expect(item.State).To(Equal(ItemStateCreated))
		Expect(item.CalculatedAmount).To(BeNumerically("~", 55.2, 1e-9))
	})

	It("stays successfully created on later updates", func() {
		item := NewLineItem(time.Now(), "travel", "taxi", "USD", 0.9, 50, "P2")
		item.Update(item.ItemDate, "travel", "taxi", "USD", 0.9, 50, "P2")
		item.Update(item.ItemDate, "travel", "taxi", "USD", 0.9, 55, "P2")
		Expect(item.State).To(Equal(ItemStateCreated))
	})

	Describe("AttachReceipt", func() {
		const minSize, maxSize = int64(100), int64(1000)

		It("rejects a scan at or below the minimum size", func() {
			item := NewLineItem(time.Now(), "travel", "taxi", "USD", 1, 50, "P2")
			err := item.AttachReceipt("image/png", 100, make([]byte, 100), minSize, maxSize)
			Expect(err).To(MatchError(document.ErrTooSmall))
			Expect(item.Attachment).To(BeNil())
		})

		It("rejects a scan at or above the maximum size", func() {
			item := NewLineItem(time.Now(), "travel", "taxi", "USD", 1, 50, "P2")
			err := item.AttachReceipt("image/png", 1000, make([]byte, 1000), minSize, maxSize)
			Expect(err).To(MatchError(document.ErrTooLarge))
		})

		It("stores a scan inside the band and replaces it on re-upload", func() {
			item := NewLineItem(time.Now(), "travel", "taxi", "USD", 1, 50, "P2")

			Expect(item.AttachReceipt("image/png", 400, make([]byte, 400), minSize, maxSize)).To(Succeed())
			firstUID := item.Attachment.UID

			Expect(item.AttachReceipt("image/png", 200, make([]byte, 200), minSize, maxSize)).To(Succeed())
			Expect(item.Attachment.UID).To(Equal(firstUID))
			Expect(item.Attachment.FileSize).To(Equal(int64(200)))
		})
	})
})
