package document_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/claim-workflow/internal/document"
)

func TestDocumentGuard(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "DocumentGuard Suite")
}

var _ = Describe("CanReplaceSigned", func() {
	const maxSize = int64(5 * 1024 * 1024)

	var existing *document.Document

	BeforeEach(func() {
		existing = document.New(document.KindGenerated, "application/pdf", 500, make([]byte, 500))
	})

	Context("when no prior document has been exported", func() {
		It("rejects the upload", func() {
			err := document.CanReplaceSigned(nil, 600, maxSize)
			Expect(err).To(MatchError(document.ErrNoPriorDocument))
		})
	})

	Context("when the candidate is not larger than the existing file", func() {
		It("rejects a same-size upload", func() {
			err := document.CanReplaceSigned(existing, 500, maxSize)
			Expect(err).To(MatchError(document.ErrNotModified))
		})

		It("rejects a smaller upload", func() {
			err := document.CanReplaceSigned(existing, 499, maxSize)
			Expect(err).To(MatchError(document.ErrNotModified))
		})
	})

	Context("when the candidate exceeds the size limit", func() {
		It("rejects a file at the limit", func() {
			err := document.CanReplaceSigned(existing, maxSize, maxSize)
			Expect(err).To(MatchError(document.ErrTooLarge))
		})

		It("rejects a file above the limit", func() {
			err := document.CanReplaceSigned(existing, maxSize+1, maxSize)
			Expect(err).To(MatchError(document.ErrTooLarge))
		})

		It("rejects oversized files even though they grew", func() {
			// growth alone does not bypass the limit
			err := document.CanReplaceSigned(existing, maxSize+500, maxSize)
			Expect(err).To(MatchError(document.ErrTooLarge))
		})
	})

	Context("when the candidate grew and stays under the limit", func() {
		It("accepts the upload", func() {
			err := document.CanReplaceSigned(existing, 600, maxSize)
			Expect(err).ToNot(HaveOccurred())
		})
	})
})

var _ = Describe("CanAttach", func() {
	const (
		minSize = int64(1024)
		maxSize = int64(5 * 1024 * 1024)
	)

	It("rejects files at or below the minimum", func() {
		Expect(document.CanAttach(minSize, minSize, maxSize)).To(MatchError(document.ErrTooSmall))
		Expect(document.CanAttach(10, minSize, maxSize)).To(MatchError(document.ErrTooSmall))
	})

	It("rejects files at or above the maximum", func() {
		Expect(document.CanAttach(maxSize, minSize, maxSize)).To(MatchError(document.ErrTooLarge))
	})

	It("accepts files inside the band", func() {
		Expect(document.CanAttach(2048, minSize, maxSize)).To(Succeed())
	})
})

var _ = Describe("Replace", func() {
	It("swaps content, type and size while keeping identity", func() {
		doc := document.New(document.KindGenerated, "application/pdf", 500, make([]byte, 500))
		uid := doc.UID

		doc.Replace("application/pdf", 700, make([]byte, 700))

		Expect(doc.UID).To(Equal(uid))
		Expect(doc.FileSize).To(Equal(int64(700)))
		Expect(doc.Content).To(HaveLen(700))
	})
})
