package attachment_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/expense-reimbursement/internal/attachment"
)

var _ = Describe("LocalStore", func() {
	var (
		dir   string
		store *attachment.LocalStore
		ctx   context.Context
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		dir = GinkgoT().TempDir()
		store, err = attachment.NewLocalStore(dir, "/files/")
		Expect(err).NotTo(HaveOccurred())
	})

	It("writes the file and returns its url", func() {
		url, err := store.Upload(ctx, "receipts/1/e-1/100_nf.pdf", strings.NewReader("pdf"), "application/pdf")
		Expect(err).NotTo(HaveOccurred())
		Expect(url).To(Equal("/files/receipts/1/e-1/100_nf.pdf"))

		data, err := os.ReadFile(filepath.Join(dir, "receipts", "1", "e-1", "100_nf.pdf"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("pdf"))
	})

	It("serves stored files under its prefix", func() {
		_, err := store.Upload(ctx, "receipts/1/e-1/a.txt", strings.NewReader("hello"), "text/plain")
		Expect(err).NotTo(HaveOccurred())

		req := httptest.NewRequest(http.MethodGet, "/files/receipts/1/e-1/a.txt", nil)
		w := httptest.NewRecorder()
		store.Handler().ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(Equal("hello"))
	})

	It("deletes by url and tolerates a missing file", func() {
		url, err := store.Upload(ctx, "receipts/1/e-1/a.txt", strings.NewReader("x"), "text/plain")
		Expect(err).NotTo(HaveOccurred())

		Expect(store.Delete(ctx, url)).To(Succeed())
		_, err = os.Stat(filepath.Join(dir, "receipts", "1", "e-1", "a.txt"))
		Expect(os.IsNotExist(err)).To(BeTrue())

		Expect(store.Delete(ctx, url)).To(Succeed())
	})

	It("refuses paths outside its directory", func() {
		_, err := store.Upload(ctx, "../escape.txt", strings.NewReader("x"), "text/plain")
		Expect(err).To(HaveOccurred())

		Expect(store.Delete(ctx, "/files/../../etc/passwd")).NotTo(Succeed())
		Expect(store.Delete(ctx, "https://elsewhere/receipts/a.txt")).NotTo(Succeed())
	})

	It("serves absolute base urls under their path", func() {
		abs, err := attachment.NewLocalStore(dir, "http://localhost:8080/files")
		Expect(err).NotTo(HaveOccurred())
		Expect(abs.Prefix()).To(Equal("/files"))

		url, err := abs.Upload(ctx, "receipts/2/a.txt", strings.NewReader("abs"), "text/plain")
		Expect(err).NotTo(HaveOccurred())
		Expect(url).To(Equal("http://localhost:8080/files/receipts/2/a.txt"))

		w := httptest.NewRecorder()
		abs.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files/receipts/2/a.txt", nil))
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(Equal("abs"))
	})
})
