package swagger_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/opsboard/internal/transport/swagger"
)

func TestSwagger(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Swagger Suite")
}

var _ = Describe("OpenAPI document", func() {
	It("loads and validates", func() {
		doc, err := swagger.Load(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Paths.Find("/tasks/{id}/approve")).NotTo(BeNil())
		Expect(doc.Paths.Find("/dashboard/leaderboard")).NotTo(BeNil())
	})

	It("is served as yaml", func() {
		rec := httptest.NewRecorder()
		swagger.SpecHandler()(rec, httptest.NewRequest(http.MethodGet, "/openapi.yml", nil))
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(HavePrefix("openapi: 3.0.3"))
	})
})
