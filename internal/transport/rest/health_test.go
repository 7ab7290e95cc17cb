package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestRest(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "REST Transport Suite")
}

var _ = Describe("HealthHandler", func() {
	var (
		mock    sqlmock.Sqlmock
		handler *HealthHandler
	)

	BeforeEach(func() {
		db, m, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		Expect(err).NotTo(HaveOccurred())
		mock = m
		handler = NewHealthHandler(db)
	})

	decode := func(rec *httptest.ResponseRecorder) HealthResponse {
		var resp HealthResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		return resp
	}

	It("is healthy when the database answers", func() {
		mock.ExpectPing()

		rec := httptest.NewRecorder()
		handler.healthCheckHandler(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(decode(rec).Components["postgres"].Status).To(Equal(HealthHealthy))
	})

	It("is unavailable when the ping fails", func() {
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))

		rec := httptest.NewRecorder()
		handler.healthCheckHandler(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
		resp := decode(rec)
		Expect(resp.Status).To(Equal(HealthUnhealthy))
		Expect(resp.Components["postgres"].Message).To(Equal("database unreachable"))
	})

	It("answers ping without touching the database", func() {
		rec := httptest.NewRecorder()
		handler.pingHandler(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(mock.ExpectationsWereMet()).To(Succeed())
	})
})
