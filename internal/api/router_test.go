package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/netbill/netbill/internal/api/cron"
	v1 "github.com/netbill/netbill/internal/api/v1"
	"github.com/netbill/netbill/internal/domain/invoice"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/postgres"
	"github.com/netbill/netbill/internal/s3"
	"github.com/netbill/netbill/internal/service"
	"github.com/netbill/netbill/internal/storage"
	"github.com/netbill/netbill/internal/temporal"
	"github.com/netbill/netbill/internal/testutil"
	"github.com/netbill/netbill/internal/types"
	"github.com/netbill/netbill/internal/validator"
	"github.com/stretchr/testify/suite"
)

type RouterSuite struct {
	testutil.BaseServiceTestSuite
	router    *gin.Engine
	documents *storage.LocalStore
	sqlMock   sqlmock.Sqlmock
}

func TestRouter(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupSuite() {
	s.BaseServiceTestSuite.SetupSuite()
	gin.SetMode(gin.TestMode)
	validator.NewValidator()
}

func (s *RouterSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.router = s.newRouter()
}

func (s *RouterSuite) newRouter() *gin.Engine {
	stores := s.GetStores()
	params := service.ServiceParams{
		Logger:        s.GetLogger(),
		Config:        s.GetConfig(),
		DB:            s.GetDB(),
		Cache:         s.GetCache(),
		Metrics:       s.GetMetrics(),
		CustomerRepo:  stores.CustomerRepo,
		PlanRepo:      stores.PlanRepo,
		SubRepo:       stores.SubscriptionRepo,
		InvoiceRepo:   stores.InvoiceRepo,
		PaymentRepo:   stores.PaymentRepo,
		SettingsRepo:  stores.SettingsRepo,
		ReceiptIssuer: s.GetReceiptIssuer(),
		Now:           s.NowFunc(),
	}
	settingsService := service.NewSettingsService(params)
	billing := service.NewBillingService(
		params,
		settingsService,
		service.NewInvoiceGenerator(params),
		service.NewOverdueProcessor(params),
		service.NewPaymentReconciler(params),
	)

	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	s.Require().NoError(err)
	s.T().Cleanup(func() { sqlDB.Close() })
	s.sqlMock = mock

	s.documents = storage.NewLocalStore(s.T().TempDir())

	handlers := Handlers{
		Health:      v1.NewHealthHandler(postgres.NewFromSQL(sqlDB, s.GetLogger()), s.GetLogger()),
		Payment:     v1.NewPaymentHandler(billing, s.GetLogger()),
		Invoice:     v1.NewInvoiceHandler(service.NewInvoiceReviewService(params), s.documents, s.GetLogger()),
		Settings:    v1.NewSettingsHandler(settingsService, s.GetLogger()),
		CronBilling: cron.NewBillingHandler(billing, &temporal.TemporalClient{}, s.GetLogger()),
	}
	return NewRouter(handlers, s.GetConfig(), s.GetLogger(), s.GetMetrics())
}

func (s *RouterSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *RouterSuite) decode(rec *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

// seedInvoiced creates an active subscription priced at price and invoices March 2024 over HTTP
func (s *RouterSuite) seedInvoiced(price string) (customerID, planID string) {
	s.SeedSettings(nil)
	c := s.CreateCustomer("Ana", "Gomez")
	p := s.CreatePlan("Fibra 100", price)
	s.CreateSubscription(c, p, types.SubscriptionStatusActive)

	rec := s.do(http.MethodPost, "/v1/cron/invoices/generate", map[string]string{"period": "2024-03"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	return c.ID, p.ID
}

func (s *RouterSuite) TestGenerateTwiceSkips() {
	s.seedInvoiced("100.00")

	rec := s.do(http.MethodPost, "/v1/cron/invoices/generate", map[string]string{"period": "2024-03"})
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp map[string]any
	s.decode(rec, &resp)
	s.EqualValues(0, resp["generated"])
	s.EqualValues(1, resp["skipped"])
	s.Equal("2024-03", resp["period"])
}

func (s *RouterSuite) TestGenerateWithoutBodyUsesCurrentPeriod() {
	s.SeedSettings(nil)

	rec := s.do(http.MethodPost, "/v1/cron/invoices/generate", nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]any
	s.decode(rec, &resp)
	s.Equal("2024-03", resp["period"])
}

func (s *RouterSuite) TestGenerateRejectsMalformedPeriod() {
	rec := s.do(http.MethodPost, "/v1/cron/invoices/generate", map[string]string{"period": "March"})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *RouterSuite) TestGenerateMissingSettingIsUnprocessable() {
	s.GetStores().SettingsRepo.Seed(s.GetContext(), map[types.SettingKey]string{
		types.SettingKeyAutoInvoicingEnabled: "true",
	})

	rec := s.do(http.MethodPost, "/v1/cron/invoices/generate", nil)
	s.Require().Equal(http.StatusUnprocessableEntity, rec.Code)

	var resp ierr.ErrorResponse
	s.decode(rec, &resp)
	s.False(resp.Success)
	s.Equal(ierr.ErrCodeConfiguration, resp.Error.InternalError)
}

func (s *RouterSuite) TestAsyncWithoutTemporalIsRejected() {
	s.SeedSettings(nil)
	rec := s.do(http.MethodPost, "/v1/cron/invoices/generate?async=true", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *RouterSuite) TestReconcileExactPayment() {
	customerID, planID := s.seedInvoiced("100.00")

	rec := s.do(http.MethodPost, "/v1/payments/reconcile", map[string]any{
		"customer_id": customerID,
		"plan_id":     planID,
		"amount":      "100.00",
		"method":      "cash",
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var resp map[string]string
	s.decode(rec, &resp)
	s.Equal("F2024-001", resp["receipt_number"])
	s.Equal("100.00", resp["total_paid"])
	s.Equal("receipt/2024/F2024-001.pdf", resp["receipt_ref"])

	// nothing left to pay
	rec = s.do(http.MethodPost, "/v1/payments/reconcile", map[string]any{
		"customer_id": customerID,
		"plan_id":     planID,
		"amount":      "100.00",
		"method":      "cash",
	})
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *RouterSuite) TestReconcileMismatchCarriesAmounts() {
	customerID, planID := s.seedInvoiced("100.00")

	rec := s.do(http.MethodPost, "/v1/payments/reconcile", map[string]any{
		"customer_id": customerID,
		"plan_id":     planID,
		"amount":      "99.99",
		"method":      "cash",
	})
	s.Require().Equal(http.StatusUnprocessableEntity, rec.Code)

	var resp ierr.ErrorResponse
	s.decode(rec, &resp)
	s.Equal(ierr.ErrCodeAmountMismatch, resp.Error.InternalError)
	s.Equal("100", resp.Error.Details["required"])
	s.Equal("99.99", resp.Error.Details["received"])
	s.Contains(resp.Error.Display, "100.00")
}

func (s *RouterSuite) TestReconcileValidation() {
	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing customer", map[string]any{"plan_id": "plan_1", "amount": "10", "method": "cash"}},
		{"zero amount", map[string]any{"customer_id": "c", "plan_id": "p", "amount": "0", "method": "cash"}},
		{"unknown method", map[string]any{"customer_id": "c", "plan_id": "p", "amount": "10", "method": "barter"}},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			rec := s.do(http.MethodPost, "/v1/payments/reconcile", tc.body)
			s.Equal(http.StatusBadRequest, rec.Code)
		})
	}
}

func (s *RouterSuite) TestReconcileUnknownSubscription() {
	s.SeedSettings(nil)
	rec := s.do(http.MethodPost, "/v1/payments/reconcile", map[string]any{
		"customer_id": "cust_missing",
		"plan_id":     "plan_missing",
		"amount":      "10.00",
		"method":      "card",
	})
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *RouterSuite) TestOverdueTrigger() {
	s.seedInvoiced("100.00")

	// due 2024-03-11, 15 days later the grace period is over
	rec := s.do(http.MethodPost, "/v1/cron/invoices/overdue", map[string]string{"today": "2024-03-26"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]any
	s.decode(rec, &resp)
	s.Equal("2024-03-26", resp["today"])
	s.EqualValues(1, resp["fees_applied"])
	s.EqualValues(1, resp["suspended"])
}

func (s *RouterSuite) TestProofReviewAndReceiptDownload() {
	customerID, _ := s.seedInvoiced("80.00")
	invoices, err := s.GetStores().InvoiceRepo.List(s.GetContext(), &types.InvoiceFilter{CustomerID: customerID})
	s.Require().NoError(err)
	s.Require().Len(invoices, 1)
	inv := invoices[0]

	rec := s.do(http.MethodPost, "/v1/invoices/"+inv.ID+"/proof", map[string]string{
		"customer_id": customerID,
		"proof_ref":   "uploads/transfer-123.jpg",
	})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var reviewed invoice.Invoice
	s.decode(rec, &reviewed)
	s.Equal(types.InvoiceStatusInReview, reviewed.Status)

	// no receipt before approval
	rec = s.do(http.MethodGet, "/v1/invoices/"+inv.ID+"/receipt", nil)
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, "/v1/invoices/"+inv.ID+"/approve", nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var paid map[string]string
	s.decode(rec, &paid)
	s.Equal("80.00", paid["total_paid"])

	rec = s.do(http.MethodPost, "/v1/invoices/"+inv.ID+"/approve", nil)
	s.Equal(http.StatusConflict, rec.Code)

	// the fake issuer does not store documents, put one where the reference points
	_, err = s.documents.UploadDocument(s.GetContext(), s3.NewPdfDocument("2024/F2024-001", []byte("%PDF-1.7"), s3.DocumentTypeReceipt))
	s.Require().NoError(err)

	rec = s.do(http.MethodGet, "/v1/invoices/"+inv.ID+"/receipt", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var receipt map[string]string
	s.decode(rec, &receipt)
	s.Equal("receipt/2024/F2024-001.pdf", receipt["receipt_ref"])
	s.True(strings.HasPrefix(receipt["download_url"], "file://"))

	rec = s.do(http.MethodGet, "/v1/invoices/"+inv.ID+"/receipt/pdf", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("application/pdf", rec.Header().Get("Content-Type"))
	s.Equal("%PDF-1.7", rec.Body.String())
}

func (s *RouterSuite) TestCancelPaidInvoiceConflicts() {
	customerID, planID := s.seedInvoiced("50.00")
	rec := s.do(http.MethodPost, "/v1/payments/reconcile", map[string]any{
		"customer_id": customerID,
		"plan_id":     planID,
		"amount":      "50",
		"method":      "bank_transfer",
	})
	s.Require().Equal(http.StatusCreated, rec.Code)
	var paid map[string]string
	s.decode(rec, &paid)

	rec = s.do(http.MethodPost, "/v1/invoices/"+paid["invoice_id"]+"/cancel", nil)
	s.Equal(http.StatusConflict, rec.Code)
}

func (s *RouterSuite) TestSettings() {
	s.SeedSettings(nil)

	rec := s.do(http.MethodPut, "/v1/settings/late_fee_amount", map[string]string{"value": "7.50"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/v1/settings/late_fee_amount", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var setting map[string]string
	s.decode(rec, &setting)
	s.Equal("7.50", setting["value"])

	rec = s.do(http.MethodPut, "/v1/settings/late_fee_amount", map[string]string{"value": "a lot"})
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPut, "/v1/settings/favourite_color", map[string]string{"value": "blue"})
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/v1/settings", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var list struct {
		Items []map[string]string `json:"items"`
	}
	s.decode(rec, &list)
	s.Len(list.Items, 4)
}

func (s *RouterSuite) TestHealth() {
	s.sqlMock.ExpectPing()
	rec := s.do(http.MethodGet, "/health", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.NoError(s.sqlMock.ExpectationsWereMet())

	s.sqlMock.ExpectPing().WillReturnError(http.ErrHandlerTimeout)
	rec = s.do(http.MethodGet, "/health", nil)
	s.Equal(http.StatusServiceUnavailable, rec.Code)
}

func (s *RouterSuite) TestMetricsExposeBillingCounters() {
	s.seedInvoiced("100.00")

	rec := s.do(http.MethodGet, "/metrics", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "netbill_invoices_generated_total 1")
	s.Contains(rec.Body.String(), "netbill_http_requests_total")
}

func (s *RouterSuite) TestRequestIDIsEchoed() {
	req := httptest.NewRequest(http.MethodGet, "/v1/settings", nil)
	req.Header.Set(types.HeaderRequestID, "req-42")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal("req-42", rec.Header().Get(types.HeaderRequestID))
}

func (s *RouterSuite) TestCronRateLimit() {
	s.GetConfig().Server.CronRateLimit = 1
	defer func() { s.GetConfig().Server.CronRateLimit = 0 }()
	s.router = s.newRouter()
	s.SeedSettings(nil)

	s.Equal(http.StatusOK, s.do(http.MethodPost, "/v1/cron/invoices/generate", nil).Code)
	s.Equal(http.StatusTooManyRequests, s.do(http.MethodPost, "/v1/cron/invoices/generate", nil).Code)
}
