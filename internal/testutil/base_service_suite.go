package testutil

import (
	"context"
	"time"

	"github.com/netbill/netbill/internal/cache"
	"github.com/netbill/netbill/internal/config"
	"github.com/netbill/netbill/internal/domain/customer"
	"github.com/netbill/netbill/internal/domain/plan"
	"github.com/netbill/netbill/internal/domain/subscription"
	"github.com/netbill/netbill/internal/logger"
	"github.com/netbill/netbill/internal/metrics"
	"github.com/netbill/netbill/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// Stores holds the in-memory repositories backing a service test
type Stores struct {
	CustomerRepo     *InMemoryCustomerStore
	PlanRepo         *InMemoryPlanStore
	SubscriptionRepo *InMemorySubscriptionStore
	InvoiceRepo      *InMemoryInvoiceStore
	PaymentRepo      *InMemoryPaymentStore
	SettingsRepo     *InMemorySettingsStore
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx           context.Context
	stores        Stores
	db            *MockPostgresClient
	logger        *logger.Logger
	config        *config.Configuration
	cache         cache.Cache
	metrics       *metrics.Metrics
	receiptIssuer *FakeReceiptIssuer
	now           time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	s.config = config.GetDefaultConfig()
	s.config.Cache.Enabled = true
	s.config.Billing.Parallelism = 4
	s.logger = logger.NewNoopLogger()
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.setupContext()
	s.setupStores()
	s.cache = cache.NewCache(s.config)
	s.metrics = metrics.NewNoopMetrics()
	s.receiptIssuer = NewFakeReceiptIssuer()
	s.now = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
}

func (s *BaseServiceTestSuite) setupContext() {
	s.ctx = SetupContext()
}

func (s *BaseServiceTestSuite) setupStores() {
	planStore := NewInMemoryPlanStore()
	s.stores = Stores{
		CustomerRepo:     NewInMemoryCustomerStore(),
		PlanRepo:         planStore,
		SubscriptionRepo: NewInMemorySubscriptionStore(planStore),
		InvoiceRepo:      NewInMemoryInvoiceStore(),
		PaymentRepo:      NewInMemoryPaymentStore(),
		SettingsRepo:     NewInMemorySettingsStore(),
	}

	s.db = NewMockPostgresClient(
		s.logger,
		s.stores.CustomerRepo,
		s.stores.PlanRepo,
		s.stores.SubscriptionRepo,
		s.stores.InvoiceRepo,
		s.stores.PaymentRepo,
		s.stores.SettingsRepo,
	)
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.CustomerRepo.Clear()
	s.stores.PlanRepo.Clear()
	s.stores.SubscriptionRepo.Clear()
	s.stores.InvoiceRepo.Clear()
	s.stores.PaymentRepo.Clear()
	s.stores.SettingsRepo.Clear()
}

func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

func (s *BaseServiceTestSuite) GetDB() *MockPostgresClient {
	return s.db
}

func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

func (s *BaseServiceTestSuite) GetMetrics() *metrics.Metrics {
	return s.metrics
}

func (s *BaseServiceTestSuite) GetReceiptIssuer() *FakeReceiptIssuer {
	return s.receiptIssuer
}

// GetNow returns the instant the services under test consider "now"
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}

// SetNow moves the clock seen by services built with NowFunc
func (s *BaseServiceTestSuite) SetNow(now time.Time) {
	s.now = now
}

// NowFunc is handed to services so tests can move time between calls
func (s *BaseServiceTestSuite) NowFunc() func() time.Time {
	return func() time.Time { return s.now }
}

func (s *BaseServiceTestSuite) GetUUID() string {
	return types.GenerateUUID()
}

// SeedSettings stores the usual business settings: 10 day window, 5.00 fee, 15 day grace
func (s *BaseServiceTestSuite) SeedSettings(overrides map[types.SettingKey]string) {
	values := map[types.SettingKey]string{
		types.SettingKeyPaymentWindowDays:    "10",
		types.SettingKeyLateFeeAmount:        "5.00",
		types.SettingKeyDaysForSuspension:    "15",
		types.SettingKeyAutoInvoicingEnabled: "true",
	}
	for k, v := range overrides {
		values[k] = v
	}
	s.stores.SettingsRepo.Seed(s.ctx, values)
}

// CreateCustomer stores a customer with a generated id
func (s *BaseServiceTestSuite) CreateCustomer(firstName, lastName string) *customer.Customer {
	c := &customer.Customer{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CUSTOMER),
		DNI:       s.GetUUID()[:8],
		FirstName: firstName,
		LastName:  lastName,
		BaseModel: types.GetDefaultBaseModel(s.ctx),
	}
	s.NoError(s.stores.CustomerRepo.Create(s.ctx, c))
	return c
}

// CreatePlan stores a plan priced at price
func (s *BaseServiceTestSuite) CreatePlan(name, price string) *plan.Plan {
	p := &plan.Plan{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PLAN),
		Name:      name,
		Price:     decimal.RequireFromString(price),
		SpeedMbps: 100,
		BaseModel: types.GetDefaultBaseModel(s.ctx),
	}
	s.NoError(s.stores.PlanRepo.Create(s.ctx, p))
	return p
}

// CreateSubscription stores a subscription of customer to plan in the given status
func (s *BaseServiceTestSuite) CreateSubscription(c *customer.Customer, p *plan.Plan, status types.SubscriptionStatus) *subscription.Subscription {
	sub := &subscription.Subscription{
		ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		CustomerID: c.ID,
		PlanID:     p.ID,
		Status:     status,
		StartDate:  types.AddDays(s.now, -60),
		BaseModel:  types.GetDefaultBaseModel(s.ctx),
	}
	s.NoError(s.stores.SubscriptionRepo.Create(s.ctx, sub))
	return sub
}
