package integration

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/merchportal/backend/internal/domain/catalog"
	"github.com/merchportal/backend/internal/domain/integration"
	"github.com/merchportal/backend/internal/domain/shared"
	"github.com/merchportal/backend/internal/infrastructure/logistics"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

// MockCustomerRepository is a mock implementation of catalog.CustomerRepository
type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) FindByShopID(ctx context.Context, shopID string) (*catalog.Customer, error) {
	args := m.Called(ctx, shopID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Customer), args.Error(1)
}

func (m *MockCustomerRepository) MarkProductsExported(ctx context.Context, shopID string, productIDs []string, at time.Time) error {
	args := m.Called(ctx, shopID, productIDs, at)
	return args.Error(0)
}

func (m *MockCustomerRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockExportRunRepository is a mock implementation of integration.ExportRunRepository
type MockExportRunRepository struct {
	mock.Mock
}

func (m *MockExportRunRepository) Save(ctx context.Context, run *integration.ExportRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockExportRunRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.ExportRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.ExportRun), args.Error(1)
}

func (m *MockExportRunRepository) List(ctx context.Context, filter integration.ExportRunFilter) ([]integration.ExportRun, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]integration.ExportRun), args.Get(1).(int64), args.Error(2)
}

// MockExportLock is a mock implementation of integration.ExportLock
type MockExportLock struct {
	mock.Mock
}

func (m *MockExportLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockExportLock) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockReportArchive is a mock implementation of integration.ReportArchive
type MockReportArchive struct {
	mock.Mock
}

func (m *MockReportArchive) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	args := m.Called(ctx, key, data, contentType)
	return args.Error(0)
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

type shopExportFixture struct {
	customers *MockCustomerRepository
	runs      *MockExportRunRepository
	importer  *MockItemImporter
	lock      *MockExportLock
	archive   *MockReportArchive
	metrics   *fakeExportMetrics
	service   *ShopExportService
}

var fixedNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func newShopExportFixture(t *testing.T) *shopExportFixture {
	t.Helper()
	f := &shopExportFixture{
		customers: new(MockCustomerRepository),
		runs:      new(MockExportRunRepository),
		importer:  new(MockItemImporter),
		lock:      new(MockExportLock),
		archive:   new(MockReportArchive),
		metrics:   &fakeExportMetrics{},
	}
	exporter := newTestExportService(t, f.importer)
	f.service = NewShopExportService(f.customers, f.runs, exporter, zaptest.NewLogger(t),
		WithExportLock(f.lock, time.Minute),
		WithReportArchive(f.archive),
		WithRunMetrics(f.metrics),
	)
	f.service.now = func() time.Time { return fixedNow }
	return f
}

func customerWithShop() *catalog.Customer {
	c := testCustomer()
	shop := *testShop()
	shop.Products = []catalog.Product{
		cdProduct("p1", "SKU-1"),
		cdProduct("p2", "SKU-2"),
		cdProduct("p3", "SKU-3"),
	}
	c.Shops = []catalog.Shop{shop}
	return c
}

func (f *shopExportFixture) expectLock() {
	f.lock.On("Acquire", mock.Anything, "ec-export:shop:shop-1", time.Minute).Return(true, nil).Once()
	f.lock.On("Release", mock.Anything, "ec-export:shop:shop-1").Return(nil).Once()
}

// ---------------------------------------------------------------------------
// GenerateForShop Tests
// ---------------------------------------------------------------------------

func TestShopExportService_GenerateForShop_Success(t *testing.T) {
	f := newShopExportFixture(t)
	f.expectLock()
	f.customers.On("FindByShopID", mock.Anything, "shop-1").Return(customerWithShop(), nil)
	f.customers.On("MarkProductsExported", mock.Anything, "shop-1", []string{"p1", "p3"}, fixedNow).Return(nil)
	f.runs.On("Save", mock.Anything, mock.AnythingOfType("*integration.ExportRun")).Return(nil).Twice()
	f.archive.On("Upload", mock.Anything, mock.MatchedBy(func(key string) bool {
		return len(key) > len("ec-exports/shop-1/") && key[:len("ec-exports/shop-1/")] == "ec-exports/shop-1/"
	}), mock.Anything, "application/json").Return(nil)
	f.importer.On("ImportItem", mock.Anything, mock.Anything).Return(json.RawMessage(`{"ok":true}`), nil)

	// p3 is requested first; shop order wins and unknown IDs are ignored
	result, err := f.service.GenerateForShop(context.Background(), "shop-1", []string{"p3", "unknown", "p1"})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Outcome.Success)
	assert.Equal(t, "Successfully imported 2 variants.", result.Outcome.Message)
	assert.Equal(t, integration.ExportRunStatusCompleted, result.Run.Status)
	assert.Equal(t, 2, result.Run.SuccessCount)
	assert.Equal(t, []string{"p1", "p3"}, result.Run.ProductIDs)
	assert.Equal(t, []string{"completed"}, f.metrics.runs)

	f.customers.AssertExpectations(t)
	f.runs.AssertExpectations(t)
	f.lock.AssertExpectations(t)
	f.archive.AssertExpectations(t)
}

func TestShopExportService_GenerateForShop_PartialFailure(t *testing.T) {
	f := newShopExportFixture(t)
	f.expectLock()
	f.customers.On("FindByShopID", mock.Anything, "shop-1").Return(customerWithShop(), nil)
	f.runs.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.archive.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.importer.On("ImportItem", mock.Anything, skuIs("SKU-1")).Return(nil, nil)
	f.importer.On("ImportItem", mock.Anything, skuIs("SKU-2")).
		Return(nil, &logistics.ProviderError{StatusCode: 422, Message: "Invalid barcode"})

	result, err := f.service.GenerateForShop(context.Background(), "shop-1", []string{"p1", "p2"})
	assert.Nil(t, result)
	require.ErrorIs(t, err, integration.ErrItemsFailed)
	assert.Contains(t, err.Error(), "SKU SKU-2: Invalid barcode")

	// Products are only flagged after a full success
	f.customers.AssertNotCalled(t, "MarkProductsExported", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	saved := f.runs.Calls[len(f.runs.Calls)-1].Arguments.Get(1).(*integration.ExportRun)
	assert.Equal(t, integration.ExportRunStatusPartial, saved.Status)
	assert.Equal(t, 1, saved.FailCount)
	assert.Equal(t, []string{"partial"}, f.metrics.runs)
}

func TestShopExportService_GenerateForShop_AbortedRunIsFailed(t *testing.T) {
	f := newShopExportFixture(t)
	customer := customerWithShop()
	customer.Shops[0].Products[1].SKUs = nil

	f.expectLock()
	f.customers.On("FindByShopID", mock.Anything, "shop-1").Return(customer, nil)
	f.runs.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.archive.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := f.service.GenerateForShop(context.Background(), "shop-1", []string{"p1", "p2"})
	require.ErrorIs(t, err, integration.ErrMissingSKU)

	saved := f.runs.Calls[len(f.runs.Calls)-1].Arguments.Get(1).(*integration.ExportRun)
	assert.Equal(t, integration.ExportRunStatusFailed, saved.Status)
	f.importer.AssertNotCalled(t, "ImportItem", mock.Anything, mock.Anything)
}

func TestShopExportService_GenerateForShop_InputErrors(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(f *shopExportFixture)
		productIDs []string
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "no product ids",
			setup:      func(f *shopExportFixture) {},
			productIDs: nil,
			wantCode:   shared.CodeInvalidInput,
			wantMsg:    MsgProductIDsRequired,
		},
		{
			name: "customer not found",
			setup: func(f *shopExportFixture) {
				f.expectLock()
				f.customers.On("FindByShopID", mock.Anything, "shop-1").Return(nil, shared.ErrNotFound)
			},
			productIDs: []string{"p1"},
			wantCode:   shared.CodeNotFound,
			wantMsg:    MsgCustomerNotFound,
		},
		{
			name: "shop missing from customer",
			setup: func(f *shopExportFixture) {
				f.expectLock()
				f.customers.On("FindByShopID", mock.Anything, "shop-1").Return(testCustomer(), nil)
			},
			productIDs: []string{"p1"},
			wantCode:   shared.CodeNotFound,
			wantMsg:    MsgShopNotFound,
		},
		{
			name: "no matching products",
			setup: func(f *shopExportFixture) {
				f.expectLock()
				f.customers.On("FindByShopID", mock.Anything, "shop-1").Return(customerWithShop(), nil)
			},
			productIDs: []string{"nope"},
			wantCode:   shared.CodeNotFound,
			wantMsg:    MsgNoValidProducts,
		},
		{
			name: "export already running",
			setup: func(f *shopExportFixture) {
				f.lock.On("Acquire", mock.Anything, "ec-export:shop:shop-1", time.Minute).Return(false, nil)
			},
			productIDs: []string{"p1"},
			wantCode:   shared.CodeConflict,
			wantMsg:    MsgExportInProgress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newShopExportFixture(t)
			tt.setup(f)

			result, err := f.service.GenerateForShop(context.Background(), "shop-1", tt.productIDs)
			assert.Nil(t, result)
			require.Error(t, err)

			var domainErr *shared.DomainError
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, tt.wantCode, domainErr.Code)
			assert.Equal(t, tt.wantMsg, domainErr.Message)

			f.runs.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
			f.importer.AssertNotCalled(t, "ImportItem", mock.Anything, mock.Anything)
			f.lock.AssertExpectations(t)
		})
	}
}

func TestShopExportService_GenerateForShop_LockErrorFailsClosed(t *testing.T) {
	f := newShopExportFixture(t)
	f.lock.On("Acquire", mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("redis down"))

	_, err := f.service.GenerateForShop(context.Background(), "shop-1", []string{"p1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis down")
	f.customers.AssertNotCalled(t, "FindByShopID", mock.Anything, mock.Anything)
}

func TestShopExportService_GenerateForShop_HistoryErrorsDoNotFailExport(t *testing.T) {
	f := newShopExportFixture(t)
	f.expectLock()
	f.customers.On("FindByShopID", mock.Anything, "shop-1").Return(customerWithShop(), nil)
	f.customers.On("MarkProductsExported", mock.Anything, "shop-1", []string{"p1"}, fixedNow).Return(errors.New("write conflict"))
	f.runs.On("Save", mock.Anything, mock.Anything).Return(errors.New("db down"))
	f.archive.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("s3 down"))
	f.importer.On("ImportItem", mock.Anything, mock.Anything).Return(nil, nil)

	result, err := f.service.GenerateForShop(context.Background(), "shop-1", []string{"p1"})
	require.NoError(t, err)
	assert.Equal(t, integration.ExportRunStatusCompleted, result.Run.Status)
}

func TestShopExportService_RecordTransitionLogsRejectedStateChange(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	svc := NewShopExportService(new(MockCustomerRepository), nil, newTestExportService(t, new(MockItemImporter)), zap.New(core))

	run, err := integration.NewExportRun("shop-1", "Shop", "cust-1", []string{"p1"})
	require.NoError(t, err)

	// a pending run cannot complete
	svc.recordTransition(run, run.Complete(integration.NewImportResult(), "done"))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Failed to record export run transition", entry.Message)
	assert.Equal(t, run.ID.String(), entry.ContextMap()["run_id"])
	assert.Equal(t, integration.ExportRunStatusPending.String(), entry.ContextMap()["status"])

	require.NoError(t, run.Start())
	svc.recordTransition(run, run.Fail("boom"))
	assert.Equal(t, 1, logs.Len())
}

func TestShopExportService_GenerateForShop_WithoutOptionalCollaborators(t *testing.T) {
	customers := new(MockCustomerRepository)
	importer := new(MockItemImporter)
	customers.On("FindByShopID", mock.Anything, "shop-1").Return(customerWithShop(), nil)
	customers.On("MarkProductsExported", mock.Anything, "shop-1", []string{"p2"}, mock.Anything).Return(nil)
	importer.On("ImportItem", mock.Anything, mock.Anything).Return(nil, nil)

	svc := NewShopExportService(customers, nil, newTestExportService(t, importer), nil)
	result, err := svc.GenerateForShop(context.Background(), "shop-1", []string{"p2"})
	require.NoError(t, err)
	assert.True(t, result.Outcome.Success)
	customers.AssertExpectations(t)
}

// ---------------------------------------------------------------------------
// Run history Tests
// ---------------------------------------------------------------------------

func TestShopExportService_ListRuns(t *testing.T) {
	f := newShopExportFixture(t)
	run, err := integration.NewExportRun("shop-1", "boutique", "cust-1", []string{"p1"})
	require.NoError(t, err)

	f.runs.On("List", mock.Anything, integration.ExportRunFilter{ShopID: "shop-1", Page: 1, PageSize: 20}).
		Return([]integration.ExportRun{*run}, int64(1), nil)

	runs, total, err := f.service.ListRuns(context.Background(), integration.ExportRunFilter{ShopID: "shop-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
}

func TestShopExportService_ListRuns_InvalidStatus(t *testing.T) {
	f := newShopExportFixture(t)

	_, _, err := f.service.ListRuns(context.Background(), integration.ExportRunFilter{Status: "exploded"})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.NewDomainError(shared.CodeInvalidInput, ""))
	f.runs.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestShopExportService_GetRun(t *testing.T) {
	f := newShopExportFixture(t)
	id := uuid.New()
	f.runs.On("FindByID", mock.Anything, id).Return(nil, shared.ErrNotFound)

	run, err := f.service.GetRun(context.Background(), id)
	assert.Nil(t, run)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
