package integration

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/merchportal/backend/internal/domain/catalog"
	"github.com/merchportal/backend/internal/domain/integration"
	"github.com/merchportal/backend/internal/infrastructure/logistics"
	"github.com/merchportal/backend/internal/infrastructure/scheduler"
)

// ---------------------------------------------------------------------------
// Test doubles
// ---------------------------------------------------------------------------

// MockItemImporter is a mock implementation of integration.ItemImporter
type MockItemImporter struct {
	mock.Mock
}

func (m *MockItemImporter) ImportItem(ctx context.Context, req integration.ImportRequest) (json.RawMessage, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func skuIs(sku string) interface{} {
	return mock.MatchedBy(func(req integration.ImportRequest) bool {
		return req.Item.SKU == sku
	})
}

type recordedItem struct {
	success  bool
	attempts int
}

// fakeExportMetrics records measurements in memory
type fakeExportMetrics struct {
	mu    sync.Mutex
	items []recordedItem
	runs  []string
}

func (f *fakeExportMetrics) RecordItem(_ context.Context, success bool, attempts int, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, recordedItem{success: success, attempts: attempts})
}

func (f *fakeExportMetrics) RecordRun(_ context.Context, status string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, status)
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

func testCredentials() integration.Credentials {
	return integration.Credentials{
		BaseURL:  "https://ec.example.com",
		Login:    "portal",
		Password: "secret-password",
	}
}

func testRunner(t *testing.T) *scheduler.BatchRunner {
	t.Helper()
	runner, err := scheduler.NewBatchRunner(scheduler.BatchConfig{
		MaxConcurrency: 2,
		AttemptTimeout: time.Second,
		MaxRetries:     2,
		BaseDelay:      time.Millisecond,
		MaxDelay:       2 * time.Millisecond,
		ShouldRetry:    logistics.IsRetryable,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return runner
}

func testCustomer() *catalog.Customer {
	return &catalog.Customer{
		ID:            "cust-1",
		CompanyName:   "Gordon Prod",
		AccountNumber: "417",
	}
}

func testShop() *catalog.Shop {
	return &catalog.Shop{ID: "shop-1", Name: "boutique", ArtistName: "Les Gordons"}
}

func cdProduct(id, sku string) catalog.Product {
	return catalog.Product{
		ID:     id,
		Title:  "Album " + id,
		Family: catalog.FamilyPhono,
		Kind:   catalog.KindCD,
		SKUs:   map[string]string{integration.DefaultCombinationKey: sku},
	}
}

func newTestExportService(t *testing.T, importer integration.ItemImporter, opts ...ExportServiceOption) *ExportService {
	t.Helper()
	return NewExportService(testCredentials(), importer, testRunner(t), zaptest.NewLogger(t), opts...)
}

// ---------------------------------------------------------------------------
// ImportItems Tests
// ---------------------------------------------------------------------------

func TestExportService_ImportItems_AllSucceed(t *testing.T) {
	importer := new(MockItemImporter)
	importer.On("ImportItem", mock.Anything, skuIs("SKU-1")).Return(json.RawMessage(`{"id":1}`), nil)
	importer.On("ImportItem", mock.Anything, skuIs("SKU-2")).Return(nil, nil)
	importer.On("ImportItem", mock.Anything, skuIs("SKU-3")).Return(json.RawMessage(`{"id":3}`), nil)

	svc := newTestExportService(t, importer)
	products := []catalog.Product{cdProduct("p1", "SKU-1"), cdProduct("p2", "SKU-2"), cdProduct("p3", "SKU-3")}

	outcome, err := svc.ImportItems(context.Background(), products, testShop(), testCustomer())
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, "Successfully imported 3 variants.", outcome.Message)
	require.Len(t, outcome.Data, 2)
	assert.JSONEq(t, `{"id":1}`, string(outcome.Data[0]))
	assert.JSONEq(t, `{"id":3}`, string(outcome.Data[1]))
	importer.AssertNumberOfCalls(t, "ImportItem", 3)
}

func TestExportService_ImportItems_PartialFailure(t *testing.T) {
	importer := new(MockItemImporter)
	importer.On("ImportItem", mock.Anything, skuIs("SKU-1")).Return(json.RawMessage(`{"id":1}`), nil)
	importer.On("ImportItem", mock.Anything, skuIs("SKU-2")).
		Return(nil, &logistics.ProviderError{StatusCode: 500, Message: "Request failed with status code 500"})
	importer.On("ImportItem", mock.Anything, skuIs("SKU-3")).Return(json.RawMessage(`{"id":3}`), nil)

	metrics := &fakeExportMetrics{}
	svc := newTestExportService(t, importer, WithExportMetrics(metrics))
	products := []catalog.Product{cdProduct("p1", "SKU-1"), cdProduct("p2", "SKU-2"), cdProduct("p3", "SKU-3")}

	outcome, err := svc.ImportItems(context.Background(), products, testShop(), testCustomer())
	assert.Nil(t, outcome)
	require.Error(t, err)
	assert.ErrorIs(t, err, integration.ErrItemsFailed)
	assert.False(t, errors.Is(err, integration.ErrNothingSent))
	assert.Equal(t, "Failed to import 1 variant(s). Details: SKU SKU-2: Request failed with status code 500", err.Error())

	var importErr *integration.ImportError
	require.True(t, errors.As(err, &importErr))
	assert.Equal(t, 2, importErr.Result.SuccessCount)
	assert.Equal(t, 1, importErr.Result.FailCount)
	require.Len(t, importErr.Result.SuccessData, 2)
	assert.JSONEq(t, `{"id":1}`, string(importErr.Result.SuccessData[0]))
	assert.JSONEq(t, `{"id":3}`, string(importErr.Result.SuccessData[1]))

	// 500 is retried: 1 attempt + 2 retries
	importer.AssertNumberOfCalls(t, "ImportItem", 5)
	require.Len(t, metrics.items, 3)
	assert.Equal(t, recordedItem{success: false, attempts: 3}, metrics.items[1])
}

func TestExportService_ImportItems_ClientErrorsAreNotRetried(t *testing.T) {
	importer := new(MockItemImporter)
	importer.On("ImportItem", mock.Anything, skuIs("SKU-1")).
		Return(nil, &logistics.ProviderError{StatusCode: 400, Message: "Unknown product type"})

	svc := newTestExportService(t, importer)
	_, err := svc.ImportItems(context.Background(), []catalog.Product{cdProduct("p1", "SKU-1")}, testShop(), testCustomer())

	require.ErrorIs(t, err, integration.ErrItemsFailed)
	assert.Contains(t, err.Error(), "SKU SKU-1: Unknown product type")
	importer.AssertNumberOfCalls(t, "ImportItem", 1)
}

func TestExportService_ImportItems_RetryThenSuccess(t *testing.T) {
	importer := new(MockItemImporter)
	importer.On("ImportItem", mock.Anything, skuIs("SKU-1")).
		Return(nil, &logistics.TransportError{Err: errors.New("connection reset by peer")}).Once()
	importer.On("ImportItem", mock.Anything, skuIs("SKU-1")).
		Return(json.RawMessage(`{"ok":true}`), nil).Once()

	metrics := &fakeExportMetrics{}
	svc := newTestExportService(t, importer, WithExportMetrics(metrics))
	outcome, err := svc.ImportItems(context.Background(), []catalog.Product{cdProduct("p1", "SKU-1")}, testShop(), testCustomer())

	require.NoError(t, err)
	assert.Equal(t, "Successfully imported 1 variants.", outcome.Message)
	assert.Equal(t, []recordedItem{{success: true, attempts: 2}}, metrics.items)
}

func TestExportService_ImportItems_NothingToSend(t *testing.T) {
	importer := new(MockItemImporter)
	svc := newTestExportService(t, importer)

	outcome, err := svc.ImportItems(context.Background(), nil, testShop(), testCustomer())
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, "No items needed to be sent.", outcome.Message)
	importer.AssertNotCalled(t, "ImportItem", mock.Anything, mock.Anything)
}

func TestExportService_ImportItems_Aborts(t *testing.T) {
	tests := []struct {
		name     string
		creds    integration.Credentials
		customer *catalog.Customer
		products []catalog.Product
		wantIs   error
		wantMsg  string
	}{
		{
			name:     "missing credentials",
			creds:    integration.Credentials{BaseURL: "https://ec.example.com"},
			customer: testCustomer(),
			products: []catalog.Product{cdProduct("p1", "SKU-1")},
			wantIs:   integration.ErrExportNotConfigured,
			wantMsg:  "Missing required EC API credentials (login, password).",
		},
		{
			name:     "missing account number",
			creds:    testCredentials(),
			customer: &catalog.Customer{ID: "cust-1", CompanyName: "Gordon Prod"},
			products: []catalog.Product{cdProduct("p1", "SKU-1")},
			wantIs:   integration.ErrMissingAccountNumber,
		},
		{
			name:     "missing sku",
			creds:    testCredentials(),
			customer: testCustomer(),
			products: []catalog.Product{cdProduct("p1", "SKU-1"), cdProduct("p2", "")},
			wantIs:   integration.ErrMissingSKU,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			importer := new(MockItemImporter)
			svc := NewExportService(tt.creds, importer, testRunner(t), zaptest.NewLogger(t))

			outcome, err := svc.ImportItems(context.Background(), tt.products, testShop(), tt.customer)
			assert.Nil(t, outcome)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantIs)
			assert.ErrorIs(t, err, integration.ErrNothingSent)
			assert.False(t, errors.Is(err, integration.ErrItemsFailed))
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, err.Error())
			}
			importer.AssertNotCalled(t, "ImportItem", mock.Anything, mock.Anything)
		})
	}
}

func TestExportService_ImportItems_RequestFields(t *testing.T) {
	tests := []struct {
		name       string
		configUser string
		wantUser   string
	}{
		{"user defaults to company name", "", "Gordon Prod"},
		{"configured user wins", "ops", "ops"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			importer := new(MockItemImporter)
			importer.On("ImportItem", mock.Anything, mock.MatchedBy(func(req integration.ImportRequest) bool {
				return req.User == tt.wantUser &&
					req.CustomerAccount == "000417" &&
					req.Credentials.Login == "portal" &&
					req.Item.CptClient == "000417"
			})).Return(nil, nil)

			creds := testCredentials()
			creds.User = tt.configUser
			svc := NewExportService(creds, importer, testRunner(t), zaptest.NewLogger(t))

			_, err := svc.ImportItems(context.Background(), []catalog.Product{cdProduct("p1", "SKU-1")}, testShop(), testCustomer())
			require.NoError(t, err)
			importer.AssertExpectations(t)
		})
	}
}

func TestExportService_ImportItems_CancelledContext(t *testing.T) {
	importer := new(MockItemImporter)
	svc := newTestExportService(t, importer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	products := []catalog.Product{cdProduct("p1", "SKU-1"), cdProduct("p2", "SKU-2")}
	_, err := svc.ImportItems(ctx, products, testShop(), testCustomer())

	var importErr *integration.ImportError
	require.True(t, errors.As(err, &importErr))
	assert.Equal(t, 2, importErr.Result.FailCount)
	assert.Equal(t, 0, importErr.Result.SuccessCount)
	importer.AssertNotCalled(t, "ImportItem", mock.Anything, mock.Anything)
}

func TestNewExportService_Configured(t *testing.T) {
	assert.True(t, newTestExportService(t, new(MockItemImporter)).Configured())
	assert.False(t, NewExportService(integration.Credentials{}, new(MockItemImporter), testRunner(t), nil).Configured())
	assert.False(t, NewExportService(testCredentials(), nil, testRunner(t), nil).Configured())
}
