package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/merchportal/backend/internal/domain/catalog"
	"github.com/merchportal/backend/internal/domain/integration"
	"github.com/merchportal/backend/internal/domain/shared"
)

const (
	// DefaultExportLockTTL bounds how long a crashed export keeps its shop locked
	DefaultExportLockTTL = 10 * time.Minute

	exportLockPrefix  = "ec-export:shop:"
	reportKeyFormat   = "ec-exports/%s/%s.json"
	reportContentType = "application/json"
)

// Messages returned to the HTTP layer
const (
	MsgProductIDsRequired = "productIds array is required"
	MsgCustomerNotFound   = "Customer for this shop not found"
	MsgShopNotFound       = "Shop not found"
	MsgNoValidProducts    = "No valid products found for the given IDs"
	MsgExportInProgress   = "An EC export is already running for this shop"
)

// ShopExportResult is the outcome of a shop export
type ShopExportResult struct {
	Run     *integration.ExportRun
	Outcome *integration.ExportOutcome
}

// ShopExportService runs exports for the products of one shop and keeps
// their history
type ShopExportService struct {
	customers catalog.CustomerRepository
	runs      integration.ExportRunRepository
	exporter  *ExportService
	lock      integration.ExportLock
	archive   integration.ReportArchive
	lockTTL   time.Duration
	metrics   ExportMetricsRecorder
	logger    *zap.Logger
	now       func() time.Time
}

// ShopExportOption configures a ShopExportService
type ShopExportOption func(*ShopExportService)

// WithExportLock serializes exports per shop
func WithExportLock(lock integration.ExportLock, ttl time.Duration) ShopExportOption {
	return func(s *ShopExportService) {
		s.lock = lock
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// WithReportArchive uploads a JSON report of every finished run
func WithReportArchive(archive integration.ReportArchive) ShopExportOption {
	return func(s *ShopExportService) {
		s.archive = archive
	}
}

// WithRunMetrics sets the metrics recorder for finished runs
func WithRunMetrics(m ExportMetricsRecorder) ShopExportOption {
	return func(s *ShopExportService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewShopExportService creates a new ShopExportService
func NewShopExportService(
	customers catalog.CustomerRepository,
	runs integration.ExportRunRepository,
	exporter *ExportService,
	logger *zap.Logger,
	opts ...ShopExportOption,
) *ShopExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ShopExportService{
		customers: customers,
		runs:      runs,
		exporter:  exporter,
		lockTTL:   DefaultExportLockTTL,
		metrics:   nopExportMetrics{},
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateForShop exports the selected products of a shop. On full success
// the products are flagged as exported.
func (s *ShopExportService) GenerateForShop(ctx context.Context, shopID string, productIDs []string) (*ShopExportResult, error) {
	if shopID == "" || len(productIDs) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, MsgProductIDsRequired)
	}

	if s.lock != nil {
		key := exportLockPrefix + shopID
		acquired, err := s.lock.Acquire(ctx, key, s.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire export lock: %w", err)
		}
		if !acquired {
			return nil, fmt.Errorf("%w: %w",
				shared.NewDomainError(shared.CodeConflict, MsgExportInProgress),
				integration.ErrExportInProgress)
		}
		defer func() {
			if err := s.lock.Release(context.WithoutCancel(ctx), key); err != nil {
				s.logger.Warn("Failed to release export lock", zap.String("key", key), zap.Error(err))
			}
		}()
	}

	customer, err := s.customers.FindByShopID(ctx, shopID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError(shared.CodeNotFound, MsgCustomerNotFound)
		}
		return nil, err
	}
	shop, ok := customer.FindShop(shopID)
	if !ok {
		return nil, shared.NewDomainError(shared.CodeNotFound, MsgShopNotFound)
	}
	products := shop.FindProducts(productIDs)
	if len(products) == 0 {
		return nil, shared.NewDomainError(shared.CodeNotFound, MsgNoValidProducts)
	}

	exportedIDs := make([]string, 0, len(products))
	for _, p := range products {
		exportedIDs = append(exportedIDs, p.ID)
	}

	run, err := integration.NewExportRun(shop.ID, shop.DisplayName(), customer.ID, exportedIDs)
	if err != nil {
		return nil, err
	}
	if err := run.Start(); err != nil {
		return nil, err
	}
	s.saveRun(ctx, run)

	s.logger.Info("Starting EC export for shop",
		zap.String("run_id", run.ID.String()),
		zap.String("shop_id", shop.ID),
		zap.String("customer_id", customer.ID),
		zap.Int("product_count", len(products)),
	)

	outcome, exportErr := s.exporter.ImportItems(ctx, products, shop, customer)
	var report integration.ImportResult
	switch {
	case exportErr == nil:
		report = outcome.Result
		s.recordTransition(run, run.Complete(outcome.Result, outcome.Message))
	default:
		var importErr *integration.ImportError
		if errors.As(exportErr, &importErr) {
			report = importErr.Result
			s.recordTransition(run, run.Complete(importErr.Result, exportErr.Error()))
		} else {
			report = integration.NewImportResult()
			s.recordTransition(run, run.Fail(exportErr.Error()))
		}
	}
	s.saveRun(ctx, run)
	s.archiveReport(ctx, run, report)
	s.metrics.RecordRun(ctx, run.Status.String(), run.Duration())

	if exportErr != nil {
		return nil, exportErr
	}

	if err := s.customers.MarkProductsExported(ctx, shop.ID, exportedIDs, s.now()); err != nil {
		s.logger.Error("Export succeeded but products could not be flagged",
			zap.String("run_id", run.ID.String()),
			zap.String("shop_id", shop.ID),
			zap.Error(err),
		)
	}

	return &ShopExportResult{Run: run, Outcome: outcome}, nil
}

// ListRuns returns one page of export runs, newest first
func (s *ShopExportService) ListRuns(ctx context.Context, filter integration.ExportRunFilter) ([]integration.ExportRun, int64, error) {
	filter.Page, filter.PageSize = shared.NormalizePage(filter.Page, filter.PageSize)
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, 0, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Invalid export run status: %s", filter.Status))
	}
	return s.runs.List(ctx, filter)
}

// GetRun returns one export run
func (s *ShopExportService) GetRun(ctx context.Context, id uuid.UUID) (*integration.ExportRun, error) {
	return s.runs.FindByID(ctx, id)
}

// saveRun persists the run. History is best effort and never fails an export.
func (s *ShopExportService) saveRun(ctx context.Context, run *integration.ExportRun) {
	if s.runs == nil {
		return
	}
	if err := s.runs.Save(context.WithoutCancel(ctx), run); err != nil {
		s.logger.Warn("Failed to save export run",
			zap.String("run_id", run.ID.String()),
			zap.String("status", run.Status.String()),
			zap.Error(err),
		)
	}
}

// recordTransition logs a rejected run state change; the export outcome still stands
func (s *ShopExportService) recordTransition(run *integration.ExportRun, err error) {
	if err == nil {
		return
	}
	s.logger.Warn("Failed to record export run transition",
		zap.String("run_id", run.ID.String()),
		zap.String("status", run.Status.String()),
		zap.Error(err),
	)
}

// exportReport is the archived document of a finished run
type exportReport struct {
	Run    *integration.ExportRun   `json:"run"`
	Result integration.ImportResult `json:"result"`
}

// archiveReport uploads the run report when an archive is configured
func (s *ShopExportService) archiveReport(ctx context.Context, run *integration.ExportRun, result integration.ImportResult) {
	if s.archive == nil {
		return
	}
	data, err := json.Marshal(exportReport{Run: run, Result: result})
	if err != nil {
		s.logger.Warn("Failed to encode export report", zap.Error(err))
		return
	}
	key := fmt.Sprintf(reportKeyFormat, run.ShopID, run.ID)
	if err := s.archive.Upload(context.WithoutCancel(ctx), key, data, reportContentType); err != nil {
		s.logger.Warn("Failed to archive export report", zap.String("key", key), zap.Error(err))
		return
	}
	s.logger.Debug("Export report archived", zap.String("key", key))
}
