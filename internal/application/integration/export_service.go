package integration

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/merchportal/backend/internal/domain/catalog"
	"github.com/merchportal/backend/internal/domain/integration"
	"github.com/merchportal/backend/internal/infrastructure/logistics"
	"github.com/merchportal/backend/internal/infrastructure/scheduler"
	"github.com/merchportal/backend/internal/infrastructure/telemetry"
)

// ExportMetricsRecorder receives export measurements
type ExportMetricsRecorder interface {
	RecordItem(ctx context.Context, success bool, attempts int, d time.Duration)
	RecordRun(ctx context.Context, status string, d time.Duration)
}

type nopExportMetrics struct{}

func (nopExportMetrics) RecordItem(context.Context, bool, int, time.Duration) {}
func (nopExportMetrics) RecordRun(context.Context, string, time.Duration)     {}

// itemImportLabels tag the CPU spent submitting items to the EC API
var itemImportLabels = telemetry.OperationLabels("ec_item_import", map[string]string{
	telemetry.ProfilingLabelRegion: "ec_api",
})

// ExportService maps catalog products to provider items and submits them
type ExportService struct {
	credentials integration.Credentials
	configErr   error
	importer    integration.ItemImporter
	runner      *scheduler.BatchRunner
	metrics     ExportMetricsRecorder
	logger      *zap.Logger
}

// ExportServiceOption configures an ExportService
type ExportServiceOption func(*ExportService)

// WithExportMetrics sets the metrics recorder
func WithExportMetrics(m ExportMetricsRecorder) ExportServiceOption {
	return func(s *ExportService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewExportService creates an export service. Missing credentials do not
// prevent construction; every export then fails with the configuration error.
func NewExportService(
	credentials integration.Credentials,
	importer integration.ItemImporter,
	runner *scheduler.BatchRunner,
	logger *zap.Logger,
	opts ...ExportServiceOption,
) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ExportService{
		credentials: credentials,
		importer:    importer,
		runner:      runner,
		metrics:     nopExportMetrics{},
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := credentials.Validate(); err != nil {
		s.configErr = err
		logger.Warn("EC API credentials are incomplete, exports are disabled", zap.Error(err))
	} else if importer == nil || runner == nil {
		s.configErr = integration.NewAbortedError(integration.ErrExportNotConfigured, "EC API client is not configured.")
	}
	return s
}

// Configured reports whether exports can be attempted
func (s *ExportService) Configured() bool {
	return s.configErr == nil
}

// ImportItems exports the given products of a shop to the logistics provider.
//
// Configuration and mapping errors are returned before anything is sent and
// match integration.ErrNothingSent. When at least one item is rejected the
// returned *integration.ImportError carries the complete result.
func (s *ExportService) ImportItems(
	ctx context.Context,
	products []catalog.Product,
	shop *catalog.Shop,
	customer *catalog.Customer,
) (*integration.ExportOutcome, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "export", "import_items",
		telemetry.WithAttribute("shop_id", shop.ID),
		telemetry.WithAttribute("product_count", len(products)),
	)
	defer span.End()

	if s.configErr != nil {
		telemetry.RecordError(span, s.configErr)
		return nil, s.configErr
	}
	if customer.AccountNumber == "" {
		err := integration.NewAbortedError(integration.ErrMissingAccountNumber,
			"Customer account number (CompteClientNumber) is missing for %s.", customer.CompanyName)
		telemetry.RecordError(span, err)
		return nil, err
	}

	items, err := s.mapProducts(products, shop, customer)
	if err != nil {
		s.logger.Error("Product mapping failed, nothing was sent",
			zap.String("shop_id", shop.ID),
			zap.Error(err),
		)
		telemetry.RecordError(span, err)
		return nil, err
	}
	if len(items) == 0 {
		s.logger.Info(integration.MessageNothingToSend, zap.String("shop_id", shop.ID))
		return integration.NothingToSendOutcome(), nil
	}

	user := s.credentials.UserFor(customer.CompanyName)
	account := integration.FormatClientAccount(customer.AccountNumber)

	s.logger.Info("Sending items to EC API",
		zap.String("shop_id", shop.ID),
		zap.Int("item_count", len(items)),
		zap.String("base_url", s.credentials.BaseURL),
		zap.String("customer_account", account),
		zap.String("login", s.credentials.Login),
		zap.String("password", s.credentials.MaskedPassword()),
		zap.String("user", user),
		zap.Int("max_concurrency", s.runner.Config().MaxConcurrency),
	)

	responses := make([]json.RawMessage, len(items))
	var mu sync.Mutex
	results := s.runner.Run(ctx, len(items), func(ctx context.Context, index int) error {
		var (
			data json.RawMessage
			err  error
		)
		telemetry.WithProfilingLabels(ctx, itemImportLabels, func(ctx context.Context) {
			data, err = s.importer.ImportItem(ctx, integration.ImportRequest{
				Credentials:     s.credentials,
				CustomerAccount: account,
				User:            user,
				Item:            items[index],
			})
		})
		if err != nil {
			return err
		}
		mu.Lock()
		responses[index] = data
		mu.Unlock()
		return nil
	})

	result := integration.NewImportResult()
	for _, r := range results {
		sku := items[r.Index].SKU
		s.metrics.RecordItem(ctx, r.Err == nil, r.Attempts, r.Duration)
		if r.Err != nil {
			message := logistics.ErrorMessage(r.Err)
			result.RecordFailure(sku, message)
			s.logger.Warn("Item rejected",
				zap.String("sku", sku),
				zap.Int("attempts", r.Attempts),
				zap.String("error", message),
			)
			continue
		}
		result.RecordSuccess(responses[r.Index])
		s.logger.Debug("Item imported", zap.String("sku", sku), zap.Int("attempts", r.Attempts))
	}

	telemetry.SetAttributes(span,
		"success_count", result.SuccessCount,
		"fail_count", result.FailCount,
	)

	outcome, err := integration.OutcomeFromResult(result)
	if err != nil {
		s.logger.Error("EC export finished with failures",
			zap.String("shop_id", shop.ID),
			zap.Int("success_count", result.SuccessCount),
			zap.Int("fail_count", result.FailCount),
		)
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info(outcome.Message, zap.String("shop_id", shop.ID))
	telemetry.SetOK(span)
	return outcome, nil
}

// mapProducts flattens every product into provider items
func (s *ExportService) mapProducts(
	products []catalog.Product,
	shop *catalog.Shop,
	customer *catalog.Customer,
) ([]integration.Item, error) {
	var items []integration.Item
	for i := range products {
		mapped, err := integration.MapProductToItems(&products[i], shop, customer)
		if err != nil {
			return nil, err
		}
		for _, w := range mapped.Warnings {
			s.logger.Warn("Item mapping warning",
				zap.String("product_id", w.ProductID),
				zap.String("variant", w.VariantKey),
				zap.String("code", string(w.Code)),
				zap.String("detail", w.Message),
			)
		}
		items = append(items, mapped.Items...)
	}
	return items, nil
}
