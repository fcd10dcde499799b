package models

import (
	"encoding/json"
	"time"

	"github.com/merchportal/backend/internal/domain/integration"
)

// ExportRunModel is the persistence model for the ExportRun aggregate.
type ExportRunModel struct {
	AggregateModel
	ShopID           string                      `gorm:"type:varchar(64);not null;index:idx_ec_export_runs_shop,priority:1"`
	ShopName         string                      `gorm:"type:varchar(255)"`
	CustomerID       string                      `gorm:"type:varchar(64);not null;index"`
	ProductIDsJSON   string                      `gorm:"type:text;column:product_ids;not null"`
	Status           integration.ExportRunStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	ItemCount        int                         `gorm:"not null;default:0"`
	SuccessCount     int                         `gorm:"not null;default:0"`
	FailCount        int                         `gorm:"not null;default:0"`
	ErrorDetailsJSON string                      `gorm:"type:text;column:error_details"`
	Message          string                      `gorm:"type:text"`
	StartedAt        *time.Time
	CompletedAt      *time.Time
}

// TableName returns the table name for GORM
func (ExportRunModel) TableName() string {
	return "ec_export_runs"
}

// ToDomain converts the persistence model to a domain ExportRun.
// Unreadable JSON columns degrade to empty lists.
func (m *ExportRunModel) ToDomain() *integration.ExportRun {
	run := &integration.ExportRun{
		BaseAggregateRoot: m.ToAggregateRoot(),
		ShopID:            m.ShopID,
		ShopName:          m.ShopName,
		CustomerID:        m.CustomerID,
		ProductIDs:        make([]string, 0),
		Status:            m.Status,
		ItemCount:         m.ItemCount,
		SuccessCount:      m.SuccessCount,
		FailCount:         m.FailCount,
		Message:           m.Message,
		StartedAt:         m.StartedAt,
		CompletedAt:       m.CompletedAt,
	}

	if m.ProductIDsJSON != "" {
		var ids []string
		if err := json.Unmarshal([]byte(m.ProductIDsJSON), &ids); err == nil {
			run.ProductIDs = ids
		}
	}
	if err := run.SetErrorDetailsFromJSON(m.ErrorDetailsJSON); err != nil {
		run.ErrorDetails = make([]integration.ItemFailure, 0)
	}
	return run
}

// FromDomain populates the model from a domain ExportRun
func (m *ExportRunModel) FromDomain(run *integration.ExportRun) error {
	m.FromAggregateRoot(run.BaseAggregateRoot)
	m.ShopID = run.ShopID
	m.ShopName = run.ShopName
	m.CustomerID = run.CustomerID
	m.Status = run.Status
	m.ItemCount = run.ItemCount
	m.SuccessCount = run.SuccessCount
	m.FailCount = run.FailCount
	m.Message = run.Message
	m.StartedAt = run.StartedAt
	m.CompletedAt = run.CompletedAt

	ids := run.ProductIDs
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	m.ProductIDsJSON = string(data)

	details, err := run.ErrorDetailsJSON()
	if err != nil {
		return err
	}
	m.ErrorDetailsJSON = details
	return nil
}

// ExportRunModelFromDomain creates a persistence model from a domain ExportRun
func ExportRunModelFromDomain(run *integration.ExportRun) (*ExportRunModel, error) {
	m := &ExportRunModel{}
	if err := m.FromDomain(run); err != nil {
		return nil, err
	}
	return m, nil
}
