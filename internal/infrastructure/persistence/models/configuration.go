package models

import (
	"time"

	"github.com/backoffice/backend/internal/domain/configuration"
	"github.com/google/uuid"
)

// ConfigurationEntryModel is the persistence model for the configuration
// Entry aggregate. The unique index over (tenant_id, kind, code) keeps codes
// unique per scope; NULL tenant_id rows form the global scope.
type ConfigurationEntryModel struct {
	TenantAggregateModel
	Kind         string     `gorm:"type:varchar(100);not null;uniqueIndex:ux_config_entries_scope_kind_code,priority:2"`
	Code         string     `gorm:"type:varchar(100);not null;uniqueIndex:ux_config_entries_scope_kind_code,priority:3"`
	Name         string     `gorm:"type:varchar(200);not null"`
	Description  string     `gorm:"type:text"`
	IsProtected  bool       `gorm:"not null;default:false"`
	SortOrder    int        `gorm:"not null;default:0"`
	IsActive     bool       `gorm:"not null;default:true;index"`
	DeletedAt    *time.Time `gorm:"index"`
	DeletedBy    *uuid.UUID `gorm:"type:uuid"`
	DeleteReason string     `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (ConfigurationEntryModel) TableName() string {
	return "configuration_entries"
}

// ToDomain converts the persistence model to a domain Entry
func (m *ConfigurationEntryModel) ToDomain() *configuration.Entry {
	entry := &configuration.Entry{
		Kind:         m.Kind,
		Code:         m.Code,
		Name:         m.Name,
		Description:  m.Description,
		IsProtected:  m.IsProtected,
		SortOrder:    m.SortOrder,
		IsActive:     m.IsActive,
		DeletedAt:    m.DeletedAt,
		DeletedBy:    m.DeletedBy,
		DeleteReason: m.DeleteReason,
	}
	m.PopulateTenantAggregateRoot(&entry.TenantAggregateRoot)
	return entry
}

// FromDomain populates the persistence model from a domain Entry
func (m *ConfigurationEntryModel) FromDomain(e *configuration.Entry) {
	m.FromDomainTenantAggregateRoot(e.TenantAggregateRoot)
	m.Kind = e.Kind
	m.Code = e.Code
	m.Name = e.Name
	m.Description = e.Description
	m.IsProtected = e.IsProtected
	m.SortOrder = e.SortOrder
	m.IsActive = e.IsActive
	m.DeletedAt = e.DeletedAt
	m.DeletedBy = e.DeletedBy
	m.DeleteReason = e.DeleteReason
}

// ConfigurationEntryModelFromDomain creates a persistence model from a domain Entry
func ConfigurationEntryModelFromDomain(e *configuration.Entry) *ConfigurationEntryModel {
	m := &ConfigurationEntryModel{}
	m.FromDomain(e)
	return m
}
