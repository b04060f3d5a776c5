package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/backoffice/backend/internal/domain/retention"
	"github.com/backoffice/backend/internal/domain/vertical"
	"github.com/google/uuid"
)

// VerticalActivationModel is the persistence model for a tenant's vertical
// activation. One row per (tenant, vertical); deactivation keeps the row.
type VerticalActivationModel struct {
	TenantAggregateModel
	VerticalName  string     `gorm:"type:varchar(100);not null;uniqueIndex:ux_vertical_activations_tenant_name,priority:2"`
	ConfigJSON    string     `gorm:"column:config;type:jsonb;default:'{}'"`
	IsActive      bool       `gorm:"not null;default:true;index"`
	ActivatedAt   time.Time  `gorm:"not null"`
	DeactivatedAt *time.Time `gorm:""`
}

// TableName returns the table name for GORM
func (VerticalActivationModel) TableName() string {
	return "vertical_activations"
}

// ToDomain converts the persistence model to a domain Activation
func (m *VerticalActivationModel) ToDomain() (*vertical.Activation, error) {
	a := &vertical.Activation{
		VerticalName:  m.VerticalName,
		Config:        vertical.NewPropertyBag(),
		IsActive:      m.IsActive,
		ActivatedAt:   m.ActivatedAt,
		DeactivatedAt: m.DeactivatedAt,
	}
	m.PopulateTenantAggregateRoot(&a.TenantAggregateRoot)

	if m.ConfigJSON != "" && m.ConfigJSON != "{}" {
		if err := json.Unmarshal([]byte(m.ConfigJSON), &a.Config); err != nil {
			return nil, fmt.Errorf("decoding config of activation %s: %w", m.ID, err)
		}
	}
	return a, nil
}

// FromDomain populates the persistence model from a domain Activation
func (m *VerticalActivationModel) FromDomain(a *vertical.Activation) {
	m.FromDomainTenantAggregateRoot(a.TenantAggregateRoot)
	m.VerticalName = a.VerticalName
	m.IsActive = a.IsActive
	m.ActivatedAt = a.ActivatedAt
	m.DeactivatedAt = a.DeactivatedAt

	if data, err := json.Marshal(a.Config); err == nil {
		m.ConfigJSON = string(data)
	} else {
		m.ConfigJSON = "{}"
	}
}

// VerticalActivationModelFromDomain creates a persistence model from a domain Activation
func VerticalActivationModelFromDomain(a *vertical.Activation) *VerticalActivationModel {
	m := &VerticalActivationModel{}
	m.FromDomain(a)
	return m
}

// VerticalEntityModel is the persistence model for a vertical entity. The
// property bag is stored as a jsonb document next to the fixed columns. The
// state column tracks the archival lifecycle; archived rows are excluded
// from all live queries.
type VerticalEntityModel struct {
	TenantAggregateModel
	EntityType     string          `gorm:"type:varchar(100);not null;index"`
	VerticalType   string          `gorm:"type:varchar(100);not null;index"`
	SchemaVersion  int             `gorm:"not null;default:1"`
	IsActive       bool            `gorm:"not null;default:true;index"`
	PropertiesJSON string          `gorm:"column:properties;type:jsonb;default:'{}'"`
	State          retention.State `gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
	DeletedAt      *time.Time      `gorm:"index"`
	DeletedBy      *uuid.UUID      `gorm:"type:uuid"`
	DeleteReason   string          `gorm:"type:text"`
	ArchivedAt     *time.Time      `gorm:""`
}

// TableName returns the table name for GORM
func (VerticalEntityModel) TableName() string {
	return "vertical_entities"
}

// ToDomain converts the persistence model to a domain Entity
func (m *VerticalEntityModel) ToDomain() (*vertical.Entity, error) {
	e := &vertical.Entity{
		EntityType:    m.EntityType,
		VerticalType:  m.VerticalType,
		SchemaVersion: m.SchemaVersion,
		IsActive:      m.IsActive,
		Properties:    vertical.NewPropertyBag(),
		DeletedAt:     m.DeletedAt,
		DeletedBy:     m.DeletedBy,
		DeleteReason:  m.DeleteReason,
	}
	m.PopulateTenantAggregateRoot(&e.TenantAggregateRoot)

	if m.PropertiesJSON != "" && m.PropertiesJSON != "{}" {
		if err := json.Unmarshal([]byte(m.PropertiesJSON), &e.Properties); err != nil {
			return nil, fmt.Errorf("decoding properties of entity %s: %w", m.ID, err)
		}
	}
	return e, nil
}

// FromDomain populates the persistence model from a domain Entity
func (m *VerticalEntityModel) FromDomain(e *vertical.Entity) {
	m.FromDomainTenantAggregateRoot(e.TenantAggregateRoot)
	m.EntityType = e.EntityType
	m.VerticalType = e.VerticalType
	m.SchemaVersion = e.SchemaVersion
	m.IsActive = e.IsActive
	m.DeletedAt = e.DeletedAt
	m.DeletedBy = e.DeletedBy
	m.DeleteReason = e.DeleteReason

	if e.IsDeleted() {
		m.State = retention.StateSoftDeleted
	} else {
		m.State = retention.StateActive
	}

	if data, err := json.Marshal(e.Properties); err == nil {
		m.PropertiesJSON = string(data)
	} else {
		m.PropertiesJSON = "{}"
	}
}

// VerticalEntityModelFromDomain creates a persistence model from a domain Entity
func VerticalEntityModelFromDomain(e *vertical.Entity) *VerticalEntityModel {
	m := &VerticalEntityModel{}
	m.FromDomain(e)
	return m
}

// ToSourceRow converts the model to the archival engine's source-row view
func (m *VerticalEntityModel) ToSourceRow() retention.SourceRow {
	payload := map[string]any{
		"id":             m.ID.String(),
		"entity_type":    m.EntityType,
		"vertical_type":  m.VerticalType,
		"schema_version": m.SchemaVersion,
		"is_active":      m.IsActive,
		"created_at":     m.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at":     m.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if m.TenantID != nil {
		payload["tenant_id"] = m.TenantID.String()
	}
	if m.PropertiesJSON != "" {
		var props map[string]any
		if err := json.Unmarshal([]byte(m.PropertiesJSON), &props); err == nil {
			payload["properties"] = props
		}
	}

	row := retention.SourceRow{
		ID:           m.ID,
		EntityType:   m.EntityType,
		Payload:      payload,
		DeleteReason: m.DeleteReason,
		State:        m.State,
	}
	if m.TenantID != nil {
		row.TenantID = *m.TenantID
	}
	if m.DeletedAt != nil {
		row.DeletedAt = *m.DeletedAt
	}
	if m.DeletedBy != nil {
		row.DeletedBy = *m.DeletedBy
	}
	return row
}
