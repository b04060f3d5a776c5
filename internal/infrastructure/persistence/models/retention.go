package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/backoffice/backend/internal/domain/retention"
	"github.com/google/uuid"
)

// ArchivedRecordModel is the persistence model for one archived entity.
// The archive table is append-only; rows are never updated in place.
type ArchivedRecordModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key"`
	OriginalID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_archived_records_type_original,priority:2"`
	EntityType     string    `gorm:"type:varchar(100);not null;uniqueIndex:ux_archived_records_type_original,priority:1"`
	TenantID       uuid.UUID `gorm:"type:uuid;not null;index"`
	Snapshot       []byte    `gorm:"type:jsonb;not null"`
	ContentHash    string    `gorm:"type:char(64);not null"`
	DeletedAt      time.Time `gorm:"not null"`
	DeletedBy      uuid.UUID `gorm:"type:uuid;not null"`
	ArchivalReason string    `gorm:"type:text"`
	ArchivedAt     time.Time `gorm:"not null;index"`
	SchemaVersion  int       `gorm:"not null;default:1"`
}

// TableName returns the table name for GORM
func (ArchivedRecordModel) TableName() string {
	return "archived_records"
}

// ToDomain converts the persistence model to a domain ArchivedRecord
func (m *ArchivedRecordModel) ToDomain() *retention.ArchivedRecord {
	return &retention.ArchivedRecord{
		ID:             m.ID,
		OriginalID:     m.OriginalID,
		EntityType:     m.EntityType,
		TenantID:       m.TenantID,
		Snapshot:       m.Snapshot,
		ContentHash:    m.ContentHash,
		DeletedAt:      m.DeletedAt,
		DeletedBy:      m.DeletedBy,
		ArchivalReason: m.ArchivalReason,
		ArchivedAt:     m.ArchivedAt,
		SchemaVersion:  m.SchemaVersion,
	}
}

// ArchivedRecordModelFromDomain creates a persistence model from a domain ArchivedRecord
func ArchivedRecordModelFromDomain(r *retention.ArchivedRecord) *ArchivedRecordModel {
	return &ArchivedRecordModel{
		ID:             r.ID,
		OriginalID:     r.OriginalID,
		EntityType:     r.EntityType,
		TenantID:       r.TenantID,
		Snapshot:       r.Snapshot,
		ContentHash:    r.ContentHash,
		DeletedAt:      r.DeletedAt,
		DeletedBy:      r.DeletedBy,
		ArchivalReason: r.ArchivalReason,
		ArchivedAt:     r.ArchivedAt,
		SchemaVersion:  r.SchemaVersion,
	}
}

// RetentionPolicyModel stores the retention policy as a single versioned
// jsonb document. The newest row wins.
type RetentionPolicyModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	PolicyJSON string    `gorm:"column:policy;type:jsonb;not null"`
	CreatedAt  time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (RetentionPolicyModel) TableName() string {
	return "retention_policies"
}

// policyDocument is the jsonb shape of the stored policy
type policyDocument struct {
	BaseYears           map[string]int `json:"base_years"`
	DefaultYears        int            `json:"default_years"`
	CategoryAdjustments map[string]int `json:"category_adjustments"`
	ProtectedTypes      []string       `json:"protected_types"`
}

// ToDomain converts the persistence model to a domain Policy
func (m *RetentionPolicyModel) ToDomain() (*retention.Policy, error) {
	var doc policyDocument
	if err := json.Unmarshal([]byte(m.PolicyJSON), &doc); err != nil {
		return nil, fmt.Errorf("decoding retention policy %s: %w", m.ID, err)
	}
	policy := &retention.Policy{
		BaseYears:           doc.BaseYears,
		DefaultYears:        doc.DefaultYears,
		CategoryAdjustments: doc.CategoryAdjustments,
		ProtectedTypes:      doc.ProtectedTypes,
	}
	if policy.BaseYears == nil {
		policy.BaseYears = map[string]int{}
	}
	if policy.CategoryAdjustments == nil {
		policy.CategoryAdjustments = map[string]int{}
	}
	return policy, nil
}

// RetentionPolicyModelFromDomain creates a persistence model from a domain Policy
func RetentionPolicyModelFromDomain(p *retention.Policy) *RetentionPolicyModel {
	doc := policyDocument{
		BaseYears:           p.BaseYears,
		DefaultYears:        p.DefaultYears,
		CategoryAdjustments: p.CategoryAdjustments,
		ProtectedTypes:      p.ProtectedTypes,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		data = []byte("{}")
	}
	return &RetentionPolicyModel{
		ID:         uuid.New(),
		PolicyJSON: string(data),
		CreatedAt:  time.Now(),
	}
}
