// Package tenant provides multi-tenant database scoping for GORM.
//
// Configuration reference data lives in one of two scopes: a tenant scope or
// the global scope (tenant_id IS NULL). The scopes here make both kinds of
// query explicit so a repository can never accidentally read across tenants.
package tenant

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrTenantIDRequired is returned when tenant_id is required but not provided
var ErrTenantIDRequired = errors.New("tenant_id is required but not provided")

// Scope restricts a query to exactly one tenant's rows
func Scope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tenantID)
	}
}

// GlobalScope restricts a query to globally scoped rows only
func GlobalScope() func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id IS NULL")
	}
}

// ExactScope restricts a query to exactly the given scope: one tenant's rows
// when tenantID is set, the global rows when it is nil. It never matches rows
// from both scopes at once.
func ExactScope(tenantID *uuid.UUID) func(db *gorm.DB) *gorm.DB {
	if tenantID == nil {
		return GlobalScope()
	}
	return Scope(*tenantID)
}

// VisibleScope matches the rows a tenant can see: its own rows plus the
// global rows. Used for overlay listings where tenant entries shadow global
// ones; single-row resolution uses ExactScope per scope instead.
func VisibleScope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ? OR tenant_id IS NULL", tenantID)
	}
}

// RequireScope is like Scope but rejects the zero UUID, for writes where a
// missing tenant would silently target the global scope
func RequireScope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if tenantID == uuid.Nil {
			_ = db.AddError(ErrTenantIDRequired)
			return db
		}
		return db.Where("tenant_id = ?", tenantID)
	}
}
