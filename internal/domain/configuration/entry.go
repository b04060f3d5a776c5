package configuration

import (
	"fmt"
	"strings"
	"time"

	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Entry is a single configurable value, such as a regulatory classification
// or a tax category. Entries live in one of two scopes: a tenant scope
// (TenantID set) or the global scope (TenantID nil). A tenant-scoped entry
// shadows the global entry with the same code for that tenant.
type Entry struct {
	shared.TenantAggregateRoot
	Kind         string
	Code         string
	Name         string
	Description  string
	IsProtected  bool
	SortOrder    int
	IsActive     bool
	DeletedAt    *time.Time
	DeletedBy    *uuid.UUID
	DeleteReason string
}

// NewEntry creates a new configuration entry in the given scope.
// A nil tenantID creates a global entry.
func NewEntry(tenantID *uuid.UUID, kind, code, name string) (*Entry, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("%w: code cannot be empty", shared.ErrInvalidInput)
	}
	if kind == "" {
		return nil, fmt.Errorf("%w: kind cannot be empty", shared.ErrInvalidInput)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", shared.ErrInvalidInput)
	}

	e := &Entry{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Kind:                kind,
		Code:                code,
		Name:                name,
		IsActive:            true,
	}
	e.AddDomainEvent(NewEntryUpsertedEvent(e))
	return e, nil
}

// Update mutates the display fields of the entry. The protected flag can be
// raised by an update but never cleared; demoting an official entry requires
// a dedicated administrative migration, not a normal write.
func (e *Entry) Update(name, description string, isProtected bool, sortOrder int, isActive bool) error {
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", shared.ErrInvalidInput)
	}
	if e.IsProtected && !isProtected {
		return fmt.Errorf("%w: cannot clear the protected flag on %q", shared.ErrProtectedEntity, e.Code)
	}
	e.Name = name
	e.Description = description
	e.IsProtected = isProtected
	e.SortOrder = sortOrder
	e.IsActive = isActive
	e.UpdatedAt = time.Now()
	e.IncrementVersion()
	e.AddDomainEvent(NewEntryUpsertedEvent(e))
	return nil
}

// IsDeleted reports whether the entry has been soft-deleted
func (e *Entry) IsDeleted() bool {
	return e.DeletedAt != nil
}

// SoftDelete marks the entry as deleted without removing the row.
// Protected entries can never be deleted, regardless of scope.
func (e *Entry) SoftDelete(actor uuid.UUID, reason string) error {
	if e.IsProtected {
		return fmt.Errorf("%w: %q is an official entry", shared.ErrProtectedEntity, e.Code)
	}
	if e.IsDeleted() {
		return fmt.Errorf("%w: entry %q already deleted", shared.ErrInvalidState, e.Code)
	}
	now := time.Now()
	e.DeletedAt = &now
	e.DeletedBy = &actor
	e.DeleteReason = reason
	e.IsActive = false
	e.UpdatedAt = now
	e.IncrementVersion()
	e.AddDomainEvent(NewEntryDeletedEvent(e, actor, reason))
	return nil
}

// Restore reverses a soft delete
func (e *Entry) Restore() error {
	if !e.IsDeleted() {
		return fmt.Errorf("%w: entry %q is not deleted", shared.ErrInvalidState, e.Code)
	}
	e.DeletedAt = nil
	e.DeletedBy = nil
	e.DeleteReason = ""
	e.IsActive = true
	e.UpdatedAt = time.Now()
	e.IncrementVersion()
	return nil
}
