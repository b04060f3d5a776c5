package retention

import "time"

// Retention is a resolved retention span for an entity type and tenant
// category. Infinite marks protected types that are never archived.
type Retention struct {
	Years    int
	Infinite bool
}

// Policy maps entity types to base retention years, tenant categories to
// additive adjustments, and lists the entity types exempt from archival
// entirely. It is configuration-managed and read-only at archival time.
type Policy struct {
	// BaseYears maps entity-type name to its base retention in years
	BaseYears map[string]int
	// DefaultYears applies to entity types missing from BaseYears
	DefaultYears int
	// CategoryAdjustments maps tenant category to additional years
	CategoryAdjustments map[string]int
	// ProtectedTypes are entity types with infinite retention
	ProtectedTypes []string
}

// IsProtected reports whether the entity type is exempt from archival
func (p *Policy) IsProtected(entityType string) bool {
	for _, t := range p.ProtectedTypes {
		if t == entityType {
			return true
		}
	}
	return false
}

// Resolve returns the retention for an entity type and tenant category:
// infinite for protected types, otherwise base years (default for unknown
// types) plus the category adjustment (zero for unknown categories).
func (p *Policy) Resolve(entityType, tenantCategory string) Retention {
	if p.IsProtected(entityType) {
		return Retention{Infinite: true}
	}
	years, ok := p.BaseYears[entityType]
	if !ok {
		years = p.DefaultYears
	}
	years += p.CategoryAdjustments[tenantCategory]
	return Retention{Years: years}
}

// CutoffBefore returns the deletion-date cutoff for archival as of the given
// time. Rows soft-deleted before the cutoff are candidates. The second return
// is false for protected types, which have no cutoff.
func (p *Policy) CutoffBefore(asOf time.Time, entityType, tenantCategory string) (time.Time, bool) {
	r := p.Resolve(entityType, tenantCategory)
	if r.Infinite {
		return time.Time{}, false
	}
	return asOf.AddDate(-r.Years, 0, 0), true
}
