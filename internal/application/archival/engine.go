// Package archival implements the retention engine: scanning soft-deleted
// rows past their retention cutoff, moving them into the append-only archive
// with content hashes, and sampling the archive for integrity after each run.
package archival

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/backoffice/backend/internal/domain/retention"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/backoffice/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IntegrityReport summarizes a post-archival sample verification
type IntegrityReport struct {
	EntityType       string  `json:"entity_type"`
	Sampled          int     `json:"sampled"`
	Corrupted        int     `json:"corrupted"`
	IntegrityPercent float64 `json:"integrity_percent"`
	Threshold        float64 `json:"threshold"`
}

// Notifier alerts administrators when sampling finds the archive below the
// integrity threshold
type Notifier interface {
	NotifyIntegrityBreach(ctx context.Context, report IntegrityReport) error
}

// NopNotifier is used when no administrator channel is configured
type NopNotifier struct{}

// NotifyIntegrityBreach does nothing
func (NopNotifier) NotifyIntegrityBreach(context.Context, IntegrityReport) error { return nil }

// ScanReport is the outcome of one ScanAndArchive run
type ScanReport struct {
	EntityType       string        `json:"entity_type"`
	Protected        bool          `json:"protected"`
	Scanned          int           `json:"scanned"`
	Archived         int           `json:"archived"`
	Skipped          int           `json:"skipped"`
	Failed           int           `json:"failed"`
	Sampled          int           `json:"sampled"`
	Corrupted        int           `json:"corrupted"`
	Repaired         int           `json:"repaired"`
	IntegrityPercent float64       `json:"integrity_percent"`
	Cancelled        bool          `json:"cancelled"`
	Elapsed          time.Duration `json:"elapsed"`
}

// Engine archives soft-deleted rows whose retention has expired
type Engine struct {
	source     retention.SourceRepository
	archive    retention.ArchiveRepository
	policies   retention.PolicyRepository
	categories retention.TenantCategoryResolver
	notifier   Notifier
	cfg        config.ArchivalConfig
	logger     *zap.Logger
}

// NewEngine creates an archival engine
func NewEngine(
	source retention.SourceRepository,
	archive retention.ArchiveRepository,
	policies retention.PolicyRepository,
	categories retention.TenantCategoryResolver,
	notifier Notifier,
	cfg config.ArchivalConfig,
	logger *zap.Logger,
) *Engine {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Engine{
		source:     source,
		archive:    archive,
		policies:   policies,
		categories: categories,
		notifier:   notifier,
		cfg:        cfg,
		logger:     logger,
	}
}

// ResolveRetentionYears returns the effective retention for an entity type
// and tenant: infinite for protected types, otherwise the type's base years
// plus the tenant category adjustment.
func (e *Engine) ResolveRetentionYears(ctx context.Context, entityType string, tenantID uuid.UUID) (retention.Retention, error) {
	policy, err := e.policies.Load(ctx)
	if err != nil {
		return retention.Retention{}, fmt.Errorf("loading retention policy: %w", err)
	}
	category, err := e.categories.CategoryForTenant(ctx, tenantID)
	if err != nil {
		return retention.Retention{}, fmt.Errorf("resolving tenant category: %w", err)
	}
	return policy.Resolve(entityType, category), nil
}

// ScanAndArchive archives the soft-deleted rows of one entity type whose
// retention expired before asOf. Protected types are skipped entirely. Rows
// are processed in batches with a pause between batches, under an overall
// deadline; the context is checked between batches, and batches already
// archived stay archived on cancellation. Each run ends with an integrity
// sample over the archive.
func (e *Engine) ScanAndArchive(ctx context.Context, entityType string, asOf time.Time) (*ScanReport, error) {
	started := time.Now()
	report := &ScanReport{EntityType: entityType}

	policy, err := e.policies.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading retention policy: %w", err)
	}

	// Category adjustments only ever extend retention, so the unadjusted
	// cutoff bounds the candidate set; per-row cutoffs are checked below.
	scanCutoff, archivable := policy.CutoffBefore(asOf, entityType, "")
	if !archivable {
		report.Protected = true
		report.Elapsed = time.Since(started)
		e.logger.Info("entity type is protected, skipping archival",
			zap.String("entity_type", entityType))
		return report, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.ScanTimeout)
	defer cancel()

	e.logger.Info("archival scan started",
		zap.String("entity_type", entityType),
		zap.Time("cutoff", scanCutoff),
		zap.Int("batch_size", e.cfg.BatchSize))

	// The cursor advances past every processed row, skipped ones included,
	// so a head of category-deferred rows cannot starve eligible rows
	// deleted after them.
	var cursor retention.ScanCursor
	for {
		if err := ctx.Err(); err != nil {
			report.Cancelled = true
			break
		}

		rows, err := e.source.FindSoftDeletedBefore(ctx, entityType, scanCutoff, cursor, e.cfg.BatchSize)
		if err != nil {
			report.Elapsed = time.Since(started)
			return report, fmt.Errorf("scanning soft-deleted rows: %w", err)
		}
		if len(rows) == 0 {
			break
		}

		for _, row := range rows {
			report.Scanned++
			ok, err := e.archiveRow(ctx, policy, row, asOf)
			switch {
			case err != nil:
				report.Failed++
				e.logger.Error("failed to archive row",
					zap.String("entity_type", entityType),
					zap.String("original_id", row.ID.String()),
					zap.Error(err))
			case ok:
				report.Archived++
			default:
				report.Skipped++
			}
		}

		last := rows[len(rows)-1]
		cursor = retention.ScanCursor{DeletedAt: last.DeletedAt, ID: last.ID}

		if len(rows) < e.cfg.BatchSize {
			break
		}

		select {
		case <-ctx.Done():
			report.Cancelled = true
		case <-time.After(e.cfg.BatchDelay):
		}
		if report.Cancelled {
			break
		}
	}

	e.sampleIntegrity(ctx, entityType, report)

	report.Elapsed = time.Since(started)
	e.logger.Info("archival scan finished",
		zap.String("entity_type", entityType),
		zap.Int("scanned", report.Scanned),
		zap.Int("archived", report.Archived),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Bool("cancelled", report.Cancelled),
		zap.Duration("elapsed", report.Elapsed))
	return report, nil
}

// archiveRow archives one source row. It returns false with a nil error when
// the row is retained longer than the scan cutoff suggests (tenant category
// adjustment) or when the row was already archived by an earlier run.
func (e *Engine) archiveRow(ctx context.Context, policy *retention.Policy, row retention.SourceRow, asOf time.Time) (bool, error) {
	category, err := e.categories.CategoryForTenant(ctx, row.TenantID)
	if err != nil {
		return false, fmt.Errorf("resolving tenant category: %w", err)
	}
	cutoff, archivable := policy.CutoffBefore(asOf, row.EntityType, category)
	if !archivable || !row.DeletedAt.Before(cutoff) {
		return false, nil
	}

	retained := policy.Resolve(row.EntityType, category)
	reason := fmt.Sprintf("retention of %d years expired", retained.Years)

	record, err := retention.NewArchivedRecord(row, reason, time.Now().UTC())
	if err != nil {
		return false, err
	}

	if err := e.archive.Save(ctx, record); err != nil {
		if !errors.Is(err, shared.ErrAlreadyExists) {
			return false, err
		}
		// The record exists from an earlier run that died before the source
		// row was marked. Finish the transition and report the row skipped.
		if err := e.source.MarkArchived(ctx, row.EntityType, row.ID, record.ArchivedAt); err != nil &&
			!errors.Is(err, shared.ErrInvalidState) && !errors.Is(err, shared.ErrNotFound) {
			return false, err
		}
		return false, nil
	}

	if err := e.source.MarkArchived(ctx, row.EntityType, row.ID, record.ArchivedAt); err != nil {
		return false, fmt.Errorf("marking source row archived: %w", err)
	}
	return true, nil
}

// VerifyIntegrity recomputes the content hash of one archived record and
// compares it to the stored digest. A mismatch is always logged.
func (e *Engine) VerifyIntegrity(ctx context.Context, recordID uuid.UUID) error {
	record, err := e.archive.FindByID(ctx, recordID)
	if err != nil {
		return err
	}
	if err := record.Verify(); err != nil {
		e.logger.Error("archive integrity violation",
			zap.String("record_id", record.ID.String()),
			zap.String("original_id", record.OriginalID.String()),
			zap.String("entity_type", record.EntityType),
			zap.Error(err))
		return err
	}
	return nil
}

// sampleIntegrity verifies a sample of recently archived records. Falling
// below the configured integrity percentage notifies administrators and
// re-archives the corrupted records with bounded retries.
func (e *Engine) sampleIntegrity(ctx context.Context, entityType string, report *ScanReport) {
	if e.cfg.SampleSize <= 0 {
		report.IntegrityPercent = 100
		return
	}

	sample, err := e.archive.Sample(ctx, entityType, e.cfg.SampleSize)
	if err != nil {
		e.logger.Error("failed to sample archive for verification",
			zap.String("entity_type", entityType),
			zap.Error(err))
		return
	}
	report.Sampled = len(sample)
	if len(sample) == 0 {
		report.IntegrityPercent = 100
		return
	}

	var corrupted []retention.ArchivedRecord
	for i := range sample {
		if err := sample[i].Verify(); err != nil {
			e.logger.Error("archive integrity violation",
				zap.String("record_id", sample[i].ID.String()),
				zap.String("original_id", sample[i].OriginalID.String()),
				zap.String("entity_type", entityType),
				zap.Error(err))
			corrupted = append(corrupted, sample[i])
		}
	}
	report.Corrupted = len(corrupted)
	report.IntegrityPercent = float64(len(sample)-len(corrupted)) / float64(len(sample)) * 100

	if report.IntegrityPercent >= e.cfg.MinIntegrityPercent {
		return
	}

	breach := IntegrityReport{
		EntityType:       entityType,
		Sampled:          report.Sampled,
		Corrupted:        report.Corrupted,
		IntegrityPercent: report.IntegrityPercent,
		Threshold:        e.cfg.MinIntegrityPercent,
	}
	e.logger.Error("archive integrity below threshold",
		zap.String("entity_type", entityType),
		zap.Float64("integrity_percent", breach.IntegrityPercent),
		zap.Float64("threshold", breach.Threshold))
	if err := e.notifier.NotifyIntegrityBreach(ctx, breach); err != nil {
		e.logger.Error("failed to notify administrators of integrity breach", zap.Error(err))
	}

	for i := range corrupted {
		if e.repairWithRetries(ctx, &corrupted[i]) {
			report.Repaired++
		}
	}
}

// repairWithRetries re-archives one corrupted record up to MaxRetries times
func (e *Engine) repairWithRetries(ctx context.Context, record *retention.ArchivedRecord) bool {
	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxRetries; attempt++ {
		if lastErr = e.repair(ctx, record); lastErr == nil {
			e.logger.Info("re-archived corrupted record",
				zap.String("record_id", record.ID.String()),
				zap.String("original_id", record.OriginalID.String()),
				zap.Int("attempt", attempt))
			return true
		}
		e.logger.Warn("re-archival attempt failed",
			zap.String("original_id", record.OriginalID.String()),
			zap.Int("attempt", attempt),
			zap.Error(lastErr))
	}
	e.logger.Error("giving up on corrupted record",
		zap.String("original_id", record.OriginalID.String()),
		zap.Int("attempts", e.cfg.MaxRetries),
		zap.Error(lastErr))
	return false
}

// repair rebuilds a record from its stored snapshot. A corrupted hash over an
// intact snapshot is recoverable; a snapshot that no longer parses is not.
func (e *Engine) repair(ctx context.Context, record *retention.ArchivedRecord) error {
	var payload map[string]any
	if err := json.Unmarshal(record.Snapshot, &payload); err != nil {
		return fmt.Errorf("snapshot is not recoverable: %w", err)
	}

	fresh, err := retention.NewArchivedRecord(retention.SourceRow{
		ID:         record.OriginalID,
		TenantID:   record.TenantID,
		EntityType: record.EntityType,
		Payload:    payload,
		DeletedAt:  record.DeletedAt,
		DeletedBy:  record.DeletedBy,
	}, record.ArchivalReason, record.ArchivedAt)
	if err != nil {
		return err
	}
	return e.archive.Replace(ctx, fresh)
}
