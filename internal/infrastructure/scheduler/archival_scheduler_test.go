package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/backoffice/backend/internal/application/archival"
	"github.com/backoffice/backend/internal/domain/retention"
	"github.com/backoffice/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// countingPolicyRepository serves a protected-only policy, so each scan pass
// hits Load exactly once per entity type and archives nothing
type countingPolicyRepository struct {
	loads atomic.Int64
}

func (r *countingPolicyRepository) Load(context.Context) (*retention.Policy, error) {
	r.loads.Add(1)
	return &retention.Policy{
		DefaultYears:   10,
		ProtectedTypes: []string{"vertical_entity", "configuration_entry"},
	}, nil
}

type stubSourceRepository struct{}

func (stubSourceRepository) FindSoftDeletedBefore(context.Context, string, time.Time, retention.ScanCursor, int) ([]retention.SourceRow, error) {
	return nil, nil
}

func (stubSourceRepository) MarkArchived(context.Context, string, uuid.UUID, time.Time) error {
	return nil
}

type stubArchiveRepository struct{}

func (stubArchiveRepository) FindByID(context.Context, uuid.UUID) (*retention.ArchivedRecord, error) {
	return nil, nil
}

func (stubArchiveRepository) FindByOriginalID(context.Context, string, uuid.UUID) (*retention.ArchivedRecord, error) {
	return nil, nil
}

func (stubArchiveRepository) Save(context.Context, *retention.ArchivedRecord) error { return nil }

func (stubArchiveRepository) Replace(context.Context, *retention.ArchivedRecord) error { return nil }

func (stubArchiveRepository) Sample(context.Context, string, int) ([]retention.ArchivedRecord, error) {
	return nil, nil
}

type stubCategoryResolver struct{}

func (stubCategoryResolver) CategoryForTenant(context.Context, uuid.UUID) (string, error) {
	return "standard", nil
}

func newTestScheduler(policies *countingPolicyRepository, cfg config.SchedulerConfig) *ArchivalScheduler {
	engine := archival.NewEngine(
		stubSourceRepository{},
		stubArchiveRepository{},
		policies,
		stubCategoryResolver{},
		nil,
		config.ArchivalConfig{
			BatchSize:           10,
			ScanTimeout:         time.Second,
			MinIntegrityPercent: 99.9,
			MaxRetries:          3,
		},
		zap.NewNop(),
	)
	return NewArchivalScheduler(engine, cfg, zap.NewNop())
}

func TestArchivalScheduler_RunsScansOnInterval(t *testing.T) {
	policies := &countingPolicyRepository{}
	s := newTestScheduler(policies, config.SchedulerConfig{
		Enabled:      true,
		ScanInterval: 10 * time.Millisecond,
		EntityTypes:  []string{"vertical_entity", "configuration_entry"},
	})

	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool {
		return policies.loads.Load() >= 4
	}, 2*time.Second, 5*time.Millisecond, "expected at least two scan passes")

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(stopCtx))

	stopped := policies.loads.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stopped, policies.loads.Load(), "no scans after Stop")
}

func TestArchivalScheduler_DisabledDoesNothing(t *testing.T) {
	policies := &countingPolicyRepository{}
	s := newTestScheduler(policies, config.SchedulerConfig{
		Enabled:      false,
		ScanInterval: time.Millisecond,
		EntityTypes:  []string{"vertical_entity"},
	})

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(20 * time.Millisecond)

	assert.Zero(t, policies.loads.Load())
	require.NoError(t, s.Stop(context.Background()))
}

func TestArchivalScheduler_StartIsIdempotent(t *testing.T) {
	policies := &countingPolicyRepository{}
	s := newTestScheduler(policies, config.SchedulerConfig{
		Enabled:      true,
		ScanInterval: time.Hour,
		EntityTypes:  []string{"vertical_entity"},
	})

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(stopCtx))
	require.NoError(t, s.Stop(stopCtx))
}
