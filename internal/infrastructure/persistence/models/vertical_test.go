package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTenantAggregateModel(tenantID *uuid.UUID) TenantAggregateModel {
	now := time.Now()
	return TenantAggregateModel{
		AggregateModel: AggregateModel{
			BaseModel: BaseModel{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
			Version:   1,
		},
		TenantID: tenantID,
	}
}

func TestVerticalActivationModel_ToDomain(t *testing.T) {
	tenantID := uuid.New()

	t.Run("decodes the stored config", func(t *testing.T) {
		model := VerticalActivationModel{
			TenantAggregateModel: testTenantAggregateModel(&tenantID),
			VerticalName:         "restaurant",
			ConfigJSON:           `{"table_count": 12}`,
			IsActive:             true,
			ActivatedAt:          time.Now(),
		}

		activation, err := model.ToDomain()
		require.NoError(t, err)
		assert.Equal(t, "restaurant", activation.VerticalName)
		assert.Equal(t, model.ID, activation.ID)
		assert.True(t, activation.BelongsTo(tenantID))
		assert.Equal(t, float64(12), activation.Config["table_count"])
	})

	t.Run("corrupt config surfaces an error", func(t *testing.T) {
		model := VerticalActivationModel{
			TenantAggregateModel: testTenantAggregateModel(&tenantID),
			VerticalName:         "restaurant",
			ConfigJSON:           `{"table_count":`,
		}

		activation, err := model.ToDomain()
		require.Error(t, err)
		assert.Nil(t, activation)
		assert.Contains(t, err.Error(), model.ID.String())
	})
}

func TestVerticalEntityModel_ToDomain(t *testing.T) {
	tenantID := uuid.New()

	t.Run("decodes the stored properties", func(t *testing.T) {
		model := VerticalEntityModel{
			TenantAggregateModel: testTenantAggregateModel(&tenantID),
			EntityType:           "product",
			VerticalType:         "retail",
			SchemaVersion:        2,
			IsActive:             true,
			PropertiesJSON:       `{"sku": "SKU-1"}`,
		}

		entity, err := model.ToDomain()
		require.NoError(t, err)
		assert.Equal(t, "product", entity.EntityType)
		assert.Equal(t, 2, entity.SchemaVersion)
		assert.Equal(t, "SKU-1", entity.Properties["sku"])
	})

	t.Run("corrupt properties surface an error", func(t *testing.T) {
		model := VerticalEntityModel{
			TenantAggregateModel: testTenantAggregateModel(&tenantID),
			EntityType:           "product",
			PropertiesJSON:       `not json`,
		}

		entity, err := model.ToDomain()
		require.Error(t, err)
		assert.Nil(t, entity)
	})
}

func TestRetentionPolicyModel_ToDomain(t *testing.T) {
	t.Run("decodes the stored policy", func(t *testing.T) {
		model := RetentionPolicyModel{
			ID:         uuid.New(),
			PolicyJSON: `{"base_years": {"product": 10}, "default_years": 7}`,
			CreatedAt:  time.Now(),
		}

		policy, err := model.ToDomain()
		require.NoError(t, err)
		assert.Equal(t, 10, policy.BaseYears["product"])
		assert.Equal(t, 7, policy.DefaultYears)
		assert.NotNil(t, policy.CategoryAdjustments)
	})

	t.Run("corrupt policy surfaces an error", func(t *testing.T) {
		model := RetentionPolicyModel{
			ID:         uuid.New(),
			PolicyJSON: `{{`,
			CreatedAt:  time.Now(),
		}

		policy, err := model.ToDomain()
		require.Error(t, err)
		assert.Nil(t, policy)
	})
}
