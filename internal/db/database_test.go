package db

import (
	"testing"

	"imob-crm/internal/spend"
	"imob-crm/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	d, err := OpenSQLite(":memory:", "test")
	require.NoError(t, err)
	require.NoError(t, d.Migrate())
	t.Cleanup(func() { _ = d.Close() })
	return d.DB
}

func TestMigrate_CreatesTables(t *testing.T) {
	gdb := openTestDB(t)

	for _, table := range append(models.All(), &spend.SpendEvent{}) {
		assert.True(t, gdb.Migrator().HasTable(table), "%T", table)
	}
}

func TestSeedDemo(t *testing.T) {
	gdb := openTestDB(t)

	require.NoError(t, SeedDemo(gdb, "broker-1"))

	var leads, properties, activities int64
	gdb.Model(&models.Lead{}).Where("owner_id = ?", "broker-1").Count(&leads)
	gdb.Model(&models.Property{}).Where("owner_id = ?", "broker-1").Count(&properties)
	gdb.Model(&models.Activity{}).Count(&activities)
	assert.EqualValues(t, 2, leads)
	assert.EqualValues(t, 2, properties)
	assert.EqualValues(t, 3, activities)

	var neg models.Negotiation
	require.NoError(t, gdb.Preload("Lead").Preload("Property").First(&neg).Error)
	assert.Equal(t, models.StageProposal, neg.Stage)
	assert.Equal(t, "Fernanda Lima", neg.Lead.Name)
	require.NotNil(t, neg.Property)

	// second run is a no-op
	require.NoError(t, SeedDemo(gdb, "broker-1"))
	gdb.Model(&models.Lead{}).Where("owner_id = ?", "broker-1").Count(&leads)
	assert.EqualValues(t, 2, leads)

	assert.Error(t, SeedDemo(gdb, ""))
}
