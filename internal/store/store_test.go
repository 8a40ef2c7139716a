package store_test

import (
	"context"
	"testing"

	"github.com/ArCaneSec/apidock/internal/models"
	"github.com/ArCaneSec/apidock/internal/store"
	"github.com/ArCaneSec/apidock/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := store.Open(context.Background(), store.Config{Driver: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mysql")
}

func TestMigrateCreatesTables(t *testing.T) {
	db := storetest.Open(t)

	for _, table := range []string{
		"projects", "api_groups_first", "api_groups_second", "apis", "api_headers",
		"api_parameters", "api_parameter_raws", "api_responses",
		"request_histories", "operation_histories", "project_dynamics",
	} {
		assert.True(t, db.Migrator().HasTable(table), "table %s", table)
	}
}

func TestFlushDropsTables(t *testing.T) {
	db := storetest.Open(t)

	require.NoError(t, store.Flush(db))
	assert.False(t, db.Migrator().HasTable(&models.ApiDefinition{}))
	assert.False(t, db.Migrator().HasTable(&models.Project{}))
}

func TestClockStampsRows(t *testing.T) {
	clock := storetest.StepClock(mustTime(t, "2024-05-01T10:00:00Z"))
	db := storetest.OpenWithClock(t, clock)

	p := models.Project{Name: "billing"}
	require.NoError(t, db.Create(&p).Error)
	assert.Equal(t, 2024, p.CreatedAt.Year())
	assert.Equal(t, 10, p.CreatedAt.Hour())
}
