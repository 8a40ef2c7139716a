package apidoc_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ArCaneSec/apidock/internal/apidoc"
	"github.com/ArCaneSec/apidock/internal/models"
	"github.com/ArCaneSec/apidock/internal/store/storetest"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const actor = 7

type fixture struct {
	t       *testing.T
	ctx     context.Context
	db      *gorm.DB
	svc     *apidoc.Service
	project uint
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	db := storetest.OpenWithClock(t, storetest.StepClock(start))
	f := &fixture{t: t, ctx: context.Background(), db: db, svc: apidoc.New(db, nil)}

	id, err := f.svc.CreateProject(f.ctx, &apidoc.ProjectInput{Name: "shop", Version: "v1"})
	require.NoError(t, err)
	f.project = id
	return f
}

func (f *fixture) group(name string) uint {
	f.t.Helper()
	id, err := f.svc.CreateGroup(f.ctx, actor, &apidoc.GroupInput{ProjectID: apidoc.ID(f.project), Name: name})
	require.NoError(f.t, err)
	return id
}

func (f *fixture) secondGroup(first uint, name string) uint {
	f.t.Helper()
	id, err := f.svc.CreateSecondGroup(f.ctx, actor, &apidoc.GroupInput{
		ProjectID:    apidoc.ID(f.project),
		FirstGroupID: apidoc.ID(first),
		Name:         name,
	})
	require.NoError(f.t, err)
	return id
}

// decode builds an input from its wire form, the way the HTTP layer does.
func decode[T any](t *testing.T, doc string) *T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(doc), &v))
	return &v
}

func (f *fixture) count(model any, where ...any) int64 {
	f.t.Helper()
	var n int64
	q := f.db.Model(model)
	if len(where) > 0 {
		q = q.Where(where[0], where[1:]...)
	}
	require.NoError(f.t, q.Count(&n).Error)
	return n
}

func paramNames(api *models.ApiDefinition) []string {
	var out []string
	for _, p := range api.Parameters {
		out = append(out, p.Name)
	}
	return out
}

func ptr(id uint) *apidoc.ID {
	v := apidoc.ID(id)
	return &v
}
