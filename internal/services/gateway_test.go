package services

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/plantops/engine/internal/logic"
	"github.com/plantops/engine/internal/models"
	"github.com/plantops/engine/internal/repository"
	"github.com/plantops/engine/pkg/database"
	appErr "github.com/plantops/engine/pkg/errors"
	"github.com/plantops/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("error", "json"); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(context.Background(), database.Options{Driver: "sqlite", DSN: "file::memory:"})
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func tripDocument() logic.Document {
	return logic.Document{
		Nodes: []logic.Node{
			{ID: "di", Type: logic.KindDigitalInput, Data: logic.NodeData{Value: 1, Desc: "trip pb", RoleID: "8"}},
			{ID: "coil", Type: logic.KindCoil, Data: logic.NodeData{Value: 1, Label: "K1", Setpoint: 4}},
		},
		Edges: []logic.Edge{{ID: "e", Source: "di", Target: "coil", TargetHandle: "in", Data: logic.EdgeData{Active: true}}},
	}
}

func TestGatewayDiagramLifecycle(t *testing.T) {
	ctx := context.Background()
	gw := NewGormGateway(newTestDB(t))

	f, err := gw.CreateFolder(ctx, "  ID FAN Logic ")
	require.NoError(t, err)
	assert.Equal(t, "ID FAN Logic", f.Name)

	id, err := gw.SaveDiagram(ctx, DiagramRecord{FolderID: f.ID, Name: "Auto Trip", Data: tripDocument()})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rec, err := gw.LoadDiagram(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Auto Trip", rec.Name)
	assert.Equal(t, f.ID, rec.FolderID)
	require.Len(t, rec.Data.Nodes, 2)
	require.Len(t, rec.Data.Edges, 1)
	assert.Empty(t, rec.Data.Nodes[0].Data.RoleID, "role is not persisted")
	assert.Zero(t, rec.Data.Nodes[1].Data.Setpoint, "fields foreign to the type are dropped")
	assert.False(t, bool(rec.Data.Edges[0].Data.Active), "activity is not persisted")

	rec.Data.Nodes = rec.Data.Nodes[:1]
	rec.Data.Edges = nil
	rec.FolderID = ""
	rec.Name = "Auto Trip v2"
	same, err := gw.SaveDiagram(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, id, same, "save with an id updates")

	rec, err = gw.LoadDiagram(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, f.ID, rec.FolderID, "folder kept when not given")
	assert.Equal(t, "Auto Trip v2", rec.Name)
	assert.Len(t, rec.Data.Nodes, 1)
	assert.Empty(t, rec.Data.Edges)

	folders, err := gw.ListFolders(ctx)
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.Equal(t, []DiagramSummary{{ID: id, Name: "Auto Trip v2"}}, folders[0].Diagrams)

	require.NoError(t, gw.DeleteDiagram(ctx, id))
	_, err = gw.LoadDiagram(ctx, id)
	assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))
	assert.True(t, appErr.IsCode(gw.DeleteDiagram(ctx, id), appErr.CodeNotFound))
}

func TestGatewayFolderDeleteCascades(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	gw := NewGormGateway(db)

	f, err := gw.CreateFolder(ctx, "ID FAN Logic")
	require.NoError(t, err)
	other, err := gw.CreateFolder(ctx, "FD FAN Logic")
	require.NoError(t, err)
	trip, err := gw.SaveDiagram(ctx, DiagramRecord{FolderID: f.ID, Name: "Auto Trip", Data: tripDocument()})
	require.NoError(t, err)
	_, err = gw.SaveDiagram(ctx, DiagramRecord{FolderID: f.ID, Name: "Permissives"})
	require.NoError(t, err)
	kept, err := gw.SaveDiagram(ctx, DiagramRecord{FolderID: other.ID, Name: "Auto Trip"})
	require.NoError(t, err)

	require.NoError(t, gw.DeleteFolder(ctx, f.ID))

	_, err = gw.LoadDiagram(ctx, trip)
	assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))
	_, err = gw.LoadDiagram(ctx, kept)
	assert.NoError(t, err)

	var left int64
	require.NoError(t, db.Model(&models.Diagram{}).Count(&left).Error)
	assert.EqualValues(t, 1, left)

	assert.True(t, appErr.IsCode(gw.DeleteFolder(ctx, f.ID), appErr.CodeNotFound))
}

func TestGatewayValidation(t *testing.T) {
	ctx := context.Background()
	gw := NewGormGateway(newTestDB(t))
	f, err := gw.CreateFolder(ctx, "Boiler")
	require.NoError(t, err)

	cases := []struct {
		name string
		err  error
		code appErr.Code
	}{
		{"blank folder name", func() error { _, err := gw.CreateFolder(ctx, "  "); return err }(), appErr.CodeInvalid},
		{"duplicate folder", func() error { _, err := gw.CreateFolder(ctx, "Boiler"); return err }(), appErr.CodeConflict},
		{"bad folder id", gw.RenameFolder(ctx, "nope", "x"), appErr.CodeInvalid},
		{"missing folder", gw.RenameFolder(ctx, "7d6f2c1e-8a5b-4c3d-9e2f-1a0b9c8d7e6f", "x"), appErr.CodeNotFound},
		{"diagram without folder", func() error { _, err := gw.SaveDiagram(ctx, DiagramRecord{Name: "x"}); return err }(), appErr.CodeInvalid},
		{"diagram in missing folder", func() error {
			_, err := gw.SaveDiagram(ctx, DiagramRecord{FolderID: "7d6f2c1e-8a5b-4c3d-9e2f-1a0b9c8d7e6f", Name: "x"})
			return err
		}(), appErr.CodeNotFound},
		{"unnamed diagram", func() error { _, err := gw.SaveDiagram(ctx, DiagramRecord{FolderID: f.ID}); return err }(), appErr.CodeInvalid},
		{"bad diagram id", func() error { _, err := gw.LoadDiagram(ctx, "42"); return err }(), appErr.CodeInvalid},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.True(t, appErr.IsCode(c.err, c.code), "got %v", c.err)
		})
	}
}

func TestGatewayDiagramNameConflict(t *testing.T) {
	ctx := context.Background()
	gw := NewGormGateway(newTestDB(t))
	f, err := gw.CreateFolder(ctx, "Boiler")
	require.NoError(t, err)

	_, err = gw.SaveDiagram(ctx, DiagramRecord{FolderID: f.ID, Name: "Trip"})
	require.NoError(t, err)
	_, err = gw.SaveDiagram(ctx, DiagramRecord{FolderID: f.ID, Name: "Trip"})
	assert.True(t, appErr.IsCode(err, appErr.CodeConflict), "got %v", err)

	folders, err := gw.ListFolders(ctx)
	require.NoError(t, err)
	assert.Len(t, folders[0].Diagrams, 1, "failed save left nothing behind")
}
