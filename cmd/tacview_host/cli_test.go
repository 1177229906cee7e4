package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/tacview/internal/api"
	"github.com/OCAP2/tacview/internal/config"
	"github.com/OCAP2/tacview/internal/database"
	"github.com/OCAP2/tacview/pkg/acmi"
)

type fakeUploader struct {
	calls []api.UploadMetadata
	fail  map[string]bool
}

func (f *fakeUploader) Upload(_ context.Context, _ string, meta api.UploadMetadata) error {
	f.calls = append(f.calls, meta)
	if f.fail[meta.Name] {
		return errors.New("server said no")
	}
	return nil
}

func testCatalog(t *testing.T, names ...string) *database.Manager {
	t.Helper()
	m := database.NewManager(config.CatalogConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "catalog.db"),
	}, zerolog.Nop())
	require.NoError(t, m.Connect())
	t.Cleanup(func() { _ = m.Close() })

	for _, name := range names {
		rec, err := database.NewRecording(name, "range7", acmi.Metadata{Title: "Red Flag"})
		require.NoError(t, err)
		rec.FilePath = "/tmp/" + name + ".txt.acmi"
		rec.Duration = 60
		require.NoError(t, m.SaveRecording(&rec))
	}
	return m
}

func TestListRecordings(t *testing.T) {
	catalog := testCatalog(t, "a", "b")

	var out bytes.Buffer
	require.NoError(t, listRecordings(&out, catalog, 10))
	assert.Contains(t, out.String(), "NAME")
	assert.Contains(t, out.String(), "Red Flag")
	assert.Contains(t, out.String(), "60.0s")
}

func TestUploadPending(t *testing.T) {
	catalog := testCatalog(t, "a", "b")
	up := &fakeUploader{fail: map[string]bool{"b": true}}

	var out bytes.Buffer
	err := uploadPending(context.Background(), &out, catalog, up)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2")
	require.Len(t, up.calls, 2)
	assert.Equal(t, "range7", up.calls[0].Host)

	pending, err := catalog.PendingUploads()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "b", pending[0].Name)
}

func TestUploadPending_Nothing(t *testing.T) {
	catalog := testCatalog(t)

	var out bytes.Buffer
	require.NoError(t, uploadPending(context.Background(), &out, catalog, &fakeUploader{}))
	assert.Contains(t, out.String(), "No pending uploads.")
}
