package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docbrief/internal/core/domain"
)

func TestIngestCmd_Use(t *testing.T) {
	assert.Equal(t, "ingest [path]", ingestCmd.Use)
}

func TestIngestCmd_Short(t *testing.T) {
	assert.Equal(t, "Index a documentation directory", ingestCmd.Short)
}

func TestIngestCmd_HasPriorityFlag(t *testing.T) {
	flag := ingestCmd.Flags().Lookup("priority")
	require.NotNil(t, flag, "priority flag should exist")
	assert.Equal(t, "p", flag.Shorthand)
	assert.Equal(t, "medium", flag.DefValue)
}

func TestIngestCmd_ExecutesOnDirectory(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.md"), []byte("# Readme\n"), 0o600))

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"ingest", dir, "--repo", "docs", "--priority", "high", "--category", "guide"})
	defer func() {
		rootCmd.SetArgs(nil)
		ingestRepo = ""
		ingestPriority = "medium"
		ingestCategories = nil
	}()

	err := rootCmd.Execute()
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "2 documents indexed")
	assert.Contains(t, buf.String(), "1 unchanged")

	mock, ok := ingestService.(*mockIngestService)
	require.True(t, ok)
	assert.Equal(t, "docs", mock.lastMeta.Name)
	assert.Equal(t, domain.PriorityHigh, mock.lastMeta.Priority)
	assert.Equal(t, []string{"guide"}, mock.lastMeta.Categories)
}

func TestIngestCmd_RepoDefaultsToBaseName(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	dir := t.TempDir()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"ingest", dir})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()
	require.NoError(t, err)

	mock, ok := ingestService.(*mockIngestService)
	require.True(t, ok)
	assert.Equal(t, filepath.Base(dir), mock.lastMeta.Name)
}

func TestIngestCmd_RejectsMissingDirectory(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"ingest", "/no/such/directory"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cannot access")
}

func TestIngestCmd_RejectsFileArgument(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	file := filepath.Join(t.TempDir(), "readme.md")
	require.NoError(t, os.WriteFile(file, []byte("# Readme\n"), 0o600))

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"ingest", file})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestIngestCmd_RejectsInvalidPriority(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"ingest", t.TempDir(), "--priority", "urgent"})
	defer func() {
		rootCmd.SetArgs(nil)
		ingestPriority = "medium"
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid priority")
}

func TestIngestCmd_ServiceNotConfigured(t *testing.T) {
	oldService := ingestService
	ingestService = nil
	defer func() {
		ingestService = oldService
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"ingest", t.TempDir()})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}
