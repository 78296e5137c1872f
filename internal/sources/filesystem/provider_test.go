package filesystem

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docbrief/internal/core/domain"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	full := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0644))
}

func collectDocuments(t *testing.T, p *Provider) map[string]string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	docs, errs := p.Documents(ctx)
	out := make(map[string]string)
	for docs != nil || errs != nil {
		select {
		case doc, ok := <-docs:
			if !ok {
				docs = nil
				continue
			}
			out[doc.Path] = doc.Content
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			require.NoError(t, err)
		case <-ctx.Done():
			t.Fatal("timed out draining documents")
		}
	}
	return out
}

func TestDocuments_WalksTree(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "README.md", "# Readme")
	writeFile(t, dir, "docs/guide.md", "# Guide")

	p := New(domain.RepositoryMeta{Name: "docs"}, dir)
	docs := collectDocuments(t, p)

	require.Len(t, docs, 2)
	assert.Equal(t, "# Readme", docs["README.md"])
	assert.Equal(t, "# Guide", docs["docs/guide.md"])
}

func TestDocuments_SkipsHiddenAndExcluded(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "visible.md", "visible")
	writeFile(t, dir, ".hidden.md", "hidden")
	writeFile(t, dir, ".github/workflow.yml", "ci")
	writeFile(t, dir, "node_modules/pkg/readme.md", "dep")
	writeFile(t, dir, "generated/api.md", "generated")

	p := New(domain.RepositoryMeta{Name: "docs"}, dir, WithExcludes("generated"))
	docs := collectDocuments(t, p)

	require.Len(t, docs, 1)
	assert.Contains(t, docs, "visible.md")
}

func TestDocuments_SkipsBinaryFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "text.md", "text content")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"),
		[]byte{0x89, 'P', 'N', 'G', 0x00, 0x01, 0x02}, 0644))

	p := New(domain.RepositoryMeta{Name: "docs"}, dir)
	docs := collectDocuments(t, p)

	require.Len(t, docs, 1)
	assert.Contains(t, docs, "text.md")
}

func TestRead(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "docs/a.md", "content here")

	p := New(domain.RepositoryMeta{Name: "docs"}, dir)
	ctx := context.Background()

	content, err := p.Read(ctx, "docs/a.md")
	require.NoError(t, err)
	assert.Equal(t, "content here", content)

	_, err = p.Read(ctx, "missing.md")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = p.Read(ctx, "../outside.md")
	assert.Error(t, err)
}

func TestChanges_EmitsWriteAndRemove(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "watched.md", "v1")

	p := New(domain.RepositoryMeta{Name: "docs"}, dir)
	t.Cleanup(func() { _ = p.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := p.Changes(ctx)
	require.NoError(t, err)

	writeFile(t, dir, "watched.md", "v2")

	select {
	case change := <-changes:
		assert.Equal(t, "docs", change.Repository)
		assert.Equal(t, "watched.md", change.Path)
		assert.False(t, change.Deleted)
	case <-time.After(3 * time.Second):
		t.Fatal("no change event for write")
	}

	require.NoError(t, os.Remove(filepath.Join(dir, "watched.md")))

	// A write can emit more than one event; drain until the delete.
	deadline := time.After(3 * time.Second)
	for {
		select {
		case change := <-changes:
			assert.Equal(t, "watched.md", change.Path)
			if change.Deleted {
				return
			}
		case <-deadline:
			t.Fatal("no change event for remove")
		}
	}
}

func TestChanges_IgnoresHiddenFiles(t *testing.T) {
	dir := t.TempDir()

	p := New(domain.RepositoryMeta{Name: "docs"}, dir)
	t.Cleanup(func() { _ = p.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := p.Changes(ctx)
	require.NoError(t, err)

	writeFile(t, dir, ".hidden.md", "secret")
	writeFile(t, dir, "shown.md", "visible")

	select {
	case change := <-changes:
		assert.Equal(t, "shown.md", change.Path, "hidden file events must be filtered")
	case <-time.After(3 * time.Second):
		t.Fatal("no change event")
	}
}

func TestIsBinary(t *testing.T) {
	assert.False(t, isBinary(nil))
	assert.False(t, isBinary([]byte("plain text")))
	assert.True(t, isBinary([]byte{'a', 0x00, 'b'}))
	assert.True(t, isBinary([]byte{0xff, 0xfe, 0xfd}))
}

func TestIsBinary_RuneSplitAtSniffBoundary(t *testing.T) {
	// A multi-byte rune straddling the sniff boundary must not make a
	// valid text file look binary.
	padded := append(bytes.Repeat([]byte{'a'}, maxSniffBytes-1), []byte("é")...)
	assert.False(t, isBinary(padded))

	// Same shape for a 4-byte rune, cut after its first byte.
	emoji := append(bytes.Repeat([]byte{'a'}, maxSniffBytes-1), []byte("\U0001F600")...)
	assert.False(t, isBinary(emoji))

	// Garbage before the boundary still reads as binary.
	garbage := append([]byte{0xff, 0xfe}, bytes.Repeat([]byte{'a'}, maxSniffBytes)...)
	assert.True(t, isBinary(garbage))
}
