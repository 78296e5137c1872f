// Package filesystem provides a SourceProvider reading documentation
// from a local directory tree, with fsnotify-based change watching.
package filesystem

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docbrief/internal/core/domain"
	"github.com/custodia-labs/docbrief/internal/core/ports/driven"
	"github.com/custodia-labs/docbrief/internal/logger"
)

// Ensure Provider implements the interface.
var _ driven.SourceProvider = (*Provider)(nil)

// maxSniffBytes bounds the binary-detection read.
const maxSniffBytes = 8000

// defaultExcludes are directory names skipped in every walk.
var defaultExcludes = []string{".git", "node_modules", "vendor", "dist", "build"}

// Provider reads documents from a directory tree.
type Provider struct {
	meta     domain.RepositoryMeta
	rootPath string
	excludes []string
	watcher  *fsnotify.Watcher
}

// Option configures the provider.
type Option func(*Provider)

// WithExcludes adds glob patterns (matched against relative paths) and
// directory names that the walk skips, on top of the defaults.
func WithExcludes(patterns ...string) Option {
	return func(p *Provider) {
		p.excludes = append(p.excludes, patterns...)
	}
}

// New creates a provider rooted at rootPath.
func New(meta domain.RepositoryMeta, rootPath string, opts ...Option) *Provider {
	p := &Provider{
		meta:     meta,
		rootPath: rootPath,
		excludes: append([]string{}, defaultExcludes...),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Repository returns the repository metadata this provider serves.
func (p *Provider) Repository() domain.RepositoryMeta {
	return p.meta
}

// Documents streams all current documents under the root.
func (p *Provider) Documents(ctx context.Context) (<-chan domain.Document, <-chan error) {
	docs := make(chan domain.Document)
	errs := make(chan error, 1)

	go func() {
		defer close(docs)
		defer close(errs)

		err := filepath.WalkDir(p.rootPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}

			rel, relErr := filepath.Rel(p.rootPath, path)
			if relErr != nil {
				return relErr
			}

			if d.IsDir() {
				if path != p.rootPath && p.skipDir(d.Name(), rel) {
					return filepath.SkipDir
				}
				return nil
			}
			if p.skipFile(d.Name(), rel) {
				return nil
			}

			content, readErr := p.Read(ctx, rel)
			if readErr != nil {
				errs <- fmt.Errorf("read %s: %w", rel, readErr)
				return nil
			}
			if content == "" {
				return nil
			}

			select {
			case docs <- domain.Document{
				Repository: p.meta.Name,
				Path:       filepath.ToSlash(rel),
				Content:    content,
			}:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
		if err != nil && ctx.Err() == nil {
			errs <- fmt.Errorf("walk %s: %w", p.rootPath, err)
		}
	}()

	return docs, errs
}

// Changes streams file change notifications until ctx is cancelled.
// Directories created while watching are added to the watch set.
func (p *Provider) Changes(ctx context.Context) (<-chan domain.FileChange, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	p.watcher = watcher

	// Watch the full tree; fsnotify is not recursive by itself.
	err = filepath.WalkDir(p.rootPath, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(p.rootPath, path)
		if relErr != nil {
			return relErr
		}
		if path != p.rootPath && p.skipDir(d.Name(), rel) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", p.rootPath, err)
	}

	changes := make(chan domain.FileChange)
	go p.forwardEvents(ctx, watcher, changes)
	return changes, nil
}

// forwardEvents translates fsnotify events into FileChange values.
func (p *Provider) forwardEvents(ctx context.Context, watcher *fsnotify.Watcher, changes chan<- domain.FileChange) {
	defer close(changes)
	defer watcher.Close()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			rel, err := filepath.Rel(p.rootPath, event.Name)
			if err != nil {
				continue
			}

			if event.Op.Has(fsnotify.Create) {
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
					if !p.skipDir(filepath.Base(event.Name), rel) {
						if addErr := watcher.Add(event.Name); addErr != nil {
							logger.Warn("Watch new directory %s: %v", rel, addErr)
						}
					}
					continue
				}
			}
			if p.skipFile(filepath.Base(event.Name), rel) {
				continue
			}

			change := domain.FileChange{
				Repository: p.meta.Name,
				Path:       filepath.ToSlash(rel),
			}
			switch {
			case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
				change.Deleted = true
			case event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write):
			default:
				continue
			}

			select {
			case changes <- change:
			case <-ctx.Done():
				return
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Watcher error: %v", err)

		case <-ctx.Done():
			return
		}
	}
}

// Read fetches the current content of one file, relative to the root.
// Binary files resolve to an empty string.
func (p *Provider) Read(_ context.Context, path string) (string, error) {
	full := filepath.Join(p.rootPath, filepath.FromSlash(path))

	// Reject path traversal outside the root.
	if rel, err := filepath.Rel(p.rootPath, full); err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("path %s escapes source root", path)
	}

	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	if isBinary(data) {
		return "", nil
	}
	return string(data), nil
}

// Close releases the watcher, if any.
func (p *Provider) Close() error {
	if p.watcher != nil {
		return p.watcher.Close()
	}
	return nil
}

// skipDir reports whether a directory should be excluded from the walk.
func (p *Provider) skipDir(name, rel string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	return p.matchesExclude(name, rel)
}

// skipFile reports whether a file should be excluded.
func (p *Provider) skipFile(name, rel string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	return p.matchesExclude(name, rel)
}

func (p *Provider) matchesExclude(name, rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, pattern := range p.excludes {
		if pattern == name {
			return true
		}
		if ok, _ := filepath.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// isBinary sniffs the leading bytes for NUL or invalid UTF-8.
func isBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	sniff := data
	if len(sniff) > maxSniffBytes {
		sniff = sniff[:maxSniffBytes]
		// The cut can split a multi-byte rune; drop the partial
		// sequence at the tail or a long UTF-8 file reads as binary.
		for n := 0; n < utf8.UTFMax-1 && len(sniff) > 0 && sniff[len(sniff)-1]&0xC0 == 0x80; n++ {
			sniff = sniff[:len(sniff)-1]
		}
		if len(sniff) > 0 && sniff[len(sniff)-1]&0xC0 == 0xC0 {
			sniff = sniff[:len(sniff)-1]
		}
	}
	if bytes.IndexByte(sniff, 0) >= 0 {
		return true
	}
	return !utf8.Valid(sniff)
}
