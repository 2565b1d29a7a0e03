package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/pagesnap/api/schemas"
	"github.com/xkilldash9x/pagesnap/internal/browser/htmltree"
	"github.com/xkilldash9x/pagesnap/internal/snapshot"
)

// ErrClosed is returned by live captures after Close.
var ErrClosed = errors.New("service is closed")

// Page is a captured live document.
type Page interface {
	snapshot.Document
	URL() string
	Title() string
}

// Capturer loads live pages.
type Capturer interface {
	Capture(ctx context.Context, url string) (Page, error)
	Close()
}

// Service turns HTML sources into page snapshots.
type Service struct {
	logger      *zap.Logger
	builder     *snapshot.Builder
	docOpts     []htmltree.Option
	concurrency int
	now         func() time.Time

	mu           sync.Mutex
	closed       bool
	capturer     Capturer
	startBrowser func(context.Context) (Capturer, error)
}

// Snapshot dispatches on the source: http(s) URLs are captured live, file URLs and plain
// paths are read from disk.
func (s *Service) Snapshot(ctx context.Context, source string) (*schemas.PageSnapshot, error) {
	if u, err := url.Parse(source); err == nil {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return s.FromURL(ctx, source)
		case "file":
			return s.FromFile(ctx, u.Path)
		}
	}
	return s.FromFile(ctx, source)
}

// FromReader parses an HTML document and snapshots it. source is recorded as the page URL.
func (s *Service) FromReader(ctx context.Context, r io.Reader, source string) (*schemas.PageSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := htmltree.Parse(r, s.docOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", source, err)
	}
	return s.envelope(source, doc.Title(), s.builder.Build(doc)), nil
}

// FromFile snapshots an HTML file. A leading "~" expands to the home directory.
func (s *Service) FromFile(ctx context.Context, path string) (*schemas.PageSnapshot, error) {
	f, source, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return s.FromReader(ctx, f, source)
}

// ParseFile loads an HTML file with the configured viewport and visibility mode, for callers
// that need the parsed tree alongside its snapshot.
func (s *Service) ParseFile(path string) (*htmltree.Document, error) {
	f, source, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := htmltree.Parse(f, s.docOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", source, err)
	}
	return doc, nil
}

// Build snapshots an already loaded document.
func (s *Service) Build(doc snapshot.Document) *schemas.Snapshot {
	return s.builder.Build(doc)
}

func openFile(path string) (*os.File, string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to expand path %s: %w", path, err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve path %s: %w", path, err)
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	source := (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
	return f, source, nil
}

// FromURL loads a page in the headless browser and snapshots it. The browser is started on
// first use and reused until Close.
func (s *Service) FromURL(ctx context.Context, target string) (*schemas.PageSnapshot, error) {
	c, err := s.browser(ctx)
	if err != nil {
		return nil, err
	}
	page, err := c.Capture(ctx, target)
	if err != nil {
		return nil, err
	}

	pageURL := page.URL()
	if pageURL == "" {
		pageURL = target
	}
	return s.envelope(pageURL, page.Title(), s.builder.Build(page)), nil
}

// Batch snapshots every source with bounded concurrency. Results keep the input order. The
// first failure cancels the remaining work.
func (s *Service) Batch(ctx context.Context, sources []string) ([]*schemas.PageSnapshot, error) {
	results := make([]*schemas.PageSnapshot, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, src := range sources {
		g.Go(func() error {
			snap, err := s.Snapshot(gctx, src)
			if err != nil {
				return fmt.Errorf("snapshot %s: %w", src, err)
			}
			results[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s.logger.Debug("Batch complete.", zap.Int("sources", len(sources)))
	return results, nil
}

func (s *Service) browser(ctx context.Context) (Capturer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if s.capturer != nil {
		return s.capturer, nil
	}
	if s.startBrowser == nil {
		return nil, errors.New("no browser configured")
	}

	// The browser outlives the request that started it.
	c, err := s.startBrowser(context.WithoutCancel(ctx))
	if err != nil {
		return nil, err
	}
	s.capturer = c
	return c, nil
}

func (s *Service) envelope(source, title string, snap *schemas.Snapshot) *schemas.PageSnapshot {
	return &schemas.PageSnapshot{
		ID:       uuid.NewString(),
		URL:      source,
		Title:    title,
		TakenAt:  s.now().UTC(),
		Snapshot: snap,
	}
}
