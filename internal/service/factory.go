package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagesnap/internal/browser/htmltree"
	"github.com/xkilldash9x/pagesnap/internal/browser/session"
	"github.com/xkilldash9x/pagesnap/internal/config"
	"github.com/xkilldash9x/pagesnap/internal/snapshot"
)

// Option configures a Service.
type Option func(*Service)

// WithCapturer replaces the headless browser used for live pages.
func WithCapturer(c Capturer) Option {
	return func(s *Service) {
		s.capturer = c
	}
}

// WithClock overrides the time source stamped on snapshots.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New assembles a Service from the application configuration.
func New(cfg config.Interface, logger *zap.Logger, opts ...Option) *Service {
	log := logger.Named("service")
	sc := cfg.Snapshot()

	s := &Service{
		logger:      log,
		builder:     snapshot.NewBuilder(logger, snapshot.WithExcludedIDs(sc.ExcludedIDs...)),
		docOpts:     documentOptions(sc, logger),
		concurrency: sc.Concurrency,
		now:         time.Now,
	}
	s.startBrowser = func(ctx context.Context) (Capturer, error) {
		b, err := session.NewBrowser(ctx, browserConfig(cfg), logger)
		if err != nil {
			return nil, err
		}
		return browserCapturer{b}, nil
	}

	for _, opt := range opts {
		opt(s)
	}
	if s.concurrency < 1 {
		s.concurrency = 1
	}
	return s
}

func documentOptions(sc config.SnapshotConfig, logger *zap.Logger) []htmltree.Option {
	opts := []htmltree.Option{
		htmltree.WithPreciseVisibility(sc.PreciseVisibility),
		htmltree.WithLogger(logger),
	}
	if sc.ViewportWidth > 0 && sc.ViewportHeight > 0 {
		opts = append(opts, htmltree.WithViewport(float64(sc.ViewportWidth), float64(sc.ViewportHeight)))
	}
	return opts
}

func browserConfig(cfg config.Interface) session.Config {
	bc := cfg.Browser()
	sc := cfg.Snapshot()
	return session.Config{
		Headless:          bc.Headless,
		Args:              bc.Args,
		NavigationTimeout: bc.NavigationTimeout,
		PostLoadWait:      bc.PostLoadWait,
		ViewportWidth:     int64(sc.ViewportWidth),
		ViewportHeight:    int64(sc.ViewportHeight),
	}
}

// browserCapturer narrows the concrete session document to the Page interface.
type browserCapturer struct {
	b *session.Browser
}

func (c browserCapturer) Capture(ctx context.Context, url string) (Page, error) {
	doc, err := c.b.Capture(ctx, url)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (c browserCapturer) Close() { c.b.Close() }
