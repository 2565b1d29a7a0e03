package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/domsnapshot"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Config controls the headless browser used for live captures.
type Config struct {
	Headless          bool
	Args              []string
	NavigationTimeout time.Duration
	PostLoadWait      time.Duration
	ViewportWidth     int64
	ViewportHeight    int64
}

// Browser owns one Chrome process. Each capture runs in its own tab.
type Browser struct {
	cfg    Config
	logger *zap.Logger

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// ExecOptions translates the configuration into chromedp allocator options. Extra args are
// given as "flag" or "flag=value", with or without the leading dashes.
func ExecOptions(cfg Config) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if cfg.Headless {
		opts = append(opts, chromedp.Headless)
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if cfg.ViewportWidth > 0 && cfg.ViewportHeight > 0 {
		opts = append(opts, chromedp.WindowSize(int(cfg.ViewportWidth), int(cfg.ViewportHeight)))
	}

	for _, arg := range cfg.Args {
		arg = strings.TrimLeft(strings.TrimSpace(arg), "-")
		if arg == "" {
			continue
		}
		key, value, hasValue := strings.Cut(arg, "=")
		if !hasValue {
			opts = append(opts, chromedp.Flag(key, true))
			continue
		}
		opts = append(opts, chromedp.Flag(key, value))
	}
	return opts
}

// NewBrowser starts Chrome. The process lives until Close or until ctx is canceled.
func NewBrowser(ctx context.Context, cfg Config, logger *zap.Logger) (*Browser, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("browser")

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, ExecOptions(cfg)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(log.Sugar().Debugf),
		chromedp.WithErrorf(log.Sugar().Errorf),
	)

	// Running an empty task list launches the process.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	log.Info("Browser started.", zap.Bool("headless", cfg.Headless))

	return &Browser{
		cfg:           cfg,
		logger:        log,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// Capture navigates a new tab to url, waits for the body and the post-load delay, and takes a
// DOM snapshot with layout bounds and the CapturedStyles.
func (b *Browser) Capture(ctx context.Context, url string) (*Document, error) {
	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx)
	defer tabCancel()

	opCtx, opCancel := CombineContext(tabCtx, ctx)
	defer opCancel()
	if b.cfg.NavigationTimeout > 0 {
		var cancel context.CancelFunc
		opCtx, cancel = context.WithTimeout(opCtx, b.cfg.NavigationTimeout)
		defer cancel()
	}

	var (
		documents []*domsnapshot.DocumentSnapshot
		strs      []string
	)
	tasks := chromedp.Tasks{}
	if b.cfg.ViewportWidth > 0 && b.cfg.ViewportHeight > 0 {
		tasks = append(tasks, chromedp.EmulateViewport(b.cfg.ViewportWidth, b.cfg.ViewportHeight))
	}
	tasks = append(tasks,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if b.cfg.PostLoadWait > 0 {
		tasks = append(tasks, chromedp.Sleep(b.cfg.PostLoadWait))
	}
	tasks = append(tasks, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		documents, strs, err = domsnapshot.CaptureSnapshot(CapturedStyles).
			WithIncludeDOMRects(true).
			Do(ctx)
		return err
	}))

	start := time.Now()
	if err := chromedp.Run(opCtx, tasks); err != nil {
		return nil, fmt.Errorf("failed to capture %s: %w", url, err)
	}
	if len(documents) == 0 {
		return nil, fmt.Errorf("capture of %s returned no documents", url)
	}

	doc, err := NewDocument(documents[0], strs)
	if err != nil {
		return nil, fmt.Errorf("failed to index capture of %s: %w", url, err)
	}
	b.logger.Debug("Captured page.",
		zap.String("url", url),
		zap.Int("documents", len(documents)),
		zap.Int("nodes", len(doc.nodes)),
		zap.Duration("elapsed", time.Since(start)))
	return doc, nil
}

// Close shuts the browser down.
func (b *Browser) Close() {
	b.browserCancel()
	b.allocCancel()
	b.logger.Debug("Browser closed.")
}
