package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
)

// Options configures the local Chrome process.
type Options struct {
	Headless  bool
	ExecPath  string
	NoSandbox bool
	UserAgent string
}

// ChromeLauncher starts one Chrome process through chromedp.
func ChromeLauncher(opts Options) Launcher {
	return func(ctx context.Context) (Browser, error) {
		allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
		if !opts.Headless {
			allocOpts = append(allocOpts, chromedp.Flag("headless", false))
		}
		if opts.ExecPath != "" {
			allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
		}
		if opts.NoSandbox {
			allocOpts = append(allocOpts, chromedp.NoSandbox)
		}
		if opts.UserAgent != "" {
			allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
		}

		allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
		browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

		// An empty Run forces the process to start.
		if err := chromedp.Run(browserCtx); err != nil {
			cancelBrowser()
			cancelAlloc()
			return nil, fmt.Errorf("launch chrome: %w", err)
		}

		return &chromeBrowser{
			ctx:         browserCtx,
			cancel:      cancelBrowser,
			cancelAlloc: cancelAlloc,
		}, nil
	}
}

type chromeBrowser struct {
	ctx         context.Context
	cancel      context.CancelFunc
	cancelAlloc context.CancelFunc
}

// Render opens a fresh browser context with a single tab, navigates to the
// page and returns the serialized DOM once the document is ready.
func (b *chromeBrowser) Render(ctx context.Context, req RenderRequest) (string, error) {
	tabCtx, cancelTab := chromedp.NewContext(b.ctx, chromedp.WithNewBrowserContext())
	defer cancelTab()

	if req.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		tabCtx, cancelTimeout = context.WithTimeout(tabCtx, req.Timeout)
		defer cancelTimeout()
	}
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	resp, err := chromedp.RunResponse(tabCtx, chromedp.Navigate(req.URL))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("navigate %s: %w", req.URL, err)
	}
	if resp != nil && (resp.Status < 200 || resp.Status > 299) {
		return "", fmt.Errorf("navigate %s: unexpected status %d", req.URL, resp.Status)
	}

	actions := []chromedp.Action{chromedp.WaitReady("body", chromedp.ByQuery)}
	if req.WaitSelector != "" {
		actions = append(actions, chromedp.WaitVisible(req.WaitSelector, chromedp.ByQuery))
	}
	var html string
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	if err := chromedp.Run(tabCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("render %s: %w", req.URL, err)
	}
	return html, nil
}

// Close stops the browser and waits for the process to exit.
func (b *chromeBrowser) Close() error {
	err := chromedp.Cancel(b.ctx)
	b.cancel()
	b.cancelAlloc()
	return err
}
