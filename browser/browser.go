// Package browser drives a headless Chrome session and hands back snapshots
// of the rendered page that can be queried with CSS selectors.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"golang.org/x/net/html"

	"nbarotations/utils"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ErrTimeout is returned by WaitForElement when the element did not show up
// in time. The page is still usable.
var ErrTimeout = errors.New("timed out waiting for element")

type Chrome struct {
	remoteURL string

	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
}

// New starts a browser. With an empty remoteURL a local headless Chrome is
// launched, otherwise the DevTools endpoint at remoteURL is used.
func New(ctx context.Context, remoteURL string) (*Chrome, error) {
	c := &Chrome{remoteURL: remoteURL}
	if err := c.open(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Chrome) open(parent context.Context) error {
	var allocCtx context.Context
	if c.remoteURL != "" {
		allocCtx, c.allocCancel = chromedp.NewRemoteAllocator(context.WithoutCancel(parent), c.remoteURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.UserAgent(userAgent),
			chromedp.Flag("blink-settings", "imagesEnabled=false"),
		)
		allocCtx, c.allocCancel = chromedp.NewExecAllocator(context.WithoutCancel(parent), opts...)
	}
	c.ctx, c.cancel = chromedp.NewContext(allocCtx, chromedp.WithErrorf(log.Printf))

	if err := chromedp.Run(c.ctx, network.Enable()); err != nil {
		c.Close()
		return utils.ErrorWithTrace(fmt.Errorf("starting browser: %w", err))
	}
	return nil
}

// Close shuts the browser down.
func (c *Chrome) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	if c.allocCancel != nil {
		c.allocCancel()
	}
}

// Refresh throws the current session away and starts a fresh one. Long
// crawls call this periodically to keep the browser from going stale.
func (c *Chrome) Refresh(ctx context.Context) error {
	c.Close()
	return c.open(ctx)
}

func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(c.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	if err := c.run(ctx, chromedp.Navigate(url)); err != nil {
		return utils.ErrorWithTrace(fmt.Errorf("navigating to %s: %w", url, err))
	}
	return nil
}

// WaitForElement blocks until selector matches a node of the current page
// or timeout elapses, in which case ErrTimeout is returned.
func (c *Chrome) WaitForElement(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := c.run(waitCtx, chromedp.WaitReady(selector, chromedp.ByQuery))
	if err == nil {
		return nil
	}
	if ctx.Err() == nil && errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s after %s", ErrTimeout, selector, timeout)
	}
	return utils.ErrorWithTrace(err)
}

// CurrentDocument snapshots the rendered DOM.
func (c *Chrome) CurrentDocument(ctx context.Context) (*goquery.Document, error) {
	var page string
	if err := c.run(ctx, chromedp.OuterHTML("html", &page, chromedp.ByQuery)); err != nil {
		return nil, utils.ErrorWithTrace(err)
	}
	return ParseDocument(page)
}

// ParseDocument builds a queryable document from raw HTML.
func ParseDocument(page string) (*goquery.Document, error) {
	root, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, utils.ErrorWithTrace(err)
	}
	return goquery.NewDocumentFromNode(root), nil
}
