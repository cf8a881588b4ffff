package render

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"brandforgeAPI/internal/types/design"
)

const (
	// readySentinel is set by the injected auto-fit script once the
	// shrink-to-fit pass (and web font settling) has finished. Capture is
	// gated on it instead of inferring quiescence from network idle.
	readySentinel = "render-ready"

	defaultRenderTimeout = 30 * time.Second
	defaultSettleDelay   = 300 * time.Millisecond

	fallbackViewportWidth  = 800
	fallbackViewportHeight = 600
)

// ChromeRenderer captures a document's markup through an isolated headless
// browser context. Every Render call gets its own allocator and tab; nothing
// is shared between concurrent renders.
type ChromeRenderer struct {
	timeout time.Duration
	settle  time.Duration
}

func NewChromeRenderer(timeout time.Duration) *ChromeRenderer {
	if timeout <= 0 {
		timeout = defaultRenderTimeout
	}
	return &ChromeRenderer{timeout: timeout, settle: defaultSettleDelay}
}

// viewportFor picks the capture viewport, falling back to 800x600 when the
// canvas is missing a usable dimension.
func viewportFor(canvas design.Canvas) (int64, int64) {
	w, h := int64(canvas.Width), int64(canvas.Height)
	if w <= 0 || h <= 0 {
		return fallbackViewportWidth, fallbackViewportHeight
	}
	return w, h
}

// Render loads the markup in a sandboxed tab, waits for the auto-fit ready
// signal (bounded by the render timeout), and captures one opaque raster
// frame sized to the canvas. Context acquisition or load failure propagates
// to the caller; no fallback image is ever produced. The browser context is
// torn down on success and failure alike.
func (r *ChromeRenderer) Render(ctx context.Context, canvas design.Canvas, markup string) ([]byte, error) {
	width, height := viewportFor(canvas)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Headless,
		chromedp.NoSandbox,
		chromedp.DisableGPU,
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, r.timeout)
	defer cancelTimeout()

	// Data URI load keeps the render hermetic: no temp files, no server.
	dataURI := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(markup))

	var ready bool
	var shot []byte
	err := chromedp.Run(tabCtx,
		chromedp.EmulateViewport(width, height),
		chromedp.Navigate(dataURI),
		chromedp.Poll(fmt.Sprintf("document.title === %q", readySentinel), &ready,
			chromedp.WithPollingInterval(100*time.Millisecond)),
		chromedp.Sleep(r.settle),
		chromedp.CaptureScreenshot(&shot),
	)
	if err != nil {
		return nil, fmt.Errorf("headless render failed: %w", err)
	}
	if len(shot) == 0 {
		return nil, fmt.Errorf("headless render produced an empty screenshot")
	}
	return shot, nil
}
