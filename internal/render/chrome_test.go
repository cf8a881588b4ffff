package render

import (
	"testing"
	"time"

	"brandforgeAPI/internal/types/design"
)

func TestViewportFallback(t *testing.T) {
	w, h := viewportFor(design.Canvas{})
	if w != fallbackViewportWidth || h != fallbackViewportHeight {
		t.Errorf("missing dimensions must fall back to 800x600, got %dx%d", w, h)
	}

	w, h = viewportFor(design.Canvas{Width: 1200, Height: -5})
	if w != fallbackViewportWidth || h != fallbackViewportHeight {
		t.Errorf("a single bad dimension falls back entirely, got %dx%d", w, h)
	}

	w, h = viewportFor(design.Canvas{Width: 1080, Height: 1920})
	if w != 1080 || h != 1920 {
		t.Errorf("valid canvases use their literal dimensions, got %dx%d", w, h)
	}
}

func TestNewChromeRendererDefaultTimeout(t *testing.T) {
	r := NewChromeRenderer(0)
	if r.timeout != defaultRenderTimeout {
		t.Errorf("zero timeout must default to %v, got %v", defaultRenderTimeout, r.timeout)
	}

	r = NewChromeRenderer(5 * time.Second)
	if r.timeout != 5*time.Second {
		t.Errorf("explicit timeout must stick, got %v", r.timeout)
	}
}
