package services

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"brandforgeAPI/internal/realtime"
	"brandforgeAPI/internal/render"
	"brandforgeAPI/internal/types/design"
	"brandforgeAPI/internal/types/generation"
	"brandforgeAPI/middleware"
	"brandforgeAPI/utils"
)

// AssetFetcher pulls remote binaries (site logos, stock photos) into the
// upload path.
type AssetFetcher interface {
	Download(ctx context.Context, url string) ([]byte, string, error)
	ThemedPhoto(ctx context.Context, keyword string) ([]byte, string, error)
}

// Notifier is the fire-and-forget completion channel.
type Notifier interface {
	Emit(roomKey, event string, payload any)
}

// Renderer captures synthesized markup to raster bytes.
type Renderer interface {
	Render(ctx context.Context, canvas design.Canvas, markup string) ([]byte, error)
}

// Platform presets for auto-generated canvases.
var platformPresets = map[string][2]int{
	"facebook":  {1200, 630},
	"instagram": {1080, 1080},
	"story":     {1080, 1920},
	"twitter":   {1600, 900},
}

const defaultPlatform = "facebook"

// VisualsReadyEvent is the websocket event name pushed when a batch lands.
const VisualsReadyEvent = "visuals:ready"

// GenerationService turns a content-generation event into two finished
// visuals: a slogan variant and a branding variant. Both are produced
// together or not at all.
type GenerationService struct {
	store    DocumentStore
	objects  ObjectStore
	fetcher  AssetFetcher
	renderer Renderer
	hub      Notifier
	shapes   *render.ShapeTable
}

func NewGenerationService(store DocumentStore, objects ObjectStore, fetcher AssetFetcher, renderer Renderer, hub Notifier, shapes *render.ShapeTable) *GenerationService {
	return &GenerationService{
		store:    store,
		objects:  objects,
		fetcher:  fetcher,
		renderer: renderer,
		hub:      hub,
		shapes:   shapes,
	}
}

// GenerateVisuals runs the whole batch: template selection, copy/brand
// injection, asset staging, render, persistence, notification. A failure at
// any step after selection aborts the batch; no partial visual set ever
// reaches the caller.
func (s *GenerationService) GenerateVisuals(ctx context.Context, ev *generation.Event) (*generation.Result, error) {
	sloganDoc, err := s.pickTemplate(ctx, design.DocSlogan, ev)
	if err != nil {
		return nil, err
	}
	brandingDoc, err := s.pickTemplate(ctx, design.DocBranding, ev)
	if err != nil {
		return nil, err
	}

	injectCopy(sloganDoc, ev)
	injectCopy(brandingDoc, ev)

	// Branding assets must exist and be addressable before any render.
	if err := s.stageBrandingAssets(ctx, brandingDoc, ev); err != nil {
		return nil, err
	}

	// The two variants have no ordering dependency on each other; each gets
	// its own document snapshot and its own browser context.
	outputs := make(map[design.DocumentType]*variantOutput)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, doc := range []*design.Document{sloganDoc, brandingDoc} {
		wg.Add(1)
		go func(doc *design.Document) {
			defer wg.Done()
			url, err := s.renderAndStore(ctx, doc)
			mu.Lock()
			outputs[doc.Type] = &variantOutput{url: url, err: err}
			mu.Unlock()
		}(doc)
	}
	wg.Wait()

	for _, out := range outputs {
		if out.err != nil {
			// Both or neither: reclaim whatever the sibling already stored.
			s.discardOutputs(ctx, outputs)
			return nil, fmt.Errorf("generation batch aborted: %w", out.err)
		}
	}

	// Documents persist only once both renders are in hand, so an aborted
	// batch leaves no document rows behind either.
	var persisted []*design.Document
	for _, doc := range []*design.Document{sloganDoc, brandingDoc} {
		if _, err := s.store.SaveDocument(ctx, doc); err != nil {
			s.discardOutputs(ctx, outputs)
			for _, saved := range persisted {
				if delErr := s.store.DeleteDocument(ctx, saved.ID); delErr != nil {
					log.Printf("GenerationService: failed to roll back document %s of aborted batch: %v", saved.ID, delErr)
				}
			}
			return nil, fmt.Errorf("generation batch aborted: failed to persist %s document: %w", doc.Type, err)
		}
		persisted = append(persisted, doc)
	}

	for _, assetType := range []string{generation.AssetSlogan, generation.AssetBranding} {
		if err := s.store.SetPostAssetStatus(ctx, ev.PostID, assetType, generation.StatusNotEdited); err != nil {
			return nil, fmt.Errorf("generation batch aborted: %w", err)
		}
	}

	result := &generation.Result{
		PostID:      ev.PostID,
		SloganURL:   outputs[design.DocSlogan].url,
		BrandingURL: outputs[design.DocBranding].url,
	}

	s.hub.Emit(realtime.RoomKey(ev.UserID, ev.DomainID), VisualsReadyEvent, result)
	return result, nil
}

// pickTemplate samples a base document from the stored pool, falling back
// to the built-in pair, and binds a deep clone to the event's post.
func (s *GenerationService) pickTemplate(ctx context.Context, kind design.DocumentType, ev *generation.Event) (*design.Document, error) {
	var base *design.Document

	pool, err := s.store.ListTemplates(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s template pool: %w", kind, err)
	}
	if len(pool) > 0 {
		base = pool[rand.Intn(len(pool))]
	} else {
		base = builtinTemplate(kind)
	}

	doc := base.Clone()
	doc.ID = uuid.New().String()
	doc.Version = 0
	doc.Type = kind
	doc.UserID = ev.UserID
	doc.DomainID = ev.DomainID
	doc.PostID = ev.PostID
	return doc, nil
}

// injectCopy writes the generated copy and brand identity into the clone and
// resizes the canvas to the target platform.
func injectCopy(doc *design.Document, ev *generation.Event) {
	for _, el := range doc.ElementsByCategory("slogan") {
		if el.Type == design.ElementText {
			el.Props.Text = ev.Slogan
		}
	}
	for _, el := range doc.ElementsByCategory("brandName") {
		if el.Type == design.ElementText {
			el.Props.Text = ev.BusinessName
		}
	}

	platform := ev.Platform
	if _, ok := platformPresets[platform]; !ok {
		platform = defaultPlatform
	}
	preset := platformPresets[platform]
	doc.Canvas.Width, doc.Canvas.Height = preset[0], preset[1]
	doc.Canvas.AspectLabel = platform

	if ev.BrandColor != "" {
		if doc.Canvas.Styles == nil {
			doc.Canvas.Styles = make(map[string]any)
		}
		doc.Canvas.Styles["backgroundColor"] = ev.BrandColor
	}
}

// stageBrandingAssets downloads the brand logo (or a placeholder derived
// from the business name) and an optional themed stock photo, storing both
// as owned assets of the cloned document.
func (s *GenerationService) stageBrandingAssets(ctx context.Context, doc *design.Document, ev *generation.Event) error {
	now := time.Now().UTC()

	logoURL := ev.SiteLogo
	if logoURL == "" {
		logoURL = utils.PlaceholderLogoURL(ev.BusinessName)
	}
	if logos := doc.ElementsByCategory("brandLogo"); len(logos) > 0 {
		data, contentType, err := s.fetcher.Download(ctx, logoURL)
		if err != nil {
			return fmt.Errorf("failed to stage brand logo: %w", err)
		}
		key := utils.BuildAssetKey(string(doc.Type), doc.ID, "logo", "logo.png", now)
		stored, err := s.objects.Put(ctx, key, data, contentType)
		if err != nil {
			return fmt.Errorf("failed to store brand logo: %w", err)
		}
		for _, el := range logos {
			el.Props.Src = stored
			el.Props.OriginalSrc = logoURL
		}
	}

	if len(ev.Keywords) > 0 {
		data, contentType, err := s.fetcher.ThemedPhoto(ctx, ev.Keywords[0])
		if err != nil {
			return fmt.Errorf("failed to stage stock photo: %w", err)
		}
		key := utils.BuildAssetKey(string(doc.Type), doc.ID, "stock", "stock.jpg", now)
		stored, err := s.objects.Put(ctx, key, data, contentType)
		if err != nil {
			return fmt.Errorf("failed to store stock photo: %w", err)
		}
		if fills := doc.ElementsByCategory("stockImage"); len(fills) > 0 {
			for _, el := range fills {
				el.Props.Src = stored
			}
		} else {
			doc.Backgrounds = design.Background{Type: design.BackgroundImage, Src: stored}
			doc.SyncCanvasBackground()
		}
	}
	return nil
}

// renderAndStore runs Layout -> Markup -> Raster for one variant and stores
// the output as an owned asset. Document persistence happens afterwards,
// once every variant has rendered.
func (s *GenerationService) renderAndStore(ctx context.Context, doc *design.Document) (string, error) {
	markup := render.Synthesize(doc, s.shapes, render.SynthesizeOptions{})

	start := time.Now()
	png, err := s.renderer.Render(ctx, doc.Canvas, markup)
	if err != nil {
		middleware.ObserveRender("error", time.Since(start).Seconds())
		return "", fmt.Errorf("render of %s variant failed: %w", doc.Type, err)
	}
	middleware.ObserveRender("ok", time.Since(start).Seconds())

	key := utils.BuildAssetKey(string(doc.Type), doc.ID, "render", "output.png", time.Now().UTC())
	url, err := s.objects.Put(ctx, key, png, "image/png")
	if err != nil {
		return "", fmt.Errorf("failed to store rendered %s output: %w", doc.Type, err)
	}
	return url, nil
}

type variantOutput struct {
	url string
	err error
}

// discardOutputs best-effort reclaims any rendered output a failed batch
// already stored. An orphan here is acceptable and only logged.
func (s *GenerationService) discardOutputs(ctx context.Context, outputs map[design.DocumentType]*variantOutput) {
	var keys []string
	for _, out := range outputs {
		if out == nil || out.err != nil || out.url == "" {
			continue
		}
		if key, owned := s.objects.KeyFromURL(out.url); owned {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return
	}
	if _, err := s.objects.Delete(ctx, keys); err != nil {
		log.Printf("GenerationService: failed to reclaim outputs of aborted batch: %v", err)
	}
}

// builtinTemplate is the fixed fallback pair used when the template pool is
// empty.
func builtinTemplate(kind design.DocumentType) *design.Document {
	if kind == design.DocBranding {
		return &design.Document{
			Type: design.DocBranding,
			Canvas: design.Canvas{
				Width:  1200,
				Height: 630,
				Styles: map[string]any{"backgroundColor": "#1a1a2e"},
			},
			Elements: []design.Element{
				{
					ID:       "branding-logo",
					Type:     design.ElementImage,
					Category: "brandLogo",
					Position: design.Position{X: 476, Y: 120},
					Styles:   map[string]any{"width": 248, "height": 248},
					Props:    design.Props{Mask: "circle"},
					Visible:  true,
				},
				{
					ID:       "branding-name",
					Type:     design.ElementText,
					Category: "brandName",
					Position: design.Position{X: 100, Y: 420},
					Styles: map[string]any{
						// Box dimensions on text elements must carry their
						// unit; only image dimensions get px appended.
						"width":         "1000px",
						"minHeight":     "120px",
						"fontSize":      float64(54),
						"fontWeight":    "700",
						"color":         "#ffffff",
						"textAlign":     "center",
						"verticalAlign": "middle",
					},
					Visible: true,
				},
			},
			Backgrounds: design.Background{Type: design.BackgroundColor, Color: "#1a1a2e"},
		}
	}

	return &design.Document{
		Type: design.DocSlogan,
		Canvas: design.Canvas{
			Width:  1200,
			Height: 630,
			Styles: map[string]any{"backgroundColor": "#16213e"},
		},
		Elements: []design.Element{
			{
				ID:       "slogan-text",
				Type:     design.ElementText,
				Category: "slogan",
				Position: design.Position{X: 100, Y: 165},
				Styles: map[string]any{
					"width":         "1000px",
					"minHeight":     "300px",
					"fontSize":      float64(68),
					"fontWeight":    "600",
					"color":         "#ffffff",
					"textAlign":     "center",
					"verticalAlign": "middle",
				},
				Visible: true,
			},
		},
		Backgrounds: design.Background{Type: design.BackgroundColor, Color: "#16213e"},
	}
}
