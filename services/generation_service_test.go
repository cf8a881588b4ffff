package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"brandforgeAPI/internal/render"
	"brandforgeAPI/internal/types/design"
	"brandforgeAPI/internal/types/generation"
)

type fakeFetcher struct {
	downloads []string
	themed    []string
	failLogo  bool
}

func (f *fakeFetcher) Download(ctx context.Context, url string) ([]byte, string, error) {
	if f.failLogo {
		return nil, "", errors.New("remote host unreachable")
	}
	f.downloads = append(f.downloads, url)
	return []byte("logo-bytes"), "image/png", nil
}

func (f *fakeFetcher) ThemedPhoto(ctx context.Context, keyword string) ([]byte, string, error) {
	f.themed = append(f.themed, keyword)
	return []byte("photo-bytes"), "image/jpeg", nil
}

type fakeRenderer struct {
	mu           sync.Mutex
	calls        int
	failOnMarkup string
}

func (f *fakeRenderer) Render(ctx context.Context, canvas design.Canvas, markup string) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.failOnMarkup != "" && strings.Contains(markup, f.failOnMarkup) {
		return nil, errors.New("browser crashed")
	}
	return []byte("png-bytes"), nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []struct {
		room, event string
		payload     any
	}
}

func (f *fakeNotifier) Emit(roomKey, event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, struct {
		room, event string
		payload     any
	}{roomKey, event, payload})
}

func testEvent() *generation.Event {
	return &generation.Event{
		UserID:       "user-1",
		DomainID:     "domain-1",
		PostID:       "post-1",
		BusinessName: "Blue Harbor Coffee",
		Slogan:       "Wake up to the harbor",
		BrandColor:   "#0a4d8c",
		Keywords:     []string{"coffee"},
		Platform:     "instagram",
	}
}

func newGenerationFixture() (*GenerationService, *fakeStore, *fakeObjects, *fakeFetcher, *fakeRenderer, *fakeNotifier) {
	store := newFakeStore()
	objects := newFakeObjects()
	fetcher := &fakeFetcher{}
	renderer := &fakeRenderer{}
	notifier := &fakeNotifier{}
	svc := NewGenerationService(store, objects, fetcher, renderer, notifier, render.DefaultShapeTable())
	return svc, store, objects, fetcher, renderer, notifier
}

func TestGenerateVisualsProducesBothVariants(t *testing.T) {
	svc, store, _, _, renderer, notifier := newGenerationFixture()

	result, err := svc.GenerateVisuals(context.Background(), testEvent())
	if err != nil {
		t.Fatalf("GenerateVisuals failed: %v", err)
	}

	if result.SloganURL == "" || result.BrandingURL == "" {
		t.Errorf("both variant URLs must be set, got %+v", result)
	}
	if renderer.calls != 2 {
		t.Errorf("expected two renders, got %d", renderer.calls)
	}
	if len(store.docs) != 2 {
		t.Errorf("expected two persisted documents, got %d", len(store.docs))
	}
	if store.statuses["post-1/"+generation.AssetSlogan] != generation.StatusNotEdited {
		t.Error("slogan status must be marked not_edited")
	}
	if store.statuses["post-1/"+generation.AssetBranding] != generation.StatusNotEdited {
		t.Error("branding status must be marked not_edited")
	}

	if len(notifier.events) != 1 {
		t.Fatalf("expected one completion event, got %d", len(notifier.events))
	}
	got := notifier.events[0]
	if got.room != "user-1:domain-1" {
		t.Errorf("completion must target the (user, domain) room, got %q", got.room)
	}
	if got.event != VisualsReadyEvent {
		t.Errorf("unexpected event name %q", got.event)
	}
}

func TestGenerateVisualsInjectsCopyAndPreset(t *testing.T) {
	svc, store, _, _, _, _ := newGenerationFixture()

	if _, err := svc.GenerateVisuals(context.Background(), testEvent()); err != nil {
		t.Fatalf("GenerateVisuals failed: %v", err)
	}

	var slogan, branding *design.Document
	for _, doc := range store.docs {
		switch doc.Type {
		case design.DocSlogan:
			slogan = doc
		case design.DocBranding:
			branding = doc
		}
	}
	if slogan == nil || branding == nil {
		t.Fatal("both variants must be persisted")
	}

	if got := slogan.ElementsByCategory("slogan")[0].Props.Text; got != "Wake up to the harbor" {
		t.Errorf("slogan copy not injected, got %q", got)
	}
	if got := branding.ElementsByCategory("brandName")[0].Props.Text; got != "Blue Harbor Coffee" {
		t.Errorf("business name not injected, got %q", got)
	}
	for _, doc := range []*design.Document{slogan, branding} {
		if doc.Canvas.Width != 1080 || doc.Canvas.Height != 1080 {
			t.Errorf("%s canvas not resized to instagram preset, got %dx%d",
				doc.Type, doc.Canvas.Width, doc.Canvas.Height)
		}
		if doc.Canvas.Styles["backgroundColor"] != "#0a4d8c" {
			t.Errorf("%s canvas must carry the brand color", doc.Type)
		}
	}
}

func TestGenerateVisualsFallsBackToPlaceholderLogo(t *testing.T) {
	svc, _, _, fetcher, _, _ := newGenerationFixture()

	ev := testEvent()
	ev.SiteLogo = ""
	if _, err := svc.GenerateVisuals(context.Background(), ev); err != nil {
		t.Fatalf("GenerateVisuals failed: %v", err)
	}

	var logoFetch string
	for _, url := range fetcher.downloads {
		if strings.Contains(url, "ui-avatars.com") {
			logoFetch = url
		}
	}
	if logoFetch == "" {
		t.Fatalf("expected a placeholder logo fetch, got %v", fetcher.downloads)
	}
	if !strings.Contains(logoFetch, "Blue+Harbor+Coffee") {
		t.Errorf("placeholder must derive from the business name, got %q", logoFetch)
	}
}

func TestGenerateVisualsUsesSiteLogoWhenPresent(t *testing.T) {
	svc, _, _, fetcher, _, _ := newGenerationFixture()

	ev := testEvent()
	ev.SiteLogo = "https://cdn.example.com/real-logo.svg"
	if _, err := svc.GenerateVisuals(context.Background(), ev); err != nil {
		t.Fatalf("GenerateVisuals failed: %v", err)
	}

	for _, url := range fetcher.downloads {
		if strings.Contains(url, "ui-avatars.com") {
			t.Error("placeholder must not be used when a site logo exists")
		}
	}
}

func TestGenerateVisualsAbortsBatchOnRenderFailure(t *testing.T) {
	svc, store, objects, _, renderer, notifier := newGenerationFixture()

	renderer.failOnMarkup = "Wake up to the harbor" // only the slogan variant

	_, err := svc.GenerateVisuals(context.Background(), testEvent())
	if err == nil {
		t.Fatal("a failed render must abort the whole batch")
	}

	if len(notifier.events) != 0 {
		t.Error("no completion event may fire for an aborted batch")
	}
	if len(store.docs) != 0 {
		t.Errorf("an aborted batch must leave no persisted design documents, got %d", len(store.docs))
	}
	for key := range store.statuses {
		t.Errorf("no post status may change for an aborted batch, got %s", key)
	}
	// Any sibling output that landed before the failure must be reclaimed.
	for key := range objects.puts {
		if strings.Contains(key, "render") {
			found := false
			for _, deleted := range objects.deletedKeys() {
				if deleted == key {
					found = true
				}
			}
			if !found {
				t.Errorf("stored render output %s was not reclaimed", key)
			}
		}
	}
}

func TestGenerateVisualsStagesThemedPhoto(t *testing.T) {
	svc, _, _, fetcher, _, _ := newGenerationFixture()

	if _, err := svc.GenerateVisuals(context.Background(), testEvent()); err != nil {
		t.Fatalf("GenerateVisuals failed: %v", err)
	}
	if len(fetcher.themed) != 1 || fetcher.themed[0] != "coffee" {
		t.Errorf("expected one themed photo fetch for the first keyword, got %v", fetcher.themed)
	}
}

func TestGenerateVisualsLogoFetchFailureAborts(t *testing.T) {
	svc, store, _, fetcher, renderer, _ := newGenerationFixture()
	fetcher.failLogo = true

	_, err := svc.GenerateVisuals(context.Background(), testEvent())
	if err == nil {
		t.Fatal("a failed logo fetch must abort the batch")
	}
	if renderer.calls != 0 {
		t.Error("nothing may render after a failed staging step")
	}
	if len(store.docs) != 0 {
		t.Error("nothing may persist after a failed staging step")
	}
}

func TestBuiltinTemplatesEmitUnitBearingBoxConstraints(t *testing.T) {
	cases := []struct {
		kind      design.DocumentType
		minHeight string
	}{
		{design.DocSlogan, "min-height: 300px; "},
		{design.DocBranding, "min-height: 120px; "},
	}
	for _, c := range cases {
		doc := builtinTemplate(c.kind)
		markup := render.Synthesize(doc, render.DefaultShapeTable(), render.SynthesizeOptions{})

		// Unitless box declarations get dropped by standards-mode layout,
		// leaving the auto-fit pass with an unconstrained container.
		for _, bad := range []string{"width: 1000; ", "min-height: 300; ", "min-height: 120; "} {
			if strings.Contains(markup, bad) {
				t.Errorf("%s template emits invalid unitless declaration %q", c.kind, bad)
			}
		}
		if !strings.Contains(markup, "width: 1000px; ") {
			t.Errorf("%s template text box must carry a px width", c.kind)
		}
		if !strings.Contains(markup, c.minHeight) {
			t.Errorf("%s template text box must carry %q", c.kind, c.minHeight)
		}
	}
}

func TestGenerateVisualsPersistFailureRollsBackSibling(t *testing.T) {
	svc, store, objects, _, _, notifier := newGenerationFixture()

	store.failSave = true

	_, err := svc.GenerateVisuals(context.Background(), testEvent())
	if err == nil {
		t.Fatal("a failed persist must abort the batch")
	}
	if len(store.docs) != 0 {
		t.Errorf("no document may survive a failed persist, got %d", len(store.docs))
	}
	if len(notifier.events) != 0 {
		t.Error("no completion event may fire for an aborted batch")
	}
	// Both rendered outputs already landed in storage and must be reclaimed.
	for key := range objects.puts {
		if strings.Contains(key, "render") && !containsKey(objects.deletedKeys(), key) {
			t.Errorf("stored render output %s was not reclaimed", key)
		}
	}
}

func containsKey(keys []string, want string) bool {
	for _, k := range keys {
		if k == want {
			return true
		}
	}
	return false
}

func TestGenerateVisualsUnknownPlatformFallsBack(t *testing.T) {
	svc, store, _, _, _, _ := newGenerationFixture()

	ev := testEvent()
	ev.Platform = "myspace"
	if _, err := svc.GenerateVisuals(context.Background(), ev); err != nil {
		t.Fatalf("GenerateVisuals failed: %v", err)
	}
	for _, doc := range store.docs {
		if doc.Canvas.Width != 1200 || doc.Canvas.Height != 630 {
			t.Errorf("unknown platforms must fall back to the default preset, got %dx%d",
				doc.Canvas.Width, doc.Canvas.Height)
		}
	}
}
