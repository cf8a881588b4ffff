package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"brandforgeAPI/internal/types/design"
	"brandforgeAPI/middleware"
	"brandforgeAPI/utils"
)

// Validation failures reported before any side effect occurs.
var (
	ErrDuplicateElementID = errors.New("duplicate element id in document")
	ErrUnmatchedFile      = errors.New("uploaded file matches no element id or background key")
)

// ObjectStore is the object-storage collaborator the lifecycle manager
// talks to.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, keys []string) ([]string, error)
	KeyFromURL(url string) (string, bool)
}

// DocumentStore is the persistence collaborator for design documents.
type DocumentStore interface {
	GetDocument(ctx context.Context, id string) (*design.Document, error)
	GetByPostAndType(ctx context.Context, postID string, docType design.DocumentType) (*design.Document, error)
	ListTemplates(ctx context.Context, docType design.DocumentType) ([]*design.Document, error)
	ListByDomain(ctx context.Context, domainID string) ([]*design.Document, error)
	SaveDocument(ctx context.Context, doc *design.Document) (*design.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	SetPostAssetStatus(ctx context.Context, postID, assetType, status string) error
}

// DesignService owns the asset lifecycle of design documents: uploading new
// binaries, rewriting references, and reclaiming orphans after edits.
type DesignService struct {
	store   DocumentStore
	objects ObjectStore
}

func NewDesignService(store DocumentStore, objects ObjectStore) *DesignService {
	return &DesignService{store: store, objects: objects}
}

// UploadedFile is one caller-supplied binary keyed by element id or the
// reserved background key.
type UploadedFile struct {
	Name        string
	ContentType string
	Data        []byte
}

type SaveDesignRequest struct {
	Document *design.Document
	Files    map[string]UploadedFile
}

// SaveResult surfaces delete failures without failing the already-committed
// save.
type SaveResult struct {
	Document      *design.Document `json:"document"`
	DeletedAssets []string         `json:"deletedAssets,omitempty"`
	FailedDeletes []string         `json:"failedDeletes,omitempty"`
}

// SaveDesign runs the save state machine:
// VALIDATE -> UPLOAD -> REWRITE -> DIFF -> PERSIST -> DELETE.
// Any failure before PERSIST aborts the whole operation; delete failures
// after the commit are logged and surfaced but never roll it back.
func (s *DesignService) SaveDesign(ctx context.Context, req *SaveDesignRequest) (*SaveResult, error) {
	doc := req.Document
	if doc == nil {
		return nil, fmt.Errorf("save request carries no document")
	}

	// VALIDATE: unique element ids, and every file keyed to something real.
	if err := validateElementIDs(doc); err != nil {
		return nil, err
	}
	for key := range req.Files {
		if key == design.BackgroundKey {
			continue
		}
		if doc.ElementByID(key) == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnmatchedFile, key)
		}
	}

	// Snapshot the previous revision before touching anything, so the
	// orphan diff sees the pre-edit asset set.
	var old *design.Document
	if doc.ID != "" {
		prev, err := s.store.GetDocument(ctx, doc.ID)
		if err != nil && !errors.Is(err, ErrDocumentNotFound) {
			return nil, err
		}
		old = prev
	}

	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}

	// UPLOAD + REWRITE. Keys are walked in sorted order so storage paths
	// are reproducible for a given save.
	keys := make([]string, 0, len(req.Files))
	for key := range req.Files {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	now := time.Now().UTC()
	for _, key := range keys {
		file := req.Files[key]
		if key == design.BackgroundKey {
			storageKey := utils.BuildAssetKey(string(doc.Type), doc.ID, design.BackgroundKey, file.Name, now)
			url, err := s.objects.Put(ctx, storageKey, file.Data, file.ContentType)
			if err != nil {
				return nil, fmt.Errorf("failed to upload background asset: %w", err)
			}
			doc.Backgrounds = design.Background{Type: design.BackgroundImage, Src: url}
			continue
		}

		el := doc.ElementByID(key)
		storageKey := utils.BuildAssetKey(string(doc.Type), doc.ID, string(el.Type), file.Name, now)
		url, err := s.objects.Put(ctx, storageKey, file.Data, file.ContentType)
		if err != nil {
			return nil, fmt.Errorf("failed to upload asset for element %s: %w", key, err)
		}
		el.Props.Src = url
		el.Props.PreviewURL = url
	}

	doc.SyncCanvasBackground()

	// DIFF against the previous revision.
	orphans := s.DiffOrphans(old, doc)

	// PERSIST. The new document must be known-good before anything is
	// reclaimed; a failed save still depends on the old assets.
	saved, err := s.store.SaveDocument(ctx, doc)
	if err != nil {
		return nil, err
	}

	result := &SaveResult{Document: saved}
	if len(orphans) > 0 {
		deleted, delErr := s.objects.Delete(ctx, orphans)
		result.DeletedAssets = deleted
		if delErr != nil {
			log.Printf("DesignService: orphan cleanup for design %s left assets behind: %v", saved.ID, delErr)
			result.FailedDeletes = missingKeys(orphans, deleted)
		}
		middleware.CountAssetsDeleted(len(deleted))
	}
	return result, nil
}

// DiffOrphans compares the old revision against the new one and returns the
// distinct storage keys that are no longer referenced: elements removed by
// id whose src pointed at an owned asset, plus the background asset when
// the background's serialized form changed.
func (s *DesignService) DiffOrphans(old, updated *design.Document) []string {
	if old == nil {
		return nil
	}

	keptIDs := make(map[string]bool, len(updated.Elements))
	for _, el := range updated.Elements {
		keptIDs[el.ID] = true
	}

	seen := make(map[string]bool)
	var orphans []string
	queue := func(url string) {
		key, owned := s.objects.KeyFromURL(url)
		if !owned || seen[key] {
			return
		}
		seen[key] = true
		orphans = append(orphans, key)
	}

	for _, el := range old.Elements {
		if keptIDs[el.ID] {
			continue
		}
		if el.Props.Src != "" {
			queue(el.Props.Src)
		}
	}

	if old.Backgrounds.Src != "" {
		oldBg, _ := json.Marshal(old.Backgrounds)
		newBg, _ := json.Marshal(updated.Backgrounds)
		if string(oldBg) != string(newBg) {
			queue(old.Backgrounds.Src)
		}
	}
	return orphans
}

// DeleteDesign removes a document and reclaims every asset it exclusively
// owned. Asset deletion failures are logged, not fatal: an orphaned asset
// is acceptable, a dangling reference is not.
func (s *DesignService) DeleteDesign(ctx context.Context, id string) (*SaveResult, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	var keys []string
	seen := make(map[string]bool)
	for _, url := range doc.OwnedAssetURLs() {
		if key, owned := s.objects.KeyFromURL(url); owned && !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}

	if err := s.store.DeleteDocument(ctx, id); err != nil {
		return nil, err
	}

	result := &SaveResult{}
	if len(keys) > 0 {
		deleted, delErr := s.objects.Delete(ctx, keys)
		result.DeletedAssets = deleted
		if delErr != nil {
			log.Printf("DesignService: asset cleanup for deleted design %s left assets behind: %v", id, delErr)
			result.FailedDeletes = missingKeys(keys, deleted)
		}
		middleware.CountAssetsDeleted(len(deleted))
	}
	return result, nil
}

func (s *DesignService) GetDesign(ctx context.Context, id string) (*design.Document, error) {
	return s.store.GetDocument(ctx, id)
}

func (s *DesignService) ListDesigns(ctx context.Context, domainID string) ([]*design.Document, error) {
	return s.store.ListByDomain(ctx, domainID)
}

type ShareQrResponse struct {
	DesignID     string `json:"designId"`
	ShareURL     string `json:"shareUrl"`
	QrCodeBase64 string `json:"qr_code_base64"`
}

// ShareQr builds a QR code pointing at the editor's share link for a design.
func (s *DesignService) ShareQr(ctx context.Context, designID string) (*ShareQrResponse, error) {
	doc, err := s.store.GetDocument(ctx, designID)
	if err != nil {
		return nil, err
	}

	base := os.Getenv("SHARE_BASE_URL")
	if base == "" {
		base = "https://app.brandforge.io"
	}
	shareURL := fmt.Sprintf("%s/designs/%s", base, doc.ID)

	pngBytes, err := qrcode.Encode(shareURL, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR png: %w", err)
	}

	return &ShareQrResponse{
		DesignID:     doc.ID,
		ShareURL:     shareURL,
		QrCodeBase64: base64.StdEncoding.EncodeToString(pngBytes),
	}, nil
}

func validateElementIDs(doc *design.Document) error {
	seen := make(map[string]bool, len(doc.Elements))
	for _, el := range doc.Elements {
		if el.ID == "" {
			return fmt.Errorf("%w: empty id", ErrDuplicateElementID)
		}
		if seen[el.ID] {
			return fmt.Errorf("%w: %q", ErrDuplicateElementID, el.ID)
		}
		seen[el.ID] = true
	}
	return nil
}

func missingKeys(requested, deleted []string) []string {
	got := make(map[string]bool, len(deleted))
	for _, k := range deleted {
		got[k] = true
	}
	var missing []string
	for _, k := range requested {
		if !got[k] {
			missing = append(missing, k)
		}
	}
	return missing
}
