package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"brandforgeAPI/internal/types/design"
)

// ErrDocumentNotFound is returned when a design document id resolves to
// nothing.
var ErrDocumentNotFound = errors.New("design document not found")

// DesignStore persists design documents. The document body lives in JSONB
// columns so the editor payload round-trips untouched.
type DesignStore struct {
	db *pgxpool.Pool
}

func NewDesignStore(db *pgxpool.Pool) *DesignStore {
	return &DesignStore{db: db}
}

func (s *DesignStore) scanDocument(row pgx.Row) (*design.Document, error) {
	var doc design.Document
	var canvas, elements, layers, backgrounds []byte

	err := row.Scan(&doc.ID, &doc.UserID, &doc.DomainID, &doc.PostID, &doc.Type,
		&canvas, &elements, &layers, &backgrounds, &doc.Version, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("database error fetching design document: %w", err)
	}

	if err := json.Unmarshal(canvas, &doc.Canvas); err != nil {
		return nil, fmt.Errorf("corrupt canvas payload for design %s: %w", doc.ID, err)
	}
	if err := json.Unmarshal(elements, &doc.Elements); err != nil {
		return nil, fmt.Errorf("corrupt elements payload for design %s: %w", doc.ID, err)
	}
	if len(layers) > 0 {
		if err := json.Unmarshal(layers, &doc.Layers); err != nil {
			return nil, fmt.Errorf("corrupt layers payload for design %s: %w", doc.ID, err)
		}
	}
	if len(backgrounds) > 0 {
		if err := json.Unmarshal(backgrounds, &doc.Backgrounds); err != nil {
			return nil, fmt.Errorf("corrupt backgrounds payload for design %s: %w", doc.ID, err)
		}
	}
	return &doc, nil
}

const designColumns = `id, user_id, domain_id, post_id, type, canvas, elements, layers, backgrounds, version, created_at, updated_at`

func (s *DesignStore) GetDocument(ctx context.Context, id string) (*design.Document, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+designColumns+` FROM designs WHERE id = $1`, id)
	return s.scanDocument(row)
}

func (s *DesignStore) GetByPostAndType(ctx context.Context, postID string, docType design.DocumentType) (*design.Document, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+designColumns+` FROM designs WHERE post_id = $1 AND type = $2`, postID, docType)
	return s.scanDocument(row)
}

// ListTemplates returns the reusable base documents of one kind (documents
// not yet bound to a post).
func (s *DesignStore) ListTemplates(ctx context.Context, docType design.DocumentType) ([]*design.Document, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+designColumns+` FROM designs WHERE post_id = '' AND type = $1 ORDER BY created_at`, docType)
	if err != nil {
		return nil, fmt.Errorf("database error listing templates: %w", err)
	}
	defer rows.Close()

	var docs []*design.Document
	for rows.Next() {
		doc, err := s.scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *DesignStore) ListByDomain(ctx context.Context, domainID string) ([]*design.Document, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+designColumns+` FROM designs WHERE domain_id = $1 ORDER BY updated_at DESC`, domainID)
	if err != nil {
		return nil, fmt.Errorf("database error listing designs for domain %s: %w", domainID, err)
	}
	defer rows.Close()

	var docs []*design.Document
	for rows.Next() {
		doc, err := s.scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// SaveDocument inserts a new document at version 1 or overwrites the
// mutable fields of an existing one, bumping updated_at.
func (s *DesignStore) SaveDocument(ctx context.Context, doc *design.Document) (*design.Document, error) {
	canvas, err := json.Marshal(doc.Canvas)
	if err != nil {
		return nil, fmt.Errorf("failed to encode canvas: %w", err)
	}
	elements, err := json.Marshal(doc.Elements)
	if err != nil {
		return nil, fmt.Errorf("failed to encode elements: %w", err)
	}
	layers, err := json.Marshal(doc.Layers)
	if err != nil {
		return nil, fmt.Errorf("failed to encode layers: %w", err)
	}
	backgrounds, err := json.Marshal(doc.Backgrounds)
	if err != nil {
		return nil, fmt.Errorf("failed to encode backgrounds: %w", err)
	}

	now := time.Now().UTC()
	if doc.Version == 0 {
		if doc.ID == "" {
			doc.ID = uuid.New().String()
		}
		doc.Version = 1
		doc.CreatedAt = now
		doc.UpdatedAt = now
		_, err = s.db.Exec(ctx, `
			INSERT INTO designs (id, user_id, domain_id, post_id, type, canvas, elements, layers, backgrounds, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, doc.ID, doc.UserID, doc.DomainID, doc.PostID, doc.Type,
			canvas, elements, layers, backgrounds, doc.Version, doc.CreatedAt, doc.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to insert design document: %w", err)
		}
		return doc, nil
	}

	doc.UpdatedAt = now
	tag, err := s.db.Exec(ctx, `
		UPDATE designs
		SET canvas = $2, elements = $3, layers = $4, backgrounds = $5, updated_at = $6
		WHERE id = $1
	`, doc.ID, canvas, elements, layers, backgrounds, doc.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update design document %s: %w", doc.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

func (s *DesignStore) DeleteDocument(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM designs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete design document %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// SetPostAssetStatus flips a post's per-asset edited flag (image, branding
// or slogan).
func (s *DesignStore) SetPostAssetStatus(ctx context.Context, postID, assetType, status string) error {
	var column string
	switch assetType {
	case "image":
		column = "image_status"
	case "branding":
		column = "branding_status"
	case "slogan":
		column = "slogan_status"
	default:
		return fmt.Errorf("unknown post asset type %q", assetType)
	}

	_, err := s.db.Exec(ctx,
		`UPDATE posts SET `+column+` = $2, updated_at = NOW() WHERE id = $1`, postID, status)
	if err != nil {
		return fmt.Errorf("failed to update %s for post %s: %w", column, postID, err)
	}
	return nil
}
