package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atinyakov/ReinsDesk/internal/models"
	"github.com/atinyakov/ReinsDesk/internal/repository"
)

// ErrPropertyNotFound is returned for an unknown or foreign listing.
var ErrPropertyNotFound = errors.New("Property not found")

const (
	// MaxPageSize caps the limit query parameter.
	MaxPageSize = 100
	// Form fields carrying uploaded documents.
	FieldHTML      = "html"
	FieldFloorplan = "floorplan"
	FieldImages    = "images"
)

// PropertyRepository defines the persistence operations required by
// PropertyService.
type PropertyRepository interface {
	Insert(ctx context.Context, p models.Property) error
	List(ctx context.Context, userID string, offset, limit int) ([]models.Property, int, error)
	Get(ctx context.Context, userID, id string) (models.Property, error)
	Delete(ctx context.Context, userID, id string) error
}

// FileStore keeps uploaded documents.
type FileStore interface {
	Put(ctx context.Context, rel string, data []byte) error
	Get(ctx context.Context, rel string) ([]byte, error)
}

// UploadedFile is a file part of an ingest request.
type UploadedFile struct {
	Field    string
	Filename string
	Data     []byte
}

// PropertyService implements the listing endpoints for one user at a time.
type PropertyService struct {
	repo  PropertyRepository
	files FileStore
	now   func() time.Time
}

// NewPropertyService constructs a PropertyService.
func NewPropertyService(repo PropertyRepository, files FileStore) *PropertyService {
	return &PropertyService{repo: repo, files: files, now: time.Now}
}

// List returns one page of userID's listings.
func (s *PropertyService) List(ctx context.Context, userID string, offset, limit int) (models.PropertyPage, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}
	items, total, err := s.repo.List(ctx, userID, offset, limit)
	if err != nil {
		return models.PropertyPage{}, err
	}
	more := offset+len(items) < total
	return models.PropertyPage{
		Properties: items,
		Total:      total,
		Count:      len(items),
		Offset:     offset,
		Limit:      limit,
		HasMore:    &more,
	}, nil
}

// Get returns one listing.
func (s *PropertyService) Get(ctx context.Context, userID, id string) (models.Property, error) {
	p, err := s.repo.Get(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return models.Property{}, ErrPropertyNotFound
	}
	return p, err
}

// Delete removes one listing.
func (s *PropertyService) Delete(ctx context.Context, userID, id string) error {
	err := s.repo.Delete(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrPropertyNotFound
	}
	return err
}

// Create ingests a listing from flat form fields and its documents.
// Unknown fields are ignored; identifiers and timestamps are assigned here.
func (s *PropertyService) Create(ctx context.Context, userID string, fields map[string]string, files []UploadedFile) (models.Property, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return models.Property{}, fmt.Errorf("encode fields: %w", err)
	}
	var p models.Property
	if err := json.Unmarshal(raw, &p); err != nil {
		return models.Property{}, fmt.Errorf("decode fields: %w", err)
	}

	now := s.now().UTC().Format(time.RFC3339)
	p.ID = uuid.NewString()
	p.UserID = userID
	if p.ReinsID == "" {
		p.ReinsID = p.ID[:8]
	}
	if p.Status == "" {
		p.Status = models.StatusSuccess
	}
	p.CreatedAt, p.UpdatedAt = now, now
	p.Files = nil

	for _, f := range files {
		name := path.Base(strings.ReplaceAll(f.Filename, "\\", "/"))
		if name == "." || name == "/" {
			continue
		}
		rel := path.Join("uploads", p.ID, f.Field, name)
		if err := s.files.Put(ctx, rel, f.Data); err != nil {
			return models.Property{}, fmt.Errorf("store %s: %w", name, err)
		}
		if p.Files == nil {
			p.Files = &models.PropertyFiles{}
		}
		ref := "/files/" + rel
		switch f.Field {
		case FieldHTML:
			p.Files.HTMLPath, p.Files.HTMLFilename = ref, name
		case FieldFloorplan:
			p.Files.FloorplanPath, p.Files.FloorplanFilename = ref, name
		default:
			p.Files.ImagePaths = append(p.Files.ImagePaths, ref)
			p.Files.ImageFilenames = append(p.Files.ImageFilenames, name)
		}
	}

	if err := s.repo.Insert(ctx, p); err != nil {
		return models.Property{}, err
	}
	return p, nil
}

// File returns an uploaded document by its path below /files/.
func (s *PropertyService) File(ctx context.Context, rel string) ([]byte, error) {
	data, err := s.files.Get(ctx, rel)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPropertyNotFound
	}
	return data, err
}
