package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"

	"github.com/starford/saga/internal/entity"
	"github.com/starford/saga/internal/frontmatter"
	"github.com/starford/saga/internal/models"
	"github.com/starford/saga/internal/render"
	"github.com/starford/saga/internal/sections"
	"github.com/starford/saga/internal/storyservice"
)

const entityValidationCode = "ENTITY_VALIDATION_FAILED"

// EntityRequest is the request body for creating or replacing an entity.
// Kind may be omitted on PUT; the URL kind wins.
type EntityRequest struct {
	Kind         string              `json:"kind" example:"character"`
	ID           string              `json:"id,omitempty" example:"3f1c..."`
	Name         string              `json:"name" example:"Aria Vale" validate:"required"`
	Fields       *frontmatter.Record `json:"fields,omitempty"`
	CustomFields *frontmatter.Record `json:"customFields,omitempty"`
	Sections     sections.Map        `json:"sections"`
}

// Validate checks the request shape.
func (r *EntityRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.Kind, validation.Required, validation.By(func(v any) error {
			_, err := entity.ParseKind(v.(string))
			return err
		})),
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
	)
	return wrapValidationError(err)
}

// Entity converts the request into a domain entity.
func (r *EntityRequest) Entity() *entity.Entity {
	kind, _ := entity.ParseKind(r.Kind)
	e := &entity.Entity{
		Kind:         kind,
		ID:           r.ID,
		Name:         r.Name,
		Fields:       r.Fields,
		CustomFields: r.CustomFields,
		Sections:     r.Sections,
	}
	if e.Fields == nil {
		e.Fields = frontmatter.NewRecord()
	}
	if e.CustomFields == nil {
		e.CustomFields = frontmatter.NewRecord()
	}
	return e
}

// ParseDateRequest is the request body for POST /api/dates/parse.
type ParseDateRequest struct {
	Text string `json:"text" example:"circa 44 BC" validate:"required"`
}

// Validate checks the request shape.
func (r *ParseDateRequest) Validate() error {
	return wrapValidationError(validation.ValidateStruct(r,
		validation.Field(&r.Text, validation.Required),
	))
}

func wrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, "entity validation failed: "+err.Error()).
		WithTextCode(entityValidationCode)
}

// EntityDetail is the full entity response type (aliased from the domain layer).
type EntityDetail = storyservice.EntityDetail

// EntityHTMLResponse is returned for ?format=html; section bodies are
// rendered and sanitized.
type EntityHTMLResponse struct {
	*EntityDetail
	HTML []render.Section `json:"html"`
}

// EntityListResponse wraps paginated entity listings.
type EntityListResponse struct {
	Entities []models.EntitySummary `json:"entities" validate:"required"`
	Total    int                    `json:"total" example:"42" validate:"required"`
}

// TimelineResponse wraps the ordered timeline.
type TimelineResponse struct {
	Entries []models.TimelineEntry `json:"entries" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []models.SearchHit `json:"results" validate:"required"`
}

// BacklinksResponse lists the documents linking to an entity.
type BacklinksResponse struct {
	Backlinks []string `json:"backlinks" validate:"required"`
}

// ImageUploadResponse is returned after a successful gallery upload.
type ImageUploadResponse struct {
	Filename string `json:"filename" example:"map.png" validate:"required"`
	Size     int64  `json:"size" example:"12345" validate:"required"`
	URL      string `json:"url" example:"/images/map.png" validate:"required"`
}
