package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/saga/internal/checksum"
	"github.com/starford/saga/internal/entity"
	"github.com/starford/saga/internal/frontmatter"
	"github.com/starford/saga/internal/render"
	"github.com/starford/saga/internal/storyservice"
)

const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *storyservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *storyservice.Service) *Handler {
	return &Handler{svc: svc}
}

// entityRef extracts kind and name from the URL. Encoded names such as
// "Aria%20Vale" are unescaped.
func entityRef(r *http.Request) (entity.Kind, string, error) {
	kind, err := entity.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		return "", "", wrapValidationError(err)
	}
	raw := chi.URLParam(r, "name")
	name, err := url.PathUnescape(raw)
	if err != nil {
		name = raw
	}
	return kind, name, nil
}

// Kinds handles GET /api/kinds.
//
//	@Summary		List entity kinds and their schemas
//	@Tags			entities
//	@Produce		json
//	@Success		200	{array}	entity.Schema
//	@Router			/kinds [get]
func (h *Handler) Kinds(w http.ResponseWriter, _ *http.Request) {
	out := make([]entity.Schema, 0, len(entity.Kinds()))
	for _, k := range entity.Kinds() {
		out = append(out, entity.SchemaFor(k))
	}
	writeJSON(w, http.StatusOK, out)
}

// ListEntities handles GET /api/entities.
//
//	@Summary		List entities with optional kind filter and pagination
//	@Tags			entities
//	@Produce		json
//	@Param			kind	query		string	false	"Entity kind"
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	EntityListResponse
//	@Security		BearerAuth
//	@Router			/entities [get]
func (h *Handler) ListEntities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	var kind entity.Kind
	if s := q.Get("kind"); s != "" {
		k, err := entity.ParseKind(s)
		if err != nil {
			writeError(w, "list entities", wrapValidationError(err))
			return
		}
		kind = k
	}

	items, total, err := h.svc.List(r.Context(), kind, limit, offset)
	if err != nil {
		writeError(w, "list entities", err)
		return
	}
	writeJSON(w, http.StatusOK, EntityListResponse{Entities: items, Total: total})
}

// GetEntity handles GET /api/entities/{kind}/{name}.
//
//	@Summary		Get a single entity
//	@Tags			entities
//	@Produce		json
//	@Param			kind	path		string	true	"Entity kind"
//	@Param			name	path		string	true	"Entity name"
//	@Param			format	query		string	false	"Set to html to render sections"
//	@Success		200		{object}	EntityDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entities/{kind}/{name} [get]
func (h *Handler) GetEntity(w http.ResponseWriter, r *http.Request) {
	kind, name, err := entityRef(r)
	if err != nil {
		writeError(w, "get entity", err)
		return
	}
	detail, err := h.svc.Get(r.Context(), kind, name)
	if err != nil {
		writeError(w, "get entity", err, slog.String("name", name))
		return
	}
	w.Header().Set("ETag", checksum.ETag(detail.Checksum))
	if r.URL.Query().Get("format") == "html" {
		html, err := render.Sections(detail.Entity.Sections)
		if err != nil {
			writeError(w, "render entity", err, slog.String("path", detail.Path))
			return
		}
		writeJSON(w, http.StatusOK, EntityHTMLResponse{EntityDetail: detail, HTML: html})
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// CreateEntity handles POST /api/entities.
//
//	@Summary		Create a new entity
//	@Tags			entities
//	@Accept			json
//	@Produce		json
//	@Param			body	body		EntityRequest	true	"Entity to create"
//	@Success		201		{object}	EntityDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entities [post]
func (h *Handler) CreateEntity(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req EntityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, "create entity", err)
		return
	}
	detail, err := h.svc.Create(r.Context(), req.Entity())
	if err != nil {
		writeError(w, "create entity", err, slog.String("name", req.Name))
		return
	}
	w.Header().Set("ETag", checksum.ETag(detail.Checksum))
	writeJSON(w, http.StatusCreated, detail)
}

// UpdateEntity handles PUT /api/entities/{kind}/{name}.
//
//	@Summary		Replace an entity with optimistic concurrency
//	@Tags			entities
//	@Accept			json
//	@Produce		json
//	@Param			kind		path	string			true	"Entity kind"
//	@Param			name		path	string			true	"Entity name"
//	@Param			If-Match	header	string			false	"Checksum from a previous read"
//	@Param			body		body	EntityRequest	true	"Updated entity"
//	@Success		200		{object}	EntityDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entities/{kind}/{name} [put]
func (h *Handler) UpdateEntity(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	kind, name, err := entityRef(r)
	if err != nil {
		writeError(w, "update entity", err)
		return
	}
	var req EntityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	req.Kind = string(kind)
	if err := req.Validate(); err != nil {
		writeError(w, "update entity", err)
		return
	}

	detail, err := h.svc.Update(r.Context(), kind, name, req.Entity(), r.Header.Get("If-Match"))
	if err != nil {
		writeError(w, "update entity", err, slog.String("name", name))
		return
	}
	w.Header().Set("ETag", checksum.ETag(detail.Checksum))
	writeJSON(w, http.StatusOK, detail)
}

// PatchFrontmatter handles PATCH /api/entities/{kind}/{name}/frontmatter.
// The body is a JSON object merged into the stored frontmatter; a null value
// removes the key. Sections are left untouched.
//
//	@Summary		Merge keys into an entity's frontmatter
//	@Tags			entities
//	@Accept			json
//	@Produce		json
//	@Param			kind		path	string	true	"Entity kind"
//	@Param			name		path	string	true	"Entity name"
//	@Param			If-Match	header	string	false	"Checksum from a previous read"
//	@Success		200		{object}	EntityDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entities/{kind}/{name}/frontmatter [patch]
func (h *Handler) PatchFrontmatter(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	kind, name, err := entityRef(r)
	if err != nil {
		writeError(w, "patch frontmatter", err)
		return
	}
	patch := frontmatter.NewRecord()
	if err := json.NewDecoder(r.Body).Decode(patch); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("body must be a JSON object"))
		return
	}
	for _, k := range patch.Keys() {
		if v, _ := patch.Get(k); v == nil {
			patch.Set(k, frontmatter.Absent)
		}
	}

	detail, err := h.svc.PatchFrontmatter(r.Context(), kind, name, patch, r.Header.Get("If-Match"))
	if err != nil {
		writeError(w, "patch frontmatter", err, slog.String("name", name))
		return
	}
	w.Header().Set("ETag", checksum.ETag(detail.Checksum))
	writeJSON(w, http.StatusOK, detail)
}

// DeleteEntity handles DELETE /api/entities/{kind}/{name}.
//
//	@Summary		Delete an entity
//	@Tags			entities
//	@Param			kind	path	string	true	"Entity kind"
//	@Param			name	path	string	true	"Entity name"
//	@Success		204		"Entity deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entities/{kind}/{name} [delete]
func (h *Handler) DeleteEntity(w http.ResponseWriter, r *http.Request) {
	kind, name, err := entityRef(r)
	if err != nil {
		writeError(w, "delete entity", err)
		return
	}
	if err := h.svc.Delete(r.Context(), kind, name); err != nil {
		writeError(w, "delete entity", err, slog.String("name", name))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Backlinks handles GET /api/entities/{kind}/{name}/backlinks.
//
//	@Summary		List documents linking to an entity
//	@Tags			entities
//	@Produce		json
//	@Success		200	{object}	BacklinksResponse
//	@Security		BearerAuth
//	@Router			/entities/{kind}/{name}/backlinks [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	_, name, err := entityRef(r)
	if err != nil {
		writeError(w, "backlinks", err)
		return
	}
	bl, err := h.svc.Backlinks(r.Context(), name)
	if err != nil {
		writeError(w, "backlinks", err, slog.String("name", name))
		return
	}
	writeJSON(w, http.StatusOK, BacklinksResponse{Backlinks: bl})
}

// Timeline handles GET /api/timeline.
//
//	@Summary		Dated entities in story order
//	@Tags			timeline
//	@Produce		json
//	@Param			kind	query		string	false	"Entity kind"
//	@Success		200		{object}	TimelineResponse
//	@Security		BearerAuth
//	@Router			/timeline [get]
func (h *Handler) Timeline(w http.ResponseWriter, r *http.Request) {
	var kind entity.Kind
	if s := r.URL.Query().Get("kind"); s != "" {
		k, err := entity.ParseKind(s)
		if err != nil {
			writeError(w, "timeline", wrapValidationError(err))
			return
		}
		kind = k
	}
	entries, err := h.svc.Timeline(r.Context(), kind)
	if err != nil {
		writeError(w, "timeline", err)
		return
	}
	writeJSON(w, http.StatusOK, TimelineResponse{Entries: entries})
}

// ParseDate handles POST /api/dates/parse.
//
//	@Summary		Parse a free-form story date
//	@Tags			timeline
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ParseDateRequest	true	"Date text"
//	@Success		200		{object}	eventdate.Result
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/dates/parse [post]
func (h *Handler) ParseDate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
	var req ParseDateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, "parse date", err)
		return
	}
	res := h.svc.ParseDate(r.Context(), req.Text)
	writeJSON(w, http.StatusOK, map[string]any{
		"result":  res,
		"display": res.Display(h.svc.Config().Locale),
	})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across entities
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err, slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
