// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes saga entity tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/saga/internal/apperr"
	"github.com/starford/saga/internal/entity"
	"github.com/starford/saga/internal/frontmatter"
	"github.com/starford/saga/internal/sections"
	"github.com/starford/saga/internal/storage"
	"github.com/starford/saga/internal/storyservice"
)

// ContractURI is the resource URI of the entity format contract.
const ContractURI = "saga://entity-format"

// Server wraps the MCP server with saga tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *storyservice.Service
	store storage.Provider
}

// New creates a new MCP server with all saga tools registered.
func New(svc *storyservice.Service, store storage.Provider, version string) *Server {
	s := &Server{svc: svc, store: store}

	s.mcp = server.NewMCPServer(
		"Saga",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_entities",
		mcp.WithDescription("List story entities, optionally filtered by kind."),
		mcp.WithString("kind", mcp.Description("Entity kind: "+kindList())),
		mcp.WithNumber("limit", mcp.Description("Maximum number of entities (default 50)")),
		mcp.WithNumber("offset", mcp.Description("Number of entities to skip")),
	), s.listEntities)

	s.mcp.AddTool(mcp.NewTool("read_entity",
		mcp.WithDescription("Read one entity: frontmatter fields, custom fields, sections and backlinks."),
		mcp.WithString("kind", mcp.Required(), mcp.Description("Entity kind: "+kindList())),
		mcp.WithString("name", mcp.Required(), mcp.Description("Entity name, e.g. Aria Vale")),
	), s.readEntity)

	s.mcp.AddTool(mcp.NewTool("save_entity",
		mcp.WithDescription("Create or update an entity. Existing frontmatter keys and their order are kept. "+
			"Read the contract first via get_entity_contract or the "+ContractURI+" resource."),
		mcp.WithString("kind", mcp.Required(), mcp.Description("Entity kind: "+kindList())),
		mcp.WithString("name", mcp.Required(), mcp.Description("Current entity name (the file name)")),
		mcp.WithString("entity", mcp.Required(), mcp.Description(
			`JSON object: {"name": "...", "fields": {...}, "customFields": {...}, "sections": {"Description": "..."}}`)),
		mcp.WithString("checksum", mcp.Description("Checksum from read_entity; the save fails if the file changed since")),
	), s.saveEntity)

	s.mcp.AddTool(mcp.NewTool("timeline",
		mcp.WithDescription("Dated entities in story order. BCE dates come first."),
		mcp.WithString("kind", mcp.Description("Optional kind filter, usually event")),
	), s.timeline)

	s.mcp.AddTool(mcp.NewTool("parse_date",
		mcp.WithDescription("Parse a free-form story date such as '15 March 44 BC' or 'circa 1066'."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Date text")),
	), s.parseDate)

	s.mcp.AddTool(mcp.NewTool("search_entities",
		mcp.WithDescription("Full-text search through entity names, sections and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchEntities)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all documents that link to the named entity."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Entity name")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("add_image",
		mcp.WithDescription("Store an image in the vault gallery. Optionally set it as an entity's profile image."),
		mcp.WithString("data", mcp.Required(), mcp.Description("Base64 data URI, e.g. data:image/png;base64,...")),
		mcp.WithString("filename", mcp.Description("Preferred file name")),
		mcp.WithString("kind", mcp.Description("Kind of the entity to attach the image to")),
		mcp.WithString("name", mcp.Description("Name of the entity to attach the image to")),
	), s.addImage)

	s.mcp.AddTool(mcp.NewTool("get_entity_contract",
		mcp.WithDescription("Returns the saga entity format contract. "+
			"Call this before saving entities to ensure correct structure."),
	), s.getEntityContract)

	s.mcp.AddResource(
		mcp.NewResource(ContractURI, "Entity Format Contract",
			mcp.WithResourceDescription("Markdown format and per-kind schema of story entities."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func kindList() string {
	kinds := entity.Kinds()
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return strings.Join(out, ", ")
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func optionalKind(req mcp.CallToolRequest) (entity.Kind, error) {
	s := req.GetString("kind", "")
	if s == "" {
		return "", nil
	}
	return entity.ParseKind(s)
}

func (s *Server) listEntities(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := optionalKind(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	items, total, err := s.svc.List(ctx, kind, req.GetInt("limit", 50), req.GetInt("offset", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"entities": items, "total": total}), nil
}

func (s *Server) readEntity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kindArg, err := req.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind, err := entity.ParseKind(kindArg)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.svc.Get(ctx, kind, name)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", entity.PathFor(kind, name))), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(detail), nil
}

// entityInput is the JSON shape accepted by save_entity.
type entityInput struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Fields       *frontmatter.Record `json:"fields"`
	CustomFields *frontmatter.Record `json:"customFields"`
	Sections     sections.Map        `json:"sections"`
}

func (s *Server) saveEntity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kindArg, err := req.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("entity")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind, err := entity.ParseKind(kindArg)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var in entityInput
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid entity JSON: %v", err)), nil
	}
	if in.Name == "" {
		in.Name = name
	}
	e := &entity.Entity{
		Kind:         kind,
		ID:           in.ID,
		Name:         in.Name,
		Fields:       in.Fields,
		CustomFields: in.CustomFields,
		Sections:     in.Sections,
	}

	detail, err := s.svc.Update(ctx, kind, name, e, req.GetString("checksum", ""))
	if errors.Is(err, apperr.ErrNotFound) {
		detail, err = s.svc.Create(ctx, e)
		if err == nil {
			return mcp.NewToolResultText(fmt.Sprintf("created: %s (checksum %s)", detail.Path, detail.Checksum)), nil
		}
	}
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return mcp.NewToolResultError("checksum mismatch: the entity changed, read it again"), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s (checksum %s)", detail.Path, detail.Checksum)), nil
}

func (s *Server) timeline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := optionalKind(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entries, err := s.svc.Timeline(ctx, kind)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("no dated entities"), nil
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s\t%s\t%s\n", e.Display, e.Kind, e.Name)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) parseDate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res := s.svc.ParseDate(ctx, text)
	if !res.OK() {
		return mcp.NewToolResultError(fmt.Sprintf("could not parse %q: %s", text, res.Error)), nil
	}
	return jsonResult(map[string]any{
		"result":  res,
		"display": res.Display(s.svc.Config().Locale),
	}), nil
}

func (s *Server) searchEntities(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.Backlinks(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func (s *Server) getEntityContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(EntityFormatContract()), nil
}

func (s *Server) readContractResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ContractURI,
			MIMEType: "text/markdown",
			Text:     EntityFormatContract(),
		},
	}, nil
}
