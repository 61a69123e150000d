package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/saga/internal/entity"
	"github.com/starford/saga/internal/frontmatter"
)

const (
	imagesDir    = "Images"
	maxImageSize = 10 << 20
)

var (
	mimeToExt = map[string]string{
		"image/png":     ".png",
		"image/jpeg":    ".jpg",
		"image/gif":     ".gif",
		"image/webp":    ".webp",
		"image/svg+xml": ".svg",
	}

	unsafeNameRe = regexp.MustCompile(`[^\p{L}\p{N}._ -]`)
)

type imageResult struct {
	SavedPath     string `json:"savedPath"`
	MarkdownImage string `json:"markdownImage"`
	Entity        string `json:"entity,omitempty"`
}

// addImage stores a base64 data URI in the vault gallery and optionally makes
// it the profile image of an entity.
func (s *Server) addImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uri, err := req.RequireString("data")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, ext, err := decodeDataURI(uri)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(data) > maxImageSize {
		return mcp.NewToolResultError(fmt.Sprintf("image too large: %d bytes (max %d)", len(data), maxImageSize)), nil
	}
	if err := checkContent(data, ext); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	filename := sanitizeFilename(req.GetString("filename", ""), ext)
	savePath := path.Join(imagesDir, filename)
	if exists, _ := s.store.Exists(savePath); exists {
		return mcp.NewToolResultError(fmt.Sprintf("file already exists: %s", savePath)), nil
	}
	if err := s.store.Write(savePath, data); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to save image: %v", err)), nil
	}

	url := "/images/" + filename
	res := imageResult{SavedPath: url, MarkdownImage: fmt.Sprintf("![%s](%s)", filename, url)}

	if kindArg := req.GetString("kind", ""); kindArg != "" {
		kind, err := entity.ParseKind(kindArg)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		name := req.GetString("name", "")
		detail, err := s.svc.PatchFrontmatter(ctx, kind, name, frontmatter.Of("profileImagePath", url), "")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("image saved to %s but entity update failed: %v", url, err)), nil
		}
		res.Entity = detail.Path
	}

	out, _ := json.Marshal(res)
	return mcp.NewToolResultText(string(out)), nil
}

// decodeDataURI parses a data:<mediatype>;base64,<data> URI.
func decodeDataURI(uri string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, "", errors.New("data must be a base64 data URI")
	}
	meta, encoded, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", errors.New("invalid data URI: missing comma separator")
	}
	if !strings.HasSuffix(meta, ";base64") {
		return nil, "", errors.New("only base64 data URIs are supported")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", fmt.Errorf("invalid base64 data: %w", err)
		}
	}

	mime := strings.Split(strings.TrimSuffix(meta, ";base64"), ";")[0]
	ext := mimeToExt[mime]
	if ext == "" {
		return nil, "", fmt.Errorf("unsupported image type: %s", mime)
	}
	return data, ext, nil
}

// sanitizeFilename keeps letters, digits and a few separators, and forces the
// extension that matches the decoded content.
func sanitizeFilename(name, ext string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.TrimLeft(unsafeNameRe.ReplaceAllString(name, "_"), ".")
	if name == "" || name == "." {
		name = uuid.NewString()
	}
	return name + ext
}

// checkContent verifies the bytes look like the declared image type.
func checkContent(data []byte, ext string) error {
	if ext == ".svg" {
		prefix := data
		if len(prefix) > 1024 {
			prefix = prefix[:1024]
		}
		if !bytes.Contains(prefix, []byte("<svg")) {
			return errors.New("content does not appear to be a valid SVG (missing <svg tag)")
		}
		return nil
	}
	detected := strings.Split(http.DetectContentType(data), ";")[0]
	if mimeToExt[detected] != ext {
		return fmt.Errorf("content does not match %s (detected: %s)", ext, detected)
	}
	return nil
}
