package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"senyas/internal/models"
	"senyas/internal/service/assistant"
	"senyas/internal/storage"
)

type Dispatcher interface {
	HandleMessage(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
}

type Uploader interface {
	Save(fh *multipart.FileHeader, tag string) (*models.UploadedFile, error)
}

// Handler wires HTTP routes to the dispatcher and the upload store.
type Handler struct {
	dispatcher Dispatcher
	uploads    Uploader
	catalog    storage.Catalog
	publicDir  string
}

// NewHandler constructs a Handler instance. A nil catalog disables metadata lookups.
func NewHandler(dispatcher Dispatcher, uploads Uploader, catalog storage.Catalog, publicDir string) *Handler {
	if catalog == nil {
		catalog = storage.NoopCatalog{}
	}
	return &Handler{
		dispatcher: dispatcher,
		uploads:    uploads,
		catalog:    catalog,
		publicDir:  publicDir,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/", h.root)
	router.HEAD("/", h.root)
	router.GET("/health", h.health)
	router.HEAD("/health", h.health)
	api := router.Group("/api")
	api.POST("/chat", h.chat)
	api.POST("/upload", h.upload)
	api.GET("/uploads/:name", h.uploadInfo)
	router.NoRoute(h.serveStatic)
}

func (h *Handler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Senyas Backend API is running"})
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// decodeChatBody reads the chat payload. An empty body or a non-JSON
// content type yields an empty payload; only broken JSON is an error.
func decodeChatBody(c *gin.Context) (map[string]any, error) {
	if c.ContentType() != binding.MIMEJSON {
		return map[string]any{}, nil
	}
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	fields, ok := raw.(map[string]any)
	if !ok {
		return map[string]any{}, nil
	}
	return fields, nil
}

func (h *Handler) chat(c *gin.Context) {
	body, err := decodeChatBody(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	// non-string types are reported as invalid types
	msgType, _ := body["type"].(string)
	resp, err := h.dispatcher.HandleMessage(c.Request.Context(), models.ChatRequest{
		Message: body["message"],
		Type:    models.MessageType(msgType),
	})
	if err != nil {
		if errors.Is(err, assistant.ErrInvalidMessageType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message type"})
			return
		}
		slog.ErrorContext(c.Request.Context(), "error processing message", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil && !isMissingFile(err) {
		slog.ErrorContext(c.Request.Context(), "error uploading file", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error uploading file"})
		return
	}
	tag, hasTag := c.GetPostForm("type")

	saved, err := h.uploads.Save(fh, tag)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrMissingFile):
			c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		case errors.Is(err, storage.ErrFileTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
		default:
			slog.ErrorContext(c.Request.Context(), "error uploading file", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error uploading file"})
		}
		return
	}
	if err := h.catalog.Record(c.Request.Context(), saved); err != nil {
		slog.WarnContext(c.Request.Context(), "record upload failed", "stored_name", saved.StoredName, "error", err)
	}
	slog.InfoContext(c.Request.Context(), "file uploaded",
		"stored_name", saved.StoredName,
		"size", humanize.Bytes(uint64(saved.SizeBytes)),
		"mime", saved.MimeType,
	)

	resp := gin.H{"url": saved.URL}
	if hasTag {
		resp["type"] = tag
	}
	c.JSON(http.StatusOK, resp)
}

func isMissingFile(err error) bool {
	return errors.Is(err, http.ErrMissingFile) ||
		errors.Is(err, http.ErrNotMultipart) ||
		errors.Is(err, http.ErrMissingBoundary)
}

func (h *Handler) uploadInfo(c *gin.Context) {
	file, err := h.catalog.Lookup(c.Request.Context(), c.Param("name"))
	if err != nil {
		if errors.Is(err, storage.ErrUploadNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Upload not found"})
			return
		}
		slog.ErrorContext(c.Request.Context(), "lookup upload failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"original_name": file.OriginalName,
		"stored_name":   file.StoredName,
		"size_bytes":    file.SizeBytes,
		"mime_type":     file.MimeType,
		"url":           file.URL,
		"type":          file.Type,
		"created_at":    file.CreatedAt,
	})
}

// serveStatic serves regular files from the public directory for any GET or
// HEAD request no route matched. Directories are never listed and dotfiles
// are never served.
func (h *Handler) serveStatic(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	rel := path.Clean("/" + c.Request.URL.Path)
	if hasDotSegment(rel) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	full := filepath.Join(h.publicDir, filepath.FromSlash(rel))
	info, err := os.Stat(full)
	if err == nil && info.IsDir() {
		full = filepath.Join(full, "index.html")
		info, err = os.Stat(full)
	}
	if err != nil || info.IsDir() {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	c.File(full)
}

func hasDotSegment(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}
