package handler

import (
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"listing-service/pkg/config"
	"listing-service/pkg/logger"
	"listing-service/prometheus"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

var allowedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// UploadHandler accepts listing image uploads and serves back public URLs
type UploadHandler struct {
	cfg *config.UploadConfig
}

// NewUploadHandler creates an upload handler
func NewUploadHandler(cfg *config.UploadConfig) *UploadHandler {
	return &UploadHandler{cfg: cfg}
}

type uploadedFile struct {
	URL string `json:"url"`
}

// Upload handles a multipart upload of listing images. Enforces the
// per-request file count and per-file size limits; only image files are
// accepted.
func (h *UploadHandler) Upload(c echo.Context) error {
	log := logger.FromContext(c)

	form, err := c.MultipartForm()
	if err != nil {
		log.Error("Invalid multipart request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid upload request"})
	}

	files := form.File["files"]
	if len(files) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "No files provided"})
	}
	if len(files) > h.cfg.MaxFileCount {
		log.Warn("Too many files in upload", zap.Int("count", len(files)))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Too many files"})
	}

	if err := os.MkdirAll(h.cfg.Dir, 0o755); err != nil {
		log.Error("Failed to prepare upload directory", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Upload failed"})
	}

	uploaded := make([]uploadedFile, 0, len(files))
	for _, file := range files {
		if file.Size > h.cfg.MaxFileSize {
			log.Warn("File exceeds size limit",
				zap.String("filename", file.Filename),
				zap.Int64("size", file.Size))
			return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "File too large"})
		}

		ext := strings.ToLower(filepath.Ext(file.Filename))
		if !allowedImageExtensions[ext] {
			log.Warn("Rejected non-image upload", zap.String("filename", file.Filename))
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Only image files are accepted"})
		}

		name := uuid.NewString() + ext
		if err := h.save(file, filepath.Join(h.cfg.Dir, name)); err != nil {
			log.Error("Failed to store uploaded file",
				zap.String("filename", file.Filename),
				zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Upload failed"})
		}

		prometheus.UploadedFilesCounter.Inc()
		uploaded = append(uploaded, uploadedFile{URL: h.cfg.BaseURL + "/" + name})
	}

	log.Info("Upload completed", zap.Int("count", len(uploaded)))
	return c.JSON(http.StatusOK, echo.Map{"files": uploaded})
}

func (h *UploadHandler) save(file *multipart.FileHeader, dst string) error {
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, src)
	return err
}
