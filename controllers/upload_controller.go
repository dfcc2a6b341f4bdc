package controllers

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vapecity/vapecity-api/services"
	"github.com/vapecity/vapecity-api/utils"
)

// GetUploadedFile handles GET /uploads/*path. Local storage serves the file
// from disk; S3 storage redirects to a short-lived signed URL.
func GetUploadedFile(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("path"), "/")
	if key == "" {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Filename is required")
		return
	}

	// Security: Prevent directory traversal attacks
	if strings.Contains(key, "..") || strings.Contains(key, "\\") {
		respondError(c, http.StatusBadRequest, "INVALID_FILENAME", "Invalid filename")
		return
	}

	storage := services.GetFileStorage()
	switch s := storage.(type) {
	case services.LocalPather:
		path, ok := s.LocalPath(key)
		if !ok {
			respondError(c, http.StatusBadRequest, "INVALID_FILENAME", "Invalid filename")
			return
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			respondError(c, http.StatusNotFound, "FILE_NOT_FOUND", "File not found")
			return
		}
		if ct := contentTypeFor(key); ct != "" {
			c.Header("Content-Type", ct)
		}
		c.Header("Cache-Control", "public, max-age=86400") // Cache for 24 hours
		c.File(path)
	case services.URLSigner:
		url, err := s.SignedURL(c.Request.Context(), key)
		if err != nil {
			respondServiceError(c, err, "Failed to sign upload URL")
			return
		}
		c.Redirect(http.StatusFound, url)
	default:
		respondError(c, http.StatusNotFound, "FILE_NOT_FOUND", "File not found")
	}
}

var imageContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
	".heic": "image/heic",
	".heif": "image/heif",
}

func contentTypeFor(key string) string {
	return imageContentTypes[utils.Extension(key)]
}
