package handler

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var errFileTooLarge = errors.New("file too large")

// UploadConfig controls where multipart files are staged before they go to the media host
type UploadConfig struct {
	TempDir     string
	MaxFileSize int64
}

// stageUpload saves the multipart field to the temp dir under a random name.
// It returns an empty path when the field is absent. The returned cleanup removes the staged file.
func (u UploadConfig) stageUpload(c *gin.Context, field string) (string, func(), error) {
	noop := func() {}

	file, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", noop, nil
		}
		return "", noop, fmt.Errorf("failed to read %s: %w", field, err)
	}

	if u.MaxFileSize > 0 && file.Size > u.MaxFileSize {
		return "", noop, errFileTooLarge
	}

	dst := filepath.Join(u.TempDir, uuid.NewString()+strings.ToLower(filepath.Ext(file.Filename)))
	if err := c.SaveUploadedFile(file, dst); err != nil {
		return "", noop, fmt.Errorf("failed to stage %s: %w", field, err)
	}

	return dst, func() { _ = os.Remove(dst) }, nil
}

func respondUploadError(c *gin.Context, err error) {
	if errors.Is(err, errFileTooLarge) {
		respondMessage(c, http.StatusBadRequest, "File is too large")
		return
	}
	_ = c.Error(err)
	respondMessage(c, http.StatusBadRequest, "Invalid file upload")
}
