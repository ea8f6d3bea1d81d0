package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dapoer-buffet-services/internal/utils"
	"dapoer-buffet-services/pkg/response"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	uploadMaxSide      = 1600
	uploadThumbSize    = 400
	uploadJpegQuality  = 85
	uploadThumbQuality = 80
)

var uploadTargets = map[string]string{
	"meal":    "meals",
	"package": "packages",
}

// AdminUploadImage accepts a multipart image for a meal or package,
// re-encodes it as JPEG with a square thumbnail, stores both objects and
// writes the public URLs onto the target row. Old images are removed on a
// best-effort basis.
func (h *Handler) AdminUploadImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Store == nil {
		response.Error(w, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Object storage is not configured")
		return
	}

	target := strings.ToLower(readPathString(r, "target"))
	table, ok := uploadTargets[target]
	if !ok {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Upload target must be meal or package")
		return
	}

	id, err := readPathInt64(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.Config.MaxFileSizeBytes)
	if err := r.ParseMultipartForm(h.Config.MaxFileSizeBytes); err != nil {
		response.Error(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "Image exceeds the upload size limit")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "An image file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Failed to read image")
		return
	}

	contentType := utils.DetectContentType(data)
	if !utils.ValidateImageContentType(contentType) {
		response.Error(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_IMAGE_TYPE", "Only JPEG, PNG, WebP and GIF images are accepted")
		return
	}

	full, meta, err := utils.EncodeJpegFitInside(data, uploadMaxSide, uploadJpegQuality)
	if err != nil {
		h.Logger.Warn("image encode failed", zap.String("filename", header.Filename), zap.Error(err))
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Image could not be decoded")
		return
	}
	thumb, _, err := utils.EncodeJpegCoverSquare(data, uploadThumbSize, uploadThumbQuality)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Image could not be decoded")
		return
	}

	var oldURL, oldThumbURL *string
	query := fmt.Sprintf(`select image_url, image_thumb_url from %s where id = $1 and deleted_at is null`, table)
	if err := h.DB.QueryRow(ctx, query, id).Scan(&oldURL, &oldThumbURL); err != nil {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Target record not found")
		return
	}

	stamp := time.Now().UTC().Format("20060102150405")
	base := fmt.Sprintf("%s/%d/%s-%s", table, id, stamp, strings.ToLower(uuid.NewString()[:8]))

	imageURL, err := h.Store.PutObject(ctx, base+".jpg", full, "image/jpeg")
	if err != nil {
		h.Logger.Error("image upload failed", zap.String("key", base+".jpg"), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to store image")
		return
	}
	thumbURL, err := h.Store.PutObject(ctx, base+"_thumb.jpg", thumb, "image/jpeg")
	if err != nil {
		h.Logger.Error("thumbnail upload failed", zap.String("key", base+"_thumb.jpg"), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to store image")
		return
	}

	update := fmt.Sprintf(`update %s set image_url = $2, image_thumb_url = $3, updated_at = now() where id = $1`, table)
	if _, err := h.DB.Exec(ctx, update, id, imageURL, thumbURL); err != nil {
		h.Logger.Error("image url update failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to store image")
		return
	}

	for _, old := range []*string{oldURL, oldThumbURL} {
		if old == nil || *old == "" {
			continue
		}
		if err := h.Store.DeleteURL(ctx, *old); err != nil {
			h.Logger.Warn("old image delete failed", zap.String("url", *old), zap.Error(err))
		}
	}

	response.Success(w, map[string]any{
		"imageUrl":      imageURL,
		"imageThumbUrl": thumbURL,
		"source":        meta,
	})
}
