package handler

import (
	"context"
	"net/http"

	"redcode-api/pkg/apierror"
	"redcode-api/pkg/response"
)

// ImageFetcher downloads the image for an asset id.
type ImageFetcher interface {
	FetchImage(ctx context.Context, assetID string) ([]byte, string, error)
}

// ThumbnailHandler proxies item thumbnails so browsers never see the
// lookup API credentials.
type ThumbnailHandler struct {
	images ImageFetcher
}

// NewThumbnailHandler creates a new thumbnail proxy handler.
func NewThumbnailHandler(images ImageFetcher) *ThumbnailHandler {
	return &ThumbnailHandler{images: images}
}

// Get handles GET /api/thumbnail?assetId=
func (h *ThumbnailHandler) Get(w http.ResponseWriter, r *http.Request) {
	assetID := r.URL.Query().Get("assetId")
	if assetID == "" {
		response.Error(w, apierror.BadRequest("Asset ID required"))
		return
	}

	data, contentType, err := h.images.FetchImage(r.Context(), assetID)
	if err != nil {
		response.Error(w, toAPIError(err))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
