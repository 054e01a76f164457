package storage

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront-gateway/internal/common"
	"github.com/noah-isme/storefront-gateway/internal/obs"
)

// maxUploadBytes caps a single multipart upload.
const maxUploadBytes = 10 << 20

// Handler exposes the two upload surfaces the consoles use: product images
// keyed by vendor and store logos keyed by slug.
type Handler struct {
	Uploads      *Uploader
	BucketImages string
	BucketLogos  string
	Logger       *zerolog.Logger
}

// ProductImage handles POST /uploads/productos/{vendedorID}.
func (h *Handler) ProductImage(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, h.BucketImages, "vendedores/"+chi.URLParam(r, "vendedorID"))
}

// StoreLogo handles POST /uploads/tiendas/{slug}.
func (h *Handler) StoreLogo(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, h.BucketLogos, "tiendas/"+chi.URLParam(r, "slug"))
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request, bucket, dir string) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		countUpload(bucket, "rejected")
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "multipart field 'file' is required", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		countUpload(bucket, "rejected")
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "could not read upload", nil)
		return
	}
	if len(data) == 0 {
		countUpload(bucket, "rejected")
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "empty file", nil)
		return
	}

	url, err := h.Uploads.Upload(r.Context(), bucket, dir, header.Filename, data)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error().Err(err).Str("bucket", bucket).Msg("upload failed")
		}
		countUpload(bucket, "error")
		common.JSONError(w, http.StatusBadGateway, "STORAGE", "upload failed", nil)
		return
	}
	countUpload(bucket, "ok")
	common.JSON(w, http.StatusCreated, map[string]any{"data": map[string]string{"url": url}})
}

func countUpload(bucket, result string) {
	if obs.UploadsTotal == nil {
		return
	}
	obs.UploadsTotal.WithLabelValues(bucket, result).Inc()
}
