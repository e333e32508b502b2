package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/trgovina/internal/imaging"
	"github.com/erazemk/trgovina/internal/model"
	"github.com/erazemk/trgovina/internal/store"
)

// PicturesHandler handles item picture endpoints.
type PicturesHandler struct {
	DB *sql.DB
}

// Upload handles POST /items/{id}/pictures.
func (h *PicturesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	itemID := r.PathValue("id")

	// Leave room for the multipart framing around the image.
	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadSize+64<<10)

	if err := r.ParseMultipartForm(imaging.MaxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, http.StatusRequestEntityTooLarge, "image too large")
			return
		}
		jsonError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	result, err := imaging.Process(file)
	if err != nil {
		switch {
		case errors.Is(err, imaging.ErrTooLarge):
			jsonError(w, http.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, imaging.ErrUnsupportedFormat):
			jsonError(w, http.StatusBadRequest, err.Error())
		default:
			slog.Error("failed to process image", "error", err)
			jsonError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	pic, err := store.CreatePicture(r.Context(), h.DB, itemID, result.Data, result.MIME, result.Width, result.Height)
	if err != nil {
		storeError(w, err, "save picture")
		return
	}

	slog.Info("picture uploaded", "user", GetClaims(r.Context()).Email, "item", itemID,
		"picture", pic.UUID, "bytes", len(result.Data))
	jsonResponse(w, http.StatusCreated, pic)
}

// List handles GET /items/{id}/pictures.
func (h *PicturesHandler) List(w http.ResponseWriter, r *http.Request) {
	itemID := r.PathValue("id")

	item, err := store.GetItem(r.Context(), h.DB, itemID)
	if err != nil {
		storeError(w, err, "get item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	pictures, err := store.ListItemPictures(r.Context(), h.DB, itemID)
	if err != nil {
		storeError(w, err, "list pictures")
		return
	}
	if pictures == nil {
		pictures = []model.Picture{}
	}
	jsonResponse(w, http.StatusOK, pictures)
}

// Get handles GET /pictures/{id} and serves the image bytes.
func (h *PicturesHandler) Get(w http.ResponseWriter, r *http.Request) {
	pic, err := store.GetPicture(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		storeError(w, err, "get picture")
		return
	}
	if pic == nil {
		jsonError(w, http.StatusNotFound, "picture not found")
		return
	}

	w.Header().Set("Content-Type", pic.MIME)
	w.Header().Set("Content-Length", strconv.Itoa(len(pic.Data)))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(pic.Data)
}

// Delete handles DELETE /pictures/{id}.
func (h *PicturesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := store.DeletePicture(r.Context(), h.DB, id); err != nil {
		storeError(w, err, "delete picture")
		return
	}

	slog.Info("picture deleted", "user", GetClaims(r.Context()).Email, "picture", id)
	w.WriteHeader(http.StatusNoContent)
}
