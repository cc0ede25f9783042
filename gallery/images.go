package gallery

import (
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// uploadLimit caps painting image uploads at 8 MiB.
const uploadLimit = 8 << 20

// uploadPaintingImage stores an uploaded image and points the painting row
// at its public location.
func (b *Backend) uploadPaintingImage(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}
	paintingID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid painting id", http.StatusBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, uploadLimit)
	file, header, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "image file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	// a fresh key per upload, stale browser caches never show old images
	key := "painting-" + strconv.FormatInt(paintingID, 10) + "-" +
		uuid.New().String() + filepath.Ext(header.Filename)
	location, err := b.images.Save(r.Context(), key, file)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	count, err := b.facade.Update(r.Context(), "painting",
		map[string]interface{}{"image": location},
		map[string]interface{}{"id": paintingID})
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if count == 0 {
		b.images.Delete(r.Context(), key)
		http.Error(w, "unknown painting", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"image": location})
}
