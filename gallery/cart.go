package gallery

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

type addToCartRequest struct {
	PaintingID int64 `json:"id_p"`
}

// cartItemID builds the generated composite identifier of a cart row. One
// user can hold one cart entry per painting.
func cartItemID(userID, paintingID int64) string {
	return fmt.Sprintf("%d_%d", userID, paintingID)
}

func (b *Backend) addToCart(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}
	var request addToCartRequest
	if err := readJSON(r, &request); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if request.PaintingID == 0 {
		http.Error(w, "id_p is required", http.StatusBadRequest)
		return
	}
	paintings, err := b.facade.Read(r.Context(), "painting",
		map[string]string{"id": strconv.FormatInt(request.PaintingID, 10)}, "id", "", "")
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if len(paintings) == 0 {
		http.Error(w, "unknown painting", http.StatusNotFound)
		return
	}
	id, err := b.facade.Create(r.Context(), "shopping_cart", map[string]interface{}{
		"id":   cartItemID(session.UserID, request.PaintingID),
		"id_u": session.UserID,
		"id_p": request.PaintingID,
	})
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"id": id})
}

func (b *Backend) listCart(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}
	rows, err := b.facade.Read(r.Context(), "shopping_cart",
		map[string]string{"id_u": strconv.FormatInt(session.UserID, 10)},
		"shopping_cart.id, shopping_cart.id_u, shopping_cart.id_p, shopping_cart.added_at, "+
			"painting.title, painting.price, painting.image",
		"JOIN "+b.db.Schema+".painting ON painting.id = shopping_cart.id_p",
		"shopping_cart")
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (b *Backend) deleteFromCart(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}
	id := mux.Vars(r)["id"]
	// the session's user id is part of the condition, nobody can clear
	// another user's cart rows
	count, err := b.facade.Delete(r.Context(), "shopping_cart", map[string]interface{}{
		"id":   id,
		"id_u": session.UserID,
	})
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": count})
}
