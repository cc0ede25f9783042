package gallery

import (
	"net/http"
	"strconv"

	"github.com/galerie-tech/galerie/core/render"
)

// fragmentHeader lets the frontend request a server-rendered HTML snippet
// instead of JSON.
const fragmentHeader = "X-Requested-Fragment"

const optionTemplate = `<option value="{{id}}">{{title}} ({{author}})</option>
`

const reviewTemplate = `<div class="review"><span class="review-author">{{first_name}} {{last_name}}</span> on <span class="review-painting">{{title}}</span><p>{{comment}}</p></div>
`

// singleValueConditions collects the request's query parameters into a
// filter map. Parameter arrays are rejected, the filters are simple
// key=value pairs.
func singleValueConditions(r *http.Request) (map[string]string, bool) {
	conditions := map[string]string{}
	for key, array := range r.URL.Query() {
		if len(array) > 1 {
			return nil, false
		}
		conditions[key] = array[0]
	}
	return conditions, true
}

func (b *Backend) listPaintings(w http.ResponseWriter, r *http.Request) {
	conditions, ok := singleValueConditions(r)
	if !ok {
		http.Error(w, "illegal parameter array", http.StatusBadRequest)
		return
	}
	rows, err := b.facade.Read(r.Context(), "painting", conditions, "", "", "")
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if r.Header.Get(fragmentHeader) == "options" {
		writeHTML(w, http.StatusOK, render.Rows(optionTemplate, rows))
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (b *Backend) listReviews(w http.ResponseWriter, r *http.Request) {
	conditions := map[string]string{}
	// only the foreign keys are filterable on the joined review listing
	for _, key := range []string{"id_p", "id_u"} {
		if value := r.URL.Query().Get(key); value != "" {
			if _, err := strconv.ParseInt(value, 10, 64); err != nil {
				http.Error(w, "invalid filter "+key, http.StatusBadRequest)
				return
			}
			conditions[key] = value
		}
	}
	rows, err := b.facade.Read(r.Context(), "review", conditions,
		"review.id, review.id_u, review.id_p, review.comment, review.date, "+
			"users.first_name, users.last_name, painting.title",
		"JOIN "+b.db.Schema+".users ON users.id = review.id_u "+
			"JOIN "+b.db.Schema+".painting ON painting.id = review.id_p",
		"review")
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if r.Header.Get(fragmentHeader) == "reviews" {
		writeHTML(w, http.StatusOK, render.Rows(reviewTemplate, rows))
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

type createReviewRequest struct {
	PaintingID int64  `json:"id_p"`
	Comment    string `json:"comment"`
}

func (b *Backend) createReview(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}
	var request createReviewRequest
	if err := readJSON(r, &request); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if request.PaintingID == 0 || request.Comment == "" {
		http.Error(w, "id_p and comment are required", http.StatusBadRequest)
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
	id, err := b.facade.Create(r.Context(), "review", map[string]interface{}{
		"id_u":    session.UserID,
		"id_p":    request.PaintingID,
		"comment": request.Comment,
	})
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"id": id})
}

func (b *Backend) listEvents(w http.ResponseWriter, r *http.Request) {
	events, err := b.facade.Read(r.Context(), "event", nil, "", "", "")
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	for _, event := range events {
		id, _ := event["id"].(int64)
		paintings, err := b.facade.Read(r.Context(), "event_paintings",
			map[string]string{"id_e": strconv.FormatInt(id, 10)},
			"painting.id, painting.title, painting.author, painting.price, painting.image",
			"JOIN "+b.db.Schema+".painting ON painting.id = event_paintings.id_p",
			"event_paintings")
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		event["paintings"] = paintings
	}
	writeJSON(w, http.StatusOK, events)
}
