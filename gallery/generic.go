package gallery

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/galerie-tech/galerie/core/registry"
)

// exposedTable resolves the {table} route variable against the registry.
// Unknown and unexposed tables both answer 404, the route does not reveal
// which tables exist.
func (b *Backend) exposedTable(w http.ResponseWriter, r *http.Request) *registry.Table {
	name := mux.Vars(r)["table"]
	t := b.facade.Registry().Lookup(name)
	if t == nil || !t.Exposed {
		http.Error(w, "unknown table", http.StatusNotFound)
		return nil
	}
	return t
}

func (b *Backend) genericRead(w http.ResponseWriter, r *http.Request) {
	t := b.exposedTable(w, r)
	if t == nil {
		return
	}
	conditions, ok := singleValueConditions(r)
	if !ok {
		http.Error(w, "illegal parameter array", http.StatusBadRequest)
		return
	}
	rows, err := b.facade.Read(r.Context(), t.Name, conditions, "", "", "")
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (b *Backend) genericCreate(w http.ResponseWriter, r *http.Request) {
	t := b.exposedTable(w, r)
	if t == nil {
		return
	}
	var payload map[string]interface{}
	if err := readJSON(r, &payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := b.facade.Registry().ValidateCreate(t.Name, payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id, err := b.facade.Create(r.Context(), t.Name, payload)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"id": id})
}

func (b *Backend) genericUpdate(w http.ResponseWriter, r *http.Request) {
	t := b.exposedTable(w, r)
	if t == nil {
		return
	}
	var payload map[string]interface{}
	if err := readJSON(r, &payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	id, ok := payload[t.Primary]
	if !ok {
		http.Error(w, t.Primary+" is required", http.StatusBadRequest)
		return
	}
	delete(payload, t.Primary)
	if len(payload) == 0 {
		http.Error(w, "nothing to update", http.StatusBadRequest)
		return
	}
	count, err := b.facade.Update(r.Context(), t.Name, payload,
		map[string]interface{}{t.Primary: id})
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"changes": count})
}

func (b *Backend) genericDelete(w http.ResponseWriter, r *http.Request) {
	t := b.exposedTable(w, r)
	if t == nil {
		return
	}
	values, ok := singleValueConditions(r)
	if !ok {
		http.Error(w, "illegal parameter array", http.StatusBadRequest)
		return
	}
	// an unconditional delete would wipe the table
	if len(values) == 0 {
		http.Error(w, "at least one condition is required", http.StatusBadRequest)
		return
	}
	conditions := make(map[string]interface{}, len(values))
	for key, value := range values {
		conditions[key] = value
	}
	count, err := b.facade.Delete(r.Context(), t.Name, conditions)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"changes": count})
}
