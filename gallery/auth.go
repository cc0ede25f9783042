package gallery

import (
	"net/http"

	"github.com/galerie-tech/galerie/core/access"
	"github.com/galerie-tech/galerie/core/logger"
)

type registerRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Phone     string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var request registerRequest
	if err := readJSON(r, &request); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if request.Email == "" || request.Password == "" {
		http.Error(w, "email and password are required", http.StatusBadRequest)
		return
	}
	hash, err := access.HashPassword(request.Password)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	id, err := b.facade.Create(r.Context(), "users", map[string]interface{}{
		"first_name": request.FirstName,
		"last_name":  request.LastName,
		"email":      request.Email,
		"password":   hash,
		"phone":      request.Phone,
	})
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"id": id})
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var request loginRequest
	if err := readJSON(r, &request); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if request.Email == "" || request.Password == "" {
		http.Error(w, "email and password are required", http.StatusBadRequest)
		return
	}
	rows, err := b.facade.Read(r.Context(), "users",
		map[string]string{"email": request.Email}, "id, password", "", "")
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if len(rows) == 0 {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	userID, _ := rows[0]["id"].(int64)
	stored, _ := rows[0]["password"].(string)

	ok, needsRehash := access.VerifyPassword(stored, request.Password)
	if !ok {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if needsRehash {
		// legacy plaintext row, migrate it now
		if hash, err := access.HashPassword(request.Password); err == nil {
			if _, err = b.facade.Update(r.Context(), "users",
				map[string]interface{}{"password": hash},
				map[string]interface{}{"id": userID}); err != nil {
				logger.FromContext(r.Context()).WithError(err).
					Errorln("cannot migrate legacy password")
			}
		}
	}

	cookie, err := access.NewSessionCookie(b.secret, userID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	http.SetCookie(w, cookie)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"authenticated": true,
		"user_id":       userID,
	})
}

func (b *Backend) checkAuth(w http.ResponseWriter, r *http.Request) {
	session := access.SessionFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"authenticated": session != nil,
	})
}

func (b *Backend) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, access.ClearedSessionCookie())
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) userInfo(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}
	writeJSON(w, http.StatusOK, session)
}
