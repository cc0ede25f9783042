/*Package access provides the session middleware and credential helpers.

A session is identified by a signed JWT carried in a cookie. The cookie
only holds the numeric user id; the user row itself is loaded from the
store on every request, there is no in-memory session cache.
*/
package access

import (
	"context"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/galerie-tech/galerie/core/csql"
	"github.com/galerie-tech/galerie/core/logger"
)

// CookieName is the name of the session cookie.
const CookieName = "Galerie-Session"

// cookieMaxAge is the session lifetime. There is no revocation and no
// rotation, the cookie simply expires.
const cookieMaxAge = 7 * 24 * time.Hour

type contextKeySessionType struct{}

var contextKeySession = &contextKeySessionType{}

// Session is the typed per-request session object. A nil *Session means
// the request is anonymous.
type Session struct {
	UserID    int64  `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// ContextWithSession returns a new context with this session added to it.
func ContextWithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKeySession, s)
}

// SessionFromContext retrieves the session from the context, or nil for an
// anonymous request.
func SessionFromContext(ctx context.Context) *Session {
	s, ok := ctx.Value(contextKeySession).(*Session)
	if ok {
		return s
	}
	return nil
}

type sessionClaims struct {
	UserID int64 `json:"uid"`
	jwt.RegisteredClaims
}

// NewSessionCookie creates the signed session cookie for the user.
func NewSessionCookie(secret []byte, userID int64) (*http.Cookie, error) {
	claims := sessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(cookieMaxAge)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return nil, err
	}
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(cookieMaxAge / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// ClearedSessionCookie returns a cookie that removes the session.
func ClearedSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// ParseSessionToken validates the signed token and returns the user id.
func ParseSessionToken(secret []byte, token string) (int64, error) {
	claims := sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil {
		return 0, err
	}
	if !parsed.Valid {
		return 0, jwt.ErrTokenInvalidClaims
	}
	return claims.UserID, nil
}

// SessionMiddlewareBuilder is a helper builder for the session middleware.
type SessionMiddlewareBuilder struct {
	// DB is the postgres database holding the users table.
	DB *csql.DB
	// Secret signs and verifies session cookies.
	Secret []byte
}

// NewSessionMiddleware returns a middleware handler that resolves the
// session cookie into a typed session object in the request context.
//
// The lookup happens on every request. A cookie that does not verify or
// that points to a deleted user leaves the request anonymous; the
// middleware never rejects a request itself, the handlers decide whether
// they require authentication.
func NewSessionMiddleware(smb *SessionMiddlewareBuilder) mux.MiddlewareFunc {
	userQuery := "SELECT id, first_name, last_name, email, phone FROM " +
		smb.DB.Schema + ".users WHERE id = $1;"

	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, _ := r.Cookie(CookieName)
			if cookie == nil || cookie.Value == "" {
				h.ServeHTTP(w, r)
				return
			}
			rlog := logger.FromContext(r.Context())

			userID, err := ParseSessionToken(smb.Secret, cookie.Value)
			if err != nil {
				rlog.WithError(err).Debugln("invalid session cookie")
				h.ServeHTTP(w, r)
				return
			}

			session := Session{}
			err = smb.DB.QueryRowContext(r.Context(), userQuery, userID).Scan(
				&session.UserID, &session.FirstName, &session.LastName,
				&session.Email, &session.Phone)
			if err == csql.ErrNoRows {
				h.ServeHTTP(w, r) // user is gone, session stays anonymous
				return
			}
			if err != nil {
				rlog.WithError(err).Errorln("cannot load session user")
				http.Error(w, "cannot load session", http.StatusInternalServerError)
				return
			}

			ctx := ContextWithSession(r.Context(), &session)
			ctx, _ = logger.ContextWithLoggerIdentity(ctx, session.Email)
			h.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// HashPassword hashes a plaintext password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

// VerifyPassword checks the presented password against the stored value.
// Early revisions of the schema stored plaintext passwords; those still
// verify, and needsRehash tells the caller to migrate the row to a proper
// hash on this successful login.
func VerifyPassword(stored, presented string) (ok, needsRehash bool) {
	if bcrypt.CompareHashAndPassword([]byte(stored), []byte(presented)) == nil {
		return true, false
	}
	if _, err := bcrypt.Cost([]byte(stored)); err != nil && stored == presented {
		return true, true
	}
	return false, false
}
