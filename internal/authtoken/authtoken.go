// Package authtoken normalizes where a bearer token can come from: the
// "token" query parameter, the Authorization header, or the server-side
// cookie session, checked in that order.
package authtoken

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
)

const (
	QueryParam = "token"
	SessionKey = "token"

	bearer = "bearer"
)

// Sources holds the raw candidate values for one request.
type Sources struct {
	Query   string
	Header  string
	Session string
}

// Extract returns the first non-empty token by priority. Sources are never
// merged. A leading "Bearer" scheme is dropped (keyword matched
// case-insensitively); a value left empty counts as absent.
func Extract(src Sources) (string, bool) {
	for _, raw := range [...]string{src.Query, src.Header, src.Session} {
		if tok := normalize(raw); tok != "" {
			return tok, true
		}
	}
	return "", false
}

func normalize(raw string) string {
	v := strings.TrimSpace(raw)
	if len(v) >= len(bearer) && strings.EqualFold(v[:len(bearer)], bearer) {
		rest := v[len(bearer):]
		if rest == "" {
			return ""
		}
		if rest[0] == ' ' || rest[0] == '\t' {
			return strings.TrimSpace(rest)
		}
	}
	return v
}

// FromRequest collects Sources from r. store may be nil.
func FromRequest(r *http.Request, store sessions.Store, cookieName string) Sources {
	src := Sources{
		Query:  r.URL.Query().Get(QueryParam),
		Header: r.Header.Get("Authorization"),
	}
	if store != nil {
		if sess, err := store.Get(r, cookieName); err == nil {
			src.Session, _ = sess.Values[SessionKey].(string)
		}
	}
	return src
}

// Token is Extract(FromRequest(r, store, cookieName)).
func Token(r *http.Request, store sessions.Store, cookieName string) (string, bool) {
	return Extract(FromRequest(r, store, cookieName))
}

// NewCookieStore builds the cookie session store. A secret shorter than 32
// bytes is replaced by a random key, so sessions do not survive a restart.
func NewCookieStore(secret string, ttl time.Duration, secure bool) *sessions.CookieStore {
	key := []byte(secret)
	if len(key) < 32 {
		key = securecookie.GenerateRandomKey(32)
	}

	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// Remember stores token in the cookie session.
func Remember(w http.ResponseWriter, r *http.Request, store sessions.Store, cookieName, token string) error {
	sess, err := store.Get(r, cookieName)
	if err != nil && sess == nil {
		return err
	}
	sess.Values[SessionKey] = token
	return sess.Save(r, w)
}

// Forget expires the cookie session.
func Forget(w http.ResponseWriter, r *http.Request, store sessions.Store, cookieName string) error {
	sess, err := store.Get(r, cookieName)
	if err != nil && sess == nil {
		return err
	}
	delete(sess.Values, SessionKey)
	if sess.Options == nil {
		sess.Options = &sessions.Options{Path: "/"}
	}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}
