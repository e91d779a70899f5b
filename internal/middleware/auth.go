package middleware

import (
	"net/http"

	"github.com/mhollis/chorequest/internal/auth"
	"github.com/mhollis/chorequest/internal/store"
)

const SessionCookieName = "chorequest_session"

// RequireAuth validates the session cookie and populates AuthContext with the
// user, household role, and the session's active profile. Role comes from the
// membership row on every request, never from anything the client sent.
func RequireAuth(sessions *store.SessionStore, households *store.HouseholdStore, profiles *store.ProfileStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w)
				return
			}

			sess, err := sessions.GetByToken(cookie.Value)
			if err != nil || sess == nil {
				unauthorized(w)
				return
			}

			member, err := households.GetMember(sess.HouseholdID, sess.UserID)
			if err != nil || member == nil {
				unauthorized(w)
				return
			}

			ac := auth.AuthContext{
				UserID:      sess.UserID,
				HouseholdID: sess.HouseholdID,
				Role:        member.Role,
				SessionID:   sess.ID,
			}

			if sess.ActiveProfileID != nil {
				profile, err := profiles.GetByID(*sess.ActiveProfileID)
				if err == nil && profile != nil && profile.HouseholdID == sess.HouseholdID {
					ac.ProfileID = profile.ID
					ac.ProfileKind = profile.Kind
				}
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireParent rejects requests whose active profile does not carry parent
// privilege. Must run inside RequireAuth.
func RequireParent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsParent(r.Context()) {
			http.Error(w, `{"error":"parent access required"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	http.Error(w, `{"error":"authentication required"}`, http.StatusUnauthorized)
}
