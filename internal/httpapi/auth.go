package httpapi

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/websocket"
)

// requireBearer rejects requests without a valid HS256 bearer token when an
// auth secret is configured. Browsers cannot set headers on a websocket
// upgrade, so upgrades may pass the token as ?access_token= instead.
func requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(authSecret) == 0 {
			next.ServeHTTP(w, r)
			return
		}
		raw, ok := bearerToken(r)
		if !ok && websocket.IsWebSocketUpgrade(r) {
			raw = r.URL.Query().Get("access_token")
			ok = raw != ""
		}
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if err := validateToken(raw, authSecret); err != nil {
			logger().Debug().Err(err).Str("path", r.URL.Path).Msg("rejected token")
			writeJSONError(w, http.StatusUnauthorized, "invalid bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}

func validateToken(raw string, secret []byte) error {
	_, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return err
}
