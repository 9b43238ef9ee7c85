package main

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	// AuthorizationHeader is the header key to get the authorization token
	AuthorizationHeader = "authorization"
	tokenPrefix         = "Bearer "
)

// BearerAuthenticate rejects the requests without the api key, except on "/" and "/metrics".
// An empty api key disables the authentication.
func BearerAuthenticate(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodOptions && r.URL.Path != "" && r.URL.Path != "/" && r.URL.Path != "/metrics" {
			if err := authenticate(apiKey, r.Header.Get(AuthorizationHeader)); err != nil {
				w.WriteHeader(http.StatusForbidden)
				json.NewEncoder(w).Encode(err.Error())
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func authenticate(apiKey, token string) error {
	if apiKey == "" {
		return nil // No auth required
	}
	if token == "" {
		return fmt.Errorf("token not found")
	}
	if !strings.HasPrefix(token, tokenPrefix) {
		return fmt.Errorf(`missing "` + tokenPrefix + `" prefix`)
	}
	if subtle.ConstantTimeCompare([]byte(strings.TrimPrefix(token, tokenPrefix)), []byte(apiKey)) != 1 {
		return fmt.Errorf("invalid token")
	}
	return nil
}
