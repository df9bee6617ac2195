package controllers

import (
	"net/http"

	"github.com/sikars/sikars-backend/api/responses"
)

// Ping is the unauthenticated reachability probe.
func Ping() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"message": "pong"})
	}
}
