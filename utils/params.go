package utils

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// PathUint reads a numeric path variable. It writes a 400 and returns false
// when the value is missing or malformed.
func PathUint(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	raw, ok := mux.Vars(r)[name]
	if !ok {
		WriteJSON(w, http.StatusBadRequest, APIResponse{Success: false, Message: name + " is required"})
		return 0, false
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || v == 0 {
		WriteJSON(w, http.StatusBadRequest, APIResponse{Success: false, Message: "Invalid " + name})
		return 0, false
	}
	return uint(v), true
}

// QueryInt reads an integer query parameter, falling back to def.
func QueryInt(r *http.Request, name string, def int) int {
	if s := r.URL.Query().Get(name); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			return v
		}
	}
	return def
}

// MustUserID returns the authenticated user id, answering 401 when absent.
func MustUserID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	uid, ok := GetUserID(r)
	if !ok || uid == 0 {
		WriteJSON(w, http.StatusUnauthorized, APIResponse{Success: false, Message: "Unauthorized"})
		return 0, false
	}
	return uid, true
}
