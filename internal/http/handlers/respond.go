package handlers

import (
	"encoding/json"
	"net/http"
)

const (
	msgAccessDenied = "access denied"
	msgUnavailable  = "service temporarily unavailable, please try again"

	msgLiveUnavailable = "live updates unavailable"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeHTML(w http.ResponseWriter, page string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(page))
}

type postMessageRequest struct {
	Content string `json:"content"`
}

const maxMessageBody = 32 << 10

func decodePostMessage(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req postMessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBody)).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return "", false
	}
	return req.Content, true
}
