package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"messageboard/service"
	"messageboard/storage"
)

const INTERNAL_ERROR_MESSAGE = "Internal server error"

type HTTPHandler struct {
	Posts    *service.PostService
	Comments *service.CommentService
	Storage  storage.Storage
}

func NewHTTPHandler(s storage.Storage) *HTTPHandler {
	return &HTTPHandler{
		Posts:    service.NewPostService(s),
		Comments: service.NewCommentService(s),
		Storage:  s,
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, value interface{}) {
	rawResponse, err := json.Marshal(value)
	if err != nil {
		log.Printf("Failed to dump response to json: %s", err.Error())
		status = http.StatusInternalServerError
		rawResponse = []byte(`{"error":"` + INTERNAL_ERROR_MESSAGE + `"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(rawResponse); err != nil {
		log.Printf("Failed to write response: %s", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// decodeBody fills data from the request body. A body that is absent or not
// valid JSON leaves data empty, so the request fails field validation
// instead of JSON parsing.
func decodeBody(r *http.Request, data interface{}) {
	err := json.NewDecoder(r.Body).Decode(data)
	if err != nil && !errors.Is(err, io.EOF) {
		log.Printf("Ignoring malformed request body on %s %s: %s", r.Method, r.URL.Path, err.Error())
	}
}

// handleServiceError answers client errors with their messages and logs
// everything else behind a generic 500.
func handleServiceError(w http.ResponseWriter, err error, action string, messages map[error]clientError) {
	for kind, answer := range messages {
		if errors.Is(err, kind) {
			log.Printf("Client error while %s: %s", action, err.Error())
			writeError(w, answer.status, answer.message)
			return
		}
	}
	log.Printf("Failed %s: %s", action, err.Error())
	writeError(w, http.StatusInternalServerError, INTERNAL_ERROR_MESSAGE)
}

type clientError struct {
	status  int
	message string
}

var (
	missingFields = clientError{http.StatusBadRequest, "Missing fields"}
	postNotFound  = clientError{http.StatusNotFound, "Post not found"}
	notPostAuthor = clientError{http.StatusForbidden, "Unauthorized"}
)
