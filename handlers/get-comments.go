package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"messageboard/storage/models"
)

func (h *HTTPHandler) HandleGetComments(w http.ResponseWriter, r *http.Request) {
	postId := mux.Vars(r)["postId"]
	comments, err := h.Comments.GetForPost(r.Context(), postId)
	if err != nil {
		handleServiceError(w, err, "getting comments of post "+postId, nil)
		return
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	writeJSON(w, http.StatusOK, comments)
}
