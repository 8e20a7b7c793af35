package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"messageboard/service"
	"messageboard/storage"
)

func (h *HTTPHandler) HandleGetPost(w http.ResponseWriter, r *http.Request) {
	postId := mux.Vars(r)["postId"]
	post, err := h.Posts.GetOne(r.Context(), postId)
	if err != nil {
		handleServiceError(w, err, "getting post "+postId, map[error]clientError{
			storage.NotFoundError: postNotFound,
		})
		return
	}
	writeJSON(w, http.StatusOK, service.ToPublic(post))
}
