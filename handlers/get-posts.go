package handlers

import (
	"net/http"

	"messageboard/service"
)

func (h *HTTPHandler) HandleGetPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.Posts.GetAll(r.Context())
	if err != nil {
		handleServiceError(w, err, "getting posts", nil)
		return
	}
	writeJSON(w, http.StatusOK, service.ToPublicList(posts))
}
