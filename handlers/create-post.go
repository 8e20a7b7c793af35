package handlers

import (
	"net/http"

	"messageboard/auth"
	"messageboard/service"
)

type CreatePostRequestData struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type CreatePostResponse struct {
	Id string `json:"id"`
}

// HandleCreatePost runs behind auth.RequireIdentity; the author is the
// verified caller.
func (h *HTTPHandler) HandleCreatePost(w http.ResponseWriter, r *http.Request) {
	var data CreatePostRequestData
	decodeBody(r, &data)

	caller, _ := auth.IdentityFromContext(r.Context())
	post, err := h.Posts.Create(r.Context(), caller.Email, data.Subject, data.Body)
	if err != nil {
		handleServiceError(w, err, "creating post", map[error]clientError{
			service.ValidationError: missingFields,
		})
		return
	}
	writeJSON(w, http.StatusCreated, CreatePostResponse{Id: post.Id})
}
