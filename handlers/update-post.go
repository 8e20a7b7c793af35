package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"messageboard/auth"
	"messageboard/service"
	"messageboard/storage"
	"messageboard/storage/models"
)

type UpdatePostRequestData struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type UpdatePostResponse struct {
	Message string            `json:"message"`
	Post    models.PublicPost `json:"post"`
}

// HandleUpdatePost runs behind auth.RequireIdentity. Any author_email in the
// body is ignored, only the verified caller may edit their own posts.
func (h *HTTPHandler) HandleUpdatePost(w http.ResponseWriter, r *http.Request) {
	postId := mux.Vars(r)["postId"]
	var data UpdatePostRequestData
	decodeBody(r, &data)

	caller, _ := auth.IdentityFromContext(r.Context())
	post, err := h.Posts.Update(r.Context(), postId, caller.Email, data.Subject, data.Body)
	if err != nil {
		handleServiceError(w, err, "updating post "+postId, map[error]clientError{
			service.ValidationError: missingFields,
			storage.NotFoundError:   postNotFound,
			storage.ForbiddenError:  notPostAuthor,
		})
		return
	}
	writeJSON(w, http.StatusOK, UpdatePostResponse{
		Message: "Post updated successfully",
		Post:    service.ToPublic(post),
	})
}
