package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"messageboard/service"
)

type CreateCommentRequestData struct {
	AuthorEmail string `json:"author_email"`
	Body        string `json:"body"`
}

type CreateCommentResponse struct {
	CommentId string `json:"comment_id"`
}

func (h *HTTPHandler) HandleCreateComment(w http.ResponseWriter, r *http.Request) {
	postId := mux.Vars(r)["postId"]
	var data CreateCommentRequestData
	decodeBody(r, &data)

	commentId, err := h.Comments.AddToPost(r.Context(), postId, data.AuthorEmail, data.Body)
	if err != nil {
		handleServiceError(w, err, "adding comment to post "+postId, map[error]clientError{
			service.ValidationError: {http.StatusBadRequest, "Missing author or body"},
		})
		return
	}
	writeJSON(w, http.StatusCreated, CreateCommentResponse{CommentId: commentId})
}
