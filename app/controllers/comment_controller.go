package controllers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"quill/app/models"
	"quill/app/services"
)

// CommentController handles HTTP requests for comments
type CommentController struct {
	commentService *services.CommentService
	logger         *slog.Logger
}

// NewCommentController creates a new CommentController
func NewCommentController(commentService *services.CommentService, logger *slog.Logger) *CommentController {
	return &CommentController{commentService: commentService, logger: logger}
}

// IndexForPost lists a post's comments, newest first. Paged only when page
// or pageSize is given.
func (cc *CommentController) IndexForPost(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["postId"]
	p, paged, err := pagination(r)
	if err != nil {
		handleError(w, r, cc.logger, err)
		return
	}

	if paged {
		page, err := cc.commentService.ListByPostPage(r.Context(), postID, p)
		if err != nil {
			handleError(w, r, cc.logger, err)
			return
		}
		sendJSON(w, http.StatusOK, page)
		return
	}

	comments, err := cc.commentService.ListByPost(r.Context(), postID)
	if err != nil {
		handleError(w, r, cc.logger, err)
		return
	}
	sendJSON(w, http.StatusOK, comments)
}

// CreateForPost adds a comment to a post
func (cc *CommentController) CreateForPost(w http.ResponseWriter, r *http.Request) {
	var draft models.CommentDraft
	if err := decodeJSON(w, r, &draft); err != nil {
		handleError(w, r, cc.logger, err)
		return
	}

	comment, err := cc.commentService.Create(r.Context(), mux.Vars(r)["postId"], draft)
	if err != nil {
		handleError(w, r, cc.logger, err)
		return
	}
	sendJSON(w, http.StatusCreated, comment)
}

// CountForPost reports how many comments a post has
func (cc *CommentController) CountForPost(w http.ResponseWriter, r *http.Request) {
	n, err := cc.commentService.CountByPost(r.Context(), mux.Vars(r)["postId"])
	if err != nil {
		handleError(w, r, cc.logger, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]int{"count": n})
}

// Show handles displaying a single comment
func (cc *CommentController) Show(w http.ResponseWriter, r *http.Request) {
	comment, err := cc.commentService.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleError(w, r, cc.logger, err)
		return
	}
	sendJSON(w, http.StatusOK, comment)
}

// Update edits a comment
func (cc *CommentController) Update(w http.ResponseWriter, r *http.Request) {
	var patch models.CommentPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		handleError(w, r, cc.logger, err)
		return
	}

	comment, err := cc.commentService.Update(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		handleError(w, r, cc.logger, err)
		return
	}
	sendJSON(w, http.StatusOK, comment)
}

// Delete handles deleting a comment
func (cc *CommentController) Delete(w http.ResponseWriter, r *http.Request) {
	if err := cc.commentService.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		handleError(w, r, cc.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
