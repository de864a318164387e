package controllers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"quill/app/models"
	"quill/app/query"
	"quill/app/services"
)

// PostController handles HTTP requests for blog posts
type PostController struct {
	postService *services.PostService
	logger      *slog.Logger
}

// NewPostController creates a new PostController
func NewPostController(postService *services.PostService, logger *slog.Logger) *PostController {
	return &PostController{postService: postService, logger: logger}
}

// Index lists posts, always paged. Query parameters: page, pageSize,
// search, author, tag, categoryId, sortBy, order.
func (pc *PostController) Index(w http.ResponseWriter, r *http.Request) {
	p, _, err := pagination(r)
	if err != nil {
		handleError(w, r, pc.logger, err)
		return
	}

	q := r.URL.Query()
	filter := services.PostFilter{
		Search:     q.Get("search"),
		Author:     q.Get("author"),
		Tag:        q.Get("tag"),
		CategoryID: q.Get("categoryId"),
		SortBy:     q.Get("sortBy"),
		Order:      query.ParseOrder(q.Get("order")),
	}

	page, err := pc.postService.List(r.Context(), filter, p)
	if err != nil {
		handleError(w, r, pc.logger, err)
		return
	}
	sendJSON(w, http.StatusOK, page)
}

// Show handles displaying a single post
func (pc *PostController) Show(w http.ResponseWriter, r *http.Request) {
	post, err := pc.postService.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleError(w, r, pc.logger, err)
		return
	}
	sendJSON(w, http.StatusOK, post)
}

// Create handles creating a new post
func (pc *PostController) Create(w http.ResponseWriter, r *http.Request) {
	var draft models.PostDraft
	if err := decodeJSON(w, r, &draft); err != nil {
		handleError(w, r, pc.logger, err)
		return
	}

	post, err := pc.postService.Create(r.Context(), draft)
	if err != nil {
		handleError(w, r, pc.logger, err)
		return
	}
	sendJSON(w, http.StatusCreated, post)
}

// Update applies a partial update to a post
func (pc *PostController) Update(w http.ResponseWriter, r *http.Request) {
	var patch models.PostPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		handleError(w, r, pc.logger, err)
		return
	}

	post, err := pc.postService.Update(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		handleError(w, r, pc.logger, err)
		return
	}
	sendJSON(w, http.StatusOK, post)
}

// Delete handles deleting a post and its comments
func (pc *PostController) Delete(w http.ResponseWriter, r *http.Request) {
	if err := pc.postService.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		handleError(w, r, pc.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Tags lists every distinct tag
func (pc *PostController) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := pc.postService.Tags(r.Context())
	if err != nil {
		handleError(w, r, pc.logger, err)
		return
	}
	sendJSON(w, http.StatusOK, tags)
}

// ByAuthor lists an author's posts, newest first
func (pc *PostController) ByAuthor(w http.ResponseWriter, r *http.Request) {
	posts, err := pc.postService.FindByAuthor(r.Context(), mux.Vars(r)["author"])
	if err != nil {
		handleError(w, r, pc.logger, err)
		return
	}
	sendJSON(w, http.StatusOK, posts)
}
