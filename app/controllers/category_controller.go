package controllers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"quill/app/models"
	"quill/app/services"
)

// CategoryController handles HTTP requests for categories
type CategoryController struct {
	categoryService *services.CategoryService
	logger          *slog.Logger
}

func NewCategoryController(categoryService *services.CategoryService, logger *slog.Logger) *CategoryController {
	return &CategoryController{categoryService: categoryService, logger: logger}
}

// categoryDetail is a category plus the number of posts filed under it.
type categoryDetail struct {
	*models.Category
	PostCount int `json:"postCount"`
}

func (cc *CategoryController) Index(w http.ResponseWriter, r *http.Request) {
	p, paged, err := pagination(r)
	if err != nil {
		handleError(w, r, cc.logger, err)
		return
	}

	if paged {
		page, err := cc.categoryService.ListPage(r.Context(), p)
		if err != nil {
			handleError(w, r, cc.logger, err)
			return
		}
		sendJSON(w, http.StatusOK, page)
		return
	}

	categories, err := cc.categoryService.List(r.Context())
	if err != nil {
		handleError(w, r, cc.logger, err)
		return
	}
	sendJSON(w, http.StatusOK, categories)
}

// Search matches ?q= against name and description
func (cc *CategoryController) Search(w http.ResponseWriter, r *http.Request) {
	categories, err := cc.categoryService.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		handleError(w, r, cc.logger, err)
		return
	}
	sendJSON(w, http.StatusOK, categories)
}

func (cc *CategoryController) Show(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	category, err := cc.categoryService.Get(r.Context(), id)
	if err != nil {
		handleError(w, r, cc.logger, err)
		return
	}
	n, err := cc.categoryService.PostCount(r.Context(), id)
	if err != nil {
		handleError(w, r, cc.logger, err)
		return
	}
	sendJSON(w, http.StatusOK, categoryDetail{Category: category, PostCount: n})
}

func (cc *CategoryController) Create(w http.ResponseWriter, r *http.Request) {
	var draft models.CategoryDraft
	if err := decodeJSON(w, r, &draft); err != nil {
		handleError(w, r, cc.logger, err)
		return
	}

	category, err := cc.categoryService.Create(r.Context(), draft)
	if err != nil {
		handleError(w, r, cc.logger, err)
		return
	}
	sendJSON(w, http.StatusCreated, category)
}

func (cc *CategoryController) Update(w http.ResponseWriter, r *http.Request) {
	var patch models.CategoryPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		handleError(w, r, cc.logger, err)
		return
	}

	category, err := cc.categoryService.Update(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		handleError(w, r, cc.logger, err)
		return
	}
	sendJSON(w, http.StatusOK, category)
}

func (cc *CategoryController) Delete(w http.ResponseWriter, r *http.Request) {
	if err := cc.categoryService.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		handleError(w, r, cc.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
