package routes

import (
	"log/slog"

	"quill/app/repositories"
	"quill/app/services"
)

// Services is the wired set of entity services.
type Services struct {
	Posts      *services.PostService
	Categories *services.CategoryService
	Comments   *services.CommentService
}

// NewServices wires the services over stores. Comments look posts up in
// the post store directly; posts cascade deletes into the comment service;
// categories count posts through the post service.
func NewServices(stores *repositories.Stores, logger *slog.Logger) *Services {
	comments := services.NewCommentService(stores.Comments, stores.Posts, logger)
	posts := services.NewPostService(stores.Posts, comments, logger)
	categories := services.NewCategoryService(stores.Categories, posts, logger)
	return &Services{
		Posts:      posts,
		Categories: categories,
		Comments:   comments,
	}
}
