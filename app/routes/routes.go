package routes

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"quill/app/controllers"
	"quill/app/middleware"
)

// SetupRoutes defines the application's routes and returns the handler
// with logging and panic recovery around the whole router.
func SetupRoutes(svc *Services, logger *slog.Logger) http.Handler {
	router := mux.NewRouter()
	router.Use(middleware.Metrics)
	router.Use(middleware.ContentTypeJSON)

	router.NotFoundHandler = jsonStatus(http.StatusNotFound, "not found")
	router.MethodNotAllowedHandler = jsonStatus(http.StatusMethodNotAllowed, "method not allowed")

	postController := controllers.NewPostController(svc.Posts, logger)
	commentController := controllers.NewCommentController(svc.Comments, logger)
	categoryController := controllers.NewCategoryController(svc.Categories, logger)

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/health", health).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()

	// Posts API endpoints
	posts := api.PathPrefix("/posts").Subrouter()
	posts.HandleFunc("", postController.Index).Methods(http.MethodGet)
	posts.HandleFunc("", postController.Create).Methods(http.MethodPost)
	posts.HandleFunc("/tags", postController.Tags).Methods(http.MethodGet)
	posts.HandleFunc("/author/{author}", postController.ByAuthor).Methods(http.MethodGet)
	posts.HandleFunc("/{id}", postController.Show).Methods(http.MethodGet)
	posts.HandleFunc("/{id}", postController.Update).Methods(http.MethodPatch)
	posts.HandleFunc("/{id}", postController.Delete).Methods(http.MethodDelete)

	// Comments API endpoints
	posts.HandleFunc("/{postId}/comments", commentController.IndexForPost).Methods(http.MethodGet)
	posts.HandleFunc("/{postId}/comments", commentController.CreateForPost).Methods(http.MethodPost)
	posts.HandleFunc("/{postId}/comments/count", commentController.CountForPost).Methods(http.MethodGet)
	api.HandleFunc("/comments/{id}", commentController.Show).Methods(http.MethodGet)
	api.HandleFunc("/comments/{id}", commentController.Update).Methods(http.MethodPatch)
	api.HandleFunc("/comments/{id}", commentController.Delete).Methods(http.MethodDelete)

	// Categories API endpoints
	categories := api.PathPrefix("/categories").Subrouter()
	categories.HandleFunc("", categoryController.Index).Methods(http.MethodGet)
	categories.HandleFunc("", categoryController.Create).Methods(http.MethodPost)
	categories.HandleFunc("/search", categoryController.Search).Methods(http.MethodGet)
	categories.HandleFunc("/{id}", categoryController.Show).Methods(http.MethodGet)
	categories.HandleFunc("/{id}", categoryController.Update).Methods(http.MethodPatch)
	categories.HandleFunc("/{id}", categoryController.Delete).Methods(http.MethodDelete)

	return middleware.Recoverer(logger)(middleware.RequestLogger(logger)(router))
}

func health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}` + "\n"))
}

func jsonStatus(status int, message string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(`{"error":"` + message + `"}` + "\n"))
	})
}
