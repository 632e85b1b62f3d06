package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/bestflix/backend/internal/apperr"
	"github.com/bestflix/backend/internal/logging"
	"github.com/bestflix/backend/internal/media"
)

// MovieHandler implements the movie catalog endpoints.
type MovieHandler struct {
	Movies         MovieCatalog
	MaxUploadBytes int64
}

// All handles GET /rest/api/movie/all.
func (h MovieHandler) All(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	movies, err := h.Movies.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, movies)
}

// MyMovies handles GET and POST /rest/api/movie/mymovies for the authenticated user.
func (h MovieHandler) MyMovies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
		return
	}

	subject, ok := logging.SubjectFromContext(r.Context())
	if !ok {
		respondError(w, r, apperr.ErrMalformedToken)
		return
	}

	username := subject
	if r.Method == http.MethodPost {
		var req myMoviesRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, r, err)
			return
		}
		if requested := strings.TrimSpace(req.Username); requested != "" {
			username = requested
		}
	}
	if username != subject {
		respondError(w, r, apperr.ErrSubjectMismatch)
		return
	}

	movies, err := h.Movies.ListByOwner(r.Context(), username)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, movies)
}

// Get handles GET /rest/api/movie/{id}.
func (h MovieHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	movie, err := h.Movies.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, movie)
}

// Upload handles multipart POST /rest/api/movie/upload.
func (h MovieHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	subject, ok := logging.SubjectFromContext(r.Context())
	if !ok {
		respondError(w, r, apperr.ErrMalformedToken)
		return
	}

	form, err := parseMovieForm(w, r, h.MaxUploadBytes)
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer form.Close()

	username := form.Username
	if username == "" {
		username = subject
	}
	if username != subject {
		respondError(w, r, apperr.ErrSubjectMismatch)
		return
	}
	if form.Metadata == nil {
		respondError(w, r, apperr.Validation("movie: Movie cannot be empty"))
		return
	}

	movie, err := h.Movies.Upload(r.Context(), username, *form.Metadata, blobOrZero(form.Image), blobOrZero(form.Video))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusCreated, movie)
}

// Update handles multipart PUT /rest/api/movie/update?movieId=<id>. Both the
// image and video parts are required.
func (h MovieHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, http.MethodPut)
		return
	}

	id := strings.TrimSpace(r.URL.Query().Get("movieId"))
	if id == "" {
		respondError(w, r, apperr.Validation("movieId: MovieId cannot be empty"))
		return
	}

	form, err := parseMovieForm(w, r, h.MaxUploadBytes)
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer form.Close()

	if form.Metadata == nil {
		respondError(w, r, apperr.Validation("movie: Movie cannot be empty"))
		return
	}

	movie, err := h.Movies.Update(r.Context(), id, *form.Metadata, blobOrZero(form.Image), blobOrZero(form.Video))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, movie)
}

// Delete handles DELETE /rest/api/movie/delete/{id}.
func (h MovieHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, http.MethodDelete)
		return
	}

	msg, err := h.Movies.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, messageResponse{Message: msg})
}

// Image handles GET /rest/api/movie/image/{id}.
func (h MovieHandler) Image(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	obj, err := h.Movies.Image(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer obj.Body.Close()

	writeObject(w, r, obj)
}

// Video handles GET /rest/api/movie/video/{id}, streaming the stored file.
func (h MovieHandler) Video(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	obj, key, err := h.Movies.Video(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer obj.Body.Close()

	w.Header().Set("Content-Disposition", fmt.Sprintf("inline;filename=%s", key))
	writeObject(w, r, obj)
}

func writeObject(w http.ResponseWriter, r *http.Request, obj media.Object) {
	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.WriteHeader(http.StatusOK)

	if n, err := io.Copy(w, obj.Body); err != nil {
		logging.FromContext(r.Context()).Warn("stream media interrupted", "bytes", n, "error", err)
	}
}

func blobOrZero(b *media.Blob) media.Blob {
	if b == nil {
		return media.Blob{}
	}
	return *b
}

type myMoviesRequest struct {
	Username string `json:"username"`
}
