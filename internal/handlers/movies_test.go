package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bestflix/backend/internal/models"
)

var (
	posterPNG = []byte("\x89PNG\r\n\x1a\nposter")
	trailer   = bytes.Repeat([]byte("frame"), 1024)
)

func inceptionMetadata() map[string]string {
	return map[string]string{
		"movieName":   "Inception",
		"country":     "USA",
		"releaseDate": "2010-07-16",
		"casts":       "Leonardo DiCaprio, Joseph Gordon-Levitt",
		"duration":    "148",
		"about":       "A thief who steals corporate secrets through dream-sharing.",
		"category":    "Sci-Fi",
	}
}

func uploadInception(t *testing.T, srv *testServer, token string) models.Movie {
	t.Helper()
	req := multipartRequest(t, http.MethodPost, "/rest/api/movie/upload", token,
		map[string]string{"username": "elcin"}, inceptionMetadata(),
		filePart{field: "image", filename: "Poster.PNG", contentType: "image/png", data: posterPNG},
		filePart{field: "video", filename: "inception.mp4", contentType: "video/mp4", data: trailer},
	)
	rec := srv.do(t, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload: expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	var movie models.Movie
	decodeBody(t, rec, &movie)
	return movie
}

func TestMovieUploadAndFetch(t *testing.T) {
	srv := newTestServer(t)
	srv.register(t, "elcin", "secret123", "elcin@example.com")
	token := srv.login(t, "elcin", "secret123")

	movie := uploadInception(t, srv, token)
	if movie.ID == "" || movie.MovieName != "Inception" || movie.ReleaseDate.String() != "2010-07-16" {
		t.Fatalf("unexpected movie %+v", movie)
	}
	if !strings.HasSuffix(movie.ImageName, ".png") || !strings.HasSuffix(movie.VideoName, ".mp4") {
		t.Fatalf("expected asset keys to keep lower-cased extensions, got %q and %q", movie.ImageName, movie.VideoName)
	}
	if len(srv.objects.Keys()) != 2 {
		t.Fatalf("expected two stored objects, got %v", srv.objects.Keys())
	}

	rec := srv.do(t, newRequest(http.MethodGet, "/rest/api/movie/"+movie.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200 got %d", rec.Code)
	}

	rec = srv.do(t, newRequest(http.MethodGet, "/rest/api/movie/all"))
	var all []models.Movie
	decodeBody(t, rec, &all)
	if len(all) != 1 || all[0].ID != movie.ID {
		t.Fatalf("unexpected catalog %+v", all)
	}

	rec = srv.do(t, newRequest(http.MethodGet, "/rest/api/movie/image/"+movie.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("image: expected 200 got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "image/png" {
		t.Fatalf("unexpected image content type %q", got)
	}
	if !bytes.Equal(rec.Body.Bytes(), posterPNG) {
		t.Fatalf("image bytes differ")
	}

	rec = srv.do(t, newRequest(http.MethodGet, "/rest/api/movie/video/"+movie.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("video: expected 200 got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Disposition"); got != "inline;filename="+movie.VideoName {
		t.Fatalf("unexpected content disposition %q", got)
	}
	if got := rec.Header().Get("Content-Type"); got != "video/mp4" {
		t.Fatalf("unexpected video content type %q", got)
	}
	if !bytes.Equal(rec.Body.Bytes(), trailer) {
		t.Fatalf("video bytes differ")
	}
}

func TestMyMovies(t *testing.T) {
	srv := newTestServer(t)
	srv.register(t, "elcin", "secret123", "elcin@example.com")
	srv.register(t, "murad", "secret123", "murad@example.com")
	elcin := srv.login(t, "elcin", "secret123")
	murad := srv.login(t, "murad", "secret123")

	movie := uploadInception(t, srv, elcin)

	req := newRequest(http.MethodGet, "/rest/api/movie/mymovies")
	req.Header.Set("Authorization", "Bearer "+elcin)
	rec := srv.do(t, req)
	var mine []models.Movie
	decodeBody(t, rec, &mine)
	if len(mine) != 1 || mine[0].ID != movie.ID {
		t.Fatalf("unexpected owner listing %+v", mine)
	}

	req = newRequest(http.MethodGet, "/rest/api/movie/mymovies")
	req.Header.Set("Authorization", "Bearer "+murad)
	rec = srv.do(t, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a user without movies got %d", rec.Code)
	}
	if body := decodeErrorBody(t, rec); body.ErrorDetails.ErrorCode != "200" {
		t.Fatalf("expected no movies code, got %s", body.ErrorDetails.ErrorCode)
	}

	req = httptestJSON(t, http.MethodPost, "/rest/api/movie/mymovies", `{"username":"elcin"}`)
	req.Header.Set("Authorization", "Bearer "+murad)
	rec = srv.do(t, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 when asking for another user's movies got %d", rec.Code)
	}

	rec = srv.do(t, newRequest(http.MethodGet, "/rest/api/movie/mymovies"))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", rec.Code)
	}
}

func TestMovieUploadRejections(t *testing.T) {
	srv := newTestServer(t)
	srv.register(t, "elcin", "secret123", "elcin@example.com")
	token := srv.login(t, "elcin", "secret123")

	tests := []struct {
		name   string
		req    func() *http.Request
		status int
	}{
		{
			name: "other username",
			req: func() *http.Request {
				return multipartRequest(t, http.MethodPost, "/rest/api/movie/upload", token,
					map[string]string{"username": "murad"}, inceptionMetadata(),
					filePart{field: "image", filename: "p.png", contentType: "image/png", data: posterPNG},
					filePart{field: "video", filename: "v.mp4", contentType: "video/mp4", data: trailer})
			},
			status: http.StatusUnauthorized,
		},
		{
			name: "missing video",
			req: func() *http.Request {
				return multipartRequest(t, http.MethodPost, "/rest/api/movie/upload", token, nil, inceptionMetadata(),
					filePart{field: "image", filename: "p.png", contentType: "image/png", data: posterPNG})
			},
			status: http.StatusBadRequest,
		},
		{
			name: "missing metadata",
			req: func() *http.Request {
				return multipartRequest(t, http.MethodPost, "/rest/api/movie/upload", token, nil, nil,
					filePart{field: "image", filename: "p.png", contentType: "image/png", data: posterPNG},
					filePart{field: "video", filename: "v.mp4", contentType: "video/mp4", data: trailer})
			},
			status: http.StatusBadRequest,
		},
		{
			name: "bad release date",
			req: func() *http.Request {
				meta := inceptionMetadata()
				meta["releaseDate"] = "16/07/2010"
				return multipartRequest(t, http.MethodPost, "/rest/api/movie/upload", token, nil, meta,
					filePart{field: "image", filename: "p.png", contentType: "image/png", data: posterPNG},
					filePart{field: "video", filename: "v.mp4", contentType: "video/mp4", data: trailer})
			},
			status: http.StatusBadRequest,
		},
		{
			name: "no token",
			req: func() *http.Request {
				return multipartRequest(t, http.MethodPost, "/rest/api/movie/upload", "", nil, inceptionMetadata())
			},
			status: http.StatusUnauthorized,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := srv.do(t, tc.req())
			if rec.Code != tc.status {
				t.Fatalf("expected status %d got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
		})
	}

	if keys := srv.objects.Keys(); len(keys) != 0 {
		t.Fatalf("rejected uploads left objects behind: %v", keys)
	}
}

func TestMovieUpdateAndDelete(t *testing.T) {
	srv := newTestServer(t)
	srv.register(t, "elcin", "secret123", "elcin@example.com")
	token := srv.login(t, "elcin", "secret123")
	movie := uploadInception(t, srv, token)

	meta := inceptionMetadata()
	meta["movieName"] = "Inception (Extended)"
	partial := multipartRequest(t, http.MethodPut, "/rest/api/movie/update?movieId="+movie.ID, token, nil, meta,
		filePart{field: "video", filename: "extended.MKV", contentType: "video/x-matroska", data: trailer[:100]})
	if rec := srv.do(t, partial); rec.Code != http.StatusBadRequest {
		t.Fatalf("update without image: expected 400 got %d: %s", rec.Code, rec.Body.String())
	}

	req := multipartRequest(t, http.MethodPut, "/rest/api/movie/update?movieId="+movie.ID, token, nil, meta,
		filePart{field: "image", filename: "extended.png", contentType: "image/png", data: posterPNG},
		filePart{field: "video", filename: "extended.MKV", contentType: "video/x-matroska", data: trailer[:100]})
	rec := srv.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	var updated models.Movie
	decodeBody(t, rec, &updated)
	if updated.MovieName != "Inception (Extended)" {
		t.Fatalf("metadata not overwritten: %+v", updated)
	}
	if updated.ImageName == movie.ImageName || !strings.HasSuffix(updated.ImageName, ".png") {
		t.Fatalf("expected a fresh image key, got %q", updated.ImageName)
	}
	if updated.VideoName == movie.VideoName || !strings.HasSuffix(updated.VideoName, ".mkv") {
		t.Fatalf("expected a fresh video key, got %q", updated.VideoName)
	}
	if keys := srv.objects.Keys(); len(keys) != 2 {
		t.Fatalf("expected only the replacement assets to remain, got %v", keys)
	}

	req = multipartRequest(t, http.MethodPut, "/rest/api/movie/update?movieId=00000000-0000-0000-0000-000000000000", token, nil, meta,
		filePart{field: "image", filename: "p.png", contentType: "image/png", data: posterPNG},
		filePart{field: "video", filename: "v.mp4", contentType: "video/mp4", data: trailer})
	if rec := srv.do(t, req); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown movie got %d", rec.Code)
	}

	del := newRequest(http.MethodDelete, "/rest/api/movie/delete/"+movie.ID)
	del.Header.Set("Authorization", "Bearer "+token)
	rec = srv.do(t, del)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200 got %d", rec.Code)
	}
	var msg messageResponse
	decodeBody(t, rec, &msg)
	if msg.Message != "Movie deleted completely" {
		t.Fatalf("unexpected delete message %q", msg.Message)
	}

	if rec := srv.do(t, newRequest(http.MethodGet, "/rest/api/movie/"+movie.ID)); rec.Code != http.StatusNotFound {
		t.Fatalf("expected deleted movie to be gone, got %d", rec.Code)
	}
	if rec := srv.do(t, newRequest(http.MethodGet, "/rest/api/movie/all")); rec.Code != http.StatusNotFound {
		t.Fatalf("expected empty catalog to report no movies, got %d", rec.Code)
	}
	if keys := srv.objects.Keys(); len(keys) != 0 {
		t.Fatalf("expected assets to be removed, got %v", keys)
	}

	del = newRequest(http.MethodDelete, "/rest/api/movie/delete/"+movie.ID)
	del.Header.Set("Authorization", "Bearer "+token)
	if rec := srv.do(t, del); rec.Code != http.StatusOK {
		t.Fatalf("expected deleting a missing movie to succeed, got %d", rec.Code)
	}
}

func TestMovieMethodChecks(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/rest/api/movie/all"},
		{http.MethodDelete, "/rest/api/movie/some-id"},
		{http.MethodPost, "/rest/api/movie/image/some-id"},
		{http.MethodPut, "/rest/api/movie/video/some-id"},
	}
	for _, tc := range tests {
		if rec := srv.do(t, newRequest(tc.method, tc.path)); rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s %s: expected 405 got %d", tc.method, tc.path, rec.Code)
		}
	}
}

func httptestJSON(t *testing.T, method, target, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}
