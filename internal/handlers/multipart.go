package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/bestflix/backend/internal/apperr"
	"github.com/bestflix/backend/internal/media"
	"github.com/bestflix/backend/internal/models"
)

// DefaultMaxUploadBytes bounds a multipart movie upload.
const DefaultMaxUploadBytes int64 = 512 << 20

// multipartMemory is kept in memory before parts spill to temporary files.
const multipartMemory = 32 << 20

// movieForm is a parsed movie upload. Close releases temporary files.
type movieForm struct {
	form     *multipart.Form
	Username string
	Metadata *models.MovieMetadata
	Image    *media.Blob
	Video    *media.Blob
	closers  []io.Closer
}

func parseMovieForm(w http.ResponseWriter, r *http.Request, maxBytes int64) (*movieForm, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, apperr.Validation("upload exceeds the maximum allowed size")
		}
		return nil, apperr.Validation("invalid multipart form").WithCause(err)
	}

	mf := &movieForm{form: r.MultipartForm}
	mf.Username = strings.TrimSpace(r.FormValue("username"))

	meta, err := mf.metadata()
	if err != nil {
		mf.Close()
		return nil, err
	}
	mf.Metadata = meta

	if mf.Image, err = mf.file("image"); err != nil {
		mf.Close()
		return nil, err
	}
	if mf.Video, err = mf.file("video"); err != nil {
		mf.Close()
		return nil, err
	}
	return mf, nil
}

// metadata reads the "movie" part, sent either as a plain field or as a JSON file part.
func (mf *movieForm) metadata() (*models.MovieMetadata, error) {
	var raw []byte
	if values := mf.form.Value["movie"]; len(values) > 0 {
		raw = []byte(values[0])
	} else if headers := mf.form.File["movie"]; len(headers) > 0 {
		f, err := headers[0].Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if raw, err = io.ReadAll(f); err != nil {
			return nil, err
		}
	} else {
		return nil, nil
	}

	var meta models.MovieMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, apperr.Validation("movie: invalid movie metadata").WithCause(err)
	}
	return &meta, nil
}

func (mf *movieForm) file(field string) (*media.Blob, error) {
	headers := mf.form.File[field]
	if len(headers) == 0 {
		return nil, nil
	}
	header := headers[0]
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	mf.closers = append(mf.closers, f)

	return &media.Blob{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        f,
	}, nil
}

func (mf *movieForm) Close() {
	for _, c := range mf.closers {
		_ = c.Close()
	}
	if mf.form != nil {
		_ = mf.form.RemoveAll()
	}
}
