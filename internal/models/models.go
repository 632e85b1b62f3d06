package models

import (
	"encoding/json"
	"strings"
	"time"
)

// User represents a registered BestFlix account.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Movie stores catalog metadata together with references to its media assets.
type Movie struct {
	ID          string    `json:"id"`
	MovieName   string    `json:"movieName"`
	Country     string    `json:"country"`
	ReleaseDate Date      `json:"releaseDate"`
	Casts       string    `json:"casts"`
	Duration    string    `json:"duration"`
	About       string    `json:"about"`
	Category    string    `json:"category"`
	ImageName   string    `json:"imageName"`
	ImageType   string    `json:"imageType"`
	ImageData   []byte    `json:"imageData,omitempty"`
	VideoName   string    `json:"videoName"`
	VideoType   string    `json:"videoType"`
	VideoPath   string    `json:"videoPath"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// MovieMetadata is the caller-editable subset of a Movie.
type MovieMetadata struct {
	MovieName   string `json:"movieName"`
	Country     string `json:"country"`
	ReleaseDate Date   `json:"releaseDate"`
	Casts       string `json:"casts"`
	Duration    string `json:"duration"`
	About       string `json:"about"`
	Category    string `json:"category"`
}

// Apply overwrites every metadata field of the movie.
func (m MovieMetadata) Apply(movie *Movie) {
	movie.MovieName = m.MovieName
	movie.Country = m.Country
	movie.ReleaseDate = m.ReleaseDate
	movie.Casts = m.Casts
	movie.Duration = m.Duration
	movie.About = m.About
	movie.Category = m.Category
}

// Ownership links the uploading user to a movie.
type Ownership struct {
	ID      string
	UserID  string
	MovieID string
}

// ResetToken is a single-use credential allowing a password change.
type ResetToken struct {
	ID        string
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// DateLayout is the wire and storage format of release dates.
const DateLayout = "2006-01-02"

// Date is a calendar date encoded as YYYY-MM-DD. The zero value encodes as null.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar day in UTC.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string. An empty string yields the zero Date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// String returns the YYYY-MM-DD form, or "" for the zero Date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
