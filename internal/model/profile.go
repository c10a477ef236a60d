package model

import (
	"time"

	"github.com/google/uuid"
)

// Profile holds the public-facing information of a user.
type Profile struct {
	ID               uuid.UUID    `json:"id"`
	UserID           uuid.UUID    `json:"user_id"`
	FullName         string       `json:"full_name"`
	Headline         string       `json:"headline"`
	Summary          string       `json:"summary"`
	About            string       `json:"about"`
	Location         string       `json:"location"`
	Email            string       `json:"email"`
	ProfileImage     string       `json:"profile_image"`
	ProfileThumbnail string       `json:"profile_thumbnail"`
	Skills           []string     `json:"skills"`
	Experiences      []Experience `json:"experiences"`
	Educations       []Education  `json:"educations"`
}

// Experience is a single position in a profile's work history.
type Experience struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Company     string     `json:"company"`
	Location    string     `json:"location"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Description string     `json:"description"`
}

// Education is a single entry in a profile's education history.
type Education struct {
	ID           uuid.UUID `json:"id"`
	School       string    `json:"school"`
	Degree       string    `json:"degree"`
	FieldOfStudy string    `json:"field_of_study"`
	StartYear    *int      `json:"start_year"`
	EndYear      *int      `json:"end_year"`
	Description  string    `json:"description"`
}
