package profile

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/prok/internal/api/handlers/media"
	"github.com/aliskhannn/prok/internal/api/respond"
	"github.com/aliskhannn/prok/internal/middleware"
	"github.com/aliskhannn/prok/internal/model"
	profilerepo "github.com/aliskhannn/prok/internal/repository/profile"
)

// service defines the interface for profile operations.
type service interface {
	Get(ctx context.Context, userID uuid.UUID) (model.Profile, error)
	Update(ctx context.Context, userID uuid.UUID, p model.Profile) (model.Profile, error)
	SetImage(ctx context.Context, userID uuid.UUID, req model.UploadRequest) (model.UploadResult, error)
}

// Handler provides HTTP handlers for profile endpoints.
type Handler struct {
	service  service
	maxBytes int64
}

// NewHandler creates a new Handler with the given service and per-file
// upload ceiling.
func NewHandler(s service, maxBytes int64) *Handler {
	return &Handler{service: s, maxBytes: maxBytes}
}

// UpdateRequest is the body of PUT /api/profile.
type UpdateRequest struct {
	FullName    string              `json:"full_name"`
	Headline    string              `json:"headline"`
	Summary     string              `json:"summary"`
	About       string              `json:"about"`
	Location    string              `json:"location"`
	Email       string              `json:"email" binding:"omitempty,email"`
	Skills      []string            `json:"skills"`
	Experiences []ExperienceRequest `json:"experiences" binding:"dive"`
	Educations  []EducationRequest  `json:"educations" binding:"dive"`
}

// ExperienceRequest is a work history entry. Dates use YYYY-MM-DD.
type ExperienceRequest struct {
	Title       string `json:"title" binding:"required"`
	Company     string `json:"company" binding:"required"`
	Location    string `json:"location"`
	StartDate   string `json:"start_date" binding:"required"`
	EndDate     string `json:"end_date"`
	Description string `json:"description"`
}

// EducationRequest is an education entry.
type EducationRequest struct {
	School       string `json:"school" binding:"required"`
	Degree       string `json:"degree"`
	FieldOfStudy string `json:"field_of_study"`
	StartYear    *int   `json:"start_year"`
	EndYear      *int   `json:"end_year"`
	Description  string `json:"description"`
}

const dateLayout = "2006-01-02"

func (r UpdateRequest) toModel() (model.Profile, error) {
	p := model.Profile{
		FullName:    r.FullName,
		Headline:    r.Headline,
		Summary:     r.Summary,
		About:       r.About,
		Location:    r.Location,
		Email:       r.Email,
		Skills:      r.Skills,
		Experiences: make([]model.Experience, 0, len(r.Experiences)),
		Educations:  make([]model.Education, 0, len(r.Educations)),
	}

	for _, e := range r.Experiences {
		start, err := time.Parse(dateLayout, e.StartDate)
		if err != nil {
			return model.Profile{}, fmt.Errorf("invalid start_date %q", e.StartDate)
		}

		var end *time.Time
		if e.EndDate != "" {
			t, err := time.Parse(dateLayout, e.EndDate)
			if err != nil {
				return model.Profile{}, fmt.Errorf("invalid end_date %q", e.EndDate)
			}
			end = &t
		}

		p.Experiences = append(p.Experiences, model.Experience{
			Title:       e.Title,
			Company:     e.Company,
			Location:    e.Location,
			StartDate:   start,
			EndDate:     end,
			Description: e.Description,
		})
	}

	for _, e := range r.Educations {
		p.Educations = append(p.Educations, model.Education{
			School:       e.School,
			Degree:       e.Degree,
			FieldOfStudy: e.FieldOfStudy,
			StartYear:    e.StartYear,
			EndYear:      e.EndYear,
			Description:  e.Description,
		})
	}

	return p, nil
}

// GetOwn returns the authenticated user's profile.
func (h *Handler) GetOwn(c *gin.Context) {
	h.get(c, middleware.UserID(c))
}

// GetByUser returns the public view of another user's profile.
func (h *Handler) GetByUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid user id"))
		return
	}

	h.get(c, userID)
}

func (h *Handler) get(c *gin.Context, userID uuid.UUID) {
	p, err := h.service.Get(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, profilerepo.ErrProfileNotFound) {
			respond.Fail(c, http.StatusNotFound, fmt.Errorf("profile not found"))
			return
		}

		zlog.Logger.Err(err).Msg("failed to get profile")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to get profile"))
		return
	}

	respond.OK(c, p)
}

// Update replaces the authenticated user's profile fields.
func (h *Handler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zlog.Logger.Warn().Err(err).Msg("invalid profile body")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	p, err := req.toModel()
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, err)
		return
	}

	updated, err := h.service.Update(c.Request.Context(), middleware.UserID(c), p)
	if err != nil {
		zlog.Logger.Err(err).Msg("failed to update profile")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to update profile"))
		return
	}

	respond.OK(c, updated)
}

// UploadImage stores a new profile image for the authenticated user.
func (h *Handler) UploadImage(c *gin.Context) {
	req, done, err := media.FormFile(c, "image", h.maxBytes)
	if err != nil {
		respond.FailUpload(c, err)
		return
	}
	defer done()

	res, err := h.service.SetImage(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respond.FailUpload(c, err)
		return
	}

	respond.OK(c, gin.H{
		"msg":   "Profile image uploaded successfully",
		"image": res,
	})
}
