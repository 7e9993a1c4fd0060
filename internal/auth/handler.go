package auth

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/amphitryon/backend/internal/apperr"
	"github.com/amphitryon/backend/internal/models"
	"github.com/amphitryon/backend/pkg/response"
)

// SignUpStudentRequest is the body for POST /signUpStudent.
type SignUpStudentRequest struct {
	Username    string `json:"username" binding:"required"`
	TokenID     string `json:"tokenID" binding:"required"`
	AccessToken string `json:"accessToken"` // optional, used to fill email and names
}

// SignUpHostRequest is the body for POST /signUpHost.
type SignUpHostRequest struct {
	TokenID     string       `json:"tokenID" binding:"required"`
	AccessToken string       `json:"accessToken"`
	Username    string       `json:"username"` // defaults to Name
	Name        string       `json:"name" binding:"required"`
	Street      string       `json:"street"`
	StreetNb    string       `json:"streetNb"`
	CityName    string       `json:"cityName"`
	NPA         string       `json:"npa"`
	Description string       `json:"description"`
	Tags        []models.Tag `json:"tags"`
}

// LoginRequest is the body for POST /login.
type LoginRequest struct {
	TokenID  string `json:"tokenID" binding:"required"`
	Username string `json:"username"` // disambiguates accounts sharing the test subject
}

// TokenResponse is the auth response. The token is also sent in the session header.
type TokenResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// IdentityVerifier validates external ID tokens. *GoogleVerifier implements it.
type IdentityVerifier interface {
	Verify(ctx context.Context, rawIDToken, accessToken string) (*Identity, error)
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo     *Repository
	jwt      *JWTService
	verifier IdentityVerifier
	header   string
	logger   *zap.Logger
}

// NewHandler creates an auth handler. Tokens are returned in the given header.
func NewHandler(repo *Repository, jwt *JWTService, verifier IdentityVerifier, header string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, jwt: jwt, verifier: verifier, header: header, logger: logger}
}

// SignUpStudent handles POST /signUpStudent.
func (h *Handler) SignUpStudent(c *gin.Context) {
	var req SignUpStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	h.signUp(c, req.TokenID, req.AccessToken, req.Username, func(u *models.User) {
		if u.StudentProfile == nil {
			u.StudentProfile = &models.StudentProfile{
				MeetingsOwnerID:          []string{},
				MeetingsParticipationsID: []string{},
			}
		}
	})
}

// SignUpHost handles POST /signUpHost.
func (h *Handler) SignUpHost(c *gin.Context) {
	var req SignUpHostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	username := req.Username
	if username == "" {
		username = req.Name
	}
	h.signUp(c, req.TokenID, req.AccessToken, username, func(u *models.User) {
		u.HostProfile = &models.HostProfile{
			Name: req.Name,
			Address: models.Address{
				Street:   req.Street,
				StreetNb: req.StreetNb,
				CityName: req.CityName,
				NPA:      req.NPA,
			},
			Description: req.Description,
			Tags:        req.Tags,
		}
	})
}

// signUp verifies the ID token, then either attaches a profile to the account
// already bound to the Google subject or creates a new account.
func (h *Handler) signUp(c *gin.Context, tokenID, accessToken, username string, attach func(*models.User)) {
	ctx := c.Request.Context()
	id, err := h.verifier.Verify(ctx, tokenID, accessToken)
	if err != nil {
		response.Unauthorized(c, "invalid google token")
		return
	}

	if id.Subject != TestSubject {
		existing, err := h.repo.GetByGoogleID(ctx, id.Subject)
		switch {
		case err == nil:
			attach(existing)
			if err := h.repo.Save(ctx, existing); err != nil {
				h.logger.Error("save user", zap.String("user_id", existing.ID), zap.Error(err))
				response.Internal(c, "failed to save user")
				return
			}
			h.issue(c, existing, false)
			return
		case !errors.Is(err, apperr.ErrNotFound):
			h.logger.Error("lookup google subject", zap.Error(err))
			response.Internal(c, "failed to load user")
			return
		}
	}

	if _, err := h.repo.GetByUsername(ctx, username); err == nil {
		response.Conflict(c, "username already taken")
		return
	} else if !errors.Is(err, apperr.ErrNotFound) {
		h.logger.Error("lookup username", zap.Error(err))
		response.Internal(c, "failed to load user")
		return
	}

	u := &models.User{
		ID:        uuid.NewString(),
		Username:  username,
		Firstname: id.GivenName,
		Lastname:  id.FamilyName,
		Email:     id.Email,
		GoogleID:  id.Subject,
	}
	attach(u)
	if err := h.repo.Save(ctx, u); err != nil {
		h.logger.Error("create user", zap.String("username", username), zap.Error(err))
		response.Internal(c, "failed to create user")
		return
	}
	h.logger.Info("user signed up", zap.String("user_id", u.ID), zap.Bool("student", u.IsStudent()), zap.Bool("host", u.IsHost()))
	h.issue(c, u, true)
}

// Login handles POST /login: a fresh session token for the account bound to the Google subject.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ctx := c.Request.Context()
	id, err := h.verifier.Verify(ctx, req.TokenID, "")
	if err != nil {
		response.Unauthorized(c, "invalid google token")
		return
	}

	var u *models.User
	if req.Username != "" {
		u, err = h.repo.GetByUsername(ctx, req.Username)
		if err == nil && u.GoogleID != id.Subject {
			err = apperr.NotFound("user", req.Username)
		}
	} else {
		u, err = h.repo.GetByGoogleID(ctx, id.Subject)
	}
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			response.Unauthorized(c, "no account for this google identity")
			return
		}
		h.logger.Error("login lookup", zap.Error(err))
		response.Internal(c, "failed to load user")
		return
	}
	h.issue(c, u, false)
}

// GetByUsername handles GET /user/:username.
func (h *Handler) GetByUsername(c *gin.Context) {
	u, err := h.repo.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			response.NotFound(c, "user not found")
			return
		}
		response.Internal(c, "failed to load user")
		return
	}
	response.OK(c, u.ToPublic())
}

// List handles GET /users.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list users")
		return
	}
	response.OK(c, list)
}

func (h *Handler) issue(c *gin.Context, u *models.User, created bool) {
	token, err := h.jwt.Generate(u.ID, u.Username)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	c.Header(h.header, BearerPrefix+token)
	body := TokenResponse{Token: token, User: u}
	if created {
		response.Created(c, body)
		return
	}
	response.OK(c, body)
}
