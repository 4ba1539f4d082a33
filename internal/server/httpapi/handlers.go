package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 16

type Handler struct {
	sessions *services.SessionManager
	cookies  CookieWriter
	logger   logging.Logger
	validate *validator.Validate
}

func NewHandler(sessions *services.SessionManager, cookies CookieWriter, logger logging.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		cookies:  cookies,
		logger:   logger.With("module", "httpapi"),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// bind decodes and validates the JSON body into dst, answering 400 itself
// on failure.
func (h *Handler) bind(c *gin.Context, dst any) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	if err := c.ShouldBindJSON(dst); err != nil {
		abortWith(c, HTTPError{Code: CodeValidation, Message: "body must be a valid JSON object", StatusCode: http.StatusBadRequest})
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		abortWith(c, HTTPError{Code: CodeValidation, Message: validationMessage(err), StatusCode: http.StatusBadRequest})
		return false
	}
	return true
}

// fail logs unexpected errors and writes the mapped response.
func (h *Handler) fail(c *gin.Context, e HTTPError, err error) {
	if e.StatusCode >= http.StatusInternalServerError {
		ctx := c.Request.Context()
		h.logger.Error(ctx, "request failed",
			"request_id", RequestIDFromContext(ctx),
			"path", c.FullPath(),
			"error", err)
	}
	abortWith(c, e)
}

func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if !h.bind(c, &req) {
		return
	}

	s, err := h.sessions.Signup(c.Request.Context(), services.SignupInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		h.fail(c, MapErr(err), err)
		return
	}

	h.cookies.SetPair(c.Writer, s.Tokens.AccessToken, s.Tokens.RefreshToken)
	c.JSON(http.StatusCreated, summaryOf(s.User))
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if !h.bind(c, &req) {
		return
	}

	s, err := h.sessions.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, MapErr(err), err)
		return
	}

	h.cookies.SetPair(c.Writer, s.Tokens.AccessToken, s.Tokens.RefreshToken)
	c.JSON(http.StatusOK, summaryOf(s.User))
}

// Logout deletes the refresh record before clearing cookies, so a refresh
// racing the logout cannot succeed afterwards.
func (h *Handler) Logout(c *gin.Context) {
	token, _ := c.Cookie(common.RefreshTokenCookieName)

	if err := h.sessions.Logout(c.Request.Context(), token); err != nil {
		h.fail(c, MapErr(err), err)
		return
	}

	h.cookies.Clear(c.Writer)
	c.JSON(http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

// RefreshToken sets a new access cookie. The refresh cookie must belong to
// the same subject as the (possibly expired) access cookie.
func (h *Handler) RefreshToken(c *gin.Context) {
	ctx := c.Request.Context()
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		abortWith(c, errUnauthenticated)
		return
	}

	token, err := c.Cookie(common.RefreshTokenCookieName)
	if errors.Is(err, http.ErrNoCookie) || token == "" {
		abortWith(c, errNoRefreshToken)
		return
	}

	access, err := h.sessions.Refresh(ctx, token, p.UserID)
	if err != nil {
		h.fail(c, mapRefreshErr(err), err)
		return
	}

	h.cookies.SetAccess(c.Writer, access)
	c.JSON(http.StatusOK, MessageResponse{Message: "Token refreshed successfully"})
}

func (h *Handler) Profile(c *gin.Context) {
	ctx := c.Request.Context()
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		abortWith(c, errUnauthenticated)
		return
	}

	u, err := h.sessions.Profile(ctx, p.UserID)
	if err != nil {
		h.fail(c, MapErr(err), err)
		return
	}
	c.JSON(http.StatusOK, summaryOf(u))
}

// UserByID is the admin view of any identity.
func (h *Handler) UserByID(c *gin.Context) {
	u, err := h.sessions.Profile(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, MapErr(err), err)
		return
	}
	c.JSON(http.StatusOK, summaryOf(u))
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
