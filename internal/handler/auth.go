package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-management/internal/config"
	"github.com/iliyamo/library-management/internal/model"
	"github.com/iliyamo/library-management/internal/repository"
	"github.com/iliyamo/library-management/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required,max=255"`
	Phone    string `json:"phone" validate:"omitempty,max=50"`
	Address  string `json:"address" validate:"omitempty,max=500"`
}
type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
type refreshReq struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}
type changePasswordReq struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

type tokenResp struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type profileResp struct {
	ID        uint64    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	Phone     *string   `json:"phone"`
	Address   *string   `json:"address"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toProfile(u model.User) profileResp {
	return profileResp{
		ID: u.ID, Email: u.Email, FullName: u.FullName, Role: u.Role,
		Phone: u.Phone, Address: u.Address, IsActive: u.IsActive,
		CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
	}
}

// issuePair signs a fresh access token and mints+stores a rotated
// refresh token for the user.
func (h *AuthHandler) issuePair(ctx context.Context, u model.User) (tokenResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, utils.Identity{
		UserID: u.ID, Role: u.Role, Email: u.Email, FullName: u.FullName,
	}, h.Cfg.AccessTTLHours)
	if err != nil {
		return tokenResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return tokenResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return tokenResp{}, err
	}
	return tokenResp{AccessToken: access.Token, RefreshToken: refresh.Raw}, nil
}

// Register creates a reader account and returns tokens immediately.
// Self-registration never grants the admin role.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return err
	}
	uid, err := h.Users.Create(ctx, req.Email, hash, req.FullName, model.RoleUser)
	if err != nil {
		if err == repository.ErrEmailExists {
			return c.JSON(http.StatusConflict, echo.Map{"message": "email already exists"})
		}
		return err
	}

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return err
	}
	if req.Phone != "" || req.Address != "" {
		if req.Phone != "" {
			u.Phone = &req.Phone
		}
		if req.Address != "" {
			u.Address = &req.Address
		}
		if err := h.Users.Update(ctx, u); err != nil {
			return err
		}
	}
	tokens, err := h.issuePair(ctx, u)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, tokens)
}

// Login verifies credentials and returns a new token pair.  Deactivated
// accounts are rejected with 403 even when the password matches.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid email or password"})
		}
		return err
	}
	if !u.IsActive {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "account is deactivated"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid email or password"})
	}

	tokens, err := h.issuePair(ctx, u)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tokens)
}

// Refresh validates a stored refresh token by hash, revokes it and
// issues a rotated pair.  A deactivated account invalidates its tokens.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "refreshToken required"})
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid refresh token"})
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil || !u.IsActive {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid refresh token"})
	}
	_ = h.Tokens.RevokeByHash(ctx, hash) // rotation: the old token dies here

	tokens, err := h.issuePair(ctx, u)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tokens)
}

// Logout revokes the presented refresh token, ending that session.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "refreshToken required"})
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid refresh token"})
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the caller's profile from the database, not the token, so
// admin edits show up immediately.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "authentication required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "user not found"})
		}
		return err
	}
	return c.JSON(http.StatusOK, toProfile(u))
}

// ChangePassword verifies the old password before writing the new hash.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "authentication required"})
	}
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "user not found"})
		}
		return err
	}
	if !utils.VerifyPassword(u.PasswordHash, req.OldPassword) {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "current password is incorrect"})
	}
	hash, err := utils.HashPassword(req.NewPassword, h.Cfg.BcryptCost)
	if err != nil {
		return err
	}
	if err := h.Users.UpdatePassword(ctx, uid, hash); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}
