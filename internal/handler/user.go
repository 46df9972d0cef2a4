package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-management/internal/model"
	"github.com/iliyamo/library-management/internal/repository"
)

// UserHandler covers the admin user-management surface.  Every route it
// serves sits behind the admin role gate, so the methods do not check
// the caller's role again.
type UserHandler struct {
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
}

func NewUserHandler(u *repository.UserRepo, t *repository.TokenRepo) *UserHandler {
	if u == nil || t == nil {
		panic("nil repository passed to NewUserHandler")
	}
	return &UserHandler{Users: u, Tokens: t}
}

// userResp is the admin projection of a user.  The password hash never
// leaves the repository layer.
type userResp struct {
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

func toUserResp(u model.User) userResp {
	return userResp{
		ID: u.ID, Email: u.Email, FullName: u.FullName, Role: u.Role,
		Phone: u.Phone, Address: u.Address, IsActive: u.IsActive,
		CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
	}
}

// List handles GET /api/users with an optional q= search over email and
// full name.
func (h *UserHandler) List(c echo.Context) error {
	q := repository.UserSearchQuery{Q: c.QueryParam("q")}
	q.Page, q.PageSize = parsePage(c, 20)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, total, err := h.Users.Search(ctx, q)
	if err != nil {
		return err
	}
	items := make([]userResp, 0, len(users))
	for _, u := range users {
		items = append(items, toUserResp(u))
	}
	return c.JSON(http.StatusOK, pageResponse{
		Page: q.Page, PageSize: q.PageSize, Total: total, Items: items,
	})
}

// Get handles GET /api/users/:id.
func (h *UserHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid user id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "user not found"})
		}
		return err
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}

// Update handles PUT /api/users/:id.  Partial update: absent fields are
// untouched, empty strings clear the nullable contact columns.  When an
// account is deactivated its refresh tokens are revoked in the same
// request so the session dies with it.
func (h *UserHandler) Update(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid user id"})
	}
	var patch model.UserPatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
	}
	if patch.Empty() {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "nothing to update"})
	}
	if patch.Role != nil && *patch.Role != model.RoleUser && *patch.Role != model.RoleAdmin {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid role"})
	}
	if patch.FullName != nil && *patch.FullName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "full_name must not be empty"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "user not found"})
		}
		return err
	}
	wasActive := u.IsActive
	u = patch.Apply(u)
	if err := h.Users.Update(ctx, u); err != nil {
		return err
	}
	if wasActive && !u.IsActive {
		if err := h.Tokens.RevokeAllForUser(ctx, u.ID); err != nil {
			return err
		}
	}

	u, err = h.Users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}

// Delete handles DELETE /api/users/:id by deactivating the account.
// Rows are kept so loan history keeps its borrower.
func (h *UserHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid user id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Users.GetByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "user not found"})
		}
		return err
	}
	if err := h.Users.Deactivate(ctx, id); err != nil {
		return err
	}
	if err := h.Tokens.RevokeAllForUser(ctx, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}
