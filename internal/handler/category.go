package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-management/internal/model"
	"github.com/iliyamo/library-management/internal/repository"
)

// CategoryHandler serves the public category listing and the admin-only
// mutations.
type CategoryHandler struct {
	Categories *repository.CategoryRepo
}

func NewCategoryHandler(r *repository.CategoryRepo) *CategoryHandler {
	return &CategoryHandler{Categories: r}
}

type categoryResp struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func toCategoryResp(c model.Category) categoryResp {
	return categoryResp{ID: c.ID, Name: c.Name, Description: c.Description, CreatedAt: c.CreatedAt}
}

// List handles GET /api/categories.
func (h *CategoryHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cats, err := h.Categories.List(ctx)
	if err != nil {
		return err
	}
	out := make([]categoryResp, 0, len(cats))
	for _, cat := range cats {
		out = append(out, toCategoryResp(cat))
	}
	return c.JSON(http.StatusOK, out)
}

type createCategoryReq struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description"`
}

// Create handles POST /api/categories (admin).
func (h *CategoryHandler) Create(c echo.Context) error {
	var req createCategoryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var desc *string
	if req.Description != "" {
		desc = &req.Description
	}
	id, err := h.Categories.Create(ctx, req.Name, desc)
	if err != nil {
		if err == repository.ErrCategoryExists {
			return c.JSON(http.StatusConflict, echo.Map{"message": "category already exists"})
		}
		return err
	}
	cat, err := h.Categories.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toCategoryResp(cat))
}

// Update handles PUT /api/categories/:id (admin) with patch semantics.
func (h *CategoryHandler) Update(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid category id"})
	}
	var patch model.CategoryPatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
	}
	if patch.Empty() {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "nothing to update"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	current, err := h.Categories.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrCategoryNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "category not found"})
		}
		return err
	}

	merged := patch.Apply(current)
	if merged.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "name cannot be empty"})
	}
	if err := h.Categories.Update(ctx, merged); err != nil {
		if err == repository.ErrCategoryExists {
			return c.JSON(http.StatusConflict, echo.Map{"message": "category already exists"})
		}
		return err
	}
	cat, err := h.Categories.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCategoryResp(cat))
}

// Delete handles DELETE /api/categories/:id (admin).  A category that
// still has non-deleted books stays.
func (h *CategoryHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid category id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	switch err := h.Categories.Delete(ctx, id); err {
	case nil:
		return c.JSON(http.StatusOK, echo.Map{"ok": true})
	case repository.ErrCategoryInUse:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "category still has books and cannot be deleted"})
	case repository.ErrCategoryNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": "category not found"})
	default:
		return err
	}
}
