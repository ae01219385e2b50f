package api

import (
	"context"
	"net/http"

	"fittrack/backend/internal/domain"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// resourceService is the authorized CRUD surface a ResourceHandler serves,
// implemented by service.Resource.
type resourceService[T any] interface {
	List(ctx context.Context, p *domain.Principal) ([]T, error)
	Get(ctx context.Context, p *domain.Principal, id primitive.ObjectID) (*T, error)
	Create(ctx context.Context, p *domain.Principal, item *T) (*T, error)
	Update(ctx context.Context, p *domain.Principal, id primitive.ObjectID, item *T) (*T, error)
	Delete(ctx context.Context, p *domain.Principal, id primitive.ObjectID) error
}

// ResourceHandler exposes one resource type as REST endpoints. Entities are
// bound and rendered directly: their json tags are the wire format.
type ResourceHandler[T any] struct {
	svc resourceService[T]
}

func NewResourceHandler[T any](svc resourceService[T]) *ResourceHandler[T] {
	return &ResourceHandler[T]{svc: svc}
}

// Register mounts the handler under path. Read-only resources get list,
// retrieve and delete only.
func (h *ResourceHandler[T]) Register(group *gin.RouterGroup, path string, writable bool) {
	g := group.Group(path)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.DELETE("/:id", h.Delete)
	if writable {
		g.POST("", h.Create)
		g.PUT("/:id", h.Update)
	}
}

// List godoc
// @Summary List records visible to the caller
// @Security BearerAuth
// @Produce json
// @Success 200 {array} object
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 403 {object} gin.H "Forbidden"
func (h *ResourceHandler[T]) List(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context(), principalFromContext(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, items)
}

// Get godoc
// @Summary Retrieve one record
// @Security BearerAuth
// @Produce json
// @Param id path string true "ObjectID Hex"
// @Failure 404 {object} gin.H "Not found, deleted or out of scope"
func (h *ResourceHandler[T]) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	item, err := h.svc.Get(c.Request.Context(), principalFromContext(c), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// Create godoc
// @Summary Create a record
// @Security BearerAuth
// @Accept json
// @Produce json
// @Failure 400 {object} gin.H "Validation error"
// @Failure 403 {object} gin.H "Forbidden"
func (h *ResourceHandler[T]) Create(c *gin.Context) {
	var item T
	if !bindJSON(c, &item) {
		return
	}
	created, err := h.svc.Create(c.Request.Context(), principalFromContext(c), &item)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// Update godoc
// @Summary Replace the editable fields of a record
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "ObjectID Hex"
func (h *ResourceHandler[T]) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var item T
	if !bindJSON(c, &item) {
		return
	}
	updated, err := h.svc.Update(c.Request.Context(), principalFromContext(c), id, &item)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// Delete godoc
// @Summary Soft-delete a record
// @Security BearerAuth
// @Param id path string true "ObjectID Hex"
// @Success 204 "No Content"
func (h *ResourceHandler[T]) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), principalFromContext(c), id); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
