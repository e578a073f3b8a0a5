package v1

import (
	"github.com/gin-gonic/gin"
)

// DocumentRouteHandler defines the routes every document resource serves.
type DocumentRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
}

// SubmitHandler is implemented by documents that go through approval.
type SubmitHandler interface {
	Submit(c *gin.Context)
}

// CancelHandler is implemented by documents that can be cancelled.
type CancelHandler interface {
	Cancel(c *gin.Context)
}

// RegisterDocumentRoutes registers the list/create/get routes of a document
// and its optional submit and cancel actions.
//
// Usage:
//
//	handler := handlers.NewOrderHandler(base, app.Orders)
//	RegisterDocumentRoutes(api.Group("/pos"), handler)
func RegisterDocumentRoutes(group *gin.RouterGroup, handler DocumentRouteHandler) {
	group.GET("", handler.List)
	group.POST("", handler.Create)
	group.GET("/:id", handler.Get)

	if h, ok := handler.(SubmitHandler); ok {
		group.POST("/:id/submit", h.Submit)
	}
	if h, ok := handler.(CancelHandler); ok {
		group.POST("/:id/cancel", h.Cancel)
	}
}
