package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ebulter/quote-service/internal/adapters/http/dto"
	"github.com/ebulter/quote-service/internal/adapters/http/middleware"
	"github.com/ebulter/quote-service/internal/app"
	"github.com/ebulter/quote-service/internal/domain"
	"github.com/ebulter/quote-service/internal/platform/logging"
)

// AdminHandler handles the ADMIN-gated catalog endpoints.
type AdminHandler struct {
	catalog *app.CatalogService
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(catalog *app.CatalogService) *AdminHandler {
	return &AdminHandler{catalog: catalog}
}

// ListQuotes handles GET /admin/quotes with page, pageSize, search and
// sortBy query parameters.
func (h *AdminHandler) ListQuotes(c *gin.Context) {
	var req dto.PageRequest
	if err := dto.BindQueryAndValidate(c, &req); err != nil {
		dto.RenderError(c, domain.NewValidationError("query", "invalid listing parameters"))

		return
	}

	result, err := h.catalog.ListQuotes(c.Request.Context(), app.ListQuotesQuery{
		Page:     req.GetPage(),
		PageSize: req.GetPageSize(),
		Search:   req.Search,
		SortBy:   req.SortBy,
	})
	if err != nil {
		dto.RenderError(c, err)

		return
	}

	c.JSON(http.StatusOK, dto.NewQuotePageResponse(result))
}

// ImportQuotes handles POST /admin/quotes/fetch, pulling a batch from
// the external feed into the catalog.
func (h *AdminHandler) ImportQuotes(c *gin.Context) {
	claims := middleware.GetClaims(c)

	added, err := h.catalog.ImportQuotes(c.Request.Context())
	if err != nil {
		logging.FromContext(c.Request.Context()).Error("quote import failed",
			slog.Any("error", err),
			slog.String("sub", claims.Subject),
		)
		dto.RenderError(c, err)

		return
	}

	c.JSON(http.StatusOK, dto.ImportResponse{Added: added})
}

// TotalLikes handles GET /admin/likes/total.
func (h *AdminHandler) TotalLikes(c *gin.Context) {
	total, err := h.catalog.TotalLikes(c.Request.Context())
	if err != nil {
		dto.RenderError(c, err)

		return
	}

	c.JSON(http.StatusOK, dto.TotalLikesResponse{TotalLikes: total})
}
