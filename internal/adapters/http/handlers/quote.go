package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ebulter/quote-service/internal/adapters/http/dto"
	"github.com/ebulter/quote-service/internal/adapters/http/middleware"
	"github.com/ebulter/quote-service/internal/app"
	"github.com/ebulter/quote-service/internal/domain"
	"github.com/ebulter/quote-service/internal/platform/logging"
)

// QuoteHandler handles the public quote endpoints.
type QuoteHandler struct {
	service *app.QuoteService
}

// NewQuoteHandler creates a new quote handler.
func NewQuoteHandler(service *app.QuoteService) *QuoteHandler {
	return &QuoteHandler{service: service}
}

// GetRandomQuote handles GET /quote.
// Anonymous callers get a uniform random quote; authenticated callers
// get an unseen one and have the view and progress cursor recorded.
func (h *QuoteHandler) GetRandomQuote(c *gin.Context) {
	h.serveRandomQuote(c, nil)
}

// GetRandomQuoteExcluding handles POST /quote. The body is a JSON array
// of quote ids to exclude from selection.
func (h *QuoteHandler) GetRandomQuoteExcluding(c *gin.Context) {
	var ids []int
	if err := c.ShouldBindJSON(&ids); err != nil {
		dto.RenderError(c, domain.NewValidationError("body", "must be a JSON array of quote ids"))

		return
	}

	exclude := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		exclude[id] = struct{}{}
	}

	h.serveRandomQuote(c, exclude)
}

func (h *QuoteHandler) serveRandomQuote(c *gin.Context, exclude map[int]struct{}) {
	ctx := c.Request.Context()

	var (
		quote *domain.Quote
		err   error
	)

	if claims := middleware.GetClaims(c); claims != nil {
		quote, err = h.service.GetRandomQuoteForUser(ctx, claims.Username, exclude)
	} else {
		quote, err = h.service.GetRandomQuote(ctx, exclude)
	}

	if err != nil {
		h.renderError(c, err, "get random quote")

		return
	}

	c.JSON(http.StatusOK, dto.NewQuoteResponse(quote))
}

// GetQuoteByID handles GET /quote/:id. Advances the caller's progress
// cursor when authenticated.
func (h *QuoteHandler) GetQuoteByID(c *gin.Context) {
	id, ok := h.quoteID(c)
	if !ok {
		return
	}

	username := ""
	if claims := middleware.GetClaims(c); claims != nil {
		username = claims.Username
	}

	quote, err := h.service.GetQuoteByID(c.Request.Context(), username, id)
	if err != nil {
		h.renderError(c, err, "get quote by id")

		return
	}

	c.JSON(http.StatusOK, dto.NewQuoteResponse(quote))
}

// GetPreviousQuote handles GET /quote/:id/previous.
func (h *QuoteHandler) GetPreviousQuote(c *gin.Context) {
	id, ok := h.quoteID(c)
	if !ok {
		return
	}

	claims := middleware.GetClaims(c)

	quote, err := h.service.GetPreviousQuote(c.Request.Context(), claims.Username, id)
	if err != nil {
		h.renderError(c, err, "get previous quote")

		return
	}

	c.JSON(http.StatusOK, dto.NewQuoteResponse(quote))
}

// GetNextQuote handles GET /quote/:id/next.
func (h *QuoteHandler) GetNextQuote(c *gin.Context) {
	id, ok := h.quoteID(c)
	if !ok {
		return
	}

	claims := middleware.GetClaims(c)

	quote, err := h.service.GetNextQuote(c.Request.Context(), claims.Username, id)
	if err != nil {
		h.renderError(c, err, "get next quote")

		return
	}

	c.JSON(http.StatusOK, dto.NewQuoteResponse(quote))
}

// LikeQuote handles POST /quote/:id/like.
func (h *QuoteHandler) LikeQuote(c *gin.Context) {
	id, ok := h.quoteID(c)
	if !ok {
		return
	}

	claims := middleware.GetClaims(c)

	quote, err := h.service.LikeQuote(c.Request.Context(), claims.Username, id)
	if err != nil {
		h.renderError(c, err, "like quote")

		return
	}

	c.JSON(http.StatusOK, dto.NewQuoteResponse(quote))
}

// UnlikeQuote handles POST and DELETE /quote/:id/unlike.
func (h *QuoteHandler) UnlikeQuote(c *gin.Context) {
	id, ok := h.quoteID(c)
	if !ok {
		return
	}

	claims := middleware.GetClaims(c)

	if err := h.service.UnlikeQuote(c.Request.Context(), claims.Username, id); err != nil {
		h.renderError(c, err, "unlike quote")

		return
	}

	c.Status(http.StatusNoContent)
}

// ReorderLikedQuote handles PUT /quote/:id/reorder.
func (h *QuoteHandler) ReorderLikedQuote(c *gin.Context) {
	id, ok := h.quoteID(c)
	if !ok {
		return
	}

	var req dto.ReorderRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		dto.RenderError(c, domain.NewValidationError("order", "must be a positive integer"))

		return
	}

	claims := middleware.GetClaims(c)

	if err := h.service.ReorderLikedQuote(c.Request.Context(), claims.Username, id, req.Order); err != nil {
		h.renderError(c, err, "reorder liked quote")

		return
	}

	c.Status(http.StatusNoContent)
}

// GetLikedQuotes handles GET /quote/liked. Authenticated callers get
// their ordered favorites; anonymous callers get the global liked feed.
func (h *QuoteHandler) GetLikedQuotes(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		quotes []domain.Quote
		err    error
	)

	if claims := middleware.GetClaims(c); claims != nil {
		quotes, err = h.service.GetLikedQuotes(ctx, claims.Username)
	} else {
		quotes, err = h.service.GetGlobalLikedQuotes(ctx)
	}

	if err != nil {
		h.renderError(c, err, "get liked quotes")

		return
	}

	c.JSON(http.StatusOK, dto.NewQuoteListResponse(quotes))
}

// GetViewHistory handles GET /quote/history.
func (h *QuoteHandler) GetViewHistory(c *gin.Context) {
	claims := middleware.GetClaims(c)

	quotes, err := h.service.GetViewHistory(c.Request.Context(), claims.Username)
	if err != nil {
		h.renderError(c, err, "get view history")

		return
	}

	c.JSON(http.StatusOK, dto.NewQuoteListResponse(quotes))
}

// ClearViewHistory handles DELETE /quote/history.
func (h *QuoteHandler) ClearViewHistory(c *gin.Context) {
	claims := middleware.GetClaims(c)

	if err := h.service.ClearViewHistory(c.Request.Context(), claims.Username); err != nil {
		h.renderError(c, err, "clear view history")

		return
	}

	c.Status(http.StatusNoContent)
}

// GetProgress handles GET /quote/progress.
func (h *QuoteHandler) GetProgress(c *gin.Context) {
	claims := middleware.GetClaims(c)

	progress, err := h.service.GetProgress(c.Request.Context(), claims.Username)
	if err != nil {
		h.renderError(c, err, "get progress")

		return
	}

	c.JSON(http.StatusOK, dto.NewProgressResponse(progress))
}

// quoteID parses the :id path parameter, rendering a 400 on failure.
func (h *QuoteHandler) quoteID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		dto.RenderError(c, domain.NewValidationError("id", "must be a positive integer"))

		return 0, false
	}

	return id, true
}

// renderError logs the failure with the caller's identity before
// writing the quote-shaped error body.
func (h *QuoteHandler) renderError(c *gin.Context, err error, operation string) {
	logger := logging.FromContext(c.Request.Context())

	attrs := []any{
		slog.String("operation", operation),
		slog.Any("error", err),
	}

	if claims := middleware.GetClaims(c); claims != nil {
		attrs = append(attrs,
			slog.String("sub", claims.Subject),
			slog.String("email", claims.Email),
		)
	}

	if dto.StatusFromError(err) >= http.StatusInternalServerError {
		logger.Error("request failed", attrs...)
	} else {
		logger.Warn("request rejected", attrs...)
	}

	dto.RenderError(c, err)
}
