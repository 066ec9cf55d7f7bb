package handler

import (
	"github.com/labstack/echo/v4"

	"lugares/internal/adapter/api/middleware"
	"lugares/internal/usecase"
	"lugares/pkg/response"
)

type CommentHandler struct {
	commentUseCase *usecase.CommentUseCase
}

func NewCommentHandler(commentUseCase *usecase.CommentUseCase) *CommentHandler {
	return &CommentHandler{
		commentUseCase: commentUseCase,
	}
}

type submitCommentRequest struct {
	Text string `json:"text" validate:"required"`
}

func (h *CommentHandler) SubmitComment(c echo.Context) error {
	var req submitCommentRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	comment, err := h.commentUseCase.SubmitComment(
		c.Request().Context(),
		c.Param("id"),
		middleware.IdentityFromContext(c),
		req.Text,
	)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, comment)
}

func (h *CommentHandler) ListComments(c echo.Context) error {
	comments, err := h.commentUseCase.ListComments(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, comments)
}

func (h *CommentHandler) DeleteComment(c echo.Context) error {
	commentID := c.Param("commentId")
	if err := h.commentUseCase.DeleteComment(c.Request().Context(), commentID, middleware.IdentityFromContext(c)); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{
		"id":      commentID,
		"deleted": true,
	})
}
