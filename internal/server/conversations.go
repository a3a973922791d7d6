package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/scout/internal/store"
)

// ConversationsHandler persists chat histories for the frontend.
type ConversationsHandler struct {
	Store *store.ConversationStore
}

func (h *ConversationsHandler) Register(g *echo.Group) {
	g.GET("/conversations", h.list)
	g.POST("/conversations", h.replace)
	g.POST("/conversations/order", h.reorder)
	g.POST("/conversation/new", h.create)
	g.POST("/conversation/add_message", h.addMessage)
	g.POST("/conversation/delete", h.remove)
}

func (h *ConversationsHandler) list(c echo.Context) error {
	f, err := h.Store.List()
	if err != nil {
		return err
	}
	if f.Conversations == nil {
		f.Conversations = []store.Conversation{}
	}
	if f.Order == nil {
		f.Order = []string{}
	}
	return c.JSON(http.StatusOK, f)
}

func (h *ConversationsHandler) replace(c echo.Context) error {
	var f store.File
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.Store.Replace(f); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "saved"})
}

func (h *ConversationsHandler) reorder(c echo.Context) error {
	var req struct {
		Order []string `json:"order"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.Store.Reorder(req.Order); err != nil {
		return conversationError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "saved"})
}

func (h *ConversationsHandler) create(c echo.Context) error {
	var req struct {
		Title string `json:"title"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Title) == "" {
		req.Title = "New conversation"
	}
	conv, err := h.Store.Create(req.Title)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, conv)
}

func (h *ConversationsHandler) addMessage(c echo.Context) error {
	var req struct {
		ID      string `json:"id"`
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.ID == "" || req.Role == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "id and role are required")
	}
	conv, err := h.Store.AddMessage(req.ID, store.ChatMessage{Role: req.Role, Content: req.Content})
	if err != nil {
		return conversationError(err)
	}
	return c.JSON(http.StatusOK, conv)
}

func (h *ConversationsHandler) remove(c echo.Context) error {
	var req struct {
		ID string `json:"id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.Store.Delete(req.ID); err != nil {
		return conversationError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}

func conversationError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return err
}
