package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"copium-tutor/internal/app"
	"copium-tutor/internal/transport/http/response"
)

type DeckHandler struct {
	deckService *app.DeckService
}

type CreateDeckRequest struct {
	Name   string `json:"name" binding:"required,max=256"`
	Prompt string `json:"prompt" binding:"required"`
}

type AddCardRequest struct {
	Front string `json:"front" binding:"required"`
	Back  string `json:"back" binding:"required"`
}

func NewDeckHandler(deckService *app.DeckService) *DeckHandler {
	return &DeckHandler{deckService: deckService}
}

func (h *DeckHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req CreateDeckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	result, err := h.deckService.CreateDeck(c.Request.Context(), userID, c.Param("id"), req.Name, req.Prompt)
	if err != nil {
		writeError(c, err, "create deck failed")
		return
	}
	response.OK(c, result)
}

func (h *DeckHandler) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	result, err := h.deckService.GetDeck(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err, "get deck failed")
		return
	}
	response.OK(c, result)
}

func (h *DeckHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	decks, err := h.deckService.ListDecks(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err, "list decks failed")
		return
	}
	response.OK(c, decks)
}

func (h *DeckHandler) ListAll(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	decks, err := h.deckService.ListAllDecks(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err, "list decks failed")
		return
	}
	response.OK(c, decks)
}

func (h *DeckHandler) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	deckID := c.Param("id")
	if err := h.deckService.DeleteDeck(c.Request.Context(), userID, deckID); err != nil {
		writeError(c, err, "delete deck failed")
		return
	}
	response.OK(c, gin.H{"deleted_deck_id": deckID})
}

func (h *DeckHandler) AddCard(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req AddCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	card, err := h.deckService.AddCard(c.Request.Context(), userID, c.Param("id"), req.Front, req.Back)
	if err != nil {
		writeError(c, err, "add card failed")
		return
	}
	response.OK(c, card)
}

func (h *DeckHandler) DeleteCard(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	cardID := c.Param("id")
	if err := h.deckService.DeleteCard(c.Request.Context(), userID, cardID); err != nil {
		writeError(c, err, "delete card failed")
		return
	}
	response.OK(c, gin.H{"deleted_card_id": cardID})
}
