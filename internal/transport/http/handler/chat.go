package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"copium-tutor/internal/app"
	"copium-tutor/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
}

type CreateChatRequest struct {
	Title       string `json:"title" binding:"max=256"`
	LLMProvider string `json:"llm_provider"`
	ModelName   string `json:"model_name"`
}

type RenameChatRequest struct {
	Title string `json:"title" binding:"required,max=256"`
}

type SendChatMessageRequest struct {
	Content     string `json:"content" binding:"required"`
	LLMProvider string `json:"llm_provider"`
	ModelName   string `json:"model_name"`
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	chat, err := h.chatService.CreateChat(c.Request.Context(), app.CreateChatInput{
		ProjectID:   c.Param("id"),
		UserID:      userID,
		Title:       req.Title,
		LLMProvider: req.LLMProvider,
		ModelName:   req.ModelName,
	})
	if err != nil {
		writeError(c, err, "create chat failed")
		return
	}
	response.OK(c, chat)
}

func (h *ChatHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	chats, err := h.chatService.ListChats(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err, "list chats failed")
		return
	}
	response.OK(c, chats)
}

func (h *ChatHandler) ListAll(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	chats, err := h.chatService.ListAllChats(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err, "list chats failed")
		return
	}
	response.OK(c, chats)
}

func (h *ChatHandler) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	detail, err := h.chatService.GetChat(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err, "get chat failed")
		return
	}
	response.OK(c, detail)
}

func (h *ChatHandler) Rename(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req RenameChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	chat, err := h.chatService.RenameChat(c.Request.Context(), userID, c.Param("id"), req.Title)
	if err != nil {
		writeError(c, err, "rename chat failed")
		return
	}
	response.OK(c, chat)
}

func (h *ChatHandler) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	chatID := c.Param("id")
	if err := h.chatService.DeleteChat(c.Request.Context(), userID, chatID); err != nil {
		writeError(c, err, "delete chat failed")
		return
	}
	response.OK(c, gin.H{"deleted_chat_id": chatID})
}

// SendMessage answers synchronously; the reply is in the response body.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req SendChatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	result, err := h.chatService.SendMessage(c.Request.Context(), app.SendChatMessageInput{
		UserID:      userID,
		ChatID:      c.Param("id"),
		Content:     req.Content,
		LLMProvider: req.LLMProvider,
		ModelName:   req.ModelName,
	})
	if err != nil {
		writeError(c, err, "send message failed")
		return
	}
	response.OK(c, result)
}
