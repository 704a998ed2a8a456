package app

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"gorm.io/gorm"

	"copium-tutor/internal/backboard"
	"copium-tutor/internal/model"
	"copium-tutor/internal/repository"
	"copium-tutor/internal/study"
)

const (
	msgChatNoAPIKey   = "BACKBOARD_API_KEY not set, so I can't answer yet."
	msgEmptyReply     = "The model returned an empty response."
	chatMessagesLimit = 200
)

// MessageSink persists chat messages, either in place or through the broker.
type MessageSink interface {
	Persist(ctx context.Context, msg model.ChatMessage) error
}

// storeSink writes messages synchronously through the repository.
type storeSink struct {
	repo *repository.ChatMessageRepository
}

func (s storeSink) Persist(_ context.Context, msg model.ChatMessage) error {
	return s.repo.Create(&msg)
}

// ChatService runs per-project tutor chats. All chats of a project share the
// project's memory thread and write to its memory.
type ChatService struct {
	db       *gorm.DB
	client   MemoryService
	sessions *MemorySessionManager
	sink     MessageSink
	defaults backboard.MessageOptions
	logger   *slog.Logger
	now      func() time.Time
}

// NewChatService wires the chat service. A nil sink stores messages
// directly in db.
func NewChatService(
	db *gorm.DB,
	client MemoryService,
	sessions *MemorySessionManager,
	sink MessageSink,
	defaults backboard.MessageOptions,
	logger *slog.Logger,
) *ChatService {
	if sink == nil {
		sink = storeSink{repo: repository.NewChatMessageRepository(db)}
	}
	defaults.Memory = backboard.MemoryReadwrite
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{
		db:       db,
		client:   client,
		sessions: sessions,
		sink:     sink,
		defaults: defaults,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type CreateChatInput struct {
	ProjectID   string
	UserID      string
	Title       string
	LLMProvider string
	ModelName   string
}

type SendChatMessageInput struct {
	UserID      string
	ChatID      string
	Content     string
	LLMProvider string
	ModelName   string
}

// ChatSummary is a chat listed across projects.
type ChatSummary struct {
	model.Chat
	ProjectName string `json:"project_name"`
}

type ChatDetail struct {
	Chat     *model.Chat         `json:"chat"`
	Messages []model.ChatMessage `json:"messages"`
}

// SendChatResult carries the stored turn. Title reflects an automatic rename
// after the first message.
type SendChatResult struct {
	ChatID      string              `json:"chat_id"`
	Title       string              `json:"chat_title"`
	LLMProvider string              `json:"llm_provider"`
	ModelName   string              `json:"model_name"`
	Messages    []model.ChatMessage `json:"messages"`
}

func (s *ChatService) CreateChat(ctx context.Context, input CreateChatInput) (*model.Chat, error) {
	if input.UserID == "" || input.ProjectID == "" {
		return nil, ErrInvalidInput
	}

	store := repository.OpenStore(ctx, s.db)
	defer store.Close()

	if err := ownProject(store, input.UserID, input.ProjectID); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = study.DefaultChatTitle
	}
	now := s.now()
	chat := &model.Chat{
		ID:          uuid.NewString(),
		ProjectID:   input.ProjectID,
		UserID:      input.UserID,
		Title:       title,
		LLMProvider: firstNonEmpty(input.LLMProvider, s.defaults.LLMProvider),
		ModelName:   firstNonEmpty(input.ModelName, s.defaults.ModelName),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := store.Chats.Create(chat); err != nil {
		return nil, err
	}
	return chat, nil
}

func (s *ChatService) ListChats(ctx context.Context, userID, projectID string) ([]model.Chat, error) {
	store := repository.OpenStore(ctx, s.db)
	defer store.Close()

	if err := ownProject(store, userID, projectID); err != nil {
		return nil, err
	}
	return store.Chats.ListByProjectID(projectID, userID)
}

// ListAllChats lists the user's chats in every project, most recent first.
func (s *ChatService) ListAllChats(ctx context.Context, userID string) ([]ChatSummary, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	store := repository.OpenStore(ctx, s.db)
	defer store.Close()

	chats, err := store.Chats.ListByUserID(userID)
	if err != nil {
		return nil, err
	}
	projectIDs := make([]string, 0, len(chats))
	for _, c := range chats {
		projectIDs = append(projectIDs, c.ProjectID)
	}
	names, err := projectNames(store.Projects, projectIDs)
	if err != nil {
		return nil, err
	}

	out := make([]ChatSummary, 0, len(chats))
	for _, c := range chats {
		out = append(out, ChatSummary{Chat: c, ProjectName: names[c.ProjectID]})
	}
	return out, nil
}

func (s *ChatService) GetChat(ctx context.Context, userID, chatID string) (*ChatDetail, error) {
	store := repository.OpenStore(ctx, s.db)
	defer store.Close()

	chat, err := ownChat(store, userID, chatID)
	if err != nil {
		return nil, err
	}
	messages, err := store.ChatMessages.ListByChatID(chatID, chatMessagesLimit)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []model.ChatMessage{}
	}
	return &ChatDetail{Chat: chat, Messages: messages}, nil
}

func (s *ChatService) RenameChat(ctx context.Context, userID, chatID, title string) (*model.Chat, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, goerr.Wrap(ErrInvalidInput, "title cannot be empty")
	}

	store := repository.OpenStore(ctx, s.db)
	defer store.Close()

	found, err := store.Chats.Update(chatID, userID, map[string]any{"title": title})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrChatNotFound
	}
	return ownChat(store, userID, chatID)
}

func (s *ChatService) DeleteChat(ctx context.Context, userID, chatID string) error {
	store := repository.OpenStore(ctx, s.db)
	defer store.Close()

	deleted, err := store.Chats.DeleteWithMessages(chatID, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrChatNotFound
	}
	return nil
}

// SendMessage stores the user's message, asks the project's memory thread
// for a reply and stores that too. The first message of a chat with a
// placeholder title renames the chat after the message.
func (s *ChatService) SendMessage(ctx context.Context, input SendChatMessageInput) (*SendChatResult, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, goerr.Wrap(ErrInvalidInput, "message cannot be empty")
	}

	store := repository.OpenStore(ctx, s.db)
	defer store.Close()

	chat, err := ownChat(store, input.UserID, input.ChatID)
	if err != nil {
		return nil, err
	}
	if err := ownProject(store, input.UserID, chat.ProjectID); err != nil {
		return nil, err
	}

	count, err := store.ChatMessages.CountByChatID(chat.ID)
	if err != nil {
		return nil, err
	}
	retitle := count == 0 && study.IsPlaceholderTitle(chat.Title)

	opts := s.defaults
	opts.LLMProvider = firstNonEmpty(input.LLMProvider, chat.LLMProvider, s.defaults.LLMProvider)
	opts.ModelName = firstNonEmpty(input.ModelName, chat.ModelName, s.defaults.ModelName)

	userMsg := s.message(chat, model.ChatRoleUser, content)
	if err := s.sink.Persist(ctx, userMsg); err != nil {
		return nil, goerr.Wrap(err, "persist chat message failed", goerr.V("chat_id", chat.ID))
	}

	reply := msgChatNoAPIKey
	if s.client.Configured() {
		handle, err := s.sessions.Resolve(ctx, store.Sessions, chat.ProjectID)
		if err != nil {
			return nil, err
		}
		reply, err = s.client.SendMessage(ctx, handle.ThreadID, study.ChatPrompt(chat.Title, content), opts)
		if err != nil {
			return nil, goerr.Wrap(err, "chat reply failed",
				goerr.V("chat_id", chat.ID), goerr.V("thread_id", handle.ThreadID))
		}
		if reply = strings.TrimSpace(reply); reply == "" {
			reply = msgEmptyReply
		}
	}

	assistantMsg := s.message(chat, model.ChatRoleAssistant, reply)
	if err := s.sink.Persist(ctx, assistantMsg); err != nil {
		return nil, goerr.Wrap(err, "persist chat reply failed", goerr.V("chat_id", chat.ID))
	}

	fields := map[string]any{"llm_provider": opts.LLMProvider, "model_name": opts.ModelName}
	if retitle {
		chat.Title = study.ChatTitle(content)
		fields["title"] = chat.Title
	}
	if _, err := store.Chats.Update(chat.ID, input.UserID, fields); err != nil {
		return nil, err
	}

	return &SendChatResult{
		ChatID:      chat.ID,
		Title:       chat.Title,
		LLMProvider: opts.LLMProvider,
		ModelName:   opts.ModelName,
		Messages:    []model.ChatMessage{userMsg, assistantMsg},
	}, nil
}

func (s *ChatService) message(chat *model.Chat, role, content string) model.ChatMessage {
	return model.ChatMessage{
		ID:        uuid.NewString(),
		ChatID:    chat.ID,
		UserID:    chat.UserID,
		Role:      role,
		Content:   content,
		CreatedAt: s.now(),
	}
}

func ownProject(store *repository.Store, userID, projectID string) error {
	project, err := store.Projects.GetByID(projectID)
	if err != nil {
		return err
	}
	if project == nil || project.UserID != userID {
		return ErrProjectNotFound
	}
	return nil
}

func ownChat(store *repository.Store, userID, chatID string) (*model.Chat, error) {
	chat, err := store.Chats.GetByIDAndUserID(chatID, userID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, ErrChatNotFound
	}
	return chat, nil
}

// projectNames maps project ids to names for cross-project listings.
func projectNames(projects *repository.ProjectRepository, ids []string) (map[string]string, error) {
	rows, err := projects.ListByIDs(uniqueStrings(ids))
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(rows))
	for _, p := range rows {
		names[p.ID] = p.Name
	}
	return names, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
