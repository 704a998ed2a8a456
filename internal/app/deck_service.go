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

const msgCardsSkipped = "BACKBOARD_API_KEY not set, cards not generated"

type DeckResult struct {
	Deck         *model.Deck    `json:"deck"`
	Cards        []model.Card   `json:"cards"`
	Mode         study.DeckMode `json:"mode,omitempty"`
	Confidence   int            `json:"confidence"`
	Warning      string         `json:"warning,omitempty"`
	MatchedFiles []string       `json:"matched_files"`
}

// DeckService generates flashcard decks from a project's memory thread.
type DeckService struct {
	db       *gorm.DB
	client   MemoryService
	sessions *MemorySessionManager
	message  backboard.MessageOptions
	logger   *slog.Logger
}

func NewDeckService(db *gorm.DB, client MemoryService, sessions *MemorySessionManager, message backboard.MessageOptions, logger *slog.Logger) *DeckService {
	message.Memory = backboard.MemoryReadonly
	if logger == nil {
		logger = slog.Default()
	}
	return &DeckService{
		db:       db,
		client:   client,
		sessions: sessions,
		message:  message,
		logger:   logger,
	}
}

// CreateDeck asks the memory thread for a flashcard deck and stores it with
// its cards. Without an API key the deck is stored empty with a warning.
func (s *DeckService) CreateDeck(ctx context.Context, userID, projectID, name, prompt string) (*DeckResult, error) {
	name = strings.TrimSpace(name)
	prompt = strings.TrimSpace(prompt)
	if userID == "" || projectID == "" || name == "" || prompt == "" {
		return nil, ErrInvalidInput
	}

	store := repository.OpenStore(ctx, s.db)
	defer store.Close()

	project, err := store.Projects.GetByID(projectID)
	if err != nil {
		return nil, err
	}
	if project == nil || project.UserID != userID {
		return nil, ErrProjectNotFound
	}

	files, err := store.Files.ListByProjectID(projectID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		if n := study.DisplayName(f.Path); n != "" {
			names = append(names, n)
		}
	}

	deck := &model.Deck{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		UserID:    userID,
		Name:      name,
		Prompt:    prompt,
		CreatedAt: time.Now().UTC(),
	}
	result := &DeckResult{Deck: deck, Cards: []model.Card{}, MatchedFiles: names}

	if !s.client.Configured() {
		result.Warning = msgCardsSkipped
		if err := store.Decks.CreateWithCards(deck, nil); err != nil {
			return nil, err
		}
		return result, nil
	}

	handle, err := s.sessions.Resolve(ctx, store.Sessions, projectID)
	if err != nil {
		return nil, err
	}

	req := study.DeckRequest{ProjectID: projectID, DeckName: name, Prompt: prompt, Files: names}
	reply, err := s.ask(ctx, handle.ThreadID, req, false)
	if err != nil {
		return nil, err
	}
	if reply == nil {
		s.logger.Info("flashcard reply had no json object, retrying once", "project_id", projectID)
		if reply, err = s.ask(ctx, handle.ThreadID, req, true); err != nil {
			return nil, err
		}
	}

	draft := study.CleanDeck(reply)
	cards := make([]model.Card, 0, len(draft.Cards))
	for i, c := range draft.Cards {
		cards = append(cards, model.Card{
			ID:       uuid.NewString(),
			DeckID:   deck.ID,
			Front:    c.Front,
			Back:     c.StoredBack(),
			Position: i,
		})
	}
	if err := store.Decks.CreateWithCards(deck, cards); err != nil {
		return nil, err
	}

	result.Cards = cards
	result.Mode = draft.Mode
	result.Confidence = draft.Confidence
	result.Warning = draft.Warning
	s.logger.Info("deck created",
		"project_id", projectID,
		"deck_id", deck.ID,
		"cards", len(cards),
		"mode", draft.Mode,
	)
	return result, nil
}

func (s *DeckService) ask(ctx context.Context, threadID string, req study.DeckRequest, retry bool) (map[string]any, error) {
	reply, err := s.client.SendMessage(ctx, threadID, study.DeckPrompt(req, retry), s.message)
	if err != nil {
		return nil, goerr.Wrap(err, "flashcard prompt failed",
			goerr.V("thread_id", threadID), goerr.V("retry", retry))
	}
	obj, ok := study.SalvageObject(reply)
	if !ok {
		return nil, nil
	}
	return obj, nil
}

func (s *DeckService) GetDeck(ctx context.Context, userID, deckID string) (*DeckResult, error) {
	store := repository.OpenStore(ctx, s.db)
	defer store.Close()

	deck, err := store.Decks.GetByIDAndUserID(deckID, userID)
	if err != nil {
		return nil, err
	}
	if deck == nil {
		return nil, ErrDeckNotFound
	}
	cards, err := store.Decks.ListCards(deckID)
	if err != nil {
		return nil, err
	}
	if cards == nil {
		cards = []model.Card{}
	}
	return &DeckResult{Deck: deck, Cards: cards}, nil
}

// DeckSummary is a deck listed across projects.
type DeckSummary struct {
	model.Deck
	ProjectName string `json:"project_name"`
}

func (s *DeckService) ListDecks(ctx context.Context, userID, projectID string) ([]model.Deck, error) {
	store := repository.OpenStore(ctx, s.db)
	defer store.Close()

	if err := ownProject(store, userID, projectID); err != nil {
		return nil, err
	}
	return store.Decks.ListByProjectID(projectID, userID)
}

// ListAllDecks lists the user's decks in every project, newest first.
func (s *DeckService) ListAllDecks(ctx context.Context, userID string) ([]DeckSummary, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	store := repository.OpenStore(ctx, s.db)
	defer store.Close()

	decks, err := store.Decks.ListByUserID(userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(decks))
	for _, d := range decks {
		ids = append(ids, d.ProjectID)
	}
	names, err := projectNames(store.Projects, ids)
	if err != nil {
		return nil, err
	}
	out := make([]DeckSummary, 0, len(decks))
	for _, d := range decks {
		out = append(out, DeckSummary{Deck: d, ProjectName: names[d.ProjectID]})
	}
	return out, nil
}

func (s *DeckService) DeleteDeck(ctx context.Context, userID, deckID string) error {
	store := repository.OpenStore(ctx, s.db)
	defer store.Close()

	deleted, err := store.Decks.DeleteWithCards(deckID, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrDeckNotFound
	}
	return nil
}

// AddCard appends a hand-written card to the end of the deck.
func (s *DeckService) AddCard(ctx context.Context, userID, deckID, front, back string) (*model.Card, error) {
	front = strings.TrimSpace(front)
	back = strings.TrimSpace(back)
	if front == "" || back == "" {
		return nil, goerr.Wrap(ErrInvalidInput, "front and back are required")
	}

	store := repository.OpenStore(ctx, s.db)
	defer store.Close()

	deck, err := store.Decks.GetByIDAndUserID(deckID, userID)
	if err != nil {
		return nil, err
	}
	if deck == nil {
		return nil, ErrDeckNotFound
	}

	card := &model.Card{
		ID:     uuid.NewString(),
		DeckID: deckID,
		Front:  front,
		Back:   back,
	}
	if err := store.Decks.AppendCard(card); err != nil {
		return nil, err
	}
	return card, nil
}

func (s *DeckService) DeleteCard(ctx context.Context, userID, cardID string) error {
	store := repository.OpenStore(ctx, s.db)
	defer store.Close()

	deleted, err := store.Decks.DeleteCard(cardID, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrCardNotFound
	}
	return nil
}
