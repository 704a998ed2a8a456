package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"copium-tutor/internal/bootstrap"
	"copium-tutor/internal/transport/http/handler"
	"copium-tutor/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	RegisterRoutes(v1,
		handler.NewIndexHandler(app.IngestService),
		handler.NewQuizHandler(app.QuizService),
		handler.NewDeckHandler(app.DeckService),
		handler.NewChatHandler(app.ChatService),
	)
	return router
}

// RegisterRoutes mounts the study API on an authenticated group.
func RegisterRoutes(
	group *gin.RouterGroup,
	index *handler.IndexHandler,
	quizzes *handler.QuizHandler,
	decks *handler.DeckHandler,
	chats *handler.ChatHandler,
) {
	projects := group.Group("/projects/:id")
	projects.POST("/index", index.Ingest)
	projects.GET("/index", index.Status)
	projects.POST("/quizzes", quizzes.Create)
	projects.GET("/quizzes", quizzes.List)
	projects.POST("/decks", decks.Create)
	projects.GET("/decks", decks.List)
	projects.POST("/chats", chats.Create)
	projects.GET("/chats", chats.List)

	group.GET("/quizzes", quizzes.ListAll)
	quizGroup := group.Group("/quizzes/:id")
	quizGroup.GET("", quizzes.Get)
	quizGroup.DELETE("", quizzes.Delete)
	quizGroup.POST("/regenerate", quizzes.Regenerate)
	quizGroup.POST("/attempts", quizzes.SubmitAttempt)
	quizGroup.GET("/attempts", quizzes.ListAttempts)

	group.GET("/decks", decks.ListAll)
	deckGroup := group.Group("/decks/:id")
	deckGroup.GET("", decks.Get)
	deckGroup.DELETE("", decks.Delete)
	deckGroup.POST("/cards", decks.AddCard)
	group.DELETE("/cards/:id", decks.DeleteCard)

	group.GET("/chats", chats.ListAll)
	chatGroup := group.Group("/chats/:id")
	chatGroup.GET("", chats.Get)
	chatGroup.PATCH("", chats.Rename)
	chatGroup.DELETE("", chats.Delete)
	chatGroup.POST("/messages", chats.SendMessage)
}
