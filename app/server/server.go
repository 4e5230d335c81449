package server

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"resumechat/app/api"
	"resumechat/app/middleware"
)

var config = fiber.Config{
	ErrorHandler:          api.ErrorHandler,
	DisableStartupMessage: true,
}

type Server struct {
	listenAddr string
	logger     *slog.Logger
	app        *fiber.App
}

func NewServer(addr string, chat api.ChatService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		app          = fiber.New(config)
		checkHandler = api.NewCheckHandler()
		chatHandler  = api.NewChatHandler(chat)
		check        = app.Group("/check")
		apiv1        = app.Group("/api/v1")
	)

	app.Use(middleware.RequestLogger(logger, "/check"))

	check.Get("/healthy", checkHandler.HandleHealthy)
	apiv1.Get("/document", chatHandler.HandleDocument)
	apiv1.Post("/document/reload", chatHandler.HandleReload)
	apiv1.Get("/document/wait", chatHandler.HandleWait)
	apiv1.Post("/chat", chatHandler.HandleAsk)
	apiv1.Get("/transcript", chatHandler.HandleTranscript)

	return &Server{
		listenAddr: addr,
		logger:     logger,
		app:        app,
	}
}

func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Stop() {
	if err := s.app.Shutdown(); err != nil {
		s.logger.Error("error to stop server", "error", err.Error())
		return
	}
	s.logger.Info("server stopped")
}

// Run blocks until the server stops.
func (s *Server) Run() error {
	s.logger.Info("server started", "addr", s.listenAddr)
	if err := s.app.Listen(s.listenAddr); err != nil {
		s.logger.Error("error to start server", "error", err.Error())
		return err
	}
	return nil
}
