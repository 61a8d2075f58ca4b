package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	jsonsocket "github.com/bminer/ws-json-socket-go"
	"github.com/bminer/ws-json-socket-go/adapters/coder"
	"github.com/bminer/ws-json-socket-go/adapters/gorilla"
	coderws "github.com/coder/websocket"
	gorillaws "github.com/gorilla/websocket"
)

var errEnd = errors.New("goodbye")

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	envFile := flag.String("env", ".env", "path to an optional .env file")
	flag.Parse()

	cfg, err := loadConfig(*configPath, *envFile)
	if err != nil {
		log.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	// Echo every message back. {"end": true} ends the socket with an error
	// payload. Idle sockets are destroyed.
	server := jsonsocket.NewServer(
		jsonsocket.WithLogger(logger),
		jsonsocket.WithSocketOptions(
			jsonsocket.WithSocketLogger(logger),
			jsonsocket.WithWriteTimeout(cfg.WriteTimeout),
		),
	)
	server.On(jsonsocket.EventConnection, func(s *jsonsocket.JSONSocket) {
		logger.Info("socket connected", slog.Int("open", server.Len()))
		s.SetTimeout(cfg.IdleTimeout, func() {
			logger.Info("socket idle")
			s.Destroy()
		})
		s.On(jsonsocket.EventMessage, func(msg any) {
			if m, ok := msg.(map[string]any); ok && m["end"] == true {
				s.SendEndError(errEnd)
				return
			}
			s.SendMessage(msg, func(err error) {
				if err != nil {
					logger.Warn("echo failed", slog.Any("error", err))
				}
			})
		})
		s.On(jsonsocket.EventClose, func() {
			logger.Info("socket closed")
		})
	})

	upgrader := gorillaws.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc(cfg.Path, func(w http.ResponseWriter, r *http.Request) {
		var conn jsonsocket.Conn
		switch cfg.Adapter {
		case "gorilla":
			c, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				// Upgrade already writes the HTTP response
				logger.Warn("WebSocket upgrade failed", slog.Any("error", err))
				return
			}
			conn = gorilla.Wrap(c)
		default:
			c, err := coderws.Accept(w, r, nil)
			if err != nil {
				// websocket.Accept already writes the HTTP response
				logger.Warn("WebSocket upgrade failed", slog.Any("error", err))
				return
			}
			conn = coder.Wrap(c)
		}
		if _, err := server.Accept(conn); err != nil {
			logger.Warn("socket rejected", slog.Any("error", err))
		}
	})

	httpServer := &http.Server{Addr: cfg.Addr, Handler: mux}
	go func() {
		logger.Info("listening",
			slog.String("url", "ws://"+cfg.Addr+cfg.Path),
			slog.String("adapter", cfg.Adapter),
		)
		if err := httpServer.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown", slog.Any("error", err))
	}
	if err := server.Close(); err != nil {
		logger.Error("closing sockets", slog.Any("error", err))
	}
}
