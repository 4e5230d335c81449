package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"resumechat/app/agent"
	"resumechat/app/server"
	"resumechat/chat"
	"resumechat/config"
	"resumechat/loader"
	"resumechat/loader/service"
	"resumechat/model"
	"resumechat/telemetry"
)

const tokenModel = "gpt-4o"

func init() {
	loadEnvVariables()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, closeLog, err := telemetry.InitLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatal("error to init logger: ", err)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsEnabled {
		shutdown, err := telemetry.InitMetrics(ctx, os.Stdout, time.Minute)
		if err != nil {
			logger.Error("error to init metrics", "error", err)
		} else {
			defer shutdown()
		}
	}
	recorder := telemetry.NewRecorder(nil)

	tokens, err := agent.NewTokenCounter(tokenModel)
	if err != nil {
		logger.Warn("token counting disabled", "error", err)
	}

	var converter loader.Converter = loader.NewPDFConverter()
	if cfg.Converter == config.ConverterDocling {
		converter = model.NewDoclingConverter(cfg.DoclingURL, nil)
	}

	loaderOpts := []loader.Option{loader.WithRecorder(recorder), loader.WithLogger(logger)}
	if tokens != nil {
		loaderOpts = append(loaderOpts, loader.WithTokenCounter(tokens))
	}
	docs := loader.New(loader.NewFetcher(cfg.ResumeLocation, &http.Client{Timeout: time.Minute}), converter, loaderOpts...)

	agentOpts := []agent.Option{}
	if cfg.GroundingEnabled {
		agentOpts = append(agentOpts, agent.WithGrounding(cfg.GroundingMaxTokens, tokens))
	}
	backend := agent.NewClient(cfg.BackendURL, cfg.BackendTimeout, agentOpts...)

	svc := chat.New(docs, backend,
		chat.WithLatency(cfg.MinLatency, cfg.LatencyJitter),
		chat.WithRecorder(recorder),
		chat.WithLogger(logger),
	)

	go docs.Load(ctx)

	if cfg.Watch {
		if isRemote(cfg.ResumeLocation) {
			logger.Warn("watching is only supported for local files", "location", cfg.ResumeLocation)
		} else {
			watcher := service.New(docs, cfg.ResumeLocation, 0)
			go func() {
				if err := watcher.Run(ctx); err != nil {
					logger.Error("error watching resume", "error", err)
				}
			}()
		}
	}

	s := server.NewServer(cfg.ServerAddr, svc, logger)
	go func() {
		if err := s.Run(); err != nil {
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("received shutdown signal, shutting down server")
	s.Stop()
}

func isRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

func loadEnvVariables() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file loaded, using environment")
	}
}
