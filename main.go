package main

import (
	"context"
	"docchat/app/api"
	"docchat/app/client/document"
	"docchat/app/client/llm"
	"docchat/app/config"
	"docchat/app/service/conversation"
	"docchat/app/service/engine"
	"docchat/app/service/mcptools"
	"docchat/app/service/queue"
	"docchat/app/service/session"
	"docchat/app/util/mylog"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
	"golang.org/x/sync/errgroup"
)

func main() {
	di := do.New()
	defer di.Shutdown()
	defer log.Info("Waiting for services to finish...")

	mylog.Preinit()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	do.ProvideValue(di, appCtx)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg); err != nil {
		log.Fatalf("logging init failed: %v", err)
	}

	do.Provide(di, document.New)
	do.Provide(di, llm.New)
	do.Provide(di, func(i *do.Injector) (conversation.Extractor, error) {
		return do.Invoke[*document.Extractor](i)
	})
	do.Provide(di, func(i *do.Injector) (conversation.Generator, error) {
		return do.Invoke[*llm.Client](i)
	})
	do.Provide(di, conversation.New)
	do.Provide(di, session.New)
	do.Provide(di, queue.New)
	do.Provide(di, engine.New)
	do.Provide(di, api.New)
	do.Provide(di, mcptools.New)

	probeCtx, probeCancel := context.WithTimeout(appCtx, 30*time.Second)
	if err = do.MustInvoke[*llm.Client](di).Probe(probeCtx); err != nil {
		slog.Warn("Language model is not reachable, replies will fall back until it is", "error", err)
	}
	probeCancel()

	slog.Info("Service started", "listen", cfg.Server.Listen, "model", cfg.Model.Model)

	group, groupCtx := errgroup.WithContext(appCtx)

	group.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sig)

		select {
		case <-sig:
			log.Info("Shutting down...")
			cancel()
		case <-groupCtx.Done():
		}

		return nil
	})

	group.Go(func() error {
		do.MustInvoke[*engine.Service](di).Run(groupCtx)
		return nil
	})

	group.Go(func() error {
		return do.MustInvoke[*api.Server](di).Run(groupCtx)
	})

	if cfg.MCP.Enabled {
		group.Go(func() error {
			return do.MustInvoke[*mcptools.Service](di).Run(groupCtx)
		})
	}

	if err = group.Wait(); err != nil {
		slog.Error("Service stopped", "error", err)
	}
}
