package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	_ "modernc.org/sqlite"

	"github.com/cdrslab/fundam-builder/internal/config"
	"github.com/cdrslab/fundam-builder/internal/page"
	"github.com/cdrslab/fundam-builder/internal/registry"
	"github.com/cdrslab/fundam-builder/internal/server"
)

func main() {
	configPath := flag.String("config", os.Getenv("FUNDAM_CONFIG"), "path to YAML config file")
	catalogPath := flag.String("catalog", "", "CUE file extending the component catalog")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}
	log := cfg.Logger(os.Stderr)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := registry.MustDefault()
	if *catalogPath != "" {
		src, err := os.ReadFile(*catalogPath)
		if err != nil {
			log.Error("reading catalog", "path", *catalogPath, "error", err)
			os.Exit(1)
		}
		if err := reg.Extend(src, *catalogPath); err != nil {
			log.Error("extending catalog", "path", *catalogPath, "error", err)
			os.Exit(1)
		}
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		log.Error("opening database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	pages := page.NewSQLStore(entsql.OpenDB(dialect.SQLite, db))
	if err := pages.CreateTable(ctx); err != nil {
		log.Error("creating page table", "error", err)
		os.Exit(1)
	}
	log.Info("database ready")

	if err := server.Run(ctx, server.Config{
		Settings: cfg,
		Pages:    pages,
		Registry: reg,
		Log:      log,
	}); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
