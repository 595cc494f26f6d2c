package main

import (
	"context"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"geomap/internal/config"
	"geomap/internal/editor"
	"geomap/internal/logger"
	"geomap/internal/storage"
	"geomap/internal/tui"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal(err)
	}
	lg, closer, err := logger.OpenFile(cfg.LogFile)
	if err != nil {
		log.Fatal(err)
	}
	defer closer.Close()

	db, err := storage.Open(cfg.DBPath, lg.With("component", "storage"))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	ctx := context.Background()
	ws := editor.New(storage.NewSnapshotRepo(db), cfg.Grouping, 80, 24, lg)
	if err := ws.Store.Load(ctx); err != nil {
		log.Fatal(err)
	}
	if cur := ws.Store.Current(); cfg.Autoload && cur != "" {
		if _, err := ws.Restore(ctx, cur); err != nil {
			lg.Warn("autoload_failed", "id", cur, "err", err)
		}
	}
	lg.Info("started", "db", cfg.DBPath, "snapshots", len(ws.Store.List()))

	var m tea.Model
	if len(os.Args) > 1 {
		m = tui.NewWithPath(ctx, ws, lg, os.Args[1])
	} else {
		m = tui.New(ctx, ws, lg)
	}
	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion()).Run(); err != nil {
		lg.Error("ui_exited", "err", err)
		log.Fatal(err)
	}
}
