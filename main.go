package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"focal/internal/cache"
	"focal/internal/categorize"
	"focal/internal/classify"
	"focal/internal/config"
	"focal/internal/insight"
	"focal/internal/review"
	"focal/internal/store"
	"focal/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgDir, err := config.DefaultDir()
	if err != nil {
		return err
	}
	cfg, err := config.Load(cfgDir)
	if err != nil {
		return err
	}

	dbPath := cfg.StoragePath
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return err
		}
	}

	s, err := store.New(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer s.Close()

	client := classify.NewClient(classify.StaticKey(cfg.Classifier.APIKey), classify.Config{
		BaseURL:           cfg.Classifier.BaseURL,
		Model:             cfg.Classifier.Model,
		MaxTokens:         cfg.Classifier.MaxTokens,
		KnownProjectLimit: cfg.Classifier.KnownProjectLimit,
	})

	cached := cache.New(s,
		time.Duration(cfg.Cache.RetentionDays)*24*time.Hour,
		cfg.Cache.Capacity,
		cfg.Cache.PruneTarget,
	)

	categorizer := categorize.New(s, client, cached, categorize.Config{
		ReviewThreshold: cfg.Categorize.ReviewThreshold,
		OfflineDiscount: cfg.Categorize.OfflineDiscount,
	})

	app := tui.NewApp(tui.Deps{
		Store:             s,
		Client:            client,
		Categorizer:       categorizer,
		Reviewer:          review.New(s),
		Engine:            insight.NewEngine(s),
		ReviewThreshold:   cfg.Categorize.ReviewThreshold,
		InsightWindowDays: cfg.Insight.WindowDays,
	})
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
