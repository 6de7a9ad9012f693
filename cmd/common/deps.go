// Package common wires shared dependencies for the CLI commands.
package common

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/lekhuynh/vietchoice/internal/api"
	"github.com/lekhuynh/vietchoice/internal/config"
	"github.com/lekhuynh/vietchoice/internal/crawler"
	"github.com/lekhuynh/vietchoice/internal/database"
	"github.com/lekhuynh/vietchoice/internal/logger"
	"github.com/lekhuynh/vietchoice/internal/ranking"
	"github.com/lekhuynh/vietchoice/internal/refresh"
	"github.com/lekhuynh/vietchoice/internal/sentiment"
	"github.com/lekhuynh/vietchoice/internal/taxonomy"
	"github.com/lekhuynh/vietchoice/internal/upstream"
)

// Deps holds the wired application graph shared by every command.
type Deps struct {
	Config       *config.Config
	Log          logger.Interface
	DB           *sqlx.DB
	Orchestrator *crawler.Orchestrator
	Refresher    *refresh.Refresher
	Recommender  *ranking.Recommender
	Products     *database.ProductRepository
	APIHandler   *api.Handler
}

// Build loads configuration and constructs the full dependency graph.
func Build() (*Deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Logger.Level,
		Encoding:    cfg.Logger.Encoding,
		Development: cfg.Logger.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	products := database.NewProductRepository(db)
	categories := database.NewCategoryRepository(db)
	reviews := database.NewReviewRepository(db)

	client := upstream.NewClient(cfg.Upstream, log)
	resolver := taxonomy.NewResolver(categories)

	var embedder sentiment.Embedder
	if cfg.Sentiment.EmbeddingURL != "" {
		embedder = sentiment.NewEmbeddingClient(cfg.Sentiment.EmbeddingURL)
	} else {
		log.Warn("no embedding service configured, sentiment uses lexicon fallback")
	}
	anchors := sentiment.Anchors{
		Positive: cfg.Sentiment.PositiveAnchors,
		Negative: cfg.Sentiment.NegativeAnchors,
	}
	scorer := sentiment.NewScorer(embedder, anchors, log)
	sentimentSvc := sentiment.NewService(scorer, reviews, client, log)

	orchestrator := crawler.NewOrchestrator(
		cfg.Upstream.Source,
		cfg.Crawler.Concurrency,
		products,
		client,
		resolver,
		sentimentSvc,
		log,
	)
	refresher := refresh.NewRefresher(
		cfg.Upstream.Source,
		cfg.Refresh.Workers,
		cfg.Refresh.StaleThreshold,
		products,
		client,
		sentimentSvc,
		log,
	)
	recommender := ranking.NewRecommender(products, log)

	return &Deps{
		Config:       cfg,
		Log:          log,
		DB:           db,
		Orchestrator: orchestrator,
		Refresher:    refresher,
		Recommender:  recommender,
		Products:     products,
		APIHandler:   api.NewHandler(orchestrator, refresher, products, recommender, sentimentSvc, log),
	}, nil
}

// Close releases held resources.
func (d *Deps) Close() {
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			d.Log.Warn("close database", "error", err.Error())
		}
	}
}
