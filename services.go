/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"fmt"

	"github.com/Seednode/nameher/names"
	"github.com/Seednode/nameher/scores"
	"github.com/Seednode/nameher/wiki"
)

// lookups bundles everything needed to decide names.
type lookups struct {
	gazetteer *names.Gazetteer
	pipeline  *names.Pipeline
	cards     *names.CardLookup
}

func loadGazetteer(cfg *Config) (*names.Gazetteer, error) {
	if cfg.gazetteer == "" {
		return names.DefaultGazetteer()
	}

	return names.LoadGazetteerFile(cfg.gazetteer)
}

func newLookups(cfg *Config) (*lookups, error) {
	return newLookupsWithSource(cfg, nil)
}

// newLookupsWithSource builds the pipeline against source, or against the
// configured MediaWiki endpoint when source is nil.
func newLookupsWithSource(cfg *Config, source names.Encyclopedia) (*lookups, error) {
	g, err := loadGazetteer(cfg)
	if err != nil {
		return nil, fmt.Errorf("gazetteer: %w", err)
	}

	logger := cfg.log()

	if source == nil {
		source, err = wiki.New(cfg.wikiEndpoint,
			wiki.WithLogger(logger.Named("wiki")),
			wiki.WithCache(cfg.cacheSize, cfg.cacheTTL),
			wiki.WithUserAgent("nameher/"+releaseVersion+" (+https://github.com/Seednode/nameher)"),
		)
		if err != nil {
			return nil, err
		}
	}

	cardOpts := []names.Option{
		names.WithLogger(logger.Named("cards")),
		names.WithTimeout(cfg.lookupTimeout),
	}
	opts := []names.Option{
		names.WithLogger(logger.Named("names")),
		names.WithSearchLimit(cfg.searchLimit),
		names.WithTimeout(cfg.lookupTimeout),
	}

	logf(cfg, "START: Loaded gazetteer with %d names and %d pinned mononyms", g.Len(), g.MononymCount())

	return &lookups{
		gazetteer: g,
		pipeline:  names.NewDefaultPipeline(g, source, opts...),
		cards:     names.NewCardLookup(g, source, cardOpts...),
	}, nil
}

func openScores(ctx context.Context, cfg *Config) (*scores.Store, error) {
	store, err := scores.Open(ctx, cfg.database,
		scores.WithLogger(cfg.log().Named("scores")),
		scores.WithDuplicateWindow(cfg.duplicateWindow),
	)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.database, err)
	}

	return store, nil
}
