// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads call-graph analysis settings from YAML.
package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultConfigYAML []byte

// ProjectConfigFile is the optional per-project override file name.
const ProjectConfigFile = "callgraph.config.yaml"

var tracer = otel.Tracer("callgraph.config")

// Config holds every tunable of an analysis run.
type Config struct {
	Parser     ParserConfig     `yaml:"parser"`
	Analyzer   AnalyzerConfig   `yaml:"analyzer"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Resolution ResolutionConfig `yaml:"resolution"`
	Workspace  WorkspaceConfig  `yaml:"workspace"`
}

// ParserConfig limits what the parser accepts.
type ParserConfig struct {
	MaxFileSizeBytes int64 `yaml:"max_file_size_bytes"`
}

// AnalyzerConfig sizes the run's caches.
type AnalyzerConfig struct {
	ParseCacheSize int `yaml:"parse_cache_size"`
}

// ExtractionConfig tunes node extraction.
type ExtractionConfig struct {
	EntryKeywords []string `yaml:"entry_keywords"`
	ReceiverNames []string `yaml:"receiver_names"`
}

// ResolutionConfig tunes call resolution.
type ResolutionConfig struct {
	ExtraBuiltins     []string `yaml:"extra_builtins"`
	PreferSamePackage bool     `yaml:"prefer_same_package"`
}

// WorkspaceConfig drives file discovery for the scan command.
type WorkspaceConfig struct {
	Include          []string `yaml:"include"`
	Exclude          []string `yaml:"exclude"`
	RespectGitignore bool     `yaml:"respect_gitignore"`
}

var (
	defaultOnce sync.Once
	defaultCfg  *Config
	defaultErr  error
)

// Default returns a copy of the embedded defaults.
func Default() (*Config, error) {
	defaultOnce.Do(func() {
		var cfg Config
		if err := yaml.Unmarshal(defaultConfigYAML, &cfg); err != nil {
			defaultErr = fmt.Errorf("parsing embedded defaults: %w", err)
			return
		}
		if err := cfg.Validate(); err != nil {
			defaultErr = fmt.Errorf("embedded defaults: %w", err)
			return
		}
		defaultCfg = &cfg
	})
	if defaultErr != nil {
		return nil, defaultErr
	}
	return defaultCfg.clone(), nil
}

// Load parses YAML on top of the defaults and validates the result.
//
// Description:
//
//	Keys present in data replace the default value, including whole lists.
//	Keys absent from data keep their default. Empty data yields the defaults.
//
// Inputs:
//
//	ctx - Context for tracing.
//	data - YAML document. May be empty.
//
// Outputs:
//
//	*Config - The merged configuration.
//	error - Non-nil if data is not valid YAML or a value is out of range.
func Load(ctx context.Context, data []byte) (*Config, error) {
	_, span := tracer.Start(ctx, "config.Load")
	defer span.End()

	cfg, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("entry_keywords", len(cfg.Extraction.EntryKeywords)),
		attribute.Int("extra_builtins", len(cfg.Resolution.ExtraBuiltins)),
	)
	return cfg, nil
}

// LoadFile reads and loads a config file.
func LoadFile(ctx context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg, err := Load(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadForProject loads <projectRoot>/callgraph.config.yaml.
//
// A missing file or empty projectRoot yields the defaults. Only an
// unreadable or invalid file is an error.
func LoadForProject(ctx context.Context, projectRoot string) (*Config, error) {
	if projectRoot == "" {
		return Default()
	}
	path := filepath.Join(projectRoot, ProjectConfigFile)
	cfg, err := LoadFile(ctx, path)
	if errors.Is(err, os.ErrNotExist) {
		return Default()
	}
	return cfg, err
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Parser.MaxFileSizeBytes <= 0 {
		return fmt.Errorf("parser.max_file_size_bytes must be positive, got %d", c.Parser.MaxFileSizeBytes)
	}
	if c.Analyzer.ParseCacheSize <= 0 {
		return fmt.Errorf("analyzer.parse_cache_size must be positive, got %d", c.Analyzer.ParseCacheSize)
	}
	if len(c.Extraction.EntryKeywords) == 0 {
		return fmt.Errorf("extraction.entry_keywords must not be empty")
	}
	for i, kw := range c.Extraction.EntryKeywords {
		if kw == "" {
			return fmt.Errorf("extraction.entry_keywords[%d] is empty", i)
		}
	}
	if len(c.Extraction.ReceiverNames) == 0 {
		return fmt.Errorf("extraction.receiver_names must not be empty")
	}
	if len(c.Workspace.Include) == 0 {
		return fmt.Errorf("workspace.include must not be empty")
	}
	return nil
}

func (c *Config) clone() *Config {
	out := *c
	out.Extraction.EntryKeywords = append([]string(nil), c.Extraction.EntryKeywords...)
	out.Extraction.ReceiverNames = append([]string(nil), c.Extraction.ReceiverNames...)
	out.Resolution.ExtraBuiltins = append([]string(nil), c.Resolution.ExtraBuiltins...)
	out.Workspace.Include = append([]string(nil), c.Workspace.Include...)
	out.Workspace.Exclude = append([]string(nil), c.Workspace.Exclude...)
	return &out
}
