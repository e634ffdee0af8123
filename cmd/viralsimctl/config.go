package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	simapi "viralsim/pkg/viralsim"
)

// runConfigFile is the on-disk run configuration. JSON and YAML share the
// same field names.
type runConfigFile struct {
	RunID                 string      `json:"run_id" yaml:"run_id"`
	Matrix                [][]float64 `json:"matrix" yaml:"matrix"`
	BaseRate              float64     `json:"base_rate" yaml:"base_rate"`
	Steps                 int         `json:"steps" yaml:"steps"`
	Seed                  int64       `json:"seed" yaml:"seed"`
	LayoutSeed            int64       `json:"layout_seed" yaml:"layout_seed"`
	Nodes                 int         `json:"nodes" yaml:"nodes"`
	ConnectionProbability float64     `json:"connection_probability" yaml:"connection_probability"`
}

func loadRunRequestFromConfig(path string) (simapi.RunRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return simapi.RunRequest{}, err
	}

	var cfg runConfigFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return simapi.RunRequest{}, err
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return simapi.RunRequest{}, err
		}
	}

	return simapi.RunRequest{
		RunID:                 cfg.RunID,
		Matrix:                cfg.Matrix,
		BaseRate:              cfg.BaseRate,
		Steps:                 cfg.Steps,
		Seed:                  cfg.Seed,
		LayoutSeed:            cfg.LayoutSeed,
		Nodes:                 cfg.Nodes,
		ConnectionProbability: cfg.ConnectionProbability,
	}, nil
}

func loadOrDefaultRunRequest(configPath string) (simapi.RunRequest, error) {
	if configPath == "" {
		return simapi.RunRequest{}, nil
	}
	req, err := loadRunRequestFromConfig(configPath)
	if err != nil {
		return simapi.RunRequest{}, fmt.Errorf("load config: %w", err)
	}
	return req, nil
}

// parseMatrix decodes a JSON matrix literal like
// [[0.7,0.25,0.05],[0.1,0.7,0.2],[0.3,0.1,0.6]]. Empty input means the
// client default.
func parseMatrix(s string) ([][]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var matrix [][]float64
	if err := json.Unmarshal([]byte(s), &matrix); err != nil {
		return nil, fmt.Errorf("parse matrix: %w", err)
	}
	return matrix, nil
}

func overrideFromFlags(req *simapi.RunRequest, set map[string]bool, flagValue map[string]any) error {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "run-id":
			req.RunID = v.(string)
		case "matrix":
			matrix, err := parseMatrix(v.(string))
			if err != nil {
				return err
			}
			req.Matrix = matrix
		case "base-rate":
			req.BaseRate = v.(float64)
		case "steps":
			req.Steps = v.(int)
		case "seed":
			req.Seed = v.(int64)
		case "layout-seed":
			req.LayoutSeed = v.(int64)
		case "nodes":
			req.Nodes = v.(int)
		case "connection-probability":
			req.ConnectionProbability = v.(float64)
		}
	}
	return nil
}
