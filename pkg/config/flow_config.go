// Package config loads flow definitions from YAML files
package config

import (
	"fmt"
	"os"

	"github.com/dukex/leadflow/pkg/models"
	"gopkg.in/yaml.v3"
)

// FlowConfigFile represents the structure of a flows.yaml file
type FlowConfigFile struct {
	Flows []FlowConfig `yaml:"flows"`
}

// FlowConfig represents one flow definition in the YAML file
type FlowConfig struct {
	ID    string       `yaml:"id"`
	Name  string       `yaml:"name"`
	Nodes []NodeConfig `yaml:"nodes"`
	Edges []EdgeConfig `yaml:"edges"`
}

type NodeConfig struct {
	ID     string         `yaml:"id"`
	Type   string         `yaml:"type"`
	Name   string         `yaml:"name"`
	Config map[string]any `yaml:"config"`
}

type EdgeConfig struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
	Branch string `yaml:"branch"`
}

// LoadFlows loads flow definitions from a YAML file. Graph validation is left to the
// flow service that stores them.
func LoadFlows(filepath string) ([]*models.Flow, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filepath, err)
	}

	return ParseFlows(data)
}

// ParseFlows decodes flow definitions from YAML.
func ParseFlows(data []byte) ([]*models.Flow, error) {
	var configFile FlowConfigFile
	if err := yaml.Unmarshal(data, &configFile); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	flows := make([]*models.Flow, 0, len(configFile.Flows))

	for i, fc := range configFile.Flows {
		if fc.ID == "" {
			return nil, fmt.Errorf("flow at index %d: missing id", i)
		}

		flow := &models.Flow{
			ID:    fc.ID,
			Name:  fc.Name,
			Nodes: make([]*models.FlowNode, len(fc.Nodes)),
			Edges: make([]*models.FlowEdge, len(fc.Edges)),
		}

		for j, node := range fc.Nodes {
			config := node.Config
			if config == nil {
				config = map[string]any{}
			}

			flow.Nodes[j] = &models.FlowNode{
				ID:     node.ID,
				Type:   models.NodeType(node.Type),
				Name:   node.Name,
				Config: config,
			}
		}

		for j, edge := range fc.Edges {
			flow.Edges[j] = &models.FlowEdge{
				Source: edge.Source,
				Target: edge.Target,
				Branch: models.Branch(edge.Branch),
			}
		}

		flows = append(flows, flow)
	}

	return flows, nil
}
