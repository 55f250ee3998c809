package dto

import (
	"fmt"

	"github.com/aretw0/signoff/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// WorkflowDocument is the on-disk shape of a workflow.
// It uses "mapstructure" tags and accepts both snake_case and camelCase
// spellings for the keys that authoring tools disagree on.
type WorkflowDocument struct {
	ID          string               `json:"id" mapstructure:"id"`
	Name        string               `json:"name" mapstructure:"name"`
	Nodes       []NodeDocument       `json:"nodes" mapstructure:"nodes"`
	Connections []ConnectionDocument `json:"connections" mapstructure:"connections"`
}

type NodeDocument struct {
	ID        string          `json:"id" mapstructure:"id"`
	Type      string          `json:"type" mapstructure:"type"`
	Label     string          `json:"label" mapstructure:"label"`
	Name      string          `json:"name" mapstructure:"name"`
	Approvers []string        `json:"approvers" mapstructure:"approvers"`
	Config    *ConfigDocument `json:"config" mapstructure:"config"`
}

type ConfigDocument struct {
	Rules            []RuleDocument `json:"rules" mapstructure:"rules"`
	DefaultOutput    string         `json:"default_output" mapstructure:"default_output"`
	DefaultOutputAlt string         `json:"defaultOutput" mapstructure:"defaultOutput"`
}

// RuleDocument accepts either a nested group or flat logic/conditions keys.
type RuleDocument struct {
	ID         string             `json:"id" mapstructure:"id"`
	Output     string             `json:"output" mapstructure:"output"`
	Group      *GroupDocument     `json:"group" mapstructure:"group"`
	Logic      string             `json:"logic" mapstructure:"logic"`
	Conditions []domain.Condition `json:"conditions" mapstructure:"conditions"`
}

type GroupDocument struct {
	Logic      string             `json:"logic" mapstructure:"logic"`
	Conditions []domain.Condition `json:"conditions" mapstructure:"conditions"`
}

type ConnectionDocument struct {
	From         string `json:"from" mapstructure:"from"`
	To           string `json:"to" mapstructure:"to"`
	FromPoint    string `json:"from_point" mapstructure:"from_point"`
	FromPointAlt string `json:"fromPoint" mapstructure:"fromPoint"`
}

// ParseWorkflow decodes a YAML or JSON workflow document.
func ParseWorkflow(data []byte) (*domain.Workflow, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse workflow document: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("empty workflow document")
	}
	return DecodeWorkflow(raw)
}

// DecodeWorkflow converts a generic map into a workflow.
func DecodeWorkflow(raw map[string]any) (*domain.Workflow, error) {
	var doc WorkflowDocument
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &doc,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode workflow document: %w", err)
	}
	return doc.ToDomain(), nil
}

// ToDomain maps the document onto the domain model.
func (d *WorkflowDocument) ToDomain() *domain.Workflow {
	wf := &domain.Workflow{
		ID:          d.ID,
		Name:        d.Name,
		Nodes:       make([]domain.Node, 0, len(d.Nodes)),
		Connections: make([]domain.Connection, 0, len(d.Connections)),
	}

	for _, n := range d.Nodes {
		node := domain.Node{
			ID:        n.ID,
			Type:      domain.NodeType(n.Type),
			Label:     firstNonEmpty(n.Label, n.Name),
			Approvers: n.Approvers,
		}
		if n.Config != nil {
			cfg := &domain.ConditionConfig{
				DefaultOutput: firstNonEmpty(n.Config.DefaultOutput, n.Config.DefaultOutputAlt),
			}
			for _, r := range n.Config.Rules {
				group := domain.ConditionGroup{Logic: domain.Logic(r.Logic), Conditions: r.Conditions}
				if r.Group != nil {
					group = domain.ConditionGroup{Logic: domain.Logic(r.Group.Logic), Conditions: r.Group.Conditions}
				}
				cfg.Rules = append(cfg.Rules, domain.Rule{ID: r.ID, Output: r.Output, Group: group})
			}
			node.Config = cfg
		}
		wf.Nodes = append(wf.Nodes, node)
	}

	for _, c := range d.Connections {
		wf.Connections = append(wf.Connections, domain.Connection{
			From:      c.From,
			To:        c.To,
			FromPoint: firstNonEmpty(c.FromPoint, c.FromPointAlt),
		})
	}
	return wf
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
