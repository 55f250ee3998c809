package domain

// NodeType defines the control flow behavior of a node.
type NodeType string

const (
	// NodeTypeStart is the unique entry point of a workflow. It is never current.
	NodeTypeStart NodeType = "start"
	// NodeTypeSingle waits for one sign-off from any listed approver.
	NodeTypeSingle NodeType = "single"
	// NodeTypeParallel waits until every listed approver has signed off, in any order.
	NodeTypeParallel NodeType = "parallel"
	// NodeTypeSequential waits for every listed approver, strictly in list order.
	NodeTypeSequential NodeType = "sequential"
	// NodeTypeCondition routes automatically based on the instance data (silent step).
	NodeTypeCondition NodeType = "condition"
	// NodeTypeEnd is a sink. Reaching it approves the instance.
	NodeTypeEnd NodeType = "end"
)

// Valid reports whether t is one of the known node types.
func (t NodeType) Valid() bool {
	switch t {
	case NodeTypeStart, NodeTypeSingle, NodeTypeParallel, NodeTypeSequential, NodeTypeCondition, NodeTypeEnd:
		return true
	}
	return false
}

// IsGate reports whether the node halts for human sign-off.
func (t NodeType) IsGate() bool {
	return t == NodeTypeSingle || t == NodeTypeParallel || t == NodeTypeSequential
}

// Node represents one step of the approval graph.
type Node struct {
	ID    string   `json:"id" yaml:"id" mapstructure:"id"`
	Type  NodeType `json:"type" yaml:"type" mapstructure:"type"`
	Label string   `json:"label,omitempty" yaml:"label,omitempty" mapstructure:"label"`

	// Approvers is an ordered list of actor identities.
	// For single nodes any member may act, for parallel nodes all members must act,
	// for sequential nodes the order of the list is the order of turns.
	Approvers []string `json:"approvers,omitempty" yaml:"approvers,omitempty" mapstructure:"approvers"`

	// Config holds the routing rules. Only used when Type == NodeTypeCondition.
	Config *ConditionConfig `json:"config,omitempty" yaml:"config,omitempty" mapstructure:"config"`
}

// Name returns the human readable label, falling back to the ID.
func (n *Node) Name() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// Logic joins the conditions of a ConditionGroup.
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

// Condition compares one field of the instance data against a literal value.
type Condition struct {
	Field    string `json:"field" yaml:"field" mapstructure:"field"`
	Operator string `json:"operator" yaml:"operator" mapstructure:"operator"`
	Value    any    `json:"value,omitempty" yaml:"value,omitempty" mapstructure:"value"`
}

// ConditionGroup combines several conditions with AND/OR logic.
type ConditionGroup struct {
	Logic      Logic       `json:"logic" yaml:"logic" mapstructure:"logic"`
	Conditions []Condition `json:"conditions" yaml:"conditions" mapstructure:"conditions"`
}

// Rule is one routing option of a condition node.
// When Group matches, the engine follows the connection leaving the Output socket.
type Rule struct {
	ID     string         `json:"id,omitempty" yaml:"id,omitempty" mapstructure:"id"`
	Output string         `json:"output" yaml:"output" mapstructure:"output"`
	Group  ConditionGroup `json:"group" yaml:"group" mapstructure:"group"`
}

// ConditionConfig holds the ordered rules of a condition node.
type ConditionConfig struct {
	Rules []Rule `json:"rules" yaml:"rules" mapstructure:"rules"`
	// DefaultOutput is the socket followed when no rule matches.
	DefaultOutput string `json:"default_output" yaml:"default_output" mapstructure:"default_output"`
}
