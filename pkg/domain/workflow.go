package domain

// DefaultOutput is the socket name used by nodes with a single exit.
const DefaultOutput = "output"

// Connection is a directed edge between two nodes.
type Connection struct {
	From string `json:"from" yaml:"from" mapstructure:"from"`
	To   string `json:"to" yaml:"to" mapstructure:"to"`

	// FromPoint names the output socket the edge leaves from.
	// Empty means DefaultOutput.
	FromPoint string `json:"from_point,omitempty" yaml:"from_point,omitempty" mapstructure:"from_point"`
}

// Socket returns the effective output socket of the connection.
func (c Connection) Socket() string {
	if c.FromPoint == "" {
		return DefaultOutput
	}
	return c.FromPoint
}

// Workflow is a read-only approval graph.
// It must not be modified once an Instance references it.
type Workflow struct {
	ID          string       `json:"id" yaml:"id" mapstructure:"id"`
	Name        string       `json:"name,omitempty" yaml:"name,omitempty" mapstructure:"name"`
	Nodes       []Node       `json:"nodes" yaml:"nodes" mapstructure:"nodes"`
	Connections []Connection `json:"connections" yaml:"connections" mapstructure:"connections"`
}

// Node returns the node with the given id.
func (w *Workflow) Node(id string) (*Node, bool) {
	for i := range w.Nodes {
		if w.Nodes[i].ID == id {
			return &w.Nodes[i], true
		}
	}
	return nil, false
}

// StartNodes returns every node of type start.
// A well-formed workflow has exactly one.
func (w *Workflow) StartNodes() []*Node {
	var starts []*Node
	for i := range w.Nodes {
		if w.Nodes[i].Type == NodeTypeStart {
			starts = append(starts, &w.Nodes[i])
		}
	}
	return starts
}

// Outgoing returns the connections leaving nodeID, in declaration order.
func (w *Workflow) Outgoing(nodeID string) []Connection {
	var out []Connection
	for _, c := range w.Connections {
		if c.From == nodeID {
			out = append(out, c)
		}
	}
	return out
}

// Follow returns the first connection leaving nodeID from the given socket.
func (w *Workflow) Follow(nodeID, socket string) (Connection, bool) {
	if socket == "" {
		socket = DefaultOutput
	}
	for _, c := range w.Connections {
		if c.From == nodeID && c.Socket() == socket {
			return c, true
		}
	}
	return Connection{}, false
}
