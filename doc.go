/*
Package signoff is an approval-workflow execution engine.

It drives a submitted form (an Instance) through a user-authored graph of
sign-off nodes: single approver, parallel all-of, sequential in-order,
data-driven condition branches, and start/end boundaries. Every transition is
persisted and recorded in an append-only, sequence-ordered audit trail.

# Concept

A Workflow is a read-only graph of Nodes joined by Connections. Connections
leave a node through a named output socket; condition nodes pick the socket
by evaluating ordered rules against the instance data, first match wins.

The engine is call-and-return. Apply creates an instance, Initialize enters
the node after start, and Approve applies one decision at a time until the
instance reaches an end node (approved) or is rejected. Writes are serialized
per instance id, optionally across replicas through a DistributedLocker.

# Usage

	wf, _ := dsl.New("expense").
		// ... nodes and connections
		Build()
	loader, _ := memory.NewLoader(wf)

	eng, err := signoff.New(loader)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	inst, _ := eng.Submit(ctx, "expense", "alice", map[string]any{"amount": 5000})
	out, err := eng.Approve(ctx, inst.ID, domain.Decision{ActorID: "bob", Result: "approve"})

# Adapters

Stores live under pkg/adapters (memory, file, redis); the same engine is
exposed over HTTP (pkg/adapters/http) and as MCP tools (pkg/adapters/mcp).
*/
package signoff
