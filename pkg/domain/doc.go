/*
Package domain contains the core domain models of the signoff approval engine.

It defines the workflow graph (Nodes and Connections), the mutable Instance that
travels through it, the per-node gate state used by multi-approver nodes, and
the append-only HistoryRecord audit trail. This package is kept pure and free of
external dependencies like I/O or persistence, following Hexagonal Architecture
principles.

# Key Entities

  - Workflow: an immutable, user-authored graph of sign-off Nodes.
  - Node: a graph step (start, single, parallel, sequential, condition, end).
  - Connection: a directed edge leaving a named output socket (FromPoint).
  - Instance: one submission traversing a Workflow, with its gate state.
  - HistoryRecord: an immutable audit entry ordered by a per-instance sequence.
*/
package domain
