/*
Package ports defines the driven ports (interfaces) of the approval engine.

These interfaces decouple the engine from its collaborators, allowing it to run
against memory, file or Redis backends without change.

# Key Interfaces

  - WorkflowStore: read-only access to workflow definitions.
  - InstanceStore: full-overwrite persistence of instances.
  - HistoryStore: append-only audit trail, ordered by sequence number.
  - DistributedLocker: per-instance mutual exclusion across replicas.
  - Service: the driving port consumed by the HTTP and MCP adapters.

Each store interface ships with a contract suite (RunInstanceStoreContract and
friends) that adapters run from their own tests.
*/
package ports
