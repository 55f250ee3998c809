/*
Package session serializes work on one instance.

A Manager hands out a per-key mutex, reference counted so that idle keys are
garbage collected, and optionally takes a distributed lock on top of it so
that several replicas sharing one store cannot interleave writes to the same
instance.
*/
package session
