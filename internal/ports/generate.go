// Package ports defines the interfaces for external dependencies in our hexagonal architecture.
// These interfaces are implemented by adapters and replaced with testify mocks in core tests.
package ports
