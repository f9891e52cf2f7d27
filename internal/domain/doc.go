// Package domain contains the core domain entities and value objects for ddship.
//
// This package represents the innermost layer of the Clean Architecture. It has
// no dependencies on infrastructure concerns (HTTP, file system, logging) and
// contains only pure business logic.
//
// # Entities
//
//   - [LogRecord]: A single rendered log entry with its enrichment tags
//   - [Batch]: An ordered group of records delivered in one intake request
//   - [DeliveryResult]: The outcome of delivering one batch, retries included
//
// # Design Principles
//
// Domain entities are:
//   - Immutable after construction (where practical)
//   - Free of infrastructure dependencies
//   - Focused on business rules and invariants
//   - Testable without mocks or external systems
package domain
