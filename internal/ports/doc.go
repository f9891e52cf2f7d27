// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// In Clean Architecture / Hexagonal Architecture, ports are the boundaries
// between the application core and the outside world. They define what the
// application needs from external systems without specifying how those needs
// are fulfilled.
//
// # Port Interfaces
//
//   - [BatchSender]: Serializes and posts one batch to the log intake
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//   - [EventEmitter]: Diagnostic channel for delivery and drop events
//   - [PositionRepository]: Persists follow offsets for the CLI line source
//   - [Logger]: Structured logging abstraction
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement these interfaces
// with concrete implementations (HTTP, zerolog, Prometheus, files).
package ports
