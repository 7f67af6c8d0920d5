// Package component defines the lifecycle contract shared by every
// container fixture and application-side consumer in the test environment.
//
// Components are started in registration order and stopped in reverse, so a
// fixture registered first (the database) outlives everything registered
// after it.
//
// # Interfaces
//
//   - Component: Name/Start/Stop/Health
//   - Describable: optional summary used by the CLI and startup logs
package component
