// Package workload inspects and cleans up the containers a test environment
// leaves on the container runtime.
//
// Fixtures launch their containers through testcontainers; this package
// talks to the runtime directly for what happens around them:
//
//   - HealthCheck: is the runtime reachable before anything is pulled
//   - List: which managed containers exist, selected by label
//   - Status: is a given container still there
//   - Remove: force-remove leftovers
//
// The Docker backend lives in workload/docker and registers itself with
// RegisterFactory.
package workload
