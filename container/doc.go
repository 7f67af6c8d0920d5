// Package container holds the plumbing shared by the container-backed test
// fixtures in container/postgres and container/lgtm.
//
// A Fixture wraps one testcontainers container with a small state machine:
//
//	created -> starting -> started -> stopped
//	               \-> failed
//
// A fixture starts at most once. Every container it launches carries the
// managed-by and session labels so leftovers can be found with the Docker
// API after the test process is gone. Launch failures are reported as
// PROVISIONING_FAILED errors classified by ClassifyFailure.
package container
