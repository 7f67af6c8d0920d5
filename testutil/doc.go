// Package testutil manages the components of a test context.
//
// A Manager starts its components once, in registration order, and stops
// them in reverse order. A failed start stops what it already started, so a
// broken environment never leaks containers:
//
//	m := testutil.NewManager()
//	_ = m.Add(runtime)
//	_ = m.Add(pg)
//	if err := m.StartAll(ctx); err != nil {
//	    return err
//	}
//	defer m.Cleanup()
//
// Components that also implement TestComponent can be rewound between
// tests with Reset, or with Snapshot and Restore.
//
// For a single component, T(t).Setup starts it and stops it when the test
// ends.
package testutil
