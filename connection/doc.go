// Package connection is the test-time service-connection registry.
//
// A started fixture publishes its dynamically assigned coordinates as a
// Details value. The registry keeps exactly one binding per Kind and turns
// the bindings into configuration properties, environment variables, or
// values on a Viper instance, so the application under test reads
// container coordinates exactly like static configuration.
//
//	reg := connection.NewRegistry()
//	if err := reg.Bind(ctx, pg); err != nil { ... }
//	reg.Apply(v) // v.GetString("database.dsn") now points at the container
package connection
