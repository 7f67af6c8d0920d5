// Package testenv provisions the containers an application needs under
// test: a PostgreSQL database and a grafana/otel-lgtm observability stack.
//
// An Environment declares both fixtures, starts them once and binds their
// dynamically assigned coordinates as service connections. The application
// under test reads them as configuration properties:
//
//	env := testenv.Current(t)
//	v := viper.New()
//	env.Apply(v)
//	dsn := v.GetString("database.dsn")
//	otlp := v.GetString("observability.endpoint")
//
// A package shares one environment across its tests through TestMain:
//
//	func TestMain(m *testing.M) {
//	    os.Exit(testenv.Main(m))
//	}
//
// Every container carries the session label, so Stop can check that
// nothing was left behind and the testenv CLI can find leftovers of a
// crashed run.
package testenv
