// Package version reports the build version of the testenv binary.
package version
