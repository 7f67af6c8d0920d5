package connection

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// Kind identifies the type of service a binding connects to.
type Kind string

const (
	// KindDatabase is a relational database reachable over the PostgreSQL protocol.
	KindDatabase Kind = "database"
	// KindOTLP is an OpenTelemetry collector accepting OTLP metrics, logs and traces.
	KindOTLP Kind = "otlp"
)

// Details are the connection coordinates one fixture publishes.
type Details interface {
	Kind() Kind
	Properties() map[string]string
}

// Property keys published for a database binding.
const (
	PropDatabaseHost     = "database.host"
	PropDatabasePort     = "database.port"
	PropDatabaseName     = "database.name"
	PropDatabaseUsername = "database.username"
	PropDatabasePassword = "database.password"
	PropDatabaseDSN      = "database.dsn"
	PropDatabaseURL      = "database.url"
)

// Property keys published for an OTLP binding.
const (
	PropOTLPEndpoint        = "otel.exporter.otlp.endpoint"
	PropOTLPProtocol        = "otel.exporter.otlp.protocol"
	PropOTLPTracesEndpoint  = "otel.exporter.otlp.traces.endpoint"
	PropOTLPMetricsEndpoint = "otel.exporter.otlp.metrics.endpoint"
	PropOTLPLogsEndpoint    = "otel.exporter.otlp.logs.endpoint"
	PropObsEndpoint         = "observability.endpoint"
	PropObsInsecure         = "observability.insecure"
	PropObsGRPCEndpoint     = "observability.grpc_endpoint"
	PropObsGrafanaURL       = "observability.grafana_url"
)

// DatabaseDetails locate a PostgreSQL database.
type DatabaseDetails struct {
	Host     string
	Port     int
	Name     string
	Username string
	Password string
	SSLMode  string
}

func (d DatabaseDetails) Kind() Kind { return KindDatabase }

// Address returns host:port.
func (d DatabaseDetails) Address() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

func (d DatabaseDetails) sslMode() string {
	if d.SSLMode == "" {
		return "disable"
	}
	return d.SSLMode
}

// DSN returns a keyword/value connection string accepted by pgx and GORM.
func (d DatabaseDetails) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.Username, d.Password, d.Name, d.sslMode())
}

// URL returns the postgres:// form of the connection string.
func (d DatabaseDetails) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.Username, d.Password),
		Host:     d.Address(),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + d.sslMode(),
	}
	return u.String()
}

func (d DatabaseDetails) Properties() map[string]string {
	return map[string]string{
		PropDatabaseHost:     d.Host,
		PropDatabasePort:     strconv.Itoa(d.Port),
		PropDatabaseName:     d.Name,
		PropDatabaseUsername: d.Username,
		PropDatabasePassword: d.Password,
		PropDatabaseDSN:      d.DSN(),
		PropDatabaseURL:      d.URL(),
	}
}

// OTLPDetails locate an OTLP collector and the Grafana instance in front of it.
type OTLPDetails struct {
	// HTTPEndpoint is host:port of the OTLP/HTTP receiver.
	HTTPEndpoint string
	// GRPCEndpoint is host:port of the OTLP/gRPC receiver.
	GRPCEndpoint string
	GrafanaURL   string
}

func (d OTLPDetails) Kind() Kind { return KindOTLP }

// BaseURL returns the OTLP/HTTP endpoint as an http URL.
func (d OTLPDetails) BaseURL() string {
	return "http://" + d.HTTPEndpoint
}

func (d OTLPDetails) Properties() map[string]string {
	base := d.BaseURL()
	return map[string]string{
		PropOTLPEndpoint:        base,
		PropOTLPProtocol:        "http/protobuf",
		PropOTLPTracesEndpoint:  base + "/v1/traces",
		PropOTLPMetricsEndpoint: base + "/v1/metrics",
		PropOTLPLogsEndpoint:    base + "/v1/logs",
		PropObsEndpoint:         d.HTTPEndpoint,
		PropObsInsecure:         "true",
		PropObsGRPCEndpoint:     d.GRPCEndpoint,
		PropObsGrafanaURL:       d.GrafanaURL,
	}
}
