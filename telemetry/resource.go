package telemetry

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// newResource service identity plus configured attributes; values expand $ENV references
func newResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	}
	for key, value := range flattenAttrs(cfg.ResourceAttrs, "") {
		attrs = append(attrs, attribute.String(key, os.ExpandEnv(value)))
	}

	return resource.New(ctx,
		resource.WithAttributes(attrs...),
		resource.WithHost(),
		resource.WithProcess(),
		resource.WithTelemetrySDK(),
	)
}

// flattenAttrs {"deployment": {"environment": "test"}} -> {"deployment.environment": "test"}
func flattenAttrs(m map[string]interface{}, prefix string) map[string]string {
	out := make(map[string]string)
	for key, value := range m {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		switch v := value.(type) {
		case string:
			out[full] = v
		case map[string]interface{}:
			for k, nested := range flattenAttrs(v, full) {
				out[k] = nested
			}
		default:
			out[full] = fmt.Sprintf("%v", v)
		}
	}
	return out
}
