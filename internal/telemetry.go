package internal

import (
	"context"
	"sync"
)

// Telemetry hooks for the dataset engine. The default emitter is a no-op; service wiring
// or tests register a real one via RegisterTelemetryEmitter.

type telemetryEmitter func(ctx context.Context, name string, labels map[string]string, value any)

var (
	teleMu   sync.Mutex
	teleImpl telemetryEmitter = func(ctx context.Context, name string, labels map[string]string, value any) {}
)

// RegisterTelemetryEmitter registers a custom emitter function. Nil restores the no-op.
func RegisterTelemetryEmitter(fn telemetryEmitter) {
	teleMu.Lock()
	defer teleMu.Unlock()
	if fn == nil {
		teleImpl = func(ctx context.Context, name string, labels map[string]string, value any) {}
		return
	}
	teleImpl = fn
}

func emitter() telemetryEmitter {
	teleMu.Lock()
	defer teleMu.Unlock()
	return teleImpl
}

// EmitLatency records the latency in milliseconds of a manager operation.
// name: "datamimic_operation_latency_ms" with label {"operation": "<generate|upload|apply|...>"}
func EmitLatency(ctx context.Context, operation string, ms int64) {
	emitter()(ctx, "datamimic_operation_latency_ms", map[string]string{"operation": operation}, ms)
}

// EmitRowCount records the row count of a dataset produced by an operation.
// name: "datamimic_rows" with label {"operation": "<generate|upload|apply>"}
func EmitRowCount(ctx context.Context, operation string, rows int64) {
	emitter()(ctx, "datamimic_rows", map[string]string{"operation": operation}, rows)
}

// emitRegistrySize records the number of live handles.
// name: "datamimic_registry_size"
func emitRegistrySize(n int) {
	emitter()(context.Background(), "datamimic_registry_size", nil, int64(n))
}
