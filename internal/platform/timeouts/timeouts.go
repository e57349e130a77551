// Package timeouts defines timeout constants shared by the cafes processes.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long a server waits for in-flight work when stopping.
const Shutdown = 5 * time.Second

// HealthProbe caps a single gRPC health check call.
const HealthProbe = time.Second
