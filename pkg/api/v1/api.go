// Package apiv1 defines the wire types shared by the memtrimd HTTP API
// and its clients.
package apiv1

// Response is the envelope for every API reply.
type Response struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Results any    `json:"results,omitempty"`
}

// Response codes.
const (
	CodeSuccess           = "SUCCESS"
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeInvalidThresholds = "INVALID_THRESHOLDS"
	CodeAlreadyCleaning   = "ALREADY_CLEANING"
	CodeInternal          = "INTERNAL_SERVER_ERROR"
)

// Routes served by memtrimd.
const (
	RouteStatus   = "/api/v1/status"
	RouteConfig   = "/api/v1/config"
	RouteClean    = "/api/v1/clean"
	RouteHistory  = "/api/v1/history"
	RouteShutdown = "/api/v1/shutdown"
	RouteEvents   = "/api/v1/events"
	RouteHealth   = "/health"
	RouteMetrics  = "/metrics"
)
