// Package api implements the HTTP REST API and WebSocket server for
// Hearth Core.
//
// This package provides:
//   - REST endpoints for monitor registration, lifecycle, and firing history
//   - WebSocket hub for real-time monitor event broadcasts
//   - Middleware stack (request ID, logging, recovery, CORS)
//   - TLS support for production deployments
//
// # Architecture
//
// The API server sits between user interfaces (dashboards, mobile apps) and
// the monitor manager. Scripts are registered and started over REST; firing
// and lifecycle events flow back to clients over the WebSocket hub, which
// the manager reaches through its event sink hook.
//
//	┌──────────┐   REST    ┌─────────────┐          ┌─────────────┐
//	│  Client  │──────────►│  API Server │─────────►│   Manager   │
//	│          │◄──────────│  (this pkg) │◄─────────│  (monitor)  │
//	└──────────┘ WebSocket └─────────────┘  events  └─────────────┘
//
// # Endpoints
//
//	GET    /api/v1/health
//	GET    /api/v1/monitors
//	POST   /api/v1/monitors
//	GET    /api/v1/monitors/{name}
//	DELETE /api/v1/monitors/{name}
//	POST   /api/v1/monitors/{name}/start
//	POST   /api/v1/monitors/{name}/stop
//	GET    /api/v1/monitors/{name}/firings
//	GET    /api/v1/ws
package api
