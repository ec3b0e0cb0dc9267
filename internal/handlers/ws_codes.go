// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Custom WebSocket close codes used by the room watch stream.
const (
	BadSubprotocolError     websocket.StatusCode = 3000 // Client connected without the "room" subprotocol.
	SubscriptionFailedError websocket.StatusCode = 3004 // The room channel could not be subscribed or was lost; reconnect.
)
