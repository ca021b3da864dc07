// Package ws streams live visitor counts to admin dashboards over WebSocket.
//
// New(source, interval) creates a Hub. Hub.Run(ctx) broadcasts on every tick
// and whenever Notify is called, until ctx is cancelled, then closes all
// active connections. Hub.ServeHTTP upgrades the request, sends the current
// counts immediately, then streams updates.
//
// Message format sent to clients:
//
//	{
//	  "event": "visitors",
//	  "data":  {"total": 42, "today": 7, "last_updated": "..."}
//	}
//
// The upgrader accepts all origins; the endpoint is mounted behind the admin
// auth middleware at /ws/visitors.
package ws
