// Package client provides a Go SDK for the pgtask admin API: task
// inspection, queue depth, parked-task management, plus a WebSocket
// client for real-time event streaming. There is no task-creation
// method — enqueueing a step happens in-process via
// pgtask.EnqueueNow/After/At, not over HTTP.
//
// # Basic Usage
//
//	c, err := client.New("http://localhost:8080")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	task, err := c.GetTask(ctx, taskID)
//
// # WebSocket Events
//
//	err := c.ConnectWebSocket(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.CloseWebSocket()
//
//	for event := range c.Events() {
//	    fmt.Printf("Event: %s\n", event.Type)
//	}
//
// # Configuration
//
// The client supports functional options for configuration:
//
//	c, err := client.New("http://localhost:8080",
//	    client.WithAPIKey("your-api-key"),
//	    client.WithTimeout(30 * time.Second),
//	)
package client
