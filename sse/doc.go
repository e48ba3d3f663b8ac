// Package sse streams scheduler events to browsers over Server-Sent Events.
//
// Publishers send typed events on a topic such as "tasks" or "nodes".
// Each connected client carries a glob filter and receives every event whose
// topic matches it, so a client with filter "*" sees everything.
//
//	hub := sse.NewHub()
//	go hub.Run()
//	hub.Publish("tasks", "task.finished", record)
package sse
