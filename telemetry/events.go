// Package telemetry records search statistics, step timings and run output.
package telemetry

import (
	"log/slog"

	"gonum.org/v1/gonum/spatial/r2"
)

// EventType identifies telemetry events.
type EventType uint8

const (
	EventSighting    EventType = iota // target came into direct view
	EventContactLost                  // target dropped out of view
	EventPathFailure                  // a guard's position query failed
	EventBeliefReset                  // belief map fell back to uniform
	EventCatch
)

var eventNames = [...]string{"sighting", "contact_lost", "path_failure", "belief_reset", "catch"}

func (t EventType) String() string {
	if int(t) < len(eventNames) {
		return eventNames[t]
	}
	return "unknown"
}

// Event is a single notable moment in a run. Guard is -1 when the event is
// not tied to one guard.
type Event struct {
	Type   EventType `csv:"-"`
	Name   string    `csv:"event"`
	Tick   int32     `csv:"tick"`
	Guard  int       `csv:"guard"`
	X      float64   `csv:"x"`
	Y      float64   `csv:"y"`
	Detail string    `csv:"detail"`
}

func newEvent(t EventType, tick int32, guard int, pos r2.Vec) Event {
	return Event{Type: t, Name: t.String(), Tick: tick, Guard: guard, X: pos.X, Y: pos.Y}
}

// NewSightingEvent records the target entering direct view at pos.
func NewSightingEvent(tick int32, pos r2.Vec) Event {
	return newEvent(EventSighting, tick, -1, pos)
}

// NewContactLostEvent records the target leaving view; pos is the last
// known position.
func NewContactLostEvent(tick int32, pos r2.Vec) Event {
	return newEvent(EventContactLost, tick, -1, pos)
}

// NewPathFailureEvent records a failed position query for a guard.
func NewPathFailureEvent(tick int32, guard int, pos r2.Vec, err error) Event {
	e := newEvent(EventPathFailure, tick, guard, pos)
	if err != nil {
		e.Detail = err.Error()
	}
	return e
}

// NewBeliefResetEvent records a degenerate belief update.
func NewBeliefResetEvent(tick int32) Event {
	return newEvent(EventBeliefReset, tick, -1, r2.Vec{})
}

// NewCatchEvent records a guard reaching the intruder.
func NewCatchEvent(tick int32, guard int, pos r2.Vec) Event {
	return newEvent(EventCatch, tick, guard, pos)
}

// LogEvent logs the event using slog.
func (e Event) LogEvent() {
	attrs := []any{"event", e.Name, "tick", e.Tick, "x", e.X, "y", e.Y}
	if e.Guard >= 0 {
		attrs = append(attrs, "guard", e.Guard)
	}
	if e.Detail != "" {
		attrs = append(attrs, "detail", e.Detail)
	}
	slog.Info("event", attrs...)
}
