// Package listener implements the Listener adapter: the downstream sink
// interface the Assembler calls when emitting a merged event, carrying
// per-stream metadata (the line's source path). Shaped after the
// Processor interface in dtail's internal/io/line package
// (ProcessLine/Flush/Close), generalized from "one line at a time" to
// "one merged event at a time" and from a struct-typed line to the
// codec's own event.Event.
package listener

import "github.com/mimecast/multiline/internal/event"

// Sink is the downstream collaborator that receives merged events, e.g.
// an outer pipeline's output queue. Its implementation lives outside
// this package; only the interface does.
type Sink interface {
	ProcessEvent(e event.Event) error
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(event.Event) error

// ProcessEvent implements Sink.
func (f SinkFunc) ProcessEvent(e event.Event) error { return f(e) }

// Listener is the adapter object threaded through accept(): it carries
// the raw chunk to decode, the path to stamp onto any event produced
// from it, and the Sink that ultimately receives those events.
type Listener struct {
	Data []byte
	Path string
	Sink Sink
}

// New builds a Listener with no data attached yet; Accept supplies data
// for a particular decode call.
func New(path string, sink Sink) *Listener {
	return &Listener{Path: path, Sink: sink}
}

// Accept clones the listener with new data: accepting new data returns a
// fresh Listener sharing this one's path and sink, ready to be fed to
// the codec.
func (l *Listener) Accept(data []byte) *Listener {
	return &Listener{Data: data, Path: l.Path, Sink: l.Sink}
}

// ProcessEvent stamps Path onto e before forwarding to Sink. Path is set
// here, never by the Assembler.
func (l *Listener) ProcessEvent(e event.Event) error {
	e.Path = l.Path
	return l.Sink.ProcessEvent(e)
}
