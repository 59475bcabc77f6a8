package model

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

// Diagnostics collects human readable step errors exposed to the host
// pipeline. Every message is logged at error level as it is added.
// The zero value is ready to use.
type Diagnostics struct {
	mx   sync.Mutex
	msgs []string
}

func (d *Diagnostics) Add(ctx context.Context, msg string, attrs ...any) {
	slog.ErrorContext(ctx, msg, attrs...)
	d.mx.Lock()
	d.msgs = append(d.msgs, msg)
	d.mx.Unlock()
}

// Errors returns a copy of the recorded messages in insertion order.
func (d *Diagnostics) Errors() []string {
	d.mx.Lock()
	defer d.mx.Unlock()
	return slices.Clone(d.msgs)
}

func (d *Diagnostics) Len() int {
	d.mx.Lock()
	defer d.mx.Unlock()
	return len(d.msgs)
}
