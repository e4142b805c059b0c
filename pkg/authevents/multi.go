package authevents

import (
	"context"

	"github.com/dmitrymomot/guardkit/pkg/guard"
)

// Multi fans events out to every non-nil emitter in order.
func Multi(emitters ...guard.Emitter) guard.Emitter {
	out := make(multi, 0, len(emitters))
	for _, e := range emitters {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

type multi []guard.Emitter

func (m multi) Emit(ctx context.Context, e guard.Event) {
	for _, em := range m {
		em.Emit(ctx, e)
	}
}
