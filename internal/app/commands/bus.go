package commands

import (
	"context"
	"slices"

	"github.com/cockroachdb/errors"
)

type handlerFunc func(ctx context.Context, cmd Command) (any, error)

// InMemoryBus keeps handlers in a map keyed by Command.Key.
type InMemoryBus struct {
	handlers map[string]handlerFunc
}

func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{handlers: make(map[string]handlerFunc)}
}

func (b *InMemoryBus) register(key string, handler handlerFunc) {
	if key == "" {
		panic("commands: empty key registration")
	}
	if _, exists := b.handlers[key]; exists {
		panic("commands: duplicate registration for " + key)
	}
	b.handlers[key] = handler
}

func (b *InMemoryBus) Dispatch(ctx context.Context, cmd Command) (any, error) {
	h, ok := b.handlers[cmd.Key()]
	if !ok {
		return nil, errors.Wrapf(ErrHandlerNotFound, "%s", cmd.Key())
	}
	return h(ctx, cmd)
}

// Keys lists registered command keys in sorted order.
func (b *InMemoryBus) Keys() []string {
	keys := make([]string, 0, len(b.handlers))
	for key := range b.handlers {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// Register attaches a strongly typed handler under the zero command's key.
func Register[C Command, R any](bus *InMemoryBus, handler Handler[C, R]) {
	if bus == nil {
		panic("commands: nil bus")
	}
	var zero C
	key := zero.Key()
	bus.register(key, func(ctx context.Context, raw Command) (any, error) {
		cmd, ok := raw.(C)
		if !ok {
			return nil, errors.Wrapf(ErrInvalidCommand, "%s got %T", key, raw)
		}
		return handler.Handle(ctx, cmd)
	})
}
