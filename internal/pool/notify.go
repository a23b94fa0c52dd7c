package pool

import (
	"context"

	"github.com/hashicorp/go-multierror"

	"github.com/radieske/betting-pool/pkg/contracts/events"
)

// Notifier recebe os eventos do pool depois do commit.
// Falha de notificação nunca desfaz a operação.
type Notifier interface {
	Notify(ctx context.Context, ev events.Envelope) error
}

// NotifierFunc adapta uma função para Notifier
type NotifierFunc func(ctx context.Context, ev events.Envelope) error

func (f NotifierFunc) Notify(ctx context.Context, ev events.Envelope) error { return f(ctx, ev) }

// Fanout entrega o evento a todos os notifiers e agrega os erros
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, ev events.Envelope) error {
	var result *multierror.Error
	for _, n := range f {
		if err := n.Notify(ctx, ev); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, events.Envelope) error { return nil }
