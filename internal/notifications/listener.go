package notifications

import (
	"context"
	"errors"

	"github.com/pizzabox/pizzabox-backend/pkg/bus"
	"github.com/pizzabox/pizzabox-backend/pkg/enums"
	pkgerrors "github.com/pizzabox/pizzabox-backend/pkg/errors"
	"github.com/pizzabox/pizzabox-backend/pkg/logger"
)

// Subscriber is the bus surface the listener consumes.
type Subscriber interface {
	Subscribe(ctx context.Context, topics ...enums.EventTopic) (<-chan bus.Message, error)
}

// Listener pipes the event bus into the router. One listener runs for the
// process lifetime; context cancellation is a clean stop.
type Listener struct {
	sub    Subscriber
	router *Router
	logg   *logger.Logger
}

func NewListener(sub Subscriber, router *Router, logg *logger.Logger) (*Listener, error) {
	if sub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "bus subscriber required")
	}
	if router == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "router required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &Listener{sub: sub, router: router, logg: logg}, nil
}

// Run blocks until ctx is canceled or the subscription closes.
func (l *Listener) Run(ctx context.Context) error {
	messages, err := l.sub.Subscribe(ctx, enums.TopicOrderEvents, enums.TopicPaymentEvents)
	if err != nil {
		return err
	}
	l.logg.Info(ctx, "notification listener started")

	for {
		select {
		case <-ctx.Done():
			l.logg.Info(ctx, "notification listener stopped")
			return nil
		case msg, ok := <-messages:
			if !ok {
				if errors.Is(ctx.Err(), context.Canceled) {
					l.logg.Info(ctx, "notification listener stopped")
					return nil
				}
				return errors.New("bus subscription closed unexpectedly")
			}
			l.router.Route(ctx, msg)
		}
	}
}
