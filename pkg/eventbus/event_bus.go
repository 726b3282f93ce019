package eventbus

import (
	"reflect"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

// EventBus delivers events in-process to every handler whose parameter
// list accepts them. Delivery is synchronous, in subscription order.
type EventBus interface {
	Publish(args ...any)
	Subscribe(handler any)
	SubscribersCount() int
}

var deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "eventbus_deliveries_total",
	Help: "Event deliveries by event type and result (ok, panic, unhandled).",
}, []string{"event", "result"})

type bus struct {
	log      *logrus.Logger
	mu       sync.RWMutex
	handlers []reflect.Value
}

func NewEventPublisher(log *logrus.Logger) EventBus {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &bus{log: log}
}

// Accepts reports whether handler can be called with args.
func Accepts(handler any, args []any) bool {
	t := reflect.TypeOf(handler)
	if t == nil || t.Kind() != reflect.Func || t.NumIn() != len(args) {
		return false
	}
	for i, arg := range args {
		param := t.In(i)
		if arg == nil {
			switch param.Kind() {
			case reflect.Interface, reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func:
				continue
			}
			return false
		}
		if !reflect.TypeOf(arg).AssignableTo(param) {
			return false
		}
	}
	return true
}

func eventName(args []any) string {
	for i := len(args) - 1; i >= 0; i-- {
		if args[i] != nil {
			return reflect.TypeOf(args[i]).String()
		}
	}
	return "nil"
}

// Publish calls every matching handler. A panicking handler is logged and
// the remaining handlers still run.
func (b *bus) Publish(args ...any) {
	b.mu.RLock()
	handlers := append([]reflect.Value(nil), b.handlers...)
	b.mu.RUnlock()

	name := eventName(args)
	handled := false
	for _, h := range handlers {
		if !Accepts(h.Interface(), args) {
			continue
		}
		handled = true
		b.deliver(h, name, args)
	}
	if !handled {
		deliveries.WithLabelValues(name, "unhandled").Inc()
		b.log.WithField("event", name).Debug("eventbus.publish.unhandled")
	}
}

func (b *bus) deliver(h reflect.Value, name string, args []any) {
	defer func() {
		if r := recover(); r != nil {
			deliveries.WithLabelValues(name, "panic").Inc()
			b.log.WithFields(logrus.Fields{
				"event":   name,
				"handler": h.Type().String(),
				"panic":   r,
			}).Error("eventbus.handler.panic")
		}
	}()
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		if arg == nil {
			in[i] = reflect.Zero(h.Type().In(i))
		} else {
			in[i] = reflect.ValueOf(arg)
		}
	}
	h.Call(in)
	deliveries.WithLabelValues(name, "ok").Inc()
}

func (b *bus) Subscribe(handler any) {
	v := reflect.ValueOf(handler)
	if v.Kind() != reflect.Func {
		panic("eventbus: handler must be a function")
	}
	b.mu.Lock()
	b.handlers = append(b.handlers, v)
	b.mu.Unlock()
}

func (b *bus) SubscribersCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}
