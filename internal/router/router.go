// Package router maps a classified intent to the handler that serves it.
package router

import (
	"context"
	log "log/slog"

	"strom/internal/nlu"
)

// Handler serves one intent and returns the sentence to speak back.
type Handler func(ctx context.Context, req nlu.Result) (string, error)

const (
	NotUnderstood  = "I didn't understand that."
	NotAvailable   = "That feature is not available."
	DefaultFailure = "Sorry, I encountered an error."
)

var builtin = map[nlu.Intent]string{
	nlu.Greeting: "Hello! I'm Strom. How can I help?",
	nlu.Thanks:   "You're welcome!",
	nlu.Goodbye:  "Goodbye! Have a great day!",
	nlu.Help:     "I can help with system control, tasks, messaging, and information. Just ask!",
}

type Router struct {
	routes  map[nlu.Intent]Handler
	known   map[nlu.Intent]bool
	failure string
}

// New creates a router answering the conversational intents itself.
// failure is spoken when a handler returns an error.
func New(failure string) *Router {
	if failure == "" {
		failure = DefaultFailure
	}

	r := &Router{
		routes:  make(map[nlu.Intent]Handler),
		known:   map[nlu.Intent]bool{nlu.GeneralQuery: true},
		failure: failure,
	}
	for _, p := range nlu.DefaultPatterns() {
		r.known[p.Intent] = true
	}
	for intent, reply := range builtin {
		r.Handle(intent, Static(reply))
	}
	return r
}

// Static returns a handler that always says reply.
func Static(reply string) Handler {
	return func(context.Context, nlu.Result) (string, error) {
		return reply, nil
	}
}

// Handle registers h for intent, replacing any previous handler.
func (r *Router) Handle(intent nlu.Intent, h Handler) {
	r.routes[intent] = h
	r.known[intent] = true
}

// HandleAll registers every route of a feature module.
func (r *Router) HandleAll(routes map[nlu.Intent]Handler) {
	for intent, h := range routes {
		r.Handle(intent, h)
	}
}

// Dispatch runs the handler for req.Intent. It always returns something to
// say: unknown intents, missing modules and handler failures each have
// their own sentence.
func (r *Router) Dispatch(ctx context.Context, req nlu.Result) string {
	h, ok := r.routes[req.Intent]
	if !ok {
		if r.known[req.Intent] {
			log.Warn("No handler registered", "intent", req.Intent)
			return NotAvailable
		}
		return NotUnderstood
	}

	reply, err := h(ctx, req)
	if err != nil {
		log.Error("Handler failed", "intent", req.Intent, "err", err)
		return r.failure
	}
	return reply
}
