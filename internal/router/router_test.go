package router_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"strom/internal/nlu"
	"strom/internal/router"
)

func TestDispatch_Builtins(t *testing.T) {
	r := router.New("")
	ctx := context.Background()

	assert.Equal(t, "Hello! I'm Strom. How can I help?", r.Dispatch(ctx, nlu.Result{Intent: nlu.Greeting}))
	assert.Equal(t, "You're welcome!", r.Dispatch(ctx, nlu.Result{Intent: nlu.Thanks}))
	assert.Equal(t, "Goodbye! Have a great day!", r.Dispatch(ctx, nlu.Result{Intent: nlu.Goodbye}))
	assert.Contains(t, r.Dispatch(ctx, nlu.Result{Intent: nlu.Help}), "system control")
}

func TestDispatch_UnknownAndUnregistered(t *testing.T) {
	r := router.New("")
	ctx := context.Background()

	assert.Equal(t, router.NotUnderstood, r.Dispatch(ctx, nlu.Result{Intent: nlu.Unknown}))
	assert.Equal(t, router.NotUnderstood, r.Dispatch(ctx, nlu.Result{Intent: "teleport"}))
	assert.Equal(t, router.NotAvailable, r.Dispatch(ctx, nlu.Result{Intent: nlu.Weather}))
	assert.Equal(t, router.NotAvailable, r.Dispatch(ctx, nlu.Result{Intent: nlu.GeneralQuery}))
}

func TestDispatch_PassesRequestToHandler(t *testing.T) {
	r := router.New("")

	var got nlu.Result
	r.HandleAll(map[nlu.Intent]router.Handler{
		nlu.OpenApp: func(_ context.Context, req nlu.Result) (string, error) {
			got = req
			return "Opening " + req.Entities.String(nlu.KeyAppName) + "...", nil
		},
	})

	req := nlu.Result{
		Intent:   nlu.OpenApp,
		Entities: nlu.Entities{nlu.KeyAppName: "spotify"},
		Text:     "open spotify",
	}
	assert.Equal(t, "Opening spotify...", r.Dispatch(context.Background(), req))
	assert.Equal(t, req, got)
}

func TestDispatch_HandlerErrorUsesFailureMessage(t *testing.T) {
	r := router.New("Something broke.")
	r.Handle(nlu.Shutdown, func(context.Context, nlu.Result) (string, error) {
		return "", errors.New("boom")
	})

	assert.Equal(t, "Something broke.", r.Dispatch(context.Background(), nlu.Result{Intent: nlu.Shutdown}))
}

func TestHandle_OverridesBuiltin(t *testing.T) {
	r := router.New("")
	r.Handle(nlu.Greeting, func(context.Context, nlu.Result) (string, error) {
		return "Hi there.", nil
	})

	assert.Equal(t, "Hi there.", r.Dispatch(context.Background(), nlu.Result{Intent: nlu.Greeting}))
}
