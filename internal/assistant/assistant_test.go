package assistant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strom/internal/convo"
	"strom/internal/nlu"
	"strom/internal/router"
	"strom/internal/storage"
)

func newAssistant(t *testing.T) (*Assistant, *convo.Manager) {
	t.Helper()

	db, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	conv, err := convo.NewManager(context.Background(), convo.NewSQLiteStore(db))
	require.NoError(t, err)

	r := router.New("")
	echoApp := func(verb string) router.Handler {
		return func(_ context.Context, req nlu.Result) (string, error) {
			return verb + " " + req.Entities.String(nlu.KeyAppName) + ".", nil
		}
	}
	r.Handle(nlu.OpenApp, echoApp("Opening"))
	r.Handle(nlu.CloseApp, echoApp("Closing"))

	return New(nlu.New(), conv, r, Options{WakeWord: "strom", StopWord: "stop"}), conv
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "open firefox rm -rf", Sanitize("  open firefox; rm -rf`$ "))
	assert.Equal(t, "", Sanitize(" ;|&` "))
}

func TestHandle_Blank(t *testing.T) {
	a, conv := newAssistant(t)

	for _, in := range []string{"", "   ", ";;", "hey strom", "Strom!"} {
		reply, err := a.Handle(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, NotHeard, reply.Text, in)
		assert.Equal(t, nlu.Unknown, reply.Intent)
	}

	recent, err := conv.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestHandle_StopWord(t *testing.T) {
	a, _ := newAssistant(t)

	reply, err := a.Handle(context.Background(), "Stop.")
	require.NoError(t, err)
	assert.Equal(t, StandingBy, reply.Text)
}

func TestHandle_ResolvesFromHistory(t *testing.T) {
	a, conv := newAssistant(t)
	ctx := context.Background()

	reply, err := a.Handle(ctx, "Hey Strom, open chrome")
	require.NoError(t, err)
	assert.Equal(t, nlu.OpenApp, reply.Intent)
	assert.Equal(t, "Opening google chrome.", reply.Text)

	reply, err = a.Handle(ctx, "close it")
	require.NoError(t, err)
	assert.Equal(t, nlu.CloseApp, reply.Intent)
	assert.Equal(t, "close google chrome", reply.Resolved)
	assert.Equal(t, "Closing google chrome.", reply.Text)

	recent, err := conv.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "open chrome", recent[0].Input)
	assert.Equal(t, "Closing google chrome.", recent[1].Response)
}

func TestHandle_UnroutedAndBuiltins(t *testing.T) {
	a, _ := newAssistant(t)
	ctx := context.Background()

	reply, err := a.Handle(ctx, "what's the weather")
	require.NoError(t, err)
	assert.Equal(t, nlu.Weather, reply.Intent)
	assert.Equal(t, router.NotAvailable, reply.Text)

	reply, err = a.Handle(ctx, "thank you")
	require.NoError(t, err)
	assert.Equal(t, "You're welcome!", reply.Text)
}

func TestHandle_FollowUp(t *testing.T) {
	a, _ := newAssistant(t)

	reply, err := a.Handle(context.Background(), "open it again")
	require.NoError(t, err)
	assert.True(t, reply.FollowUp)
}
