package nlu_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"strom/internal/nlu"
)

func TestExtractTime(t *testing.T) {
	tests := []struct {
		text string
		want nlu.Entities
	}{
		{"wake me at 12 am", nlu.Entities{nlu.KeyHour: 0, nlu.KeyMinute: 0}},
		{"at 12 pm", nlu.Entities{nlu.KeyHour: 12, nlu.KeyMinute: 0}},
		{"alarm at 5", nlu.Entities{nlu.KeyHour: 5, nlu.KeyMinute: 0}},
		{"alarm 7:45", nlu.Entities{nlu.KeyHour: 7, nlu.KeyMinute: 45}},
		{"alarm for 5 p.m.", nlu.Entities{nlu.KeyHour: 17, nlu.KeyMinute: 0}},
		{"at 25", nlu.Entities{}},
		{"at 7:75", nlu.Entities{}},
		{"the 2024 report", nlu.Entities{}},
		{"in 10 minutes", nlu.Entities{nlu.KeyDuration: 600}},
		{"for 30 seconds", nlu.Entities{nlu.KeyDuration: 30}},
		{"in 1 hour", nlu.Entities{nlu.KeyDuration: 3600}},
		{"in 2 hours at 5pm", nlu.Entities{nlu.KeyHour: 17, nlu.KeyMinute: 0, nlu.KeyDuration: 7200}},
		{"pay for 2 tickets", nlu.Entities{}},
		{"for 5", nlu.Entities{}},
		{"in 9999999999999999 hours", nlu.Entities{}},
		{"in 99999999999999999999 minutes", nlu.Entities{}},
		{"in 2562047788015215 hours", nlu.Entities{nlu.KeyDuration: 2562047788015215 * 3600}},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, nlu.ExtractTime(tt.text))
		})
	}
}

func TestExtractAlarmTime(t *testing.T) {
	tests := []struct {
		text string
		want nlu.Entities
	}{
		{"alarm for 7", nlu.Entities{nlu.KeyHour: 7, nlu.KeyMinute: 0}},
		{"alarm at 6:15 am", nlu.Entities{nlu.KeyHour: 6, nlu.KeyMinute: 15}},
		{"alarm for 2 minutes", nlu.Entities{nlu.KeyDuration: 120}},
		{"alarm for 30", nlu.Entities{}},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, nlu.ExtractAlarmTime(tt.text))
		})
	}
}

func TestExtractTask(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"remind me to call mom at 5pm", "to call mom"},
		{"set a reminder to water the plants in 20 minutes", "to water the plants"},
		{"create todo buy milk", "buy milk"},
		{"add a new task finish the report by 6 pm", "finish the report"},
		{"remind me", ""},
		{"todo", ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, nlu.ExtractTask(tt.text))
		})
	}
}

func TestExtractQuery(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"search for golang tutorials", "golang tutorials"},
		{"search golang", "golang"},
		{"look up einstein on wikipedia", "einstein"},
		{"find me a pizza place", "a pizza place"},
		{"google the weather in paris", "the weather in paris"},
		{"tell me about black holes", "black holes"},
		{"wiki go programming language", "go programming language"},
		{"quantum physics", "quantum physics"},
		{"search", ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, nlu.ExtractQuery(tt.text))
		})
	}
}

func TestExtractRecipientAndMessage(t *testing.T) {
	assert.Equal(t, "john", nlu.ExtractRecipient("send whatsapp to John saying hi"))
	assert.Equal(t, "bob@example.com", nlu.ExtractRecipient("email bob@example.com saying hi"))
	assert.Equal(t, "mary jane", nlu.ExtractRecipient("message mary jane"))
	assert.Equal(t, "", nlu.ExtractRecipient("send a whatsapp"))

	assert.Equal(t, "hello there", nlu.ExtractMessage("whatsapp john saying hello there"))
	assert.Equal(t, "dinner is ready", nlu.ExtractMessage("whatsapp the kids and tell them dinner is ready"))
	assert.Equal(t, "", nlu.ExtractMessage("whatsapp john"))
}

func TestExtractLevel(t *testing.T) {
	tests := []struct {
		text  string
		level int
		ok    bool
	}{
		{"set volume to 75 percent", 75, true},
		{"brightness 20%", 20, true},
		{"volume to the max", 100, true},
		{"full brightness", 100, true},
		{"volume to zero", 0, true},
		{"minimum brightness", 0, true},
		{"volume at half", 50, true},
		{"turn it up", 0, false},
		// "min" must not fire inside "minute"
		{"volume in a minute", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			level, ok := nlu.ExtractLevel(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.level, level)
		})
	}
}

func TestExtractAction(t *testing.T) {
	tests := map[string]string{
		"turn volume up":          nlu.ActionIncrease,
		"make it louder":          nlu.ActionIncrease,
		"brightness down":         nlu.ActionDecrease,
		"make the screen dimmer":  nlu.ActionDecrease,
		"mute":                    nlu.ActionMute,
		"go silent":               nlu.ActionMute,
		"unmute the speakers":     nlu.ActionUnmute,
		"volume to 40 percent":    nlu.ActionSet,
		"setup the volume please": nlu.ActionSet,
	}

	for text, want := range tests {
		t.Run(text, func(t *testing.T) {
			assert.Equal(t, want, nlu.ExtractAction(text))
		})
	}
}

func TestExtractTaskID(t *testing.T) {
	id, ok := nlu.ExtractTaskID("delete task 12")
	assert.True(t, ok)
	assert.Equal(t, 12, id)

	id, ok = nlu.ExtractTaskID("complete task #4")
	assert.True(t, ok)
	assert.Equal(t, 4, id)

	_, ok = nlu.ExtractTaskID("complete the last one")
	assert.False(t, ok)

	_, ok = nlu.ExtractTaskID("task 99999999999999999999999")
	assert.False(t, ok)
}

func TestExtractKeyAndTypedText(t *testing.T) {
	assert.Equal(t, "enter", nlu.ExtractKey("press enter"))
	assert.Equal(t, "escape", nlu.ExtractKey("hit the escape key"))
	assert.Equal(t, "", nlu.ExtractKey("press"))

	assert.Equal(t, "Dear Sir", nlu.ExtractTypedText("write Dear Sir"))
	assert.Equal(t, "foo", nlu.ExtractTypedText("enter text foo"))
	assert.Equal(t, "", nlu.ExtractTypedText("type"))
}

func TestExtractAppName_AliasBeforeRegex(t *testing.T) {
	aliases := nlu.DefaultAliases()

	assert.Equal(t, "calculator", nlu.ExtractAppName("open calc", aliases))
	assert.Equal(t, "google chrome", nlu.ExtractAppName("open firefox or chrome", aliases))
	assert.Equal(t, "firefox", nlu.ExtractAppName("open firefox", aliases))
	assert.Equal(t, nlu.UnknownApp, nlu.ExtractAppName("something else", aliases))
}

func TestResolveReferences(t *testing.T) {
	full := nlu.Context{LastApp: "google chrome", LastRecipient: "john"}

	tests := []struct {
		name string
		text string
		ctx  nlu.Context
		want string
	}{
		{"no pronouns", "open chrome", full, "open chrome"},
		{"app pronoun", "close it", full, "close google chrome"},
		{"that", "open that again", full, "open google chrome again"},
		{"case insensitive", "Close It", full, "Close google chrome"},
		{"substring untouched", "add item to the list", full, "add item to the list"},
		{"person pronouns", "message her and tell him", full, "message john and tell john"},
		{"them", "email them", full, "email john"},
		{"missing app context", "close it", nlu.Context{LastRecipient: "john"}, "close it"},
		{"missing recipient context", "call her", nlu.Context{LastApp: "spotify"}, "call her"},
		{"empty context", "close it and message them", nlu.Context{}, "close it and message them"},
		{"that after messaging word", "text him that it works", full, "text john that google chrome works"},
		{"that before messaging word", "close that and message her", full, "close google chrome and message john"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nlu.ResolveReferences(tt.text, tt.ctx))
		})
	}
}

func TestResolveReferences_Idempotent(t *testing.T) {
	ctx := nlu.Context{LastApp: "spotify", LastRecipient: "alice"}
	text := "what is the weather in paris"

	once := nlu.ResolveReferences(text, ctx)
	assert.Equal(t, text, once)
	assert.Equal(t, once, nlu.ResolveReferences(once, ctx))
}
