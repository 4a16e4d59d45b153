package stt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	cases := map[string]string{
		"[BLANK_AUDIO]":                        "",
		" Open Firefox. ":                      "Open Firefox.",
		"[ Silence ] set a timer  (music) now": "set a timer now",
		"*coughs* what time is it":             "what time is it",
		"":                                     "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Clean(in), in)
	}
}

func TestNewTranscriber_EmptyPath(t *testing.T) {
	_, err := NewTranscriber("", Options{})
	assert.Error(t, err)
}

func TestTranscribePCM_NoSamples(t *testing.T) {
	var tr Transcriber
	_, err := tr.TranscribePCM(context.Background(), nil, Options{})
	assert.Error(t, err)
}
