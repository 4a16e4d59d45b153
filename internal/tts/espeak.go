// Package tts speaks replies with espeak-ng.
package tts

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <espeak-ng/speak_lib.h>

static int
espeak_init(const char *lang, int rate)
{
	if (espeak_Initialize(AUDIO_OUTPUT_SYNCH_PLAYBACK, 500, NULL, 0) < 0)
	{ return -1; }

	espeak_VOICE specs = { .languages = lang };
	if (espeak_SetVoiceByProperties(&specs) != EE_OK)
	{ return -2; }

	if (rate > 0)
	{ espeak_SetParameter(espeakRATE, rate, 0); }

	return 0;
}

static int
espeak_say(const char *text)
{
	if (!text)
	{ return -1; }

	espeak_Synth(text, 500, 0, 0, 0, espeakCHARS_AUTO, NULL, NULL);
	espeak_Synchronize();

	return 0;
}
*/
import "C"

import (
	"fmt"
	"strings"
	"sync"
	"unsafe"
)

type Speaker struct {
	mu sync.Mutex
}

// New initialises espeak-ng with a voice for lang ("en") at rate words per
// minute. Only one Speaker should exist per process.
func New(lang string, rate int) (*Speaker, error) {
	if lang == "" {
		lang = "en"
	}

	clang := C.CString(lang)
	defer C.free(unsafe.Pointer(clang))

	if rc := C.espeak_init(clang, C.int(rate)); rc != 0 {
		return nil, fmt.Errorf("espeak init failed: %d", int(rc))
	}
	return &Speaker{}, nil
}

// Speak blocks until text has been played.
func (s *Speaker) Speak(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))

	if rc := C.espeak_say(ctext); rc != 0 {
		return fmt.Errorf("espeak_say failed: %d", int(rc))
	}

	return nil
}

func (s *Speaker) Close() {
	C.espeak_Terminate()
}
