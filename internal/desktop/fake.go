package desktop

import (
	"context"
	"strings"
	"sync"
)

// Recorder is a Runner that records command lines instead of running them.
// Outputs maps a command line ("pgrep -if firefox") to its canned stdout;
// Errors maps a command line to the error it fails with.
type Recorder struct {
	mu       sync.Mutex
	Commands []string
	Outputs  map[string]string
	Errors   map[string]error
}

func (r *Recorder) record(name string, args []string) (string, error) {
	line := strings.Join(append([]string{name}, args...), " ")

	r.mu.Lock()
	defer r.mu.Unlock()

	r.Commands = append(r.Commands, line)
	return r.Outputs[line], r.Errors[line]
}

func (r *Recorder) Run(_ context.Context, name string, args ...string) error {
	_, err := r.record(name, args)
	return err
}

func (r *Recorder) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	out, err := r.record(name, args)
	return []byte(out), err
}

func (r *Recorder) Start(name string, args ...string) error {
	_, err := r.record(name, args)
	return err
}

// Last returns the most recent command line, or "".
func (r *Recorder) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.Commands) == 0 {
		return ""
	}
	return r.Commands[len(r.Commands)-1]
}
