package nlu

// Entity keys understood by the feature handlers.
const (
	KeyAppName   = "app_name"
	KeyRecipient = "recipient"
	KeyMessage   = "message"
	KeyHour      = "hour"
	KeyMinute    = "minute"
	KeyDuration  = "duration_seconds"
	KeyTask      = "task"
	KeyQuery     = "query"
	KeyLevel     = "level"
	KeyAction    = "action"
	KeyTaskID    = "task_id"
	KeyText      = "text"
	KeyKey       = "key"
)

// UnknownApp is the app_name value when no application could be found.
const UnknownApp = "unknown"

// Volume and brightness actions.
const (
	ActionSet      = "set"
	ActionIncrease = "increase"
	ActionDecrease = "decrease"
	ActionMute     = "mute"
	ActionUnmute   = "unmute"
)

// Entities holds the parameters extracted for one intent. Values are
// string, int or nil; a nil value means the key applies to the intent but
// nothing was found.
type Entities map[string]any

// Has reports whether key is present, even with a nil value.
func (e Entities) Has(key string) bool {
	_, ok := e[key]
	return ok
}

// String returns the string value of key, or "" when absent or not a
// string.
func (e Entities) String(key string) string {
	s, _ := e[key].(string)
	return s
}

// Int returns the integer value of key. ok is false for absent and nil
// values.
func (e Entities) Int(key string) (int, bool) {
	switch v := e[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		// entities decoded from JSON history
		return int(v), true
	default:
		return 0, false
	}
}

func (e Entities) merge(other Entities) {
	for k, v := range other {
		e[k] = v
	}
}
