package nlu

// Intent is the symbolic category of one utterance. The string values are
// the contract with the router and with persisted history.
type Intent string

const (
	Unknown      Intent = "unknown"
	GeneralQuery Intent = "general_query"

	Shutdown   Intent = "shutdown"
	Restart    Intent = "restart"
	Lock       Intent = "lock"
	Sleep      Intent = "sleep"
	Screenshot Intent = "screenshot"
	SystemInfo Intent = "system_info"
	OpenApp    Intent = "open_app"
	CloseApp   Intent = "close_app"
	Volume     Intent = "volume"
	Brightness Intent = "brightness"
	TypeText   Intent = "type_text"
	PressKey   Intent = "press_key"

	SetAlarm     Intent = "set_alarm"
	SetReminder  Intent = "set_reminder"
	CreateTodo   Intent = "create_todo"
	ListTodos    Intent = "list_todos"
	SetTimer     Intent = "set_timer"
	CompleteTodo Intent = "complete_todo"
	DeleteTodo   Intent = "delete_todo"

	SendWhatsApp Intent = "send_whatsapp"
	SendEmail    Intent = "send_email"

	Weather   Intent = "weather"
	Time      Intent = "time"
	Date      Intent = "date"
	News      Intent = "news"
	Search    Intent = "search"
	Wikipedia Intent = "wikipedia"

	Greeting Intent = "greeting"
	Thanks   Intent = "thanks"
	Goodbye  Intent = "goodbye"
	Help     Intent = "help"
)

func (i Intent) String() string { return string(i) }

// Pattern binds an intent to its trigger keywords. A keyword fires when it
// occurs anywhere in the lower-cased utterance.
type Pattern struct {
	Intent   Intent
	Keywords []string
}

// defaultPatterns is walked top to bottom; the first intent with a matching
// keyword wins. Reordering rows changes classification of overlapping
// utterances ("open the screenshot tool" is a screenshot, not open_app).
var defaultPatterns = []Pattern{
	{Shutdown, []string{"shutdown", "shut down", "power off"}},
	{Restart, []string{"restart", "reboot"}},
	{Lock, []string{"lock", "lock screen"}},
	{Sleep, []string{"sleep", "hibernate"}},
	{Screenshot, []string{"screenshot", "screen capture", "capture screen"}},
	{SystemInfo, []string{"system info", "computer status", "system status"}},
	{OpenApp, []string{"open", "launch", "start", "run"}},
	{CloseApp, []string{"close", "quit", "exit"}},
	{Volume, []string{"volume", "sound", "mute"}},
	{Brightness, []string{"brightness", "screen"}},
	{TypeText, []string{"type", "write", "enter text"}},
	{PressKey, []string{"press", "hit key", "key press"}},

	{SetAlarm, []string{"alarm", "wake me"}},
	{SetReminder, []string{"remind", "reminder"}},
	{CreateTodo, []string{"todo", "task", "add task"}},
	{ListTodos, []string{"list tasks", "show tasks", "my tasks"}},
	{SetTimer, []string{"timer", "countdown"}},
	{CompleteTodo, []string{"complete", "done", "finish task"}},
	{DeleteTodo, []string{"delete task", "remove task"}},

	{SendWhatsApp, []string{"whatsapp", "message"}},
	{SendEmail, []string{"email", "mail"}},

	{Weather, []string{"weather", "temperature"}},
	{Time, []string{"time", "what time"}},
	{Date, []string{"date", "what date", "today"}},
	{News, []string{"news", "headlines"}},
	{Search, []string{"search", "look up", "google"}},
	{Wikipedia, []string{"wikipedia", "wiki"}},

	{Greeting, []string{"hello", "hi", "hey"}},
	{Thanks, []string{"thank", "thanks"}},
	{Goodbye, []string{"bye", "goodbye"}},
	{Help, []string{"help", "what can you do"}},
}

// DefaultPatterns returns a copy of the built-in intent table in priority
// order.
func DefaultPatterns() []Pattern {
	return clonePatterns(defaultPatterns)
}

func clonePatterns(in []Pattern) []Pattern {
	out := make([]Pattern, len(in))
	for i, p := range in {
		out[i] = Pattern{
			Intent:   p.Intent,
			Keywords: append([]string(nil), p.Keywords...),
		}
	}
	return out
}

// Alias maps a casual application name to the canonical one handed to the
// system handler.
type Alias struct {
	Name      string
	Canonical string
}

var defaultAliases = []Alias{
	{"chrome", "google chrome"},
	{"browser", "google chrome"},
	{"notepad", "notepad"},
	{"calculator", "calculator"},
	{"calc", "calculator"},
}

// DefaultAliases returns a copy of the built-in application alias table.
func DefaultAliases() []Alias {
	return append([]Alias(nil), defaultAliases...)
}
