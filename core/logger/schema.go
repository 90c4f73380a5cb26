package logger

import "strings"

// vocabulary maps accepted spellings of an enum field to its canonical form.
type vocabulary map[string]string

func words(canonical ...string) vocabulary {
	v := make(vocabulary, len(canonical))
	for _, w := range canonical {
		v[w] = w
	}
	return v
}

func (v vocabulary) lookup(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	w, ok := v[s]
	if !ok {
		return s, false
	}
	return w, true
}

var (
	levels = vocabulary{
		"debug": "DEBUG", "info": "INFO",
		"warn": "WARN", "warning": "WARN",
		"error": "ERROR", "fatal": "FATAL",
	}
	statuses = words("ok", "fail", "skip", "retry", "rejected", "cancelled")
	// outcomes outside this list are dropped from the line.
	outcomes = words("ok", "fail", "cancelled", "published", "deleted",
		"not_found", "orphaned", "not_member", "unsupported")
)

// normalizeLevel renders slog level names; offsets such as "INFO+2" pass through upper-cased.
func normalizeLevel(level string) string {
	if level == "" {
		return "INFO"
	}
	if w, ok := levels.lookup(level); ok {
		return w
	}
	return strings.ToUpper(level)
}

func normalizeStatus(status string) (string, bool) {
	return statuses.lookup(status)
}

func normalizeOutcome(outcome string) (string, bool) {
	return outcomes.lookup(outcome)
}

// defaultKeyOrder places correlation first and error detail last.
var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"chat_type",
	"handler",
	"operation",
	"op",
	"outcome",
	"duration_ms",
	"payload",
	"payload_len",
	"lang",
	"username",
	"mode",
	"listen",
	"public_url",
	"http_code",
	"db",
	"host",
	"port",
	"dialog",
	"state",
	"from_state",
	"content",
	"channel_id",
	"message_id",
	"code",
	"err",
	"err_code",
	"cause",
	"retryable",
	"attempts",
	"backoff_ms",
	"collapsed",
	"repeats",
}
