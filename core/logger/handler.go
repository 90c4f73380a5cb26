package logger

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	timeFormatMillis = "2006-01-02T15:04:05.000Z07:00"

	// visibleSecretRunes is how much of a secret value survives masking.
	visibleSecretRunes = 4
)

// secretKeys hold bearer values: a deletion code lets anyone remove a post.
var secretKeys = map[string]struct{}{
	"code":  {},
	"token": {},
}

type handlerConfig struct {
	level    slog.Leveler
	writer   *asyncWriter
	format   logFormat
	keyOrder []string
}

// lineHandler renders each record as one ordered JSON or key=value line.
type lineHandler struct {
	cfg    handlerConfig
	attrs  []slog.Attr
	groups []string
}

func newLineHandler(cfg handlerConfig) *lineHandler {
	if cfg.level == nil {
		cfg.level = slog.LevelInfo
	}
	if cfg.keyOrder == nil {
		cfg.keyOrder = defaultKeyOrder
	}
	return &lineHandler{cfg: cfg}
}

func (h *lineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.cfg.level.Level()
}

func (h *lineHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.cfg.writer == nil {
		return fmt.Errorf("logger: writer not initialized")
	}
	isJSON := h.cfg.format == formatJSON

	fields := make(map[string]any, 16)
	ts := r.Time.UTC()
	fields["ts"] = ts.Truncate(time.Millisecond).Format(timeFormatMillis)
	fields["level"] = normalizeLevel(r.Level.String())
	if isJSON {
		fields["ts_unix_nano"] = ts.UnixNano()
	}

	for _, a := range h.attrs {
		h.collect(fields, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.collect(fields, a)
		return true
	})
	addContextFields(ctx, fields)

	if rid, _ := fields["rid"].(string); rid != "" {
		if compact := CompactRID(rid); compact != rid {
			fields["rid"] = compact
			if isJSON {
				setDefault(fields, "rid_full", rid)
			}
		}
	}
	if s, _ := fields["event"].(string); s == "" {
		fields["event"] = cmp.Or(r.Message, "unknown")
	}
	if s, _ := fields["component"].(string); s == "" {
		fields["component"] = "app"
	}

	normalizeEnums(fields)
	maskSecrets(fields)
	pruneEmpty(fields)

	keys := orderedKeys(fields, h.cfg.keyOrder)
	var line []byte
	if isJSON {
		var err error
		if line, err = jsonLine(fields, keys); err != nil {
			return err
		}
	} else {
		line = kvLine(fields, keys)
	}
	return h.cfg.writer.Write(append(line, '\n'))
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

func (h *lineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

func (h *lineHandler) collect(fields map[string]any, attr slog.Attr) {
	walk(h.groups, attr, func(path []string, v slog.Value) {
		key := strings.Join(path, ".")
		if v.Kind() == slog.KindDuration {
			fields[durationKey(key)] = RoundMS(v.Duration()).Milliseconds()
			return
		}
		if plain := plainValue(v); plain != nil {
			fields[key] = plain
		}
	})
}

// walk visits the leaves of attr, expanding groups into dotted paths.
func walk(path []string, attr slog.Attr, visit func([]string, slog.Value)) {
	if attr.Key != "" {
		path = append(slices.Clip(path), attr.Key)
	}
	v := attr.Value.Resolve()
	if v.Kind() != slog.KindGroup {
		if len(path) > 0 {
			visit(path, v)
		}
		return
	}
	for _, child := range v.Group() {
		walk(path, child, visit)
	}
}

// plainValue converts v into something encoding/json and fmt render the same way.
func plainValue(v slog.Value) any {
	switch v.Kind() {
	case slog.KindString:
		return strings.TrimSpace(v.String())
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return int64(u)
		}
		return v.Uint64()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339Nano)
	case slog.KindAny, slog.KindLogValuer:
	default:
		return v.Any()
	}
	switch x := v.Any().(type) {
	case nil:
		return nil
	case error:
		return x.Error()
	case time.Duration:
		return RoundMS(x).Milliseconds()
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// durationKey renames duration attributes so the unit is part of the key.
func durationKey(key string) string {
	if strings.HasSuffix(key, "_ms") {
		return key
	}
	return key + "_ms"
}

// normalizeEnums lowercases known status values and drops outcomes outside the schema.
func normalizeEnums(fields map[string]any) {
	if s, ok := fields["status"].(string); ok && s != "" {
		fields["status"], _ = normalizeStatus(s)
	}
	if o, ok := fields["outcome"].(string); ok && o != "" {
		if normalized, valid := normalizeOutcome(o); valid {
			fields["outcome"] = normalized
		} else {
			delete(fields, "outcome")
		}
	}
}

func maskSecrets(fields map[string]any) {
	for key := range secretKeys {
		if s, ok := fields[key].(string); ok && s != "" {
			fields[key] = maskSecret(s)
		}
	}
}

func maskSecret(s string) string {
	r := []rune(s)
	if len(r) <= visibleSecretRunes {
		return "***"
	}
	return string(r[:visibleSecretRunes]) + "***"
}

func pruneEmpty(fields map[string]any) {
	maps.DeleteFunc(fields, func(_ string, v any) bool {
		s, isString := v.(string)
		return v == nil || isString && s == ""
	})
}

// orderedKeys lists keys from order first, then the rest alphabetically.
func orderedKeys(fields map[string]any, order []string) []string {
	head := make([]string, 0, len(fields))
	for _, key := range order {
		if _, ok := fields[key]; ok && !slices.Contains(head, key) {
			head = append(head, key)
		}
	}
	var tail []string
	for key := range fields {
		if !slices.Contains(head, key) {
			tail = append(tail, key)
		}
	}
	slices.Sort(tail)
	return append(head, tail...)
}

func jsonLine(fields map[string]any, keys []string) ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, key := range keys {
		data, err := json.Marshal(fields[key])
		if err != nil {
			return nil, fmt.Errorf("logger: encode %s: %w", key, err)
		}
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(key))
		b.WriteByte(':')
		b.Write(data)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

func kvLine(fields map[string]any, keys []string) []byte {
	var b strings.Builder
	for i, key := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(key)
		b.WriteByte('=')
		s := fmt.Sprint(fields[key])
		if strings.IndexFunc(s, needsQuote) >= 0 {
			s = strconv.Quote(s)
		}
		b.WriteString(s)
	}
	return []byte(b.String())
}

func needsQuote(r rune) bool {
	return r <= ' ' || r == '=' || r == '"'
}

func setDefault(fields map[string]any, key string, val any) {
	if _, ok := fields[key]; !ok {
		fields[key] = val
	}
}

// addContextFields copies update metadata into fields that the record did not set.
func addContextFields(ctx context.Context, fields map[string]any) {
	m := MetaFrom(ctx)
	if m.RID != "" {
		setDefault(fields, "rid", m.RID)
	}
	if m.UpdateID != 0 {
		setDefault(fields, "update_id", int64(m.UpdateID))
	}
	if m.UserID != 0 {
		setDefault(fields, "user_id", m.UserID)
	}
	if m.ChatID != 0 {
		setDefault(fields, "chat_id", m.ChatID)
	}
	if m.Handler != "" {
		setDefault(fields, "handler", m.Handler)
	}
}
