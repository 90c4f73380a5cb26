package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/m3rciful/gallerybot/core/logger"

	tele "gopkg.in/telebot.v4"
)

var (
	// ErrInvalidCommand rejects commands without a slash name, handler or description.
	ErrInvalidCommand = errors.New("telegram: invalid command")
	// ErrDuplicateCommand rejects a name or alias that is already taken.
	ErrDuplicateCommand = errors.New("telegram: duplicate command")
)

// Command is a slash command and its menu entry.
type Command struct {
	Name        string
	Description string
	Handler     tele.HandlerFunc
	// Hidden keeps the command routable but out of the Telegram command menu.
	Hidden  bool
	Aliases []string
}

// Registry resolves slash commands by name or alias.
type Registry struct {
	byName map[string]Command
	// alias maps an alternative name to its canonical one.
	alias map[string]string
}

// NewRegistry builds a registry from cmds.
func NewRegistry(cmds ...Command) (*Registry, error) {
	r := &Registry{byName: make(map[string]Command), alias: make(map[string]string)}
	var errs []error
	for _, c := range cmds {
		errs = append(errs, r.Register(c))
	}
	return r, errors.Join(errs...)
}

// Register adds cmd. Names are matched case-insensitively.
func (r *Registry) Register(cmd Command) error {
	name := commandKey(cmd.Name)
	if name == "/" || cmd.Handler == nil || strings.TrimSpace(cmd.Description) == "" {
		return fmt.Errorf("%w: %q", ErrInvalidCommand, cmd.Name)
	}
	if r.taken(name) {
		return fmt.Errorf("%w: %s", ErrDuplicateCommand, name)
	}
	aliases := make([]string, 0, len(cmd.Aliases))
	for _, a := range cmd.Aliases {
		key := commandKey(a)
		if r.taken(key) || key == name || slices.Contains(aliases, key) {
			return fmt.Errorf("%w: alias %s", ErrDuplicateCommand, key)
		}
		aliases = append(aliases, key)
	}

	cmd.Name = name
	r.byName[name] = cmd
	for _, key := range aliases {
		r.alias[key] = name
	}
	return nil
}

func (r *Registry) taken(key string) bool {
	_, cmd := r.byName[key]
	_, alias := r.alias[key]
	return cmd || alias
}

// Lookup resolves the command at the start of text. Case, a missing slash and
// a trailing @botname are tolerated.
func (r *Registry) Lookup(text string) (Command, bool) {
	if r == nil {
		return Command{}, false
	}
	key := commandKey(text)
	if canonical, ok := r.alias[key]; ok {
		key = canonical
	}
	cmd, ok := r.byName[key]
	return cmd, ok
}

// All returns every command ordered by name.
func (r *Registry) All() []Command {
	if r == nil {
		return nil
	}
	out := make([]Command, 0, len(r.byName))
	for _, c := range r.byName {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b Command) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Menu lists the visible commands in the form setMyCommands expects.
func (r *Registry) Menu() []tele.Command {
	var menu []tele.Command
	for _, c := range r.All() {
		if !c.Hidden {
			menu = append(menu, tele.Command{Text: c.Name, Description: c.Description})
		}
	}
	return menu
}

// commandKey reduces "/Help@gallery_bot now" to "/help".
func commandKey(text string) string {
	key := strings.ToLower(strings.TrimSpace(text))
	if i := strings.IndexAny(key, " @"); i >= 0 {
		key = key[:i]
	}
	if !strings.HasPrefix(key, "/") {
		key = "/" + key
	}
	return key
}

// PublishMenu replaces the bot's command menu with reg.Menu. A failure only
// costs the menu, so it is logged and not returned.
func PublishMenu(bot *tele.Bot, reg *Registry) {
	menu := reg.Menu()
	if bot == nil || len(menu) == 0 {
		return
	}
	if err := bot.SetCommands(menu); err != nil {
		logger.TWire.LogAttrs(context.Background(), slog.LevelError, "command menu not set",
			slog.String("event", "commands.publish"),
			logger.Err(err),
		)
		return
	}
	logger.TWire.LogAttrs(context.Background(), slog.LevelInfo, "command menu set",
		slog.String("event", "commands.publish"),
		slog.Int("commands", len(menu)),
	)
}
