package command

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/remindme/internal/model"
	"github.com/nhle/remindme/internal/ui/taskform"
)

const usage = `add <title> [@YYYY-MM-DD HH:MM] [!daily|!weekly]
ask <question>    chat     refresh    completed    quit`

var ErrEmptyTitle = errors.New("add needs a title")

// Command is a parsed palette line.
type Command interface {
	isCommand()
}

// QuickAdd creates a task in one line.
type QuickAdd struct {
	Title      string
	DueAt      *time.Time
	Recurrence model.Recurrence
}

// Ask sends Prompt to the assistant and opens the chat panel.
type Ask struct {
	Prompt string
}

type (
	OpenChat        struct{}
	Refresh         struct{}
	ToggleCompleted struct{}
	Quit            struct{}
)

func (QuickAdd) isCommand()        {}
func (Ask) isCommand()             {}
func (OpenChat) isCommand()        {}
func (Refresh) isCommand()         {}
func (ToggleCompleted) isCommand() {}
func (Quit) isCommand()            {}

// Parse reads a palette line. Due times are read in the local zone.
func Parse(line string) (Command, error) {
	return parse(line, time.Local)
}

func parse(line string, loc *time.Location) (Command, error) {
	line = strings.TrimSpace(line)
	verb, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(verb) {
	case "add", "new", "a":
		return parseAdd(rest, loc)
	case "ask":
		if rest == "" {
			return OpenChat{}, nil
		}
		return Ask{Prompt: rest}, nil
	case "chat":
		return OpenChat{}, nil
	case "refresh", "check", "overdue":
		return Refresh{}, nil
	case "completed", "done", "hide", "show":
		return ToggleCompleted{}, nil
	case "quit", "q":
		return Quit{}, nil
	default:
		return nil, fmt.Errorf("unknown command %q", verb)
	}
}

// parseAdd splits "title @due !recurrence". The recurrence token may
// appear anywhere; everything after "@" up to it is the due time.
func parseAdd(rest string, loc *time.Location) (Command, error) {
	add := QuickAdd{Recurrence: model.RecurrenceOnce}

	var words []string
	for _, w := range strings.Fields(rest) {
		if strings.HasPrefix(w, "!") && len(w) > 1 {
			r := strings.ToLower(w[1:])
			if r != string(model.RecurrenceOnce) && r != string(model.RecurrenceDaily) && r != string(model.RecurrenceWeekly) {
				return nil, fmt.Errorf("unknown repeat %q, use !daily or !weekly", w)
			}
			add.Recurrence = model.Recurrence(r)
			continue
		}
		words = append(words, w)
	}
	text := strings.Join(words, " ")

	title, due, hasDue := strings.Cut(text, "@")
	if hasDue {
		t, err := taskform.ParseDue(due, loc)
		if err != nil {
			return nil, err
		}
		add.DueAt = t
	}

	add.Title = strings.TrimSpace(title)
	if add.Title == "" {
		return nil, ErrEmptyTitle
	}
	return add, nil
}
