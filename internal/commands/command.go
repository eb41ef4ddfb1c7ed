package commands

import (
	"fmt"
	"strings"
	"time"
)

type Type string

const (
	TypeShow Type = "show"
	TypeDone Type = "done"
	TypeUndo Type = "undo"
	TypeGoto Type = "goto"
	TypeFind Type = "find"
)

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type ShowSubject string

const (
	ShowWeek  ShowSubject = "week"
	ShowNext  ShowSubject = "next"
	ShowPrev  ShowSubject = "prev"
	ShowRange ShowSubject = "range"
)

type ShowArgs struct {
	Subject ShowSubject
	// From and To are set for ShowRange, as calendar days.
	From time.Time
	To   time.Time
	Tag  string
}

// TargetArgs names an occurrence either by identity key or by its 1-based
// row in the visible agenda.
type TargetArgs struct {
	Target string
}

type GotoArgs struct {
	Day time.Time
}

type FindArgs struct {
	Query string
}

type Command struct {
	Type Type
	Raw  string
	Show *ShowArgs
	Done *TargetArgs
	Undo *TargetArgs
	Goto *GotoArgs
	Find *FindArgs
}

func Parse(input string) (Command, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}
	if strings.HasPrefix(raw, "/") {
		raw = strings.TrimSpace(strings.TrimPrefix(raw, "/"))
	}
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts := strings.Fields(raw)
	head := strings.ToLower(parts[0])
	args := parts[1:]

	switch Type(head) {
	case TypeShow:
		return parseShow(input, args)
	case TypeDone, TypeUndo:
		return parseTarget(input, Type(head), args)
	case TypeGoto:
		return parseGoto(input, args)
	case TypeFind:
		return parseFind(input, args)
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

func parseShow(raw string, args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "show requires week, next, prev or a date range"}
	}
	show := &ShowArgs{}
	rest := make([]string, 0, len(args))
	for _, arg := range args {
		if strings.HasPrefix(strings.ToLower(arg), "tag:") {
			show.Tag = strings.TrimSpace(arg[len("tag:"):])
			continue
		}
		rest = append(rest, arg)
	}
	if len(rest) == 0 {
		show.Subject = ShowWeek
		return Command{Type: TypeShow, Raw: raw, Show: show}, nil
	}

	switch subject := ShowSubject(strings.ToLower(rest[0])); subject {
	case ShowWeek, ShowNext, ShowPrev:
		show.Subject = subject
	default:
		if len(rest) != 2 {
			return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "show range needs <from> <to> as YYYY-MM-DD"}
		}
		from, err := parseDay(rest[0])
		if err != nil {
			return Command{}, err
		}
		to, err := parseDay(rest[1])
		if err != nil {
			return Command{}, err
		}
		if to.Before(from) {
			return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "show range ends before it starts"}
		}
		show.Subject = ShowRange
		show.From, show.To = from, to
	}
	return Command{Type: TypeShow, Raw: raw, Show: show}, nil
}

func parseTarget(raw string, typ Type, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("%s requires one occurrence (row number or identity)", typ)}
	}
	target := &TargetArgs{Target: args[0]}
	cmd := Command{Type: typ, Raw: raw}
	if typ == TypeDone {
		cmd.Done = target
	} else {
		cmd.Undo = target
	}
	return cmd, nil
}

func parseGoto(raw string, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "goto requires a date (YYYY-MM-DD or today)"}
	}
	if strings.EqualFold(args[0], "today") {
		return Command{Type: TypeGoto, Raw: raw, Goto: &GotoArgs{}}, nil
	}
	day, err := parseDay(args[0])
	if err != nil {
		return Command{}, err
	}
	return Command{Type: TypeGoto, Raw: raw, Goto: &GotoArgs{Day: day}}, nil
}

func parseFind(raw string, args []string) (Command, error) {
	return Command{Type: TypeFind, Raw: raw, Find: &FindArgs{Query: strings.Join(args, " ")}}, nil
}

func parseDay(s string) (time.Time, error) {
	day, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("invalid date %q, want YYYY-MM-DD", s)}
	}
	return day, nil
}
