package commands

import (
	"errors"
	"testing"
	"time"
)

func TestParseSupportedCommands(t *testing.T) {
	cases := []struct {
		in       string
		typeWant Type
	}{
		{"/show week", TypeShow},
		{"show 2024-01-01 2024-01-31 tag:work", TypeShow},
		{"done 3", TypeDone},
		{"/undo tmpl-1_2024-01-05", TypeUndo},
		{"goto 2024-02-29", TypeGoto},
		{"find plants", TypeFind},
	}

	for _, tc := range cases {
		cmd, err := Parse(tc.in)
		if err != nil {
			t.Fatalf("parse %q failed: %v", tc.in, err)
		}
		if cmd.Type != tc.typeWant {
			t.Fatalf("parse %q type = %s, want %s", tc.in, cmd.Type, tc.typeWant)
		}
	}
}

func TestParseShowRange(t *testing.T) {
	cmd, err := Parse("show 2024-01-01 2024-01-31 tag:work")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cmd.Show.Subject != ShowRange || cmd.Show.Tag != "work" {
		t.Fatalf("unexpected show args: %+v", cmd.Show)
	}
	if !cmd.Show.From.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) || cmd.Show.To.Day() != 31 {
		t.Fatalf("unexpected range: %v..%v", cmd.Show.From, cmd.Show.To)
	}

	cmd, err = Parse("show tag:home")
	if err != nil || cmd.Show.Subject != ShowWeek || cmd.Show.Tag != "home" {
		t.Fatalf("expected week with tag, got %+v err=%v", cmd.Show, err)
	}
}

func TestParseRejectsBadArguments(t *testing.T) {
	for _, in := range []string{
		"show",
		"show 2024-01-31 2024-01-01",
		"show 2024-01-01",
		"show someday soon",
		"done",
		"undo a b",
		"goto tomorrow-ish",
	} {
		_, err := Parse(in)
		var ce *CommandError
		if !errors.As(err, &ce) || ce.Code != ErrCodeInvalidArgument {
			t.Fatalf("parse %q: expected invalid argument, got %v", in, err)
		}
	}
}

func TestParseUnknownCommand(t *testing.T) {
	_, err := Parse("/unknown do x")
	if err == nil {
		t.Fatal("expected error")
	}
	var ce *CommandError
	if !errors.As(err, &ce) || ce.Code != ErrCodeUnknownCommand {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

func TestParseEmpty(t *testing.T) {
	for _, in := range []string{"", "  ", "/"} {
		_, err := Parse(in)
		var ce *CommandError
		if !errors.As(err, &ce) || ce.Code != ErrCodeEmptyInput {
			t.Fatalf("parse %q: expected empty input error, got %v", in, err)
		}
	}
}

func TestExecuteDispatch(t *testing.T) {
	cmd, err := Parse("/done tmpl-1_2024-01-05")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	called := false
	res, err := Execute(cmd, Handlers{
		Done: func(a TargetArgs) (Result, error) {
			called = true
			if a.Target != "tmpl-1_2024-01-05" {
				t.Fatalf("unexpected target: %q", a.Target)
			}
			return Result{Message: "ok"}, nil
		},
	})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if !called || res.Message != "ok" {
		t.Fatalf("dispatch failed, called=%v res=%+v", called, res)
	}
}

func TestExecuteMissingHandler(t *testing.T) {
	cmd, err := Parse("goto today")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !cmd.Goto.Day.IsZero() {
		t.Fatalf("today should leave Day zero, got %v", cmd.Goto.Day)
	}
	_, err = Execute(cmd, Handlers{})
	if err == nil {
		t.Fatal("expected error")
	}
	var ce *CommandError
	if !errors.As(err, &ce) || ce.Code != ErrCodeHandlerMissing {
		t.Fatalf("expected missing handler error, got %v", err)
	}
}
