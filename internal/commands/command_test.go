package commands

import (
	"errors"
	"testing"
)

func TestParseSupportedCommands(t *testing.T) {
	cases := []struct {
		in       string
		typeWant Type
	}{
		{"/search корпус насоса", TypeSearch},
		{"filter status=готово", TypeFilter},
		{"filter clear", TypeFilter},
		{"sort due_date desc", TypeSort},
		{"/saveas срочные в работе", TypeSaveAs},
		{"refresh", TypeRefresh},
		{"import /tmp/tasks.csv", TypeImport},
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

func TestParseFilterExpression(t *testing.T) {
	cmd, err := Parse("filter priority = срочный")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cmd.Filter.Field != "priority" || cmd.Filter.Value != "срочный" {
		t.Fatalf("unexpected filter args: %+v", cmd.Filter)
	}

	cmd, err = Parse("filter clear")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !cmd.Filter.Clear {
		t.Fatal("expected clear filter")
	}

	// A bare filter is the short form of filter clear.
	cmd, err = Parse("filter")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !cmd.Filter.Clear {
		t.Fatal("expected bare filter to clear")
	}
}

func TestParseFilterRejectsUnknownField(t *testing.T) {
	_, err := Parse("filter number=2023/001")
	var ce *CommandError
	if !errors.As(err, &ce) || ce.Code != ErrCodeInvalidArgument {
		t.Fatalf("expected invalid argument error, got %v", err)
	}

	_, err = Parse("filter status=")
	if !errors.As(err, &ce) || ce.Code != ErrCodeInvalidArgument {
		t.Fatalf("expected invalid argument for empty value, got %v", err)
	}
}

func TestParseSortOrder(t *testing.T) {
	cmd, err := Parse("sort priority")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cmd.Sort.Column != "priority" || cmd.Sort.Order != "" {
		t.Fatalf("unexpected sort args: %+v", cmd.Sort)
	}

	_, err = Parse("sort priority up")
	var ce *CommandError
	if !errors.As(err, &ce) || ce.Code != ErrCodeInvalidArgument {
		t.Fatalf("expected invalid order error, got %v", err)
	}
}

func TestParseEmptySearchClearsQuery(t *testing.T) {
	cmd, err := Parse("search")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cmd.Search.Query != "" {
		t.Fatalf("bare search must clear the query, got %q", cmd.Search.Query)
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

func TestExecuteDispatch(t *testing.T) {
	cmd, err := Parse("/filter status=готово")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	called := false
	res, err := Execute(cmd, Handlers{
		Filter: func(a FilterArgs) (Result, error) {
			called = true
			if a.Field != "status" || a.Value != "готово" {
				t.Fatalf("unexpected args: %+v", a)
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
	cmd, err := Parse("saveas мой фильтр")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
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
