package commands

import (
	"fmt"
	"strings"
)

type Type string

const (
	TypeSearch  Type = "search"
	TypeFilter  Type = "filter"
	TypeSort    Type = "sort"
	TypeSaveAs  Type = "saveas"
	TypeRefresh Type = "refresh"
	TypeImport  Type = "import"
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

// FilterFields are the keys accepted by "filter <field>=<value>".
var FilterFields = []string{"status", "priority", "responsible", "overdue"}

type SearchArgs struct {
	Query string
}

type FilterArgs struct {
	// Clear resets all filters; Field/Value are empty in that case.
	Clear bool
	Field string
	Value string
}

type SortArgs struct {
	Column string
	// Order is "asc", "desc" or "" for the toggle behavior.
	Order string
}

type SaveAsArgs struct {
	Name string
}

type ImportArgs struct {
	Path string
}

type Command struct {
	Type   Type
	Raw    string
	Search *SearchArgs
	Filter *FilterArgs
	Sort   *SortArgs
	SaveAs *SaveAsArgs
	Import *ImportArgs
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
	case TypeSearch:
		return parseSearch(input, args)
	case TypeFilter:
		return parseFilter(input, args)
	case TypeSort:
		return parseSort(input, args)
	case TypeSaveAs:
		return parseSaveAs(input, args)
	case TypeRefresh:
		return Command{Type: TypeRefresh, Raw: input}, nil
	case TypeImport:
		return parseImport(input, args)
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

func parseSearch(raw string, args []string) (Command, error) {
	// An empty query clears the search.
	query := strings.TrimSpace(strings.Join(args, " "))
	return Command{Type: TypeSearch, Raw: raw, Search: &SearchArgs{Query: query}}, nil
}

func parseFilter(raw string, args []string) (Command, error) {
	// Like an empty search, a bare filter resets the criteria.
	if len(args) == 0 {
		return Command{Type: TypeFilter, Raw: raw, Filter: &FilterArgs{Clear: true}}, nil
	}
	if strings.EqualFold(args[0], "clear") {
		return Command{Type: TypeFilter, Raw: raw, Filter: &FilterArgs{Clear: true}}, nil
	}

	expr := strings.Join(args, " ")
	field, value, ok := strings.Cut(expr, "=")
	if !ok {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "filter requires field=value or clear"}
	}
	field = strings.ToLower(strings.TrimSpace(field))
	value = strings.TrimSpace(value)
	if !validFilterField(field) {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("unknown filter field: %s", field)}
	}
	if value == "" {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("filter %s requires a value", field)}
	}
	return Command{Type: TypeFilter, Raw: raw, Filter: &FilterArgs{Field: field, Value: value}}, nil
}

func validFilterField(field string) bool {
	for _, f := range FilterFields {
		if f == field {
			return true
		}
	}
	return false
}

func parseSort(raw string, args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "sort requires a column"}
	}
	column := strings.ToLower(args[0])
	order := ""
	if len(args) > 1 {
		order = strings.ToLower(args[1])
		if order != "asc" && order != "desc" {
			return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("sort order must be asc or desc, got %s", args[1])}
		}
	}
	return Command{Type: TypeSort, Raw: raw, Sort: &SortArgs{Column: column, Order: order}}, nil
}

func parseSaveAs(raw string, args []string) (Command, error) {
	name := strings.TrimSpace(strings.Join(args, " "))
	if name == "" {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "saveas requires a filter name"}
	}
	return Command{Type: TypeSaveAs, Raw: raw, SaveAs: &SaveAsArgs{Name: name}}, nil
}

func parseImport(raw string, args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "import requires a file path"}
	}
	return Command{Type: TypeImport, Raw: raw, Import: &ImportArgs{Path: strings.Join(args, " ")}}, nil
}
