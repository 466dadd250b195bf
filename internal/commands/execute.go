package commands

import "fmt"

type Result struct {
	Message string
}

type Handlers struct {
	Search  func(SearchArgs) (Result, error)
	Filter  func(FilterArgs) (Result, error)
	Sort    func(SortArgs) (Result, error)
	SaveAs  func(SaveAsArgs) (Result, error)
	Refresh func() (Result, error)
	Import  func(ImportArgs) (Result, error)
}

func Execute(cmd Command, handlers Handlers) (Result, error) {
	switch cmd.Type {
	case TypeSearch:
		if handlers.Search == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "search handler not configured"}
		}
		return handlers.Search(*cmd.Search)
	case TypeFilter:
		if handlers.Filter == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "filter handler not configured"}
		}
		return handlers.Filter(*cmd.Filter)
	case TypeSort:
		if handlers.Sort == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "sort handler not configured"}
		}
		return handlers.Sort(*cmd.Sort)
	case TypeSaveAs:
		if handlers.SaveAs == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "saveas handler not configured"}
		}
		return handlers.SaveAs(*cmd.SaveAs)
	case TypeRefresh:
		if handlers.Refresh == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "refresh handler not configured"}
		}
		return handlers.Refresh()
	case TypeImport:
		if handlers.Import == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "import handler not configured"}
		}
		return handlers.Import(*cmd.Import)
	default:
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}
