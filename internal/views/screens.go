package views

import (
	"fmt"
	"strings"
)

type TaskPanelData struct {
	Title         string
	TableView     string
	Loading       bool
	SpinnerView   string
	ErrText       string
	Total         int
	SelectedCount int
	SortColumn    string
	SortDesc      bool
	SearchQuery   string
	Filters       []string
	StatsLine     string
	Archive       bool
}

type ReceptionPanelData struct {
	TableView    string
	Loading      bool
	SpinnerView  string
	ErrText      string
	SearchQuery  string
	StatusFilter string
	Total        int
}

type FormData struct {
	Title      string
	FieldsView string
	ErrorText  string
	Saving     bool
}

type ConfirmData struct {
	Prompt string
}

type HistoryItemData struct {
	Timestamp string
	Action    string
	Details   string
	CanRevert bool
	Cursor    bool
}

type HistoryPanelData struct {
	TaskLabel string
	Items     []HistoryItemData
}

type FiltersPanelData struct {
	Names  []string
	Cursor int
}

func RenderTaskPanel(data TaskPanelData) string {
	var b strings.Builder
	b.WriteString(data.Title + ":\n")
	if data.StatsLine != "" {
		b.WriteString(data.StatsLine + "\n")
	}

	meta := make([]string, 0, 4)
	order := "по возрастанию"
	if data.SortDesc {
		order = "по убыванию"
	}
	meta = append(meta, fmt.Sprintf("сортировка: %s (%s)", data.SortColumn, order))
	if data.SearchQuery != "" {
		meta = append(meta, "поиск: "+data.SearchQuery)
	}
	if len(data.Filters) > 0 {
		meta = append(meta, "фильтры: "+strings.Join(data.Filters, ", "))
	}
	b.WriteString(strings.Join(meta, " | ") + "\n")

	if data.Archive {
		b.WriteString("actions: [n]duplicate [h]history [f]search [/]command\n")
	} else {
		b.WriteString("actions: [space]select [a]all [u]clear [c]create [e]edit [b]bulk [x]delete [h]history [f]search [/]command\n")
	}

	switch {
	case data.Loading && data.Total == 0:
		b.WriteString(data.SpinnerView + " загрузка...")
	case data.ErrText != "":
		// The error state replaces the table; stale rows are never shown.
		b.WriteString(errorStyle.Render("ошибка: "+data.ErrText) + "\n")
		b.WriteString("нажмите [r] чтобы повторить")
	case data.Total == 0:
		b.WriteString("(список пуст)")
	default:
		b.WriteString(data.TableView)
	}

	if data.SelectedCount > 0 {
		b.WriteString("\n" + selectedStyle.Render(fmt.Sprintf("выбрано: %d", data.SelectedCount)))
	}
	if data.Loading && data.Total > 0 {
		b.WriteString("\n" + data.SpinnerView + " обновление...")
	}
	return strings.TrimSpace(b.String())
}

func RenderReceptionPanel(data ReceptionPanelData) string {
	var b strings.Builder
	b.WriteString("Военное представительство:\n")
	meta := make([]string, 0, 2)
	if data.SearchQuery != "" {
		meta = append(meta, "поиск: "+data.SearchQuery)
	}
	if data.StatusFilter != "" {
		meta = append(meta, "статус: "+data.StatusFilter)
	}
	if len(meta) > 0 {
		b.WriteString(strings.Join(meta, " | ") + "\n")
	}
	b.WriteString("actions: [c]create [f]search [r]reload\n")

	switch {
	case data.Loading && data.Total == 0:
		b.WriteString(data.SpinnerView + " загрузка...")
	case data.ErrText != "":
		b.WriteString(errorStyle.Render("ошибка: "+data.ErrText) + "\n")
		b.WriteString("нажмите [r] чтобы повторить")
	case data.Total == 0:
		b.WriteString("(журнал пуст)")
	default:
		b.WriteString(data.TableView)
	}
	return strings.TrimSpace(b.String())
}

func RenderStatsLine(total, overdue int) string {
	line := fmt.Sprintf("всего заданий: %d", total)
	if overdue > 0 {
		line += " | " + overdueStyle.Render(fmt.Sprintf("просрочено: %d", overdue))
	}
	return line
}

// RenderForm draws the modal on top of everything else; the list stays
// frozen underneath.
func RenderForm(data FormData) string {
	var b strings.Builder
	b.WriteString(data.Title + "\n")
	b.WriteString("keys: [tab]поле [enter]сохранить [esc]отмена\n\n")
	b.WriteString(data.FieldsView)
	if data.ErrorText != "" {
		b.WriteString("\n" + errorStyle.Render(data.ErrorText))
	}
	if data.Saving {
		b.WriteString("\nсохранение...")
	}
	return panelStyle.Render(b.String())
}

func RenderConfirm(data ConfirmData) string {
	return panelStyle.Render(data.Prompt + "\n[y]да [n]нет")
}

func RenderHistoryPanel(data HistoryPanelData) string {
	var b strings.Builder
	b.WriteString("история: " + data.TaskLabel + "\n")
	b.WriteString("keys: [j/k]запись [v]откатить [esc]закрыть\n")
	if len(data.Items) == 0 {
		b.WriteString("(история пуста)")
		return strings.TrimSpace(b.String())
	}
	for _, item := range data.Items {
		cursor := " "
		if item.Cursor {
			cursor = ">"
		}
		marker := " "
		if item.CanRevert {
			marker = "*"
		}
		b.WriteString(fmt.Sprintf("%s%s %s [%s] %s\n", cursor, marker, item.Timestamp, item.Action, item.Details))
	}
	b.WriteString("записи со знаком * можно откатить")
	return strings.TrimSpace(b.String())
}

func RenderFiltersPanel(data FiltersPanelData) string {
	var b strings.Builder
	b.WriteString("сохраненные фильтры:\n")
	b.WriteString("keys: [j/k]выбор [enter]применить [d]удалить [esc]закрыть\n")
	if len(data.Names) == 0 {
		b.WriteString("(нет сохраненных фильтров)")
		return strings.TrimSpace(b.String())
	}
	for i, name := range data.Names {
		cursor := " "
		if i == data.Cursor {
			cursor = ">"
		}
		b.WriteString(fmt.Sprintf("%s %s\n", cursor, name))
	}
	return strings.TrimSpace(b.String())
}

func RenderCommandPalette(active bool, input string) string {
	if !active {
		return ""
	}
	return fmt.Sprintf("command: /%s", input)
}

func RenderNotification(level string, body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	return fmt.Sprintf("notification: [%s] %s", strings.ToUpper(level), body)
}

// RenderImportReport formats the import summary with per-row errors.
func RenderImportReport(message string, errors []string) string {
	if len(errors) == 0 {
		return message
	}
	var b strings.Builder
	b.WriteString(message + "\n")
	b.WriteString("ошибки:\n")
	for _, e := range errors {
		b.WriteString("- " + e + "\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}
