package update

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/skladops/sklad/internal/state"
	"github.com/skladops/sklad/internal/views"
)

const appTitle = "СКЛАД: учет заданий"

func (m Model) View() string {
	if m.Quitting {
		return "до встречи!\n"
	}

	data := views.AppData{
		Header:     appTitle,
		TabBar:     views.RenderTabBar(m.tabNames(), int(m.Store.ActiveTab)),
		Body:       m.bodyView(),
		StatusLine: m.Status.Text,
	}
	if m.Status.IsError {
		data.StatusLine = "ошибка: " + strings.TrimPrefix(m.Status.Text, "ошибка: ")
	}
	if m.Notification.Message != "" {
		report := views.RenderImportReport(m.Notification.Message, m.Notification.Errors)
		data.Notification = views.RenderNotification("импорт", report+"\n[esc] закрыть")
	}
	m.helpModel.ShowAll = m.HelpVisible
	data.Footer = m.helpModel.View(m.helpKeys)
	if m.HelpVisible {
		data.Footer += "\n" + m.helpView()
	}
	return views.RenderApp(data)
}

func (m Model) tabNames() []string {
	return []string{
		state.TabActiveTasks.String(),
		state.TabReceptions.String(),
		state.TabArchive.String(),
	}
}

func (m Model) bodyView() string {
	switch {
	case m.Form != nil:
		return m.formView()
	case m.Confirm != nil:
		return views.RenderConfirm(views.ConfirmData{Prompt: m.Confirm.Prompt})
	case m.Bulk != nil:
		return m.bulkView()
	case m.History != nil:
		return m.historyPanelView()
	case m.FiltersPanel != nil:
		return m.filtersPanelView()
	}

	var b strings.Builder
	if m.Store.ActiveTab == state.TabReceptions {
		b.WriteString(m.receptionPanelView())
	} else {
		b.WriteString(m.taskPanelView())
	}
	if m.searching {
		b.WriteString("\n" + m.searchInput.View())
	}
	if m.Palette.Active {
		b.WriteString("\n" + views.RenderCommandPalette(true, m.commandInput.Value()))
	}
	return b.String()
}

func (m Model) taskPanelView() string {
	tab := m.Store.ActiveTab
	panel := m.Store.Panel(tab)
	tbl := m.activeTable
	if tab == state.TabArchive {
		tbl = m.archiveTable
	}

	filters := make([]string, 0, len(panel.Filters))
	for k, v := range panel.Filters {
		filters = append(filters, k+"="+v)
	}
	sort.Strings(filters)

	data := views.TaskPanelData{
		Title:         tab.String(),
		TableView:     tbl.View(),
		Loading:       panel.List.Loading(),
		SpinnerView:   m.loadSpinner.View(),
		ErrText:       panel.List.Err,
		Total:         len(panel.Tasks),
		SelectedCount: panel.Selection.Len(),
		SortColumn:    panel.Sort.Column,
		SortDesc:      panel.Sort.Desc,
		SearchQuery:   panel.Search,
		Filters:       filters,
		Archive:       tab == state.TabArchive,
	}
	if tab == state.TabActiveTasks && m.Store.StatsLoaded {
		data.StatsLine = views.RenderStatsLine(m.Store.Stats.TotalTasks, m.Store.Stats.OverdueCount)
	}
	return views.RenderTaskPanel(data)
}

func (m Model) receptionPanelView() string {
	rs := m.Store.Receptions
	return views.RenderReceptionPanel(views.ReceptionPanelData{
		TableView:    m.receptionTable.View(),
		Loading:      rs.List.Loading(),
		SpinnerView:  m.loadSpinner.View(),
		ErrText:      rs.List.Err,
		SearchQuery:  rs.Search,
		StatusFilter: rs.Status,
		Total:        len(rs.Rows),
	})
}

func (m Model) formView() string {
	f := m.Form
	title := "Новое задание"
	switch {
	case f.Kind == formReception:
		title = "Новая приемка"
	case f.TaskID != 0:
		title = "Редактирование задания"
	}
	return views.RenderForm(views.FormData{
		Title:      title,
		FieldsView: f.fieldsView(),
		ErrorText:  f.Err,
		Saving:     f.Saving,
	})
}

func (m Model) bulkView() string {
	status := m.Bulk.Status()
	if status == "" {
		status = "(без изменений)"
	}
	priority := m.Bulk.Priority()
	if priority == "" {
		priority = "(без изменений)"
	}
	selected := 0
	if panel := m.Store.CurrentPanel(); panel != nil {
		selected = panel.Selection.Len()
	}
	fields := fmt.Sprintf("  Статус: %s\n  Приоритет: %s\n\nвыбрано заданий: %d\nkeys: [s]статус [p]приоритет [enter]применить [esc]отмена", status, priority, selected)
	return views.RenderForm(views.FormData{Title: "Массовое изменение", FieldsView: fields, Saving: m.Bulk.Saving})
}

func (m Model) historyPanelView() string {
	h := m.History
	items := make([]views.HistoryItemData, 0, len(h.Items))
	for i, entry := range h.Items {
		items = append(items, views.HistoryItemData{
			Timestamp: entry.Timestamp.Format("2006-01-02 15:04"),
			Action:    entry.Action,
			Details:   entry.Details,
			CanRevert: entry.CanRevert,
			Cursor:    i == h.Cursor,
		})
	}
	content := views.RenderHistoryPanel(views.HistoryPanelData{TaskLabel: h.Label, Items: items})
	m.historyView.SetContent(content)
	// Two header lines precede the entries; keep the cursor line visible
	// when the history outgrows the viewport.
	if line := h.Cursor + 2; line >= m.historyView.Height {
		m.historyView.SetYOffset(line - m.historyView.Height + 1)
	} else {
		m.historyView.GotoTop()
	}
	return m.historyView.View()
}

func (m Model) filtersPanelView() string {
	names := make([]string, 0, len(m.Store.SavedFilters))
	for _, f := range m.Store.SavedFilters {
		names = append(names, f.Name)
	}
	return views.RenderFiltersPanel(views.FiltersPanelData{Names: names, Cursor: m.FiltersPanel.Cursor})
}

func (m Model) helpView() string {
	md := strings.Join([]string{
		"## Клавиши",
		"",
		"- `space` выбор, `a` все, `u` снять выбор",
		"- `c` создать, `e` изменить, `b` массово, `x` удалить",
		"- `h` история, `n` дублировать (только архив), `o` порядок сортировки",
		"- `f` поиск, `F` фильтры, `/` команда, `r` обновить, `1` `2` `3` вкладки, `q` выход",
		"",
		"## Команды",
		"",
		"`/search текст`, `/filter поле=значение`, `/sort колонка [asc|desc]`, `/saveas имя`, `/refresh`, `/import путь`",
	}, "\n")
	return views.RenderMarkdown(md)
}

// syncBubbleData pushes the store snapshot into the bubble components after
// every update.
func (m *Model) syncBubbleData() {
	m.activeTable.SetRows(taskRows(m.Store.Active))
	m.archiveTable.SetRows(taskRows(m.Store.Archive))

	rows := make([]table.Row, 0, len(m.Store.Receptions.Rows))
	for _, r := range m.Store.Receptions.Rows {
		rows = append(rows, table.Row{
			r.Date.Format("2006-01-02"),
			r.OrderNumber,
			r.Designation,
			r.Name,
			r.Quantity,
			r.RouteCardNumber,
			string(r.Status),
		})
	}
	m.receptionTable.SetRows(rows)

	clampCursor(&m.activeTable)
	clampCursor(&m.archiveTable)
	clampCursor(&m.receptionTable)
}

// clampCursor keeps the table cursor on a real row after SetRows. A table
// created empty reports cursor -1 and would never recover on its own; a
// shrinking list can leave the cursor past the end.
func clampCursor(tbl *table.Model) {
	n := len(tbl.Rows())
	switch {
	case n == 0:
	case tbl.Cursor() < 0:
		tbl.SetCursor(0)
	case tbl.Cursor() >= n:
		tbl.SetCursor(n - 1)
	}
}

func taskRows(panel *state.PanelState) []table.Row {
	rows := make([]table.Row, 0, len(panel.Tasks))
	for _, t := range panel.Tasks {
		due := ""
		if t.DueDate != nil {
			due = t.DueDate.Format("2006-01-02")
		}
		marker := ""
		if panel.Selection.Has(t.ID) {
			marker = "*"
		}
		rows = append(rows, table.Row{
			t.Number,
			t.Name,
			string(t.Status),
			string(t.Priority),
			t.Responsible,
			due,
			marker,
		})
	}
	return rows
}
