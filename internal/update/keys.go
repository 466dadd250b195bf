package update

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/skladops/sklad/internal/commands"
	"github.com/skladops/sklad/internal/model"
	"github.com/skladops/sklad/internal/state"
)

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.Quitting = true
		return m, tea.Quit
	}

	switch {
	case m.Palette.Active:
		return m.handlePaletteKey(msg)
	case m.Form != nil:
		return m.handleFormKey(msg)
	case m.Confirm != nil:
		return m.handleConfirmKey(msg)
	case m.Bulk != nil:
		return m.handleBulkKey(msg)
	case m.History != nil:
		return m.handleHistoryKey(msg)
	case m.FiltersPanel != nil:
		return m.handleFiltersKey(msg)
	case m.searching:
		return m.handleSearchKey(msg)
	}

	if m.Notification.Message != "" && msg.String() == "esc" {
		m.Notification = model.ImportResult{}
		return m, nil
	}

	switch msg.String() {
	case m.Keys.Quit:
		m.Quitting = true
		return m, tea.Quit
	case m.Keys.Help:
		m.HelpVisible = !m.HelpVisible
		return m, nil
	case m.Keys.ActiveTasks:
		return m.switchTab(state.TabActiveTasks)
	case m.Keys.Receptions:
		return m.switchTab(state.TabReceptions)
	case m.Keys.Archive:
		return m.switchTab(state.TabArchive)
	case "/":
		m.Palette.Active = true
		m.commandInput.SetValue("")
		m.commandInput.Focus()
		return m, nil
	case "r":
		m.Status = StatusBar{}
		return m.reloadTab(m.Store.ActiveTab)
	case "f":
		return m.openSearch()
	case "F":
		m.FiltersPanel = &FiltersPanelState{}
		return m, m.loadFiltersCmd()
	}

	if m.Store.ActiveTab == state.TabReceptions {
		return m.handleReceptionKey(msg)
	}
	return m.handlePanelKey(msg)
}

func (m Model) switchTab(tab state.Tab) (Model, tea.Cmd) {
	if tab == m.Store.ActiveTab {
		return m, nil
	}
	m.Store.SwitchTab(tab)
	m.Status = StatusBar{}
	return m.reloadTab(tab)
}

// handlePanelKey covers both task tabs; a few actions are archive-only or
// active-only.
func (m Model) handlePanelKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	panel := m.Store.CurrentPanel()
	archive := m.Store.ActiveTab == state.TabArchive

	switch msg.String() {
	case " ":
		if archive {
			return m, nil
		}
		if task, ok := m.cursorTask(); ok {
			panel.Selection.Toggle(task.ID)
		}
		return m, nil
	case "a":
		if archive {
			return m, nil
		}
		for _, t := range panel.Tasks {
			panel.Selection.Add(t.ID)
		}
		return m, nil
	case "u":
		panel.Selection.Clear()
		return m, nil
	case "c":
		if archive {
			return m, nil
		}
		m.Form = newTaskForm(0, nil)
		return m, nil
	case "e":
		if archive {
			return m, nil
		}
		if task, ok := m.cursorTask(); ok {
			return m, m.fetchTaskCmd(task.ID)
		}
		return m, nil
	case "n":
		if !archive {
			return m, nil
		}
		if task, ok := m.cursorTask(); ok {
			draft := model.DuplicateDraft(task, m.now())
			prefill := model.Task{
				Number:      draft.Number,
				Name:        draft.Name,
				Description: draft.Description,
				Status:      draft.Status,
				Priority:    draft.Priority,
				Responsible: draft.Responsible,
				DueDate:     draft.DueDate,
			}
			m.Form = newTaskForm(0, &prefill)
		}
		return m, nil
	case "b":
		if archive {
			return m, nil
		}
		if panel.Selection.Len() == 0 {
			return m.setStatus("Не выбрано ни одного задания"), nil
		}
		m.Bulk = &BulkState{}
		return m, nil
	case "x":
		if archive {
			return m, nil
		}
		ids := panel.Selection.IDs()
		if len(ids) == 0 {
			if task, ok := m.cursorTask(); ok {
				ids = []int64{task.ID}
			}
		}
		if len(ids) == 0 {
			return m.setStatus("Не выбрано ни одного задания"), nil
		}
		m.Confirm = &ConfirmState{
			Prompt: fmt.Sprintf("Удалить заданий: %d?", len(ids)),
			IDs:    ids,
		}
		return m, nil
	case "h":
		if task, ok := m.cursorTask(); ok {
			return m, m.loadHistoryCmd(task.ID, task.Number)
		}
		return m, nil
	case "o":
		panel.Sort.Click(panel.Sort.Column)
		return m.reloadTab(m.Store.ActiveTab)
	}

	var cmd tea.Cmd
	if archive {
		m.archiveTable, cmd = m.archiveTable.Update(msg)
	} else {
		m.activeTable, cmd = m.activeTable.Update(msg)
	}
	return m, cmd
}

func (m Model) handleReceptionKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "c":
		m.Form = newReceptionForm()
		return m, nil
	}
	var cmd tea.Cmd
	m.receptionTable, cmd = m.receptionTable.Update(msg)
	return m, cmd
}

// cursorTask resolves the table cursor to a task on the current panel.
func (m Model) cursorTask() (model.Task, bool) {
	panel := m.Store.CurrentPanel()
	if panel == nil || len(panel.Tasks) == 0 {
		return model.Task{}, false
	}
	tbl := m.activeTable
	if m.Store.ActiveTab == state.TabArchive {
		tbl = m.archiveTable
	}
	idx := tbl.Cursor()
	if idx < 0 || idx >= len(panel.Tasks) {
		return model.Task{}, false
	}
	return panel.Tasks[idx], true
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		ids := m.Confirm.IDs
		m.Confirm = nil
		return m, m.bulkDeleteCmd(ids)
	case "n", "esc":
		m.Confirm = nil
		return m, nil
	}
	return m, nil
}

// handleBulkKey cycles status/priority choices and applies them to every
// selected task. Applying with nothing chosen is a warning, not a request.
func (m Model) handleBulkKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.Bulk.Saving {
		return m, nil
	}
	switch msg.String() {
	case "esc":
		m.Bulk = nil
		return m, nil
	case "s":
		m.Bulk.StatusIdx = (m.Bulk.StatusIdx + 1) % (len(model.Statuses()) + 1)
		return m, nil
	case "p":
		m.Bulk.PriorityIdx = (m.Bulk.PriorityIdx + 1) % (len(model.Priorities()) + 1)
		return m, nil
	case "enter":
		status := m.Bulk.Status()
		priority := m.Bulk.Priority()
		if status == "" && priority == "" {
			return m.setStatus("Не указаны поля для обновления"), nil
		}
		panel := m.Store.CurrentPanel()
		ids := panel.Selection.IDs()
		if len(ids) == 0 {
			m.Bulk = nil
			return m.setStatus("Не выбрано ни одного задания"), nil
		}
		m.Bulk.Saving = true
		return m, m.bulkUpdateCmd(ids, status, priority)
	}
	return m, nil
}

func (m Model) handleHistoryKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	h := m.History
	switch msg.String() {
	case "esc":
		m.History = nil
		return m, nil
	case "j", "down":
		if h.Cursor < len(h.Items)-1 {
			h.Cursor++
		}
		return m, nil
	case "k", "up":
		if h.Cursor > 0 {
			h.Cursor--
		}
		return m, nil
	case "v":
		if h.Cursor < 0 || h.Cursor >= len(h.Items) {
			return m, nil
		}
		entry := h.Items[h.Cursor]
		if !entry.CanRevert {
			return m.setError("Это изменение нельзя отменить"), nil
		}
		return m, m.revertCmd(h.TaskID, entry.ID)
	}
	return m, nil
}

func (m Model) handleFiltersKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	fp := m.FiltersPanel
	switch msg.String() {
	case "esc":
		m.FiltersPanel = nil
		return m, nil
	case "j", "down":
		if fp.Cursor < len(m.Store.SavedFilters)-1 {
			fp.Cursor++
		}
		return m, nil
	case "k", "up":
		if fp.Cursor > 0 {
			fp.Cursor--
		}
		return m, nil
	case "enter":
		if fp.Cursor < 0 || fp.Cursor >= len(m.Store.SavedFilters) {
			return m, nil
		}
		saved := m.Store.SavedFilters[fp.Cursor]
		criteria, err := saved.Criteria()
		if err != nil {
			return m.setError("ошибка: " + err.Error()), nil
		}
		panel := m.Store.CurrentPanel()
		if panel == nil {
			return m, nil
		}
		panel.ApplyCriteria(criteria)
		m.FiltersPanel = nil
		m = m.setStatus("Фильтр применен: " + saved.Name)
		return m.reloadTab(m.Store.ActiveTab)
	case "d":
		if fp.Cursor < 0 || fp.Cursor >= len(m.Store.SavedFilters) {
			return m, nil
		}
		return m, m.deleteFilterCmd(m.Store.SavedFilters[fp.Cursor].ID)
	}
	return m, nil
}

func (m Model) openSearch() (Model, tea.Cmd) {
	m.searching = true
	current := ""
	if m.Store.ActiveTab == state.TabReceptions {
		current = m.Store.Receptions.Search
	} else if panel := m.Store.CurrentPanel(); panel != nil {
		current = panel.Search
	}
	m.searchInput.SetValue(current)
	m.searchInput.CursorEnd()
	m.searchInput.Focus()
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searching = false
		m.searchInput.Blur()
		return m, nil
	case "enter":
		m.searching = false
		m.searchInput.Blur()
		return m.applySearch(m.searchInput.Value())
	}
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m Model) applySearch(query string) (Model, tea.Cmd) {
	if m.Store.ActiveTab == state.TabReceptions {
		m.Store.Receptions.Search = query
	} else if panel := m.Store.CurrentPanel(); panel != nil {
		panel.Search = query
	}
	return m.reloadTab(m.Store.ActiveTab)
}

func (m Model) handlePaletteKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.Palette = CommandPaletteState{}
		m.commandInput.Blur()
		return m, nil
	case "enter":
		input := m.commandInput.Value()
		m.Palette = CommandPaletteState{}
		m.commandInput.Blur()
		return m.executeCommand(input)
	}
	var cmd tea.Cmd
	m.commandInput, cmd = m.commandInput.Update(msg)
	m.Palette.Input = m.commandInput.Value()
	return m, cmd
}

// executeCommand parses and dispatches a palette command against the current
// tab. Task-only commands on the reception tab fail with a readable error.
func (m Model) executeCommand(input string) (Model, tea.Cmd) {
	parsed, err := commands.Parse(input)
	if err != nil {
		return m.setError("ошибка: " + err.Error()), nil
	}

	var (
		reload  bool
		teaCmd  tea.Cmd
		onTasks = m.Store.ActiveTab != state.TabReceptions
		panel   = m.Store.CurrentPanel()
	)

	handlers := commands.Handlers{
		Search: func(a commands.SearchArgs) (commands.Result, error) {
			if onTasks {
				panel.Search = a.Query
			} else {
				m.Store.Receptions.Search = a.Query
			}
			reload = true
			if a.Query == "" {
				return commands.Result{Message: "Поиск сброшен"}, nil
			}
			return commands.Result{Message: "Поиск: " + a.Query}, nil
		},
		Filter: func(a commands.FilterArgs) (commands.Result, error) {
			if !onTasks {
				if a.Clear {
					m.Store.Receptions.Status = ""
					reload = true
					return commands.Result{Message: "Фильтры сброшены"}, nil
				}
				if a.Field != "status" {
					return commands.Result{}, fmt.Errorf("фильтр %q недоступен для приемок", a.Field)
				}
				if !model.ReceptionStatus(a.Value).IsValid() {
					return commands.Result{}, fmt.Errorf("некорректный статус приемки: %q", a.Value)
				}
				m.Store.Receptions.Status = a.Value
				reload = true
				return commands.Result{Message: "Фильтр: status=" + a.Value}, nil
			}
			if a.Clear {
				panel.Filters = map[string]string{}
				reload = true
				return commands.Result{Message: "Фильтры сброшены"}, nil
			}
			if a.Field == "status" && !model.Status(a.Value).IsValid() {
				return commands.Result{}, fmt.Errorf("некорректный статус: %q", a.Value)
			}
			if a.Field == "priority" && !model.Priority(a.Value).IsValid() {
				return commands.Result{}, fmt.Errorf("некорректный приоритет: %q", a.Value)
			}
			panel.Filters[a.Field] = a.Value
			reload = true
			return commands.Result{Message: fmt.Sprintf("Фильтр: %s=%s", a.Field, a.Value)}, nil
		},
		Sort: func(a commands.SortArgs) (commands.Result, error) {
			if !onTasks {
				return commands.Result{}, fmt.Errorf("сортировка недоступна для приемок")
			}
			if a.Order == "" {
				panel.Sort.Click(a.Column)
			} else {
				panel.Sort.Column = a.Column
				panel.Sort.Desc = a.Order == "desc"
			}
			reload = true
			return commands.Result{Message: fmt.Sprintf("Сортировка: %s %s", panel.Sort.Column, panel.Sort.Order())}, nil
		},
		SaveAs: func(a commands.SaveAsArgs) (commands.Result, error) {
			if !onTasks {
				return commands.Result{}, fmt.Errorf("сохранение фильтра недоступно для приемок")
			}
			teaCmd = m.saveFilterCmd(a.Name, panel.Criteria())
			return commands.Result{Message: "Сохранение фильтра: " + a.Name}, nil
		},
		Refresh: func() (commands.Result, error) {
			reload = true
			return commands.Result{Message: "Обновление"}, nil
		},
		Import: func(a commands.ImportArgs) (commands.Result, error) {
			teaCmd = m.importTasksCmd(a.Path)
			return commands.Result{Message: "Импорт: " + a.Path}, nil
		},
	}

	res, err := commands.Execute(parsed, handlers)
	if err != nil {
		return m.setError("ошибка: " + err.Error()), nil
	}
	m = m.setStatus(res.Message)
	if reload {
		var cmd tea.Cmd
		m, cmd = m.reloadTab(m.Store.ActiveTab)
		return m, tea.Batch(cmd, teaCmd)
	}
	return m, teaCmd
}
