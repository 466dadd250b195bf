package update

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/skladops/sklad/internal/scheduler"
	"github.com/skladops/sklad/internal/state"
)

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadSpinner.Tick}

	token := m.Store.Active.List.BeginLoad()
	cmds = append(cmds, m.loadTasksCmd(state.TabActiveTasks, token))
	cmds = append(cmds, m.loadStatsCmd(), m.loadFiltersCmd())

	if m.Scheduler != nil {
		cmds = append(cmds, waitForIntentCmd(m.Scheduler.C()))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m, cmd = m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.helpModel.Width = msg.Width
		m.historyView.Width = msg.Width
		if msg.Height > 8 {
			m.historyView.Height = msg.Height - 6
		}
	case spinner.TickMsg:
		if m.anyLoading() {
			m.loadSpinner, cmd = m.loadSpinner.Update(msg)
		}
	case tasksLoadedMsg:
		m = m.onTasksLoaded(msg)
	case receptionsLoadedMsg:
		if m.Store.Receptions.List.Complete(msg.Token) {
			m.Store.Receptions.Rows = msg.Items
		}
	case loadFailedMsg:
		m = m.onLoadFailed(msg)
	case taskFetchedMsg:
		m.Form = newTaskForm(msg.Task.ID, &msg.Task)
	case fetchFailedMsg:
		m = m.setError("ошибка: " + msg.Err.Error())
	case taskSavedMsg:
		m, cmd = m.onTaskSaved(msg)
	case receptionSavedMsg:
		m.Form = nil
		m = m.setStatus("Приемка добавлена")
		m, cmd = m.reloadTab(state.TabReceptions)
	case saveFailedMsg:
		if m.Form != nil {
			m.Form.Saving = false
			m.Form.Err = msg.Err.Error()
		} else {
			m = m.setError("ошибка: " + msg.Err.Error())
		}
	case bulkDoneMsg:
		m, cmd = m.onBulkDone(msg)
	case historyLoadedMsg:
		m.History = &HistoryState{TaskID: msg.TaskID, Label: msg.Label, Items: msg.Items}
	case revertDoneMsg:
		m, cmd = m.onRevertDone(msg)
	case statsLoadedMsg:
		m.Store.Stats = msg.Stats
		m.Store.StatsLoaded = true
	case filtersLoadedMsg:
		m.Store.SavedFilters = msg.Items
	case filterSavedMsg:
		m = m.setStatus("Фильтр сохранен: " + msg.Filter.Name)
		cmd = m.loadFiltersCmd()
	case filterDeletedMsg:
		m = m.setStatus("Фильтр удален")
		cmd = m.loadFiltersCmd()
	case archiveSweepDoneMsg:
		m, cmd = m.onArchiveSwept(msg)
	case importDoneMsg:
		m, cmd = m.onImportDone(msg)
	case opFailedMsg:
		if m.Bulk != nil {
			m.Bulk.Saving = false
		}
		m = m.setError("ошибка: " + msg.Err.Error())
	case AppErrorMsg:
		m.LastError = msg.Err
		m = m.setError("ошибка: " + msg.Err.Error())
	case SetStatusMsg:
		m.Status = StatusBar(msg)
	case ClearStatusMsg:
		m.Status = StatusBar{}
	case intentMsg:
		m, cmd = m.onIntent(msg.Intent)
	}
	m.syncBubbleData()
	return m, cmd
}

func (m Model) onTasksLoaded(msg tasksLoadedMsg) Model {
	panel := m.Store.Panel(msg.Tab)
	if panel == nil {
		return m
	}
	if panel.List.Complete(msg.Token) {
		panel.ReplaceTasks(msg.Items)
	}
	return m
}

func (m Model) onLoadFailed(msg loadFailedMsg) Model {
	if msg.Tab == state.TabReceptions {
		if m.Store.Receptions.List.Fail(msg.Token, msg.Err.Error()) {
			m = m.setError("ошибка загрузки: " + msg.Err.Error())
		}
		return m
	}
	panel := m.Store.Panel(msg.Tab)
	if panel != nil && panel.List.Fail(msg.Token, msg.Err.Error()) {
		m.LastError = msg.Err
		m = m.setError("ошибка загрузки: " + msg.Err.Error())
	}
	return m
}

func (m Model) onTaskSaved(msg taskSavedMsg) (Model, tea.Cmd) {
	m.Form = nil
	if msg.Created {
		m = m.setStatus(fmt.Sprintf("Задание создано: %s", msg.Task.Number))
	} else {
		m = m.setStatus(fmt.Sprintf("Задание сохранено: %s", msg.Task.Number))
	}
	var cmd tea.Cmd
	m, cmd = m.reloadTab(m.Store.ActiveTab)
	return m, tea.Batch(cmd, m.loadStatsCmd())
}

func (m Model) onBulkDone(msg bulkDoneMsg) (Model, tea.Cmd) {
	m.Bulk = nil
	m.Confirm = nil
	if panel := m.Store.CurrentPanel(); panel != nil {
		panel.Selection.Clear()
	}
	m = m.setStatus(msg.Message)
	var cmd tea.Cmd
	m, cmd = m.reloadTab(m.Store.ActiveTab)
	return m, tea.Batch(cmd, m.loadStatsCmd())
}

func (m Model) onRevertDone(msg revertDoneMsg) (Model, tea.Cmd) {
	m = m.setStatus(msg.Message)
	label := ""
	if m.History != nil {
		label = m.History.Label
	}
	var cmd tea.Cmd
	m, cmd = m.reloadTab(m.Store.ActiveTab)
	return m, tea.Batch(cmd, m.loadHistoryCmd(msg.TaskID, label), m.loadStatsCmd())
}

func (m Model) onArchiveSwept(msg archiveSweepDoneMsg) (Model, tea.Cmd) {
	if msg.Count == 0 {
		return m, nil
	}
	m = m.setStatus(fmt.Sprintf("Архивировано заданий: %d", msg.Count))
	var cmd tea.Cmd
	m, cmd = m.reloadTab(m.Store.ActiveTab)
	return m, tea.Batch(cmd, m.loadStatsCmd())
}

func (m Model) onImportDone(msg importDoneMsg) (Model, tea.Cmd) {
	m.Notification = msg.Result
	m = m.setStatus(msg.Result.Message)
	var cmd tea.Cmd
	m, cmd = m.reloadTab(m.Store.ActiveTab)
	return m, tea.Batch(cmd, m.loadStatsCmd())
}

// onIntent reacts to scheduler fires. Refresh reloads the visible tab in the
// background; the sweep asks the server to archive eligible tasks.
func (m Model) onIntent(in scheduler.Intent) (Model, tea.Cmd) {
	cmds := []tea.Cmd{waitForIntentCmd(m.Scheduler.C())}
	switch in.Kind {
	case scheduler.KindRefresh:
		var cmd tea.Cmd
		m, cmd = m.reloadTab(m.Store.ActiveTab)
		cmds = append(cmds, cmd, m.loadStatsCmd())
	case scheduler.KindArchiveSweep:
		cmds = append(cmds, m.archiveSweepCmd())
	}
	return m, tea.Batch(cmds...)
}

// reloadTab starts a fresh generation for the tab and returns its load
// command. Stale in-flight answers are dropped by the token check.
func (m Model) reloadTab(tab state.Tab) (Model, tea.Cmd) {
	if tab == state.TabReceptions {
		token := m.Store.Receptions.List.BeginLoad()
		return m, tea.Batch(m.loadReceptionsCmd(token), m.loadSpinner.Tick)
	}
	panel := m.Store.Panel(tab)
	token := panel.List.BeginLoad()
	return m, tea.Batch(m.loadTasksCmd(tab, token), m.loadSpinner.Tick)
}

func (m Model) anyLoading() bool {
	return m.Store.Active.List.Loading() ||
		m.Store.Archive.List.Loading() ||
		m.Store.Receptions.List.Loading()
}

func (m Model) setStatus(text string) Model {
	m.Status = StatusBar{Text: text}
	return m
}

func (m Model) setError(text string) Model {
	m.Status = StatusBar{Text: text, IsError: true}
	return m
}
