package update

import (
	"context"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/skladops/sklad/internal/api"
	"github.com/skladops/sklad/internal/model"
	"github.com/skladops/sklad/internal/scheduler"
	"github.com/skladops/sklad/internal/state"
)

// queryFor translates a panel's search, filters and sort into list
// parameters. The archive tab always pins archived=true.
func (m Model) queryFor(tab state.Tab) api.TaskQuery {
	panel := m.Store.Panel(tab)
	q := api.TaskQuery{
		Archived:  tab == state.TabArchive,
		SortBy:    panel.Sort.Column,
		SortOrder: panel.Sort.Order(),
		Search:    panel.Search,
	}
	q.Status = panel.Filters["status"]
	q.Priority = panel.Filters["priority"]
	q.Responsible = panel.Filters["responsible"]
	q.Overdue = panel.Filters["overdue"] == "true"
	return q
}

func (m Model) loadTasksCmd(tab state.Tab, token uint64) tea.Cmd {
	gw := m.Gateway
	q := m.queryFor(tab)
	timeout := m.Cfg.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := opCtx(timeout)
		defer cancel()
		items, err := gw.ListTasks(ctx, q)
		if err != nil {
			return loadFailedMsg{Tab: tab, Token: token, Err: err}
		}
		return tasksLoadedMsg{Tab: tab, Token: token, Items: items}
	}
}

func (m Model) loadReceptionsCmd(token uint64) tea.Cmd {
	gw := m.Gateway
	search := m.Store.Receptions.Search
	status := m.Store.Receptions.Status
	timeout := m.Cfg.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := opCtx(timeout)
		defer cancel()
		items, err := gw.ListReceptions(ctx, search, status)
		if err != nil {
			return loadFailedMsg{Tab: state.TabReceptions, Token: token, Err: err}
		}
		return receptionsLoadedMsg{Token: token, Items: items}
	}
}

func (m Model) fetchTaskCmd(id int64) tea.Cmd {
	gw := m.Gateway
	timeout := m.Cfg.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := opCtx(timeout)
		defer cancel()
		task, err := gw.GetTask(ctx, id)
		if err != nil {
			return fetchFailedMsg{Err: err}
		}
		return taskFetchedMsg{Task: task}
	}
}

func (m Model) createTaskCmd(draft model.TaskDraft) tea.Cmd {
	gw := m.Gateway
	timeout := m.Cfg.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := opCtx(timeout)
		defer cancel()
		task, err := gw.CreateTask(ctx, draft)
		if err != nil {
			return saveFailedMsg{Err: err}
		}
		return taskSavedMsg{Task: task, Created: true}
	}
}

func (m Model) updateTaskCmd(id int64, patch model.TaskPatch) tea.Cmd {
	gw := m.Gateway
	timeout := m.Cfg.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := opCtx(timeout)
		defer cancel()
		task, err := gw.UpdateTask(ctx, id, patch)
		if err != nil {
			return saveFailedMsg{Err: err}
		}
		return taskSavedMsg{Task: task}
	}
}

func (m Model) createReceptionCmd(draft model.ReceptionDraft) tea.Cmd {
	gw := m.Gateway
	timeout := m.Cfg.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := opCtx(timeout)
		defer cancel()
		rec, err := gw.CreateReception(ctx, draft)
		if err != nil {
			return saveFailedMsg{Err: err}
		}
		return receptionSavedMsg{Reception: rec}
	}
}

func (m Model) bulkUpdateCmd(ids []int64, status, priority string) tea.Cmd {
	gw := m.Gateway
	timeout := m.Cfg.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := opCtx(timeout)
		defer cancel()
		msg, err := gw.BulkUpdate(ctx, ids, status, priority)
		if err != nil {
			return opFailedMsg{Err: err}
		}
		return bulkDoneMsg{Message: msg}
	}
}

func (m Model) bulkDeleteCmd(ids []int64) tea.Cmd {
	gw := m.Gateway
	timeout := m.Cfg.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := opCtx(timeout)
		defer cancel()
		msg, err := gw.BulkDelete(ctx, ids)
		if err != nil {
			return opFailedMsg{Err: err}
		}
		return bulkDoneMsg{Message: msg}
	}
}

func (m Model) loadHistoryCmd(taskID int64, label string) tea.Cmd {
	gw := m.Gateway
	timeout := m.Cfg.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := opCtx(timeout)
		defer cancel()
		items, err := gw.TaskHistory(ctx, taskID)
		if err != nil {
			return opFailedMsg{Err: err}
		}
		return historyLoadedMsg{TaskID: taskID, Label: label, Items: items}
	}
}

func (m Model) revertCmd(taskID, historyID int64) tea.Cmd {
	gw := m.Gateway
	timeout := m.Cfg.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := opCtx(timeout)
		defer cancel()
		msg, err := gw.RevertChange(ctx, taskID, historyID)
		if err != nil {
			return opFailedMsg{Err: err}
		}
		return revertDoneMsg{TaskID: taskID, Message: msg}
	}
}

func (m Model) loadStatsCmd() tea.Cmd {
	gw := m.Gateway
	timeout := m.Cfg.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := opCtx(timeout)
		defer cancel()
		stats, err := gw.Stats(ctx)
		if err != nil {
			return opFailedMsg{Err: err}
		}
		return statsLoadedMsg{Stats: stats}
	}
}

func (m Model) loadFiltersCmd() tea.Cmd {
	gw := m.Gateway
	timeout := m.Cfg.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := opCtx(timeout)
		defer cancel()
		items, err := gw.ListFilters(ctx)
		if err != nil {
			return opFailedMsg{Err: err}
		}
		return filtersLoadedMsg{Items: items}
	}
}

func (m Model) saveFilterCmd(name string, criteria map[string]string) tea.Cmd {
	gw := m.Gateway
	timeout := m.Cfg.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := opCtx(timeout)
		defer cancel()
		f, err := gw.SaveFilter(ctx, name, criteria)
		if err != nil {
			return opFailedMsg{Err: err}
		}
		return filterSavedMsg{Filter: f}
	}
}

func (m Model) deleteFilterCmd(id int64) tea.Cmd {
	gw := m.Gateway
	timeout := m.Cfg.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := opCtx(timeout)
		defer cancel()
		if err := gw.DeleteFilter(ctx, id); err != nil {
			return opFailedMsg{Err: err}
		}
		return filterDeletedMsg{}
	}
}

func (m Model) archiveSweepCmd() tea.Cmd {
	gw := m.Gateway
	timeout := m.Cfg.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := opCtx(timeout)
		defer cancel()
		count, err := gw.ArchiveDueTasks(ctx)
		if err != nil {
			return opFailedMsg{Err: err}
		}
		return archiveSweepDoneMsg{Count: count}
	}
}

func (m Model) importTasksCmd(path string) tea.Cmd {
	gw := m.Gateway
	timeout := m.Cfg.RequestTimeout
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return opFailedMsg{Err: err}
		}
		defer f.Close()
		ctx, cancel := opCtx(timeout)
		defer cancel()
		result, err := gw.ImportTasks(ctx, filepath.Base(path), f)
		if err != nil {
			return opFailedMsg{Err: err}
		}
		return importDoneMsg{Result: result}
	}
}

// waitForIntentCmd bridges the scheduler channel into the message loop. It is
// re-issued after every delivered intent.
func waitForIntentCmd(ch <-chan scheduler.Intent) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		in, ok := <-ch
		if !ok {
			return nil
		}
		return intentMsg{Intent: in}
	}
}

func opCtx(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}
