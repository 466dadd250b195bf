package state

import (
	"testing"

	"github.com/skladops/sklad/internal/model"
)

func TestListStateGenerations(t *testing.T) {
	var ls ListState
	if ls.Phase() != PhaseIdle {
		t.Fatalf("fresh list should be idle, got %v", ls.Phase())
	}

	first := ls.BeginLoad()
	second := ls.BeginLoad()
	if first == second {
		t.Fatal("each load must get a fresh token")
	}

	if ls.Complete(first) {
		t.Fatal("stale completion must be discarded")
	}
	if ls.Phase() != PhaseLoading {
		t.Fatalf("stale completion must not change phase, got %v", ls.Phase())
	}

	if !ls.Complete(second) {
		t.Fatal("current completion must be applied")
	}
	if ls.Phase() != PhaseLoaded {
		t.Fatalf("expected loaded, got %v", ls.Phase())
	}
}

func TestListStateStaleFailure(t *testing.T) {
	var ls ListState
	old := ls.BeginLoad()
	current := ls.BeginLoad()

	if ls.Fail(old, "timeout") {
		t.Fatal("stale failure must be discarded")
	}
	if !ls.Fail(current, "timeout") {
		t.Fatal("current failure must be applied")
	}
	if ls.Phase() != PhaseErrored || ls.Err != "timeout" {
		t.Fatalf("unexpected state after failure: phase=%v err=%q", ls.Phase(), ls.Err)
	}

	// A new load clears the error.
	ls.BeginLoad()
	if ls.Err != "" || !ls.Loading() {
		t.Fatalf("retry must clear the error, got phase=%v err=%q", ls.Phase(), ls.Err)
	}
}

func TestSortClick(t *testing.T) {
	s := DefaultSort()
	if s.Column != "created_date" || !s.Desc {
		t.Fatalf("unexpected default sort: %+v", s)
	}

	s.Click("due_date")
	if s.Column != "due_date" || s.Desc {
		t.Fatalf("new column must sort ascending, got %+v", s)
	}

	s.Click("due_date")
	if !s.Desc {
		t.Fatal("second click on the same column must flip to descending")
	}
	s.Click("due_date")
	if s.Desc {
		t.Fatal("third click must flip back to ascending")
	}

	s.Click("priority")
	if s.Column != "priority" || s.Desc {
		t.Fatalf("switching column must reset to ascending, got %+v", s)
	}
	if s.Order() != "asc" {
		t.Fatalf("unexpected order literal %q", s.Order())
	}
}

func TestSelectionReconcile(t *testing.T) {
	sel := NewSelection()
	sel.Add(1)
	sel.Add(2)
	sel.Add(3)

	sel.Reconcile([]model.Task{{ID: 1}, {ID: 3}})
	if sel.Len() != 2 || !sel.Has(1) || !sel.Has(3) || sel.Has(2) {
		t.Fatalf("expected ids 1 and 3 to survive, got %v", sel.IDs())
	}

	sel.Toggle(3)
	if sel.Has(3) {
		t.Fatal("toggle must remove a selected id")
	}
	sel.Toggle(5)
	if !sel.Has(5) {
		t.Fatal("toggle must add an unselected id")
	}
}

func TestStoreSwitchTabClearsSelection(t *testing.T) {
	st := NewStore()
	st.Active.Selection.Add(10)
	st.Active.Selection.Add(11)

	st.SwitchTab(TabReceptions)
	if st.Active.Selection.Len() != 0 {
		t.Fatal("leaving a tab must clear its selection")
	}
	if st.ActiveTab != TabReceptions {
		t.Fatalf("unexpected active tab %v", st.ActiveTab)
	}
	if st.CurrentPanel() != nil {
		t.Fatal("reception tab has no task panel")
	}

	st.SwitchTab(TabArchive)
	if st.CurrentPanel() != st.Archive {
		t.Fatal("archive tab must expose the archive panel")
	}

	// Switching to the already-active tab is a no-op.
	st.Archive.Selection.Add(20)
	st.SwitchTab(TabArchive)
	if st.Archive.Selection.Len() != 1 {
		t.Fatal("re-selecting the active tab must keep the selection")
	}
}

func TestPanelReplaceTasksReconciles(t *testing.T) {
	p := newPanelState()
	p.Selection.Add(1)
	p.Selection.Add(2)

	p.ReplaceTasks([]model.Task{{ID: 2}, {ID: 7}})
	if p.Selection.Len() != 1 || !p.Selection.Has(2) {
		t.Fatalf("selection must shrink to surviving rows, got %v", p.Selection.IDs())
	}
	if len(p.Tasks) != 2 {
		t.Fatalf("rows not replaced: %+v", p.Tasks)
	}
}

func TestPanelCriteriaRoundTrip(t *testing.T) {
	p := newPanelState()
	p.Search = "вал"
	p.Filters["status"] = string(model.StatusDone)
	p.Filters["overdue"] = "true"

	criteria := p.Criteria()
	if criteria["search"] != "вал" || criteria["status"] != string(model.StatusDone) {
		t.Fatalf("unexpected criteria: %v", criteria)
	}

	fresh := newPanelState()
	fresh.ApplyCriteria(criteria)
	if fresh.Search != "вал" {
		t.Fatalf("search not restored: %q", fresh.Search)
	}
	if fresh.Filters["status"] != string(model.StatusDone) || fresh.Filters["overdue"] != "true" {
		t.Fatalf("filters not restored: %v", fresh.Filters)
	}
	if _, ok := fresh.Filters["search"]; ok {
		t.Fatal("search must not leak into the filter map")
	}
}
