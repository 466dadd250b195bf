package state

import (
	"github.com/skladops/sklad/internal/model"
)

// Tab identifies one of the three top-level panels.
type Tab int

const (
	TabActiveTasks Tab = iota
	TabReceptions
	TabArchive
)

func (t Tab) String() string {
	switch t {
	case TabActiveTasks:
		return "Задания"
	case TabReceptions:
		return "Военное представительство"
	case TabArchive:
		return "Архив"
	default:
		return "?"
	}
}

// Phase is the lifecycle of one list panel. Errored replaces the table with
// an error message and a retry action.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseLoaded
	PhaseErrored
)

// ListState tracks one panel's load lifecycle. Every load attempt gets a
// fresh generation token; completions carrying a stale token are discarded,
// so an old slow response can never overwrite a newer one.
type ListState struct {
	phase Phase
	gen   uint64
	Err   string
}

func (s *ListState) Phase() Phase { return s.phase }

// BeginLoad bumps the generation and returns the token the eventual
// completion must present.
func (s *ListState) BeginLoad() uint64 {
	s.gen++
	s.phase = PhaseLoading
	s.Err = ""
	return s.gen
}

// Complete accepts the load only if token is current. Reports whether the
// result should be applied.
func (s *ListState) Complete(token uint64) bool {
	if token != s.gen {
		return false
	}
	s.phase = PhaseLoaded
	s.Err = ""
	return true
}

// Fail records a load failure, unless a newer load has started since.
func (s *ListState) Fail(token uint64, msg string) bool {
	if token != s.gen {
		return false
	}
	s.phase = PhaseErrored
	s.Err = msg
	return true
}

func (s *ListState) Loading() bool { return s.phase == PhaseLoading }

// Sort is the active sort order for a task panel.
type Sort struct {
	Column string
	Desc   bool
}

func DefaultSort() Sort {
	return Sort{Column: "created_date", Desc: true}
}

// Click applies the column-header toggle rule: clicking the current column
// flips direction, clicking a new column sorts it ascending.
func (s *Sort) Click(column string) {
	if s.Column == column {
		s.Desc = !s.Desc
		return
	}
	s.Column = column
	s.Desc = false
}

func (s Sort) Order() string {
	if s.Desc {
		return "desc"
	}
	return "asc"
}

// Selection is the set of checked task ids on one panel.
type Selection map[int64]struct{}

func NewSelection() Selection { return make(Selection) }

func (s Selection) Toggle(id int64) {
	if _, ok := s[id]; ok {
		delete(s, id)
		return
	}
	s[id] = struct{}{}
}

func (s Selection) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

func (s Selection) Add(id int64) { s[id] = struct{}{} }

func (s Selection) Clear() {
	for id := range s {
		delete(s, id)
	}
}

func (s Selection) Len() int { return len(s) }

// IDs returns the selected ids in unspecified order.
func (s Selection) IDs() []int64 {
	out := make([]int64, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	return out
}

// Reconcile drops selected ids that are no longer present in the given rows.
func (s Selection) Reconcile(tasks []model.Task) {
	present := make(map[int64]struct{}, len(tasks))
	for _, t := range tasks {
		present[t.ID] = struct{}{}
	}
	for id := range s {
		if _, ok := present[id]; !ok {
			delete(s, id)
		}
	}
}

// PanelState is the full per-panel state for a task list.
type PanelState struct {
	List      ListState
	Tasks     []model.Task
	Sort      Sort
	Search    string
	Filters   map[string]string
	Selection Selection
}

func newPanelState() *PanelState {
	return &PanelState{
		Sort:      DefaultSort(),
		Filters:   make(map[string]string),
		Selection: NewSelection(),
	}
}

// ReplaceTasks swaps in a fresh server snapshot and reconciles the selection
// against it.
func (p *PanelState) ReplaceTasks(tasks []model.Task) {
	p.Tasks = tasks
	p.Selection.Reconcile(tasks)
}

// Criteria flattens the panel's filters into the saved-filter wire form.
func (p *PanelState) Criteria() map[string]string {
	out := make(map[string]string, len(p.Filters)+1)
	for k, v := range p.Filters {
		out[k] = v
	}
	if p.Search != "" {
		out["search"] = p.Search
	}
	return out
}

// ApplyCriteria restores search and filters from a saved snapshot.
func (p *PanelState) ApplyCriteria(criteria map[string]string) {
	p.Search = criteria["search"]
	p.Filters = make(map[string]string)
	for k, v := range criteria {
		if k == "search" {
			continue
		}
		p.Filters[k] = v
	}
}

// ReceptionState is the panel state for the reception journal. Receptions
// have no selection or sort controls.
type ReceptionState struct {
	List   ListState
	Rows   []model.Reception
	Search string
	Status string
}

// Store is the single in-memory snapshot the UI renders from. It is owned by
// the update loop and mutated only there, never from goroutines.
type Store struct {
	ActiveTab Tab

	Active     *PanelState
	Archive    *PanelState
	Receptions ReceptionState

	Stats        model.TaskStats
	StatsLoaded  bool
	SavedFilters []model.SavedFilter
}

func NewStore() *Store {
	return &Store{
		Active:  newPanelState(),
		Archive: newPanelState(),
	}
}

// Panel returns the task panel backing the given tab, or nil for the
// reception tab.
func (s *Store) Panel(tab Tab) *PanelState {
	switch tab {
	case TabActiveTasks:
		return s.Active
	case TabArchive:
		return s.Archive
	default:
		return nil
	}
}

// CurrentPanel returns the task panel for the active tab, nil on receptions.
func (s *Store) CurrentPanel() *PanelState {
	return s.Panel(s.ActiveTab)
}

// SwitchTab changes the visible panel. The outgoing panel's selection is
// cleared so bulk state never leaks across tabs.
func (s *Store) SwitchTab(tab Tab) {
	if tab == s.ActiveTab {
		return
	}
	if p := s.CurrentPanel(); p != nil {
		p.Selection.Clear()
	}
	s.ActiveTab = tab
}
