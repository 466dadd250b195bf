package update

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/skladops/sklad/internal/model"
)

const formDateLayout = "2006-01-02"

// Task form field order. The number field is prefilled and locked on edit.
const (
	fieldTaskNumber = iota
	fieldTaskName
	fieldTaskDescription
	fieldTaskStatus
	fieldTaskPriority
	fieldTaskResponsible
	fieldTaskDueDate
)

var taskFormLabels = []string{
	"Номер",
	"Наименование",
	"Описание",
	"Статус",
	"Приоритет",
	"Ответственный",
	"Срок (ГГГГ-ММ-ДД)",
}

// The reception date is not an input: the server stamps it on create, so an
// editable field would only invite values that get thrown away.
const (
	fieldReceptionOrder = iota
	fieldReceptionDesignation
	fieldReceptionName
	fieldReceptionQuantity
	fieldReceptionRouteCard
	fieldReceptionStatus
)

var receptionFormLabels = []string{
	"Номер заказа",
	"Обозначение",
	"Наименование",
	"Количество",
	"Номер маршрутной карты",
	"Статус",
}

func newFormInputs(labels []string) []textinput.Model {
	inputs := make([]textinput.Model, len(labels))
	for i := range inputs {
		in := textinput.New()
		in.CharLimit = 256
		in.Width = 40
		inputs[i] = in
	}
	inputs[0].Focus()
	return inputs
}

// newTaskForm builds the create modal; prefill is non-nil for edit and for
// duplication (duplication passes TaskID zero with a prefilled draft).
func newTaskForm(taskID int64, prefill *model.Task) *FormState {
	f := &FormState{
		Kind:   formTask,
		TaskID: taskID,
		Inputs: newFormInputs(taskFormLabels),
		Labels: taskFormLabels,
	}
	if prefill != nil {
		f.Inputs[fieldTaskNumber].SetValue(prefill.Number)
		f.Inputs[fieldTaskName].SetValue(prefill.Name)
		f.Inputs[fieldTaskDescription].SetValue(prefill.Description)
		f.Inputs[fieldTaskStatus].SetValue(string(prefill.Status))
		f.Inputs[fieldTaskPriority].SetValue(string(prefill.Priority))
		f.Inputs[fieldTaskResponsible].SetValue(prefill.Responsible)
		if prefill.DueDate != nil {
			f.Inputs[fieldTaskDueDate].SetValue(prefill.DueDate.Format(formDateLayout))
		}
	}
	return f
}

func newReceptionForm() *FormState {
	f := &FormState{
		Kind:   formReception,
		Inputs: newFormInputs(receptionFormLabels),
		Labels: receptionFormLabels,
	}
	f.Inputs[fieldReceptionStatus].SetValue(string(model.ReceptionAccepted))
	return f
}

func (f *FormState) value(i int) string {
	return strings.TrimSpace(f.Inputs[i].Value())
}

func (f *FormState) focusField(i int) {
	for j := range f.Inputs {
		f.Inputs[j].Blur()
	}
	f.Focus = i
	f.Inputs[i].Focus()
}

func (f *FormState) nextField(step int) {
	n := len(f.Inputs)
	f.focusField(((f.Focus+step)%n + n) % n)
}

// fail marks the form invalid and moves focus to the offending field.
func (f *FormState) fail(field int, msg string) {
	f.Err = msg
	f.focusField(field)
}

// taskDraft validates the inputs for create. On failure it focuses the first
// invalid field and returns false.
func (f *FormState) taskDraft() (model.TaskDraft, bool) {
	var draft model.TaskDraft
	draft.Number = f.value(fieldTaskNumber)
	if draft.Number == "" {
		f.fail(fieldTaskNumber, "Номер задания обязателен")
		return draft, false
	}
	draft.Name = f.value(fieldTaskName)
	if draft.Name == "" {
		f.fail(fieldTaskName, "Наименование задания обязательно")
		return draft, false
	}
	draft.Description = f.value(fieldTaskDescription)

	if raw := f.value(fieldTaskStatus); raw != "" {
		draft.Status = model.Status(raw)
		if !draft.Status.IsValid() {
			f.fail(fieldTaskStatus, "Некорректный статус")
			return draft, false
		}
	}
	if raw := f.value(fieldTaskPriority); raw != "" {
		draft.Priority = model.Priority(raw)
		if !draft.Priority.IsValid() {
			f.fail(fieldTaskPriority, "Некорректный приоритет")
			return draft, false
		}
	}
	draft.Responsible = f.value(fieldTaskResponsible)

	if raw := f.value(fieldTaskDueDate); raw != "" {
		due, err := time.Parse(formDateLayout, raw)
		if err != nil {
			f.fail(fieldTaskDueDate, "Некорректная дата, формат ГГГГ-ММ-ДД")
			return draft, false
		}
		draft.DueDate = &due
	}
	return draft, true
}

// taskPatch validates the inputs for edit. Every editable field is sent; the
// server only records history for fields that actually changed. The number is
// immutable and never part of the patch.
func (f *FormState) taskPatch() (model.TaskPatch, bool) {
	var patch model.TaskPatch

	name := f.value(fieldTaskName)
	if name == "" {
		f.fail(fieldTaskName, "Наименование задания обязательно")
		return patch, false
	}
	patch.Name = &name

	description := f.value(fieldTaskDescription)
	patch.Description = &description

	if raw := f.value(fieldTaskStatus); raw != "" {
		status := model.Status(raw)
		if !status.IsValid() {
			f.fail(fieldTaskStatus, "Некорректный статус")
			return patch, false
		}
		patch.Status = &status
	}
	if raw := f.value(fieldTaskPriority); raw != "" {
		priority := model.Priority(raw)
		if !priority.IsValid() {
			f.fail(fieldTaskPriority, "Некорректный приоритет")
			return patch, false
		}
		patch.Priority = &priority
	}

	responsible := f.value(fieldTaskResponsible)
	patch.Responsible = &responsible

	if raw := f.value(fieldTaskDueDate); raw != "" {
		due, err := time.Parse(formDateLayout, raw)
		if err != nil {
			f.fail(fieldTaskDueDate, "Некорректная дата, формат ГГГГ-ММ-ДД")
			return patch, false
		}
		patch.DueDate = &due
	}
	return patch, true
}

func (f *FormState) receptionDraft() (model.ReceptionDraft, bool) {
	draft := model.ReceptionDraft{
		OrderNumber:     f.value(fieldReceptionOrder),
		Designation:     f.value(fieldReceptionDesignation),
		Name:            f.value(fieldReceptionName),
		Quantity:        f.value(fieldReceptionQuantity),
		RouteCardNumber: f.value(fieldReceptionRouteCard),
	}
	if raw := f.value(fieldReceptionStatus); raw != "" {
		draft.Status = model.ReceptionStatus(raw)
		if !draft.Status.IsValid() {
			f.fail(fieldReceptionStatus, "Некорректный статус приемки")
			return draft, false
		}
	}
	if err := draft.Validate(); err != nil {
		f.fail(firstEmptyReceptionField(f), "Заполнены не все обязательные поля")
		return draft, false
	}
	return draft, true
}

func firstEmptyReceptionField(f *FormState) int {
	for _, i := range []int{fieldReceptionOrder, fieldReceptionDesignation, fieldReceptionName, fieldReceptionQuantity, fieldReceptionRouteCard} {
		if f.value(i) == "" {
			return i
		}
	}
	return fieldReceptionOrder
}

// handleFormKey routes keys while a modal is open. Saving blocks everything
// except waiting for the server to answer.
func (m Model) handleFormKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	f := m.Form
	if f.Saving {
		return m, nil
	}
	switch msg.String() {
	case "esc":
		m.Form = nil
		return m, nil
	case "tab", "down":
		f.nextField(1)
		return m, nil
	case "shift+tab", "up":
		f.nextField(-1)
		return m, nil
	case "enter":
		return m.submitForm()
	}
	var cmd tea.Cmd
	f.Inputs[f.Focus], cmd = f.Inputs[f.Focus].Update(msg)
	return m, cmd
}

func (m Model) submitForm() (Model, tea.Cmd) {
	f := m.Form
	f.Err = ""
	switch {
	case f.Kind == formReception:
		draft, ok := f.receptionDraft()
		if !ok {
			return m, nil
		}
		f.Saving = true
		return m, m.createReceptionCmd(draft)
	case f.TaskID == 0:
		draft, ok := f.taskDraft()
		if !ok {
			return m, nil
		}
		f.Saving = true
		return m, m.createTaskCmd(draft)
	default:
		patch, ok := f.taskPatch()
		if !ok {
			return m, nil
		}
		f.Saving = true
		return m, m.updateTaskCmd(f.TaskID, patch)
	}
}

func (f *FormState) fieldsView() string {
	var b strings.Builder
	for i, in := range f.Inputs {
		marker := "  "
		if i == f.Focus {
			marker = "> "
		}
		fmt.Fprintf(&b, "%s%s: %s\n", marker, f.Labels[i], in.View())
	}
	return strings.TrimSuffix(b.String(), "\n")
}
