package update

import "github.com/charmbracelet/bubbles/key"

// helpKeys backs the footer help bubble. The bindings are display-only;
// dispatch lives in handleKey.
type helpKeys struct {
	Tabs      key.Binding
	Select    key.Binding
	Create    key.Binding
	Edit      key.Binding
	Bulk      key.Binding
	Delete    key.Binding
	History   key.Binding
	Duplicate key.Binding
	Sort      key.Binding
	Search    key.Binding
	Filters   key.Binding
	Command   key.Binding
	Refresh   key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func (k helpKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Tabs, k.Refresh, k.Search, k.Filters, k.Command, k.Help, k.Quit}
}

func (k helpKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tabs, k.Select, k.Create, k.Edit},
		{k.Bulk, k.Delete, k.History, k.Duplicate},
		{k.Sort, k.Search, k.Filters, k.Command},
		{k.Refresh, k.Help, k.Quit},
	}
}

func defaultHelpKeys() helpKeys {
	return helpKeys{
		Tabs:      key.NewBinding(key.WithKeys("1", "2", "3"), key.WithHelp("1/2/3", "вкладки")),
		Select:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "выбор")),
		Create:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "создать")),
		Edit:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "изменить")),
		Bulk:      key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "массово")),
		Delete:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "удалить")),
		History:   key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "история")),
		Duplicate: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "дублировать")),
		Sort:      key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "сортировка")),
		Search:    key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "поиск")),
		Filters:   key.NewBinding(key.WithKeys("F"), key.WithHelp("F", "фильтры")),
		Command:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "команда")),
		Refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "обновить")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "помощь")),
		Quit:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "выход")),
	}
}
