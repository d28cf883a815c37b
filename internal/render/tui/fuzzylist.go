package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"
)

// FuzzyList is the pod-legend sidebar: a fuzzy-filterable list of pod
// names, used to narrow which pods' lines the log pane shows.
type FuzzyList struct {
	textInput       textinput.Model
	items           []string
	recentItems     []string
	filtered        []fuzzy.Match
	filteredRecent  []fuzzy.Match
	cursor          int
	maxVisible      int
	scrollOffset    int
	title           string
	loading         bool
	err             error
	inRecentSection bool
}

// NewFuzzyList creates a new fuzzy list component.
func NewFuzzyList(title string) FuzzyList {
	ti := textinput.New()
	ti.Placeholder = "Type to filter pods..."
	ti.CharLimit = 100
	ti.Width = 30
	ti.PromptStyle = PromptStyle
	ti.TextStyle = BaseStyle
	ti.Cursor.Style = CursorStyle

	return FuzzyList{
		textInput:       ti,
		items:           []string{},
		recentItems:     []string{},
		filtered:        []fuzzy.Match{},
		filteredRecent:  []fuzzy.Match{},
		cursor:          0,
		maxVisible:      20,
		title:           title,
		loading:         false,
		inRecentSection: true,
	}
}

// SetItems sets the list items.
func (f *FuzzyList) SetItems(items []string) {
	f.items = items
	f.loading = false
	f.filterItems()
}

// SetRecentItems sets the recent items list.
func (f *FuzzyList) SetRecentItems(items []string) {
	f.recentItems = items
	f.filterItems()
}

// SetError sets an error message.
func (f *FuzzyList) SetError(err error) {
	f.err = err
	f.loading = false
}

// SetLoading sets the loading state.
func (f *FuzzyList) SetLoading(loading bool) {
	f.loading = loading
}

// GetSelected returns the currently selected pod name, or "" if none.
func (f *FuzzyList) GetSelected() string {
	if f.inRecentSection && len(f.filteredRecent) > 0 {
		if f.cursor < len(f.filteredRecent) {
			return f.filteredRecent[f.cursor].Str
		}
	}

	mainCursor := f.cursor
	if len(f.filteredRecent) > 0 {
		mainCursor = f.cursor - len(f.filteredRecent)
	}

	if mainCursor >= 0 && mainCursor < len(f.filtered) {
		return f.filtered[mainCursor].Str
	}

	return ""
}

// GetInput returns the current filter text.
func (f *FuzzyList) GetInput() string {
	return f.textInput.Value()
}

// Reset clears the filter text.
func (f *FuzzyList) Reset() {
	f.textInput.SetValue("")
	f.cursor = 0
	f.scrollOffset = 0
	f.inRecentSection = true
	f.filterItems()
}

// Focus focuses the filter input.
func (f *FuzzyList) Focus() {
	f.textInput.Focus()
}

// Blur blurs the filter input.
func (f *FuzzyList) Blur() {
	f.textInput.Blur()
}

func (f *FuzzyList) totalItems() int {
	return len(f.filteredRecent) + len(f.filtered)
}

func (f *FuzzyList) filterItems() {
	query := f.textInput.Value()

	if len(f.recentItems) > 0 {
		if query == "" {
			f.filteredRecent = make([]fuzzy.Match, len(f.recentItems))
			for i, item := range f.recentItems {
				f.filteredRecent[i] = fuzzy.Match{Str: item, Index: i}
			}
		} else {
			f.filteredRecent = fuzzy.Find(query, f.recentItems)
		}
	} else {
		f.filteredRecent = []fuzzy.Match{}
	}

	itemsWithoutRecent := make([]string, 0, len(f.items))
	recentSet := make(map[string]bool)
	for _, r := range f.recentItems {
		recentSet[r] = true
	}
	for _, item := range f.items {
		if !recentSet[item] {
			itemsWithoutRecent = append(itemsWithoutRecent, item)
		}
	}

	if query == "" {
		f.filtered = make([]fuzzy.Match, len(itemsWithoutRecent))
		for i, item := range itemsWithoutRecent {
			f.filtered[i] = fuzzy.Match{Str: item, Index: i}
		}
	} else {
		f.filtered = fuzzy.Find(query, itemsWithoutRecent)
	}

	total := f.totalItems()
	if f.cursor >= total {
		f.cursor = 0
	}

	f.inRecentSection = f.cursor < len(f.filteredRecent)
	f.scrollOffset = 0
}

// Update handles messages.
func (f *FuzzyList) Update(msg tea.Msg) (FuzzyList, tea.Cmd) {
	var cmd tea.Cmd
	total := f.totalItems()

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "ctrl+p":
			if f.cursor > 0 {
				f.cursor--
				f.inRecentSection = f.cursor < len(f.filteredRecent)
				if f.cursor < f.scrollOffset {
					f.scrollOffset = f.cursor
				}
			}
			return *f, nil

		case "down", "ctrl+n":
			if f.cursor < total-1 {
				f.cursor++
				f.inRecentSection = f.cursor < len(f.filteredRecent)
				if f.cursor >= f.scrollOffset+f.maxVisible {
					f.scrollOffset = f.cursor - f.maxVisible + 1
				}
			}
			return *f, nil

		case "pgup":
			f.cursor -= f.maxVisible
			if f.cursor < 0 {
				f.cursor = 0
			}
			f.inRecentSection = f.cursor < len(f.filteredRecent)
			f.scrollOffset = f.cursor
			return *f, nil

		case "pgdown":
			f.cursor += f.maxVisible
			if f.cursor >= total {
				f.cursor = total - 1
			}
			if f.cursor < 0 {
				f.cursor = 0
			}
			f.inRecentSection = f.cursor < len(f.filteredRecent)
			if f.cursor >= f.scrollOffset+f.maxVisible {
				f.scrollOffset = f.cursor - f.maxVisible + 1
			}
			return *f, nil
		}
	}

	prevValue := f.textInput.Value()
	f.textInput, cmd = f.textInput.Update(msg)

	if f.textInput.Value() != prevValue {
		f.filterItems()
	}

	return *f, cmd
}

// View renders the pod-legend sidebar.
func (f *FuzzyList) View() string {
	var b strings.Builder

	b.WriteString(LabelStyle.Render(f.title))
	b.WriteString("\n")

	inputStyle := InputBoxStyle
	if f.textInput.Focused() {
		inputStyle = FocusedInputStyle
	}
	b.WriteString(inputStyle.Render(f.textInput.View()))
	b.WriteString("\n")

	if f.loading {
		b.WriteString(RenderLoading("Loading..."))
		return b.String()
	}

	if f.err != nil {
		b.WriteString(RenderError(f.err.Error()))
		return b.String()
	}

	total := f.totalItems()

	if total == 0 {
		if len(f.items) == 0 && len(f.recentItems) == 0 {
			b.WriteString(InfoStyle.Render("  No pods"))
		} else {
			b.WriteString(InfoStyle.Render("  No matches"))
		}
		return b.String()
	}

	type listItem struct {
		match    fuzzy.Match
		isRecent bool
	}

	allItems := make([]listItem, 0, total)
	for _, match := range f.filteredRecent {
		allItems = append(allItems, listItem{match: match, isRecent: true})
	}
	for _, match := range f.filtered {
		allItems = append(allItems, listItem{match: match, isRecent: false})
	}

	end := f.scrollOffset + f.maxVisible
	if end > len(allItems) {
		end = len(allItems)
	}

	for i := f.scrollOffset; i < end; i++ {
		item := allItems[i]

		isSelected := i == f.cursor

		var display string
		if len(item.match.MatchedIndexes) > 0 && f.textInput.Value() != "" {
			display = f.highlightMatches(item.match.Str, item.match.MatchedIndexes)
		} else {
			display = item.match.Str
		}

		if isSelected {
			b.WriteString(SelectedItemStyle.Render("  ▸ " + display))
		} else {
			b.WriteString(ListItemStyle.Render("    " + display))
		}
		b.WriteString("\n")
	}

	if total > f.maxVisible {
		current := f.cursor + 1
		b.WriteString(InfoStyle.Render("  [" + itoa(current) + "/" + itoa(total) + "]"))
	}

	return b.String()
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var result strings.Builder
	for n > 0 {
		result.WriteString(string(rune('0' + n%10)))
		n /= 10
	}
	s := result.String()
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

func (f *FuzzyList) highlightMatches(str string, indexes []int) string {
	if len(indexes) == 0 {
		return str
	}

	highlighted := make(map[int]bool)
	for _, idx := range indexes {
		highlighted[idx] = true
	}

	var result strings.Builder
	for i, char := range str {
		if highlighted[i] {
			result.WriteString(MatchStyle.Render(string(char)))
		} else {
			result.WriteRune(char)
		}
	}

	return result.String()
}
