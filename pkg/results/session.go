package results

import "fmt"

// Session owns the state a results view renders from: the current Set and
// the active operator filter. It is not safe for concurrent use.
type Session struct {
	set    *Set
	filter string
}

func NewSession() *Session { return &Session{} }

// Reset replaces the current results and clears the filter. A nil set puts
// the session back into its initial, nothing-looked-up state.
func (s *Session) Reset(set *Set) {
	s.set = set
	s.filter = ""
}

func (s *Session) Set() *Set { return s.set }

// Filter returns the active operator filter, or "" when none is set.
func (s *Session) Filter() string { return s.filter }

// Toggle selects op as the filter. Selecting the active filter again clears
// it; selecting another operator replaces it.
func (s *Session) Toggle(op string) {
	if op == "" || op == s.filter {
		s.filter = ""
		return
	}
	s.filter = op
}

// Visible returns the rows shown under the active filter, in input order.
func (s *Session) Visible() []Row {
	rows := s.set.Rows()
	if s.filter == "" {
		return rows
	}
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if r.Operator == s.filter {
			out = append(out, r)
		}
	}
	return out
}

// Tag is a breakdown badge; Active marks the selected filter.
type Tag struct {
	Operator string
	Count    int
	Active   bool
}

// ViewModel is everything a renderer needs to draw the results panel.
type ViewModel struct {
	// HasResults is false before the first lookup.
	HasResults bool
	// NoData is set when the lookup returned zero entries.
	NoData bool
	Total  int
	Tags   []Tag
	Rows   []Row
	Filter string
	// Hint reads "Showing X of Y numbers" while a filter is active.
	Hint string
}

// View builds the view model for the current state.
func (s *Session) View() ViewModel {
	if s.set == nil {
		return ViewModel{}
	}
	if s.set.Empty() {
		return ViewModel{HasResults: true, NoData: true}
	}

	vm := ViewModel{
		HasResults: true,
		Total:      s.set.Len(),
		Rows:       s.Visible(),
		Filter:     s.filter,
	}
	for _, oc := range s.set.Breakdown() {
		vm.Tags = append(vm.Tags, Tag{Operator: oc.Operator, Count: oc.Count, Active: oc.Operator == s.filter})
	}
	if s.filter != "" {
		vm.Hint = fmt.Sprintf("Showing %d of %d numbers", len(vm.Rows), vm.Total)
	}
	return vm
}
