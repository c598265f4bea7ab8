package tui

import tea "github.com/charmbracelet/bubbletea"

// ComponentStack is a stack of components. Only the top one receives input
// and is drawn.
type ComponentStack struct {
	components    []Component
	width, height int
}

// NewComponentStack creates a new component stack.
func NewComponentStack(initial ...Component) *ComponentStack {
	return &ComponentStack{
		components: initial,
	}
}

// Push adds a component to the top of the stack, sized to the last known
// window, and returns its Init command.
func (s *ComponentStack) Push(c Component) tea.Cmd {
	if s.width > 0 || s.height > 0 {
		c.Resize(s.width, s.height)
	}
	s.components = append(s.components, c)
	return c.Init()
}

// Pop removes the top component if there is more than one component on the
// stack.
func (s *ComponentStack) Pop() {
	if len(s.components) <= 1 {
		return
	}
	s.components = s.components[:len(s.components)-1]
}

// Top returns the component on top of the stack, or nil.
func (s *ComponentStack) Top() Component {
	if len(s.components) == 0 {
		return nil
	}
	return s.components[len(s.components)-1]
}

// Len returns the number of components on the stack.
func (s *ComponentStack) Len() int {
	return len(s.components)
}

// Resize passes the window size to every component.
func (s *ComponentStack) Resize(width, height int) {
	s.width, s.height = width, height
	for _, c := range s.components {
		c.Resize(width, height)
	}
}

// IsConsumingInput returns true if the top component is consuming input.
func (s *ComponentStack) IsConsumingInput() bool {
	top := s.Top()
	return top != nil && top.IsConsumingInput()
}

// Update updates the top component on the stack.
func (s *ComponentStack) Update(msg tea.Msg) tea.Cmd {
	top := s.Top()
	if top == nil {
		return nil
	}
	newComp, cmd := top.Update(msg)
	s.components[len(s.components)-1] = newComp
	return cmd
}

// View returns the view of the top component on the stack.
func (s *ComponentStack) View() string {
	top := s.Top()
	if top == nil {
		return ""
	}
	return top.View()
}
