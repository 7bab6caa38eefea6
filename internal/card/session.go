package card

// DefaultAgent is the agent id used when a session does not name one.
const DefaultAgent = "claude"

// Session is the caller's selection state. It is passed explicitly into
// every operation that depends on it.
type Session struct {
	ActiveProject string `yaml:"active_project,omitempty" json:"active_project,omitempty"`
	AgentID       string `yaml:"agent,omitempty" json:"agent,omitempty"`
}

// ProjectMode reports whether the session is scoped to a project. Without
// an active project every card is visible.
func (s Session) ProjectMode() bool {
	return s.ActiveProject != ""
}

// Agent returns the session agent or DefaultAgent.
func (s Session) Agent() string {
	if s.AgentID == "" {
		return DefaultAgent
	}
	return s.AgentID
}

// Visible reports whether c belongs to the session's project scope.
func (s Session) Visible(c Card) bool {
	return !s.ProjectMode() || c.Project == s.ActiveProject
}
