package app

import "github.com/mblydenburgh/postie/internal/core"

// Snapshot is a read-only copy of the application state. Nothing in it is
// shared with the App, except the parsed JSON of the last response, which
// the App never modifies.
type Snapshot struct {
	Version             uint64
	Collections         []core.Collection
	Environments        []core.EnvironmentFile
	SelectedEnvironment core.EnvironmentFile
	Tabs                []core.Tab
	ActiveTab           string
	History             []core.RequestHistoryItem
	Requests            map[string]core.DBRequest
	Responses           map[string]core.DBResponse
	LastResponse        *Response
	LastToken           *core.OAuthResponse
	Status              string
	Err                 error
}

// Tab returns the tab with the given ID.
func (s Snapshot) Tab(id string) (core.Tab, bool) {
	for _, t := range s.Tabs {
		if t.ID == id {
			return t, true
		}
	}
	return core.Tab{}, false
}

// Collection returns the collection with the given ID.
func (s Snapshot) Collection(id string) (core.Collection, bool) {
	for _, c := range s.Collections {
		if c.Info.ID == id {
			return c, true
		}
	}
	return core.Collection{}, false
}

type state struct {
	version      uint64
	collections  []core.Collection
	environments []core.EnvironmentFile
	selectedEnv  string
	tabs         []core.Tab
	activeTab    string
	history      []core.RequestHistoryItem
	requests     map[string]core.DBRequest
	responses    map[string]core.DBResponse
	lastResponse *Response
	lastToken    *core.OAuthResponse
	status       string
	err          error
}

func newState(defaultTab core.Tab) state {
	def := core.DefaultEnvironment()
	return state{
		collections:  []core.Collection{},
		environments: []core.EnvironmentFile{def},
		selectedEnv:  def.ID,
		tabs:         []core.Tab{defaultTab},
		activeTab:    defaultTab.ID,
		history:      []core.RequestHistoryItem{},
		requests:     map[string]core.DBRequest{},
		responses:    map[string]core.DBResponse{},
		status:       StatusReady,
	}
}

func (s *state) selectedEnvironment() core.EnvironmentFile {
	for _, env := range s.environments {
		if env.ID == s.selectedEnv {
			return env
		}
	}
	return core.DefaultEnvironment()
}

// setEnvironments keeps the default environment first and the selection
// valid.
func (s *state) setEnvironments(envs []core.EnvironmentFile) {
	def := core.DefaultEnvironment()
	all := []core.EnvironmentFile{def}
	for _, env := range envs {
		if env.ID != def.ID {
			all = append(all, env)
		}
	}
	s.environments = all

	for _, env := range all {
		if env.ID == s.selectedEnv {
			return
		}
	}
	s.selectedEnv = def.ID
}

// setTabs installs stored tabs. With nothing stored the current unsaved
// tabs are kept.
func (s *state) setTabs(tabs []core.Tab) {
	if len(tabs) == 0 {
		return
	}
	s.tabs = tabs
	for _, t := range tabs {
		if t.ID == s.activeTab {
			return
		}
	}
	s.activeTab = tabs[0].ID
}

func (s *state) upsertTab(tab core.Tab) {
	for i := range s.tabs {
		if s.tabs[i].ID == tab.ID {
			s.tabs[i] = tab
			return
		}
	}
	s.tabs = append(s.tabs, tab)
}

func (s *state) removeTab(id string) bool {
	for i := range s.tabs {
		if s.tabs[i].ID == id {
			s.tabs = append(s.tabs[:i:i], s.tabs[i+1:]...)
			return true
		}
	}
	return false
}

func (s *state) setHistory(history []core.RequestHistoryItem, requests []core.DBRequest, responses []core.DBResponse) {
	s.history = history
	s.requests = make(map[string]core.DBRequest, len(requests))
	for _, r := range requests {
		s.requests[r.ID] = r
	}
	s.responses = make(map[string]core.DBResponse, len(responses))
	for _, r := range responses {
		s.responses[r.ID] = r
	}
}

func (s *state) snapshot() Snapshot {
	snap := Snapshot{
		Version:             s.version,
		Collections:         make([]core.Collection, len(s.collections)),
		Environments:        make([]core.EnvironmentFile, len(s.environments)),
		SelectedEnvironment: s.selectedEnvironment().Clone(),
		Tabs:                make([]core.Tab, len(s.tabs)),
		ActiveTab:           s.activeTab,
		History:             append([]core.RequestHistoryItem{}, s.history...),
		Requests:            make(map[string]core.DBRequest, len(s.requests)),
		Responses:           make(map[string]core.DBResponse, len(s.responses)),
		Status:              s.status,
		Err:                 s.err,
	}
	for i, c := range s.collections {
		snap.Collections[i] = c.Clone()
	}
	for i, env := range s.environments {
		snap.Environments[i] = env.Clone()
	}
	for i, t := range s.tabs {
		snap.Tabs[i] = t.Clone()
	}
	for id, r := range s.requests {
		snap.Requests[id] = r.Clone()
	}
	for id, r := range s.responses {
		snap.Responses[id] = r.Clone()
	}
	if s.lastResponse != nil {
		resp := *s.lastResponse
		resp.Headers = append([]core.Header(nil), resp.Headers...)
		snap.LastResponse = &resp
	}
	if s.lastToken != nil {
		token := *s.lastToken
		snap.LastToken = &token
	}
	return snap
}
