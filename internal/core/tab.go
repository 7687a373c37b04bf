package core

// Tab is one open request/response session. Tabs are upserted by ID after
// every submission and removed only on close.
type Tab struct {
	ID         string     `json:"id"`
	Method     HttpMethod `json:"method"`
	URL        string     `json:"url"`
	ReqBody    string     `json:"req_body"`
	ReqHeaders []Header   `json:"req_headers"`
	ResStatus  string     `json:"res_status,omitempty"`
	ResBody    string     `json:"res_body"`
	ResHeaders []Header   `json:"res_headers"`
}

// NewTab returns an empty GET tab.
func NewTab(id string) Tab {
	return Tab{
		ID:         id,
		Method:     MethodGet,
		ReqHeaders: []Header{},
		ResHeaders: []Header{},
	}
}
