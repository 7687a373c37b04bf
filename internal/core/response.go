package core

import (
	"encoding/json"
	"strings"
	"time"
)

// DBResponse is the persisted copy of a received response. Rows are append
// only.
type DBResponse struct {
	ID         string   `json:"id"`
	StatusCode int      `json:"status_code"`
	Name       string   `json:"name,omitempty"`
	Headers    []Header `json:"headers"`
	Body       *string  `json:"body,omitempty"`
}

// RequestHistoryItem links one persisted request to its response. It is
// written once per execution and never changed.
type RequestHistoryItem struct {
	ID           string    `json:"id"`
	RequestID    string    `json:"request_id"`
	ResponseID   string    `json:"response_id"`
	SentAt       time.Time `json:"sent_at"`
	ResponseTime int64     `json:"response_time"`
}

// ResponseKind is the classification of a response body.
type ResponseKind string

const (
	ResponseJSON    ResponseKind = "JSON"
	ResponseText    ResponseKind = "TEXT"
	ResponseXML     ResponseKind = "XML"
	ResponseUnknown ResponseKind = "UNKNOWN"
)

// ResponseData is a classified response body. JSON holds the decoded
// document for ResponseJSON; Text holds the raw body for ResponseText and
// ResponseXML. Both are empty for ResponseUnknown.
type ResponseData struct {
	Kind ResponseKind
	JSON any
	Text string
}

// Classify picks a ResponseKind from the declared content type by literal
// prefix match. It never fails: an unknown type or an undecodable JSON body
// yields ResponseUnknown.
func Classify(contentType string, body []byte) ResponseData {
	switch {
	case strings.HasPrefix(contentType, "application/json"):
		var doc any
		if err := json.Unmarshal(body, &doc); err != nil {
			return ResponseData{Kind: ResponseUnknown}
		}
		return ResponseData{Kind: ResponseJSON, JSON: doc}
	case strings.HasPrefix(contentType, "text/plain"), strings.HasPrefix(contentType, "text/html"):
		return ResponseData{Kind: ResponseText, Text: string(body)}
	case strings.HasPrefix(contentType, "application/xml"), strings.HasPrefix(contentType, "text/xml"):
		return ResponseData{Kind: ResponseXML, Text: string(body)}
	}
	return ResponseData{Kind: ResponseUnknown}
}

// String renders the payload for display.
func (d ResponseData) String() string {
	switch d.Kind {
	case ResponseJSON:
		out, err := json.MarshalIndent(d.JSON, "", "  ")
		if err != nil {
			return ""
		}
		return string(out)
	case ResponseText, ResponseXML:
		return d.Text
	}
	return ""
}
