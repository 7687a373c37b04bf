package core

import "encoding/json"

// Clone returns a deep copy of the collection.
func (c Collection) Clone() Collection {
	c.Item = c.Item.Clone()
	c.Auth = c.Auth.Clone()
	return c
}

// Clone returns a deep copy of the node list. A nil list stays nil.
func (n Nodes) Clone() Nodes {
	if n == nil {
		return nil
	}
	out := make(Nodes, len(n))
	for i, node := range n {
		switch v := node.(type) {
		case Item:
			v.Request = v.Request.Clone()
			out[i] = v
		case Folder:
			v.Item = v.Item.Clone()
			out[i] = v
		default:
			out[i] = node
		}
	}
	return out
}

// Clone returns a deep copy of the saved request.
func (r CollectionRequest) Clone() CollectionRequest {
	r.URL.Host = cloneSlice(r.URL.Host)
	r.URL.Path = cloneSlice(r.URL.Path)
	r.Auth = r.Auth.Clone()
	r.Header = cloneSlice(r.Header)
	if r.Body != nil {
		body := *r.Body
		if body.Options != nil {
			opts := *body.Options
			if opts.Raw != nil {
				raw := *opts.Raw
				opts.Raw = &raw
			}
			body.Options = &opts
		}
		r.Body = &body
	}
	return r
}

// Clone returns a deep copy of the auth block; nil stays nil.
func (a *CollectionAuth) Clone() *CollectionAuth {
	if a == nil {
		return nil
	}
	out := *a
	out.Bearer = cloneAuthValues(a.Bearer)
	out.OAuth2 = cloneAuthValues(a.OAuth2)
	out.APIKey = cloneAuthValues(a.APIKey)
	return &out
}

func cloneAuthValues(values []AuthValue) []AuthValue {
	out := cloneSlice(values)
	for i := range out {
		if out[i].Value.Raw != nil {
			out[i].Value.Raw = append(json.RawMessage(nil), out[i].Value.Raw...)
		}
	}
	return out
}

// Clone returns a deep copy of the environment.
func (e EnvironmentFile) Clone() EnvironmentFile {
	e.Values = cloneSlice(e.Values)
	return e
}

// Clone returns a deep copy of the tab.
func (t Tab) Clone() Tab {
	t.ReqHeaders = cloneSlice(t.ReqHeaders)
	t.ResHeaders = cloneSlice(t.ResHeaders)
	return t
}

// Clone returns a deep copy of the request row.
func (r DBRequest) Clone() DBRequest {
	r.Headers = cloneSlice(r.Headers)
	if r.Body != nil {
		body := *r.Body
		r.Body = &body
	}
	return r
}

// Clone returns a deep copy of the response row.
func (r DBResponse) Clone() DBResponse {
	r.Headers = cloneSlice(r.Headers)
	if r.Body != nil {
		body := *r.Body
		r.Body = &body
	}
	return r
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}
