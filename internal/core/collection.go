package core

import (
	"encoding/json"
	"fmt"
)

// PostmanSchemaV21 is the schema URL written into exported collections.
const PostmanSchemaV21 = "https://schema.getpostman.com/json/collection/v2.1.0/collection.json"

// Collection is a Postman v2.1 compatible, tree-shaped set of saved requests.
// The whole document is the unit of persistence: every save replaces it.
type Collection struct {
	Info CollectionInfo  `json:"info"`
	Item Nodes           `json:"item"`
	Auth *CollectionAuth `json:"auth,omitempty"`
}

// CollectionInfo identifies a collection. ID is the stable identity.
type CollectionInfo struct {
	ID          string `json:"_postman_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Schema      string `json:"schema,omitempty"`
}

// NewCollection returns an empty collection with the given identity.
func NewCollection(id, name, description string) Collection {
	return Collection{
		Info: CollectionInfo{
			ID:          id,
			Name:        name,
			Description: description,
			Schema:      PostmanSchemaV21,
		},
		Item: Nodes{},
	}
}

// Node is either an Item or a Folder. The source format carries no tag;
// DecodeNode tells the two apart by key presence.
type Node interface {
	NodeName() string
	isNode()
}

// Item is a leaf of the collection tree: one saved request.
type Item struct {
	Name    string            `json:"name"`
	Request CollectionRequest `json:"request"`
}

// Folder is an inner node of the collection tree.
type Folder struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Item        Nodes  `json:"item"`
}

func (i Item) NodeName() string   { return i.Name }
func (f Folder) NodeName() string { return f.Name }
func (Item) isNode()              {}
func (Folder) isNode()            {}

// Nodes is an ordered list of tree nodes that decodes each element with
// DecodeNode, so the Item/Folder rule holds at every depth.
type Nodes []Node

// UnmarshalJSON decodes a JSON array of items and folders.
func (n *Nodes) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return fmt.Errorf("%w: item must be an array: %v", ErrParse, err)
	}

	nodes := make(Nodes, 0, len(raws))
	for i, raw := range raws {
		node, err := DecodeNode(raw)
		if err != nil {
			return fmt.Errorf("item[%d]: %w", i, err)
		}
		nodes = append(nodes, node)
	}
	*n = nodes
	return nil
}

// DecodeNode decodes a single tree node. An object holding a "request" key
// is an Item; otherwise an object holding an "item" key is a Folder. Any
// other input, including an object with neither key, is a parse error.
func DecodeNode(raw json.RawMessage) (Node, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil || keys == nil {
		return nil, fmt.Errorf("%w: node must be a JSON object", ErrParse)
	}

	if _, ok := keys["request"]; ok {
		var item Item
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("%w: item %q: %w", ErrParse, nameOf(keys), err)
		}
		return item, nil
	}

	if _, ok := keys["item"]; ok {
		var folder Folder
		if err := json.Unmarshal(raw, &folder); err != nil {
			return nil, fmt.Errorf("%w: folder %q: %w", ErrParse, nameOf(keys), err)
		}
		return folder, nil
	}

	return nil, fmt.Errorf("%w: node %q has neither request nor item", ErrParse, nameOf(keys))
}

func nameOf(keys map[string]json.RawMessage) string {
	var name string
	_ = json.Unmarshal(keys["name"], &name)
	return name
}

// ParseCollection decodes a collection document.
func ParseCollection(data []byte) (Collection, error) {
	var c Collection
	if err := json.Unmarshal(data, &c); err != nil {
		return Collection{}, fmt.Errorf("%w: collection: %w", ErrParse, err)
	}
	if c.Item == nil {
		c.Item = Nodes{}
	}
	return c, nil
}

// CollectionRequest is the request definition saved inside an Item.
type CollectionRequest struct {
	Method HttpMethod         `json:"method"`
	URL    URL                `json:"url"`
	Auth   *CollectionAuth    `json:"auth,omitempty"`
	Header []CollectionHeader `json:"header,omitempty"`
	Body   *CollectionBody    `json:"body,omitempty"`
}

// URL is a saved request URL. Raw is authoritative; Host and Path are the
// split form Postman writes alongside it.
type URL struct {
	Raw  string   `json:"raw"`
	Host []string `json:"host,omitempty"`
	Path []string `json:"path,omitempty"`
}

// UnmarshalJSON accepts both the object form and the bare string form.
func (u *URL) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		*u = URL{Raw: raw}
		return nil
	}

	type plain URL
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*u = URL(p)
	return nil
}

// CollectionHeader is one saved request header.
type CollectionHeader struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Type  string `json:"type,omitempty"`
}

// CollectionBody is a saved request body.
type CollectionBody struct {
	Mode    string       `json:"mode"`
	Raw     string       `json:"raw,omitempty"`
	Options *BodyOptions `json:"options,omitempty"`
}

// BodyOptions carries editor hints such as the raw body language.
type BodyOptions struct {
	Raw *RawOptions `json:"raw,omitempty"`
}

// RawOptions names the language of a raw body ("json", "text", ...).
type RawOptions struct {
	Language string `json:"language"`
}

// Headers converts the saved headers into request headers.
func (r CollectionRequest) Headers() []Header {
	if len(r.Header) == 0 {
		return nil
	}
	headers := make([]Header, 0, len(r.Header))
	for _, h := range r.Header {
		headers = append(headers, Header{Key: h.Key, Value: h.Value})
	}
	return headers
}

// FindItem walks the tree depth first and returns the first item named name.
func (c Collection) FindItem(name string) (Item, bool) {
	return findItem(c.Item, name)
}

func findItem(nodes Nodes, name string) (Item, bool) {
	for _, node := range nodes {
		switch n := node.(type) {
		case Item:
			if n.Name == name {
				return n, true
			}
		case Folder:
			if item, ok := findItem(n.Item, name); ok {
				return item, true
			}
		}
	}
	return Item{}, false
}

// CountRequests returns the number of items at any depth.
func (c Collection) CountRequests() int {
	return countItems(c.Item)
}

func countItems(nodes Nodes) int {
	count := 0
	for _, node := range nodes {
		switch n := node.(type) {
		case Item:
			count++
		case Folder:
			count += countItems(n.Item)
		}
	}
	return count
}
