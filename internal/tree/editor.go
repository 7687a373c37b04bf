// Package tree edits collection trees. Every edit loads the whole collection,
// rebuilds the affected branch and saves the whole document back. Edits to
// the same collection are serialized; edits to different collections are not.
package tree

import (
	"context"
	"fmt"

	"github.com/mblydenburgh/postie/internal/core"
	"github.com/mblydenburgh/postie/internal/storage"
)

// Editor applies path-addressed edits to stored collections.
//
// A path is a list of folder names from the collection root. Each segment
// descends into the first folder at that level with a matching name. An
// empty path addresses the top level of the collection.
type Editor struct {
	store  storage.Store
	locks  *keyedMutex
	logger core.Logger
}

// Option configures an Editor.
type Option func(*Editor)

// WithLogger sets the logger.
func WithLogger(logger core.Logger) Option {
	return func(e *Editor) {
		e.logger = logger
	}
}

// NewEditor creates an Editor over store.
func NewEditor(store storage.Store, opts ...Option) *Editor {
	e := &Editor{
		store:  store,
		locks:  newKeyedMutex(),
		logger: core.NopLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddRequest appends item to the folder at folderPath.
func (e *Editor) AddRequest(ctx context.Context, collectionID string, folderPath []string, item core.Item) error {
	return e.update(ctx, collectionID, "add request", func(nodes core.Nodes) (core.Nodes, error) {
		return editAt(nodes, folderPath, func(children core.Nodes) (core.Nodes, error) {
			return appendNode(children, item), nil
		})
	})
}

// AddFolder appends an empty folder named name under parentPath.
func (e *Editor) AddFolder(ctx context.Context, collectionID string, parentPath []string, name string) error {
	folder := core.Folder{Name: name, Item: core.Nodes{}}
	return e.update(ctx, collectionID, "add folder", func(nodes core.Nodes) (core.Nodes, error) {
		return editAt(nodes, parentPath, func(children core.Nodes) (core.Nodes, error) {
			return appendNode(children, folder), nil
		})
	})
}

// Save stores c as a whole document, replacing any collection with the same
// ID. It waits for edits in progress on that collection.
func (e *Editor) Save(ctx context.Context, c core.Collection) error {
	unlock := e.locks.Lock(c.Info.ID)
	defer unlock()

	if err := e.store.SaveCollection(ctx, c); err != nil {
		return fmt.Errorf("failed to save collection: %w", err)
	}
	e.logger.Debug("collection saved", "collection", c.Info.ID)
	return nil
}

// DeleteCollection removes the collection and everything in it.
func (e *Editor) DeleteCollection(ctx context.Context, collectionID string) error {
	unlock := e.locks.Lock(collectionID)
	defer unlock()

	if err := e.store.DeleteCollection(ctx, collectionID); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	e.logger.Info("collection deleted", "collection", collectionID)
	return nil
}

// DeleteFolder removes every folder named by the last segment of folderPath
// from the level addressed by the segments before it. Siblings are kept.
func (e *Editor) DeleteFolder(ctx context.Context, collectionID string, folderPath []string) error {
	if len(folderPath) == 0 {
		return fmt.Errorf("failed to delete folder: empty path: %w", core.ErrNotFound)
	}
	parent, name := folderPath[:len(folderPath)-1], folderPath[len(folderPath)-1]

	return e.update(ctx, collectionID, "delete folder", func(nodes core.Nodes) (core.Nodes, error) {
		return editAt(nodes, parent, func(children core.Nodes) (core.Nodes, error) {
			kept, removed := removeWhere(children, func(n core.Node) bool {
				f, ok := n.(core.Folder)
				return ok && f.Name == name
			})
			if removed == 0 {
				return nil, fmt.Errorf("folder %q: %w", name, core.ErrNotFound)
			}
			return kept, nil
		})
	})
}

// DeleteRequest removes every request named name from the folder at
// folderPath. An empty path targets top-level requests.
func (e *Editor) DeleteRequest(ctx context.Context, collectionID string, folderPath []string, name string) error {
	return e.update(ctx, collectionID, "delete request", func(nodes core.Nodes) (core.Nodes, error) {
		return editAt(nodes, folderPath, func(children core.Nodes) (core.Nodes, error) {
			kept, removed := removeWhere(children, func(n core.Node) bool {
				i, ok := n.(core.Item)
				return ok && i.Name == name
			})
			if removed == 0 {
				return nil, fmt.Errorf("request %q: %w", name, core.ErrNotFound)
			}
			return kept, nil
		})
	})
}

// AddRequestToFolder adds item to the top-level folder named folder.
func (e *Editor) AddRequestToFolder(ctx context.Context, collectionID string, item core.Item, folder string) error {
	return e.AddRequest(ctx, collectionID, pathOf(folder), item)
}

// DeleteCollectionFolder removes the top-level folders named folder.
func (e *Editor) DeleteCollectionFolder(ctx context.Context, collectionID, folder string) error {
	return e.DeleteFolder(ctx, collectionID, []string{folder})
}

// DeleteCollectionRequest removes the top-level requests named name.
func (e *Editor) DeleteCollectionRequest(ctx context.Context, collectionID, name string) error {
	return e.DeleteRequest(ctx, collectionID, nil, name)
}

// DeleteFolderRequest removes the requests named name from the top-level
// folder named folder.
func (e *Editor) DeleteFolderRequest(ctx context.Context, collectionID, folder, name string) error {
	return e.DeleteRequest(ctx, collectionID, []string{folder}, name)
}

func (e *Editor) update(ctx context.Context, collectionID, op string, fn func(core.Nodes) (core.Nodes, error)) error {
	unlock := e.locks.Lock(collectionID)
	defer unlock()

	collection, err := e.store.GetCollection(ctx, collectionID)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	nodes, err := fn(collection.Item)
	if err != nil {
		return fmt.Errorf("failed to %s in collection %q: %w", op, collectionID, err)
	}
	collection.Item = nodes

	if err := e.store.SaveCollection(ctx, collection); err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	e.logger.Debug("collection updated", "collection", collectionID, "op", op)
	return nil
}

// editAt rebuilds nodes with fn applied to the child list at path. The input
// slices are never modified.
func editAt(nodes core.Nodes, path []string, fn func(core.Nodes) (core.Nodes, error)) (core.Nodes, error) {
	if len(path) == 0 {
		return fn(nodes)
	}

	for i, node := range nodes {
		folder, ok := node.(core.Folder)
		if !ok || folder.Name != path[0] {
			continue
		}
		children, err := editAt(folder.Item, path[1:], fn)
		if err != nil {
			return nil, err
		}
		folder.Item = children

		out := make(core.Nodes, len(nodes))
		copy(out, nodes)
		out[i] = folder
		return out, nil
	}
	return nil, fmt.Errorf("folder %q: %w", path[0], core.ErrNotFound)
}

func appendNode(nodes core.Nodes, node core.Node) core.Nodes {
	out := make(core.Nodes, 0, len(nodes)+1)
	out = append(out, nodes...)
	return append(out, node)
}

func removeWhere(nodes core.Nodes, match func(core.Node) bool) (core.Nodes, int) {
	out := make(core.Nodes, 0, len(nodes))
	removed := 0
	for _, node := range nodes {
		if match(node) {
			removed++
			continue
		}
		out = append(out, node)
	}
	return out, removed
}

func pathOf(folder string) []string {
	if folder == "" {
		return nil
	}
	return []string{folder}
}
