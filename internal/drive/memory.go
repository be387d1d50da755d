package drive

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// node is one entry of the in-memory arena. Parent links are IDs; paths are
// derived by walking them and never stored.
type node struct {
	id       string
	name     string
	mimeType string
	parent   string
	data     []byte
}

// MemoryGateway is an in-process Gateway over an arena of nodes keyed by ID.
// All mutation goes through the Gateway methods or Add.
type MemoryGateway struct {
	mu     sync.Mutex
	nodes  map[string]*node
	nextID int
}

// NewMemoryGateway returns a gateway holding only the root folder.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		nodes: map[string]*node{
			RootID: {id: RootID, name: "/", mimeType: FolderMimeType},
		},
	}
}

// Demo MIME types.
const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeText = "text/plain"
)

// NewDemoGateway returns a MemoryGateway seeded with a small sample tree:
//
//	/ProjectX/report.pdf
//	/ProjectX/data.docx
//	/Archive/
//	/notes.txt
func NewDemoGateway() *MemoryGateway {
	g := NewMemoryGateway()

	projectX := g.MustAdd(RootID, "ProjectX", FolderMimeType, nil)
	g.MustAdd(projectX, "report.pdf", mimePDF, []byte(
		"This is the main project report for ProjectX. It details the project goals, milestones, "+
			"and outcomes. The project was a success and met all its key performance indicators."))
	g.MustAdd(projectX, "data.docx", mimeDOCX, []byte(
		"This document contains raw data collected during the ProjectX research phase. "+
			"The data includes survey responses and experimental results."))
	g.MustAdd(RootID, "Archive", FolderMimeType, nil)
	g.MustAdd(RootID, "notes.txt", mimeText, []byte(
		"Quick notes: Remember to follow up with the marketing team. "+
			"Also, prepare the presentation for the quarterly review."))

	return g
}

// Add creates a child of parentID and returns its ID. Duplicate names are
// allowed, as in Drive.
func (g *MemoryGateway) Add(parentID, name, mimeType string, data []byte) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	parent, ok := g.nodes[parentID]
	if !ok {
		return "", newError("add", ErrNotFound, fmt.Sprintf("parent %q not found", parentID))
	}

	if KindOf(parent.mimeType) != KindFolder {
		return "", newError("add", ErrGateway, fmt.Sprintf("parent %q is not a folder", parent.name))
	}

	g.nextID++
	id := "mem-" + strconv.Itoa(g.nextID)
	g.nodes[id] = &node{id: id, name: name, mimeType: mimeType, parent: parentID, data: slices.Clone(data)}

	return id, nil
}

// MustAdd is Add for fixtures; it panics on error.
func (g *MemoryGateway) MustAdd(parentID, name, mimeType string, data []byte) string {
	id, err := g.Add(parentID, name, mimeType, data)
	if err != nil {
		panic(err)
	}

	return id
}

// Len returns the number of items, excluding the root.
func (g *MemoryGateway) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.nodes) - 1
}

func (g *MemoryGateway) ListChildren(ctx context.Context, folderID string) ([]Item, error) {
	return g.children(ctx, "list", folderID, func(*node) bool { return true })
}

func (g *MemoryGateway) FindChildren(ctx context.Context, folderID, name string) ([]Item, error) {
	return g.children(ctx, "find", folderID, func(n *node) bool { return n.name == name })
}

func (g *MemoryGateway) children(ctx context.Context, op, folderID string, keep func(*node) bool) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, classify(op, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[folderID]; !ok {
		return nil, newError(op, ErrNotFound, fmt.Sprintf("folder %q not found", folderID))
	}

	var items []Item

	for _, n := range g.nodes {
		if n.id != RootID && n.parent == folderID && keep(n) {
			items = append(items, n.item())
		}
	}

	// Map order is random; return a stable order like a real listing would.
	slices.SortFunc(items, func(a, b Item) int { return compareIDs(a.ID, b.ID) })

	return items, nil
}

func (g *MemoryGateway) GetMetadata(ctx context.Context, id string) (*Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, classify("get", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, newError("get", ErrNotFound, fmt.Sprintf("item %q not found", id))
	}

	item := n.item()

	return &item, nil
}

// GetContent returns the stored bytes. Native documents are served as PDF,
// mirroring the Drive export fallback.
func (g *MemoryGateway) GetContent(ctx context.Context, id string) (*Content, error) {
	if err := ctx.Err(); err != nil {
		return nil, classify("download", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, newError("download", ErrNotFound, fmt.Sprintf("item %q not found", id))
	}

	if KindOf(n.mimeType) == KindFolder {
		return nil, newError("download", ErrGateway, fmt.Sprintf("%q is a folder", n.name))
	}

	mimeType := n.mimeType
	if IsNative(mimeType) {
		mimeType = ExportMimeType
	}

	return &Content{Data: slices.Clone(n.data), MimeType: mimeType}, nil
}

// Delete removes the item and, for folders, everything beneath it.
func (g *MemoryGateway) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return classify("delete", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if id == RootID {
		return newError("delete", ErrForbidden, "the root folder cannot be deleted")
	}

	if _, ok := g.nodes[id]; !ok {
		return newError("delete", ErrNotFound, fmt.Sprintf("item %q not found", id))
	}

	doomed := []string{id}
	for i := 0; i < len(doomed); i++ {
		for _, n := range g.nodes {
			if n.parent == doomed[i] && n.id != RootID {
				doomed = append(doomed, n.id)
			}
		}
	}

	for _, d := range doomed {
		delete(g.nodes, d)
	}

	return nil
}

// Move re-parents id under newParentID. oldParentIDs must name the item's
// current parent, as the Drive API requires.
func (g *MemoryGateway) Move(ctx context.Context, id, newParentID string, oldParentIDs []string) error {
	if err := ctx.Err(); err != nil {
		return classify("move", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.nodes[id]
	if !ok || id == RootID {
		return newError("move", ErrNotFound, fmt.Sprintf("item %q not found", id))
	}

	dest, ok := g.nodes[newParentID]
	if !ok {
		return newError("move", ErrNotFound, fmt.Sprintf("folder %q not found", newParentID))
	}

	if KindOf(dest.mimeType) != KindFolder {
		return newError("move", ErrGateway, fmt.Sprintf("%q is not a folder", dest.name))
	}

	if !slices.Contains(oldParentIDs, n.parent) {
		return newError("move", ErrGateway, "old parents do not match the item's current parent")
	}

	for cur := newParentID; cur != ""; cur = g.nodes[cur].parent {
		if cur == id {
			return newError("move", ErrGateway, "a folder cannot be moved into itself")
		}
	}

	n.parent = newParentID

	return nil
}

func (n *node) item() Item {
	var parents []string
	if n.parent != "" {
		parents = []string{n.parent}
	}

	return Item{
		ID:       n.id,
		Name:     n.name,
		MimeType: n.mimeType,
		Kind:     KindOf(n.mimeType),
		Parents:  parents,
	}
}

// compareIDs orders "mem-2" before "mem-10".
func compareIDs(a, b string) int {
	return cmp.Or(cmp.Compare(len(a), len(b)), strings.Compare(a, b))
}
