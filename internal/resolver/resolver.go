// Package resolver maps slash-delimited virtual paths onto Drive items by
// walking the folder hierarchy one segment at a time.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/tonimelisma/drivewhizz/internal/drive"
)

// Sentinel errors. NotFoundError matches ErrPathNotFound with errors.Is.
var (
	ErrPathNotFound = errors.New("resolver: path not found")
	ErrNotAFolder   = errors.New("resolver: not a folder")
	ErrNotAFile     = errors.New("resolver: not a file")
)

// NotFoundError carries the path prefix at which the walk failed.
type NotFoundError struct {
	Prefix string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("path not found at %q", e.Prefix)
}

func (e *NotFoundError) Unwrap() error {
	return ErrPathNotFound
}

// KindError reports that a path resolved to the wrong kind of item.
type KindError struct {
	Path string
	Err  error // ErrNotAFolder or ErrNotAFile
}

func (e *KindError) Error() string {
	return fmt.Sprintf("%q: %s", e.Path, strings.TrimPrefix(e.Err.Error(), "resolver: "))
}

func (e *KindError) Unwrap() error {
	return e.Err
}

// Resolver walks paths against a Gateway.
type Resolver struct {
	gw     drive.Gateway
	logger *slog.Logger
}

// New returns a Resolver. A nil logger uses slog.Default().
func New(gw drive.Gateway, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}

	return &Resolver{gw: gw, logger: logger}
}

// Root returns the synthetic root folder item.
func Root() *drive.Item {
	return &drive.Item{
		ID:       drive.RootID,
		Name:     "/",
		MimeType: drive.FolderMimeType,
		Kind:     drive.KindFolder,
		Path:     "/",
	}
}

// Segments splits a virtual path, dropping empty segments.
func Segments(virtualPath string) []string {
	return strings.FieldsFunc(virtualPath, func(r rune) bool { return r == '/' })
}

// Canonical renders a virtual path in its normal "/a/b" form.
func Canonical(virtualPath string) string {
	return "/" + strings.Join(Segments(virtualPath), "/")
}

// Resolve walks virtualPath from the root with one FindChildren call per
// segment. The root itself needs no call. Among same-named siblings the one
// with the smallest ID wins.
func (r *Resolver) Resolve(ctx context.Context, virtualPath string) (*drive.Item, error) {
	current := Root()

	for _, seg := range Segments(virtualPath) {
		prefix := drive.JoinPath(current.Path, seg)

		candidates, err := r.gw.FindChildren(ctx, current.ID, seg)
		if err != nil {
			return nil, err
		}

		match := pick(candidates, seg)
		if match == nil {
			r.logger.Debug("path segment not found", slog.String("prefix", prefix))
			return nil, &NotFoundError{Prefix: prefix}
		}

		if len(candidates) > 1 {
			r.logger.Debug("duplicate names, choosing smallest id",
				slog.String("prefix", prefix),
				slog.String("id", match.ID),
				slog.Int("candidates", len(candidates)),
			)
		}

		match.Path = prefix
		current = match
	}

	return current, nil
}

// pick returns the exact, NFC-normalized name match with the smallest ID.
func pick(candidates []drive.Item, name string) *drive.Item {
	want := norm.NFC.String(name)

	var best *drive.Item

	for i := range candidates {
		c := &candidates[i]
		if norm.NFC.String(c.Name) != want {
			continue
		}

		if best == nil || c.ID < best.ID {
			best = c
		}
	}

	if best == nil {
		return nil
	}

	cp := *best

	return &cp
}

// ResolveFolder resolves virtualPath and requires a folder.
func (r *Resolver) ResolveFolder(ctx context.Context, virtualPath string) (*drive.Item, error) {
	item, err := r.Resolve(ctx, virtualPath)
	if err != nil {
		return nil, err
	}

	if !item.IsFolder() {
		return item, &KindError{Path: item.Path, Err: ErrNotAFolder}
	}

	return item, nil
}

// ResolveFile resolves virtualPath and requires a file.
func (r *Resolver) ResolveFile(ctx context.Context, virtualPath string) (*drive.Item, error) {
	item, err := r.Resolve(ctx, virtualPath)
	if err != nil {
		return nil, err
	}

	if item.IsFolder() {
		return item, &KindError{Path: item.Path, Err: ErrNotAFile}
	}

	return item, nil
}

// Children lists the folder's immediate children with their virtual paths
// filled in, folders first.
func (r *Resolver) Children(ctx context.Context, folder *drive.Item) ([]drive.Item, error) {
	items, err := r.gw.ListChildren(ctx, folder.ID)
	if err != nil {
		return nil, err
	}

	for i := range items {
		items[i].Path = drive.JoinPath(folder.Path, items[i].Name)
	}

	drive.SortItems(items)

	return items, nil
}

// SkipDir may be returned by a WalkFunc to skip a folder's contents.
var SkipDir = errors.New("resolver: skip this directory") //nolint:revive,staticcheck // mirrors fs.SkipDir

// WalkFunc is called for every descendant in depth-first order.
type WalkFunc func(item drive.Item) error

// Walk visits every descendant of root depth-first, siblings in name order.
func (r *Resolver) Walk(ctx context.Context, root *drive.Item, fn WalkFunc) error {
	children, err := r.Children(ctx, root)
	if err != nil {
		return err
	}

	slices.SortStableFunc(children, func(a, b drive.Item) int {
		return strings.Compare(a.Name, b.Name)
	})

	for i := range children {
		child := children[i]

		if err := fn(child); err != nil {
			if errors.Is(err, SkipDir) && child.IsFolder() {
				continue
			}

			return err
		}

		if child.IsFolder() {
			if err := r.Walk(ctx, &child, fn); err != nil {
				return err
			}
		}
	}

	return nil
}

// Files returns every file beneath root, paths filled in.
func (r *Resolver) Files(ctx context.Context, root *drive.Item) ([]drive.Item, error) {
	var files []drive.Item

	err := r.Walk(ctx, root, func(item drive.Item) error {
		if !item.IsFolder() {
			files = append(files, item)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}
