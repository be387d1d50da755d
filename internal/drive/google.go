package drive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/oauth2"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const (
	itemFields = "id, name, mimeType, parents"
	listFields = "nextPageToken, files(" + itemFields + ")"
	pageSize   = 1000

	// maxContentBytes caps a downloaded body; the summarizer accepts inline
	// documents up to roughly this size.
	maxContentBytes = 20 << 20
)

// GoogleGateway implements Gateway over the Drive v3 API.
type GoogleGateway struct {
	srv    *gdrive.Service
	logger *slog.Logger
}

// NewGoogleGateway builds a gateway from Drive client options. Callers pass
// option.WithTokenSource in production and option.WithHTTPClient plus
// option.WithEndpoint in tests.
func NewGoogleGateway(ctx context.Context, logger *slog.Logger, opts ...option.ClientOption) (*GoogleGateway, error) {
	if logger == nil {
		logger = slog.Default()
	}

	srv, err := gdrive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("drive: creating service: %w", err)
	}

	return &GoogleGateway{srv: srv, logger: logger}, nil
}

// NewGoogleGatewayForToken builds a gateway that authenticates with tok.
func NewGoogleGatewayForToken(ctx context.Context, tok *oauth2.Token, logger *slog.Logger) (*GoogleGateway, error) {
	return NewGoogleGateway(ctx, logger, option.WithTokenSource(oauth2.StaticTokenSource(tok)))
}

// ListChildren returns every non-trashed child of folderID.
func (g *GoogleGateway) ListChildren(ctx context.Context, folderID string) ([]Item, error) {
	return g.list(ctx, "list", fmt.Sprintf("'%s' in parents and trashed = false", quote(folderID)))
}

// FindChildren returns the non-trashed children of folderID named name.
func (g *GoogleGateway) FindChildren(ctx context.Context, folderID, name string) ([]Item, error) {
	return g.list(ctx, "find", fmt.Sprintf("'%s' in parents and name = '%s' and trashed = false", quote(folderID), quote(name)))
}

func (g *GoogleGateway) list(ctx context.Context, op, query string) ([]Item, error) {
	g.logger.Debug("listing drive items", slog.String("query", query))

	var items []Item

	err := g.srv.Files.List().
		Q(query).
		Fields(listFields).
		PageSize(pageSize).
		Context(ctx).
		Pages(ctx, func(page *gdrive.FileList) error {
			for _, f := range page.Files {
				items = append(items, toItem(f))
			}

			return nil
		})
	if err != nil {
		return nil, classify(op, err)
	}

	return items, nil
}

// GetMetadata fetches one item including its parents.
func (g *GoogleGateway) GetMetadata(ctx context.Context, id string) (*Item, error) {
	f, err := g.srv.Files.Get(id).Fields(itemFields).Context(ctx).Do()
	if err != nil {
		return nil, classify("get", err)
	}

	item := toItem(f)

	return &item, nil
}

// GetContent downloads the item's bytes. Native Google documents have no
// byte stream and are exported as PDF instead.
func (g *GoogleGateway) GetContent(ctx context.Context, id string) (*Content, error) {
	meta, err := g.GetMetadata(ctx, id)
	if err != nil {
		return nil, err
	}

	if meta.IsFolder() {
		return nil, newError("download", ErrGateway, fmt.Sprintf("%q is a folder", meta.Name))
	}

	if IsNative(meta.MimeType) {
		g.logger.Debug("exporting native document",
			slog.String("id", id),
			slog.String("mime_type", meta.MimeType),
		)

		resp, err := g.srv.Files.Export(id, ExportMimeType).Context(ctx).Download()
		if err != nil {
			return nil, classify("export", err)
		}
		defer resp.Body.Close()

		return readContent("export", resp.Body, ExportMimeType)
	}

	resp, err := g.srv.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return nil, classify("download", err)
	}
	defer resp.Body.Close()

	return readContent("download", resp.Body, meta.MimeType)
}

func readContent(op string, r io.Reader, mimeType string) (*Content, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxContentBytes+1))
	if err != nil {
		return nil, classify(op, err)
	}

	if len(data) > maxContentBytes {
		return nil, newError(op, ErrGateway, fmt.Sprintf("file is larger than %d MiB", maxContentBytes>>20))
	}

	return &Content{Data: data, MimeType: mimeType}, nil
}

// Delete permanently deletes the item, skipping the trash.
func (g *GoogleGateway) Delete(ctx context.Context, id string) error {
	if err := g.srv.Files.Delete(id).Context(ctx).Do(); err != nil {
		return classify("delete", err)
	}

	return nil
}

// Move re-parents the item in one update call.
func (g *GoogleGateway) Move(ctx context.Context, id, newParentID string, oldParentIDs []string) error {
	call := g.srv.Files.Update(id, &gdrive.File{}).
		AddParents(newParentID).
		Fields("id, parents").
		Context(ctx)

	if len(oldParentIDs) > 0 {
		call = call.RemoveParents(strings.Join(oldParentIDs, ","))
	}

	if _, err := call.Do(); err != nil {
		return classify("move", err)
	}

	return nil
}

func toItem(f *gdrive.File) Item {
	return Item{
		ID:       f.Id,
		Name:     f.Name,
		MimeType: f.MimeType,
		Kind:     KindOf(f.MimeType),
		Parents:  f.Parents,
	}
}

// quote escapes a value for use inside a single-quoted Drive query string.
func quote(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
