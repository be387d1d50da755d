// Package drive defines the storage gateway used by the command interpreter
// and its two implementations: GoogleGateway over the Drive v3 API and
// MemoryGateway, an in-process tree used by tests and the demo mode.
package drive

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// RootID is the alias Drive accepts for the caller's My Drive root.
const RootID = "root"

// FolderMimeType marks folders in Drive.
const FolderMimeType = "application/vnd.google-apps.folder"

// nativePrefix prefixes Google Docs, Sheets, Slides and other formats with no
// downloadable byte stream.
const nativePrefix = "application/vnd.google-apps."

// ExportMimeType is the rendering requested for native documents.
const ExportMimeType = "application/pdf"

// Kind distinguishes folders from files.
type Kind int

const (
	KindFile Kind = iota
	KindFolder
)

func (k Kind) String() string {
	if k == KindFolder {
		return "folder"
	}

	return "file"
}

// MarshalText lets Kind render as "file"/"folder" in JSON responses.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts the MarshalText forms.
func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "folder":
		*k = KindFolder
	case "file":
		*k = KindFile
	default:
		return fmt.Errorf("drive: unknown item kind %q", text)
	}

	return nil
}

// KindOf derives an item's kind from its MIME type.
func KindOf(mimeType string) Kind {
	if mimeType == FolderMimeType {
		return KindFolder
	}

	return KindFile
}

// IsNative reports whether mimeType is a Google-native document that must be
// exported rather than downloaded.
func IsNative(mimeType string) bool {
	return strings.HasPrefix(mimeType, nativePrefix) && mimeType != FolderMimeType
}

// Item is one file or folder. Path is the virtual path it was reached by; it
// is filled in by whoever walked to the item and is never stored.
type Item struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	MimeType string   `json:"mimeType"`
	Kind     Kind     `json:"kind"`
	Path     string   `json:"path,omitempty"`
	Parents  []string `json:"-"`
}

// IsFolder reports whether the item is a folder.
func (it *Item) IsFolder() bool {
	return it.Kind == KindFolder
}

// Content is a downloaded file body and the MIME type it was served as.
type Content struct {
	Data     []byte
	MimeType string
}

// SortItems orders a listing with folders first, then by name, then by ID.
func SortItems(items []Item) {
	slices.SortFunc(items, func(a, b Item) int {
		if a.Kind != b.Kind {
			return cmp.Compare(b.Kind, a.Kind)
		}

		return cmp.Or(strings.Compare(a.Name, b.Name), strings.Compare(a.ID, b.ID))
	})
}

// JoinPath appends name to a virtual directory path.
func JoinPath(dir, name string) string {
	if dir == "" || dir == "/" {
		return "/" + name
	}

	return strings.TrimSuffix(dir, "/") + "/" + name
}
