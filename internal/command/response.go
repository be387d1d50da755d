package command

import (
	"fmt"
	"strings"

	"github.com/tonimelisma/drivewhizz/internal/drive"
)

// Kind classifies a Response for front-ends that style replies.
type Kind string

const (
	KindInfo    Kind = "info"
	KindListing Kind = "listing"
	KindConfirm Kind = "confirm"
	KindAuth    Kind = "auth"
	KindError   Kind = "error"
)

// Response is what every command produces.
type Response struct {
	Message string       `json:"message"`
	Items   []drive.Item `json:"data,omitempty"`
	Kind    Kind         `json:"kind"`
	AuthURL string       `json:"authUrl,omitempty"`
}

// Text renders the response for a terminal: the message followed by the
// listing, if any.
func (r Response) Text() string {
	if r.Kind != KindListing {
		return r.Message
	}

	return r.Message + "\n" + RenderItems(r.Items)
}

// RenderItems formats a listing one item per line with a folder or file
// marker.
func RenderItems(items []drive.Item) string {
	if len(items) == 0 {
		return "This folder is empty."
	}

	var b strings.Builder

	for i, it := range items {
		if i > 0 {
			b.WriteByte('\n')
		}

		marker := "📄"
		if it.IsFolder() {
			marker = "📁"
		}

		fmt.Fprintf(&b, "%s %s", marker, it.Name)
	}

	return b.String()
}

// HelpText is the reply to HELP.
const HelpText = "Welcome to DriveWhizz! Here are the available commands:\n" +
	"- `LIST /path/to/folder`: Lists files and folders.\n" +
	"- `MOVE /source/path /dest/folder`: Moves a file or folder.\n" +
	"- `DELETE /path/to/file`: Deletes a file. Requires confirmation.\n" +
	"- `SUMMARY /path/to/file`: Summarizes the content of a file (PDF/Docx/TXT).\n" +
	"- `AUTH`: Connects your Google Drive account.\n" +
	"- `LOGOUT`: Signs you out.\n" +
	"- `HELP`: Shows this help message."

// Fixed replies.
const (
	MsgNotAuthenticated = "Error: Not authenticated. Please type AUTH to authenticate."
	MsgSummaryFailed    = "An error occurred while summarizing the file."
	MsgAlreadyAuthed    = "You are already authenticated."
	MsgLoggedOut        = "You have been logged out."
	MsgSessionError     = "Error: Could not read your session. Please try again."
)

// Welcome is the greeting a front-end shows when a conversation starts.
func Welcome(authenticated bool) string {
	if authenticated {
		return "Welcome back! Type 'HELP' to see what I can do."
	}

	return "Welcome to DriveWhizz! Please sign in to manage your Google Drive. " +
		"Type 'AUTH' to sign in, or 'HELP' to see available commands."
}

func info(msg string) Response {
	return Response{Message: msg, Kind: KindInfo}
}

func failure(msg string) Response {
	return Response{Message: msg, Kind: KindError}
}
