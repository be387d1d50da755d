// Package command parses chat lines into typed commands and executes them
// against a Drive account.
package command

import (
	"strings"
)

// Command is one parsed input line. The set of implementations is closed.
type Command interface {
	// Keyword returns the upper-case command keyword, or "" for Unknown.
	Keyword() string
	sealed()
}

// List shows a folder's immediate children.
type List struct{ Path string }

// Delete removes an item once Confirmed is set.
type Delete struct {
	Path      string
	Confirmed bool
}

// Move re-parents Source under the folder Dest.
type Move struct{ Source, Dest string }

// Summary summarizes the file at Path, or lists candidates when Path is empty.
type Summary struct{ Path string }

// Help shows the command reference.
type Help struct{}

// Auth starts authentication.
type Auth struct{}

// Logout ends the session.
type Logout struct{}

// Unknown is any line whose first word is not a keyword.
type Unknown struct{ Raw string }

// Invalid is a known keyword with the wrong number of arguments.
type Invalid struct {
	Name    string
	Message string
}

func (List) Keyword() string    { return KeywordList }
func (Delete) Keyword() string  { return KeywordDelete }
func (Move) Keyword() string    { return KeywordMove }
func (Summary) Keyword() string { return KeywordSummary }
func (Help) Keyword() string    { return KeywordHelp }
func (Auth) Keyword() string    { return KeywordAuth }
func (Logout) Keyword() string  { return KeywordLogout }
func (Unknown) Keyword() string { return "" }
func (i Invalid) Keyword() string {
	return i.Name
}

func (List) sealed()    {}
func (Delete) sealed()  {}
func (Move) sealed()    {}
func (Summary) sealed() {}
func (Help) sealed()    {}
func (Auth) sealed()    {}
func (Logout) sealed()  {}
func (Unknown) sealed() {}
func (Invalid) sealed() {}

// Command keywords.
const (
	KeywordList    = "LIST"
	KeywordDelete  = "DELETE"
	KeywordMove    = "MOVE"
	KeywordSummary = "SUMMARY"
	KeywordHelp    = "HELP"
	KeywordAuth    = "AUTH"
	KeywordLogout  = "LOGOUT"
)

const confirmToken = "confirm"

// Parse turns one line into a Command. Only the keyword is case-insensitive;
// arguments are kept verbatim.
func Parse(line string) Command {
	raw := strings.TrimSpace(line)
	fields := strings.Fields(raw)

	if len(fields) == 0 {
		return Unknown{Raw: raw}
	}

	keyword := strings.ToUpper(fields[0])
	args := fields[1:]

	switch keyword {
	case KeywordList:
		switch len(args) {
		case 0:
			return List{Path: "/"}
		case 1:
			return List{Path: args[0]}
		default:
			return invalid(keyword, "Error: LIST takes a single path, e.g. `LIST /path/to/folder`.")
		}

	case KeywordDelete:
		switch len(args) {
		case 0:
			return invalid(keyword, "Error: Please specify a file path to delete.")
		case 1:
			return Delete{Path: args[0]}
		case 2:
			return Delete{Path: args[0], Confirmed: strings.EqualFold(args[1], confirmToken)}
		default:
			return invalid(keyword, "Error: Too many arguments. Use `DELETE /path/to/file`.")
		}

	case KeywordMove:
		if len(args) != 2 {
			return invalid(keyword, "Error: Please specify a source and destination for MOVE.")
		}

		return Move{Source: args[0], Dest: args[1]}

	case KeywordSummary:
		switch len(args) {
		case 0:
			return Summary{}
		case 1:
			return Summary{Path: args[0]}
		default:
			return invalid(keyword, "Error: SUMMARY takes a single path, e.g. `SUMMARY /path/to/file`.")
		}

	case KeywordHelp, KeywordAuth, KeywordLogout:
		if len(args) != 0 {
			return invalid(keyword, "Error: "+keyword+" takes no arguments.")
		}

		switch keyword {
		case KeywordHelp:
			return Help{}
		case KeywordAuth:
			return Auth{}
		default:
			return Logout{}
		}

	default:
		return Unknown{Raw: raw}
	}
}

func invalid(keyword, msg string) Invalid {
	return Invalid{Name: keyword, Message: msg}
}
