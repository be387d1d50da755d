package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tonimelisma/drivewhizz/internal/drive"
	"github.com/tonimelisma/drivewhizz/internal/resolver"
	"github.com/tonimelisma/drivewhizz/internal/session"
	"github.com/tonimelisma/drivewhizz/internal/summarize"
)

// DefaultCallTimeout bounds each gateway and summarizer call.
const DefaultCallTimeout = 30 * time.Second

// Sessions is the part of session.Manager the interpreter uses.
type Sessions interface {
	Active(ctx context.Context) (*session.Session, error)
	Clear(ctx context.Context) error
}

// GatewayFunc builds a Drive gateway authorized by s.
type GatewayFunc func(ctx context.Context, s *session.Session) (drive.Gateway, error)

// AuthURLFunc returns the URL a logged-out user should visit.
type AuthURLFunc func(ctx context.Context) (string, error)

// Config wires an Interpreter. Summarizer may be nil, in which case SUMMARY
// of a file reports that summarization is unavailable.
type Config struct {
	Sessions    Sessions
	Gateway     GatewayFunc
	Summarizer  summarize.Summarizer
	AuthURL     AuthURLFunc
	CallTimeout time.Duration
	Logger      *slog.Logger
}

// Interpreter executes commands. It keeps no state between lines.
type Interpreter struct {
	sessions    Sessions
	gateway     GatewayFunc
	summarizer  summarize.Summarizer
	authURL     AuthURLFunc
	callTimeout time.Duration
	logger      *slog.Logger
}

// New returns an Interpreter for cfg.
func New(cfg Config) *Interpreter {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}

	return &Interpreter{
		sessions:    cfg.Sessions,
		gateway:     cfg.Gateway,
		summarizer:  cfg.Summarizer,
		authURL:     cfg.AuthURL,
		callTimeout: timeout,
		logger:      logger,
	}
}

// Execute parses and runs one line.
func (in *Interpreter) Execute(ctx context.Context, line string) Response {
	return in.Run(ctx, Parse(line))
}

// Authenticated reports whether a usable session exists. It may refresh an
// expiring token, exactly like a command would.
func (in *Interpreter) Authenticated(ctx context.Context) (bool, error) {
	sess, err := in.sessions.Active(ctx)
	if err != nil {
		return false, err
	}

	return sess != nil, nil
}

// Run executes a parsed command. It always returns a Response; failures are
// logged and rendered as text.
func (in *Interpreter) Run(ctx context.Context, cmd Command) Response {
	switch c := cmd.(type) {
	case Help:
		return info(HelpText)
	case Unknown:
		return failure(unknownMessage(c.Raw))
	case Invalid:
		return failure(c.Message)
	}

	sess, err := in.sessions.Active(ctx)
	if err != nil {
		in.logger.Error("reading session", slog.String("command", cmd.Keyword()), slog.String("error", err.Error()))
		return failure(MsgSessionError)
	}

	switch cmd.(type) {
	case Auth:
		return in.auth(ctx, sess)
	case Logout:
		return in.logout(ctx)
	}

	if sess == nil {
		return failure(MsgNotAuthenticated)
	}

	gw, err := in.gateway(ctx, sess)
	if err != nil {
		in.logger.Error("building drive gateway", slog.String("error", err.Error()))
		return failure("Error: Could not connect to Google Drive.")
	}

	gw = drive.WithTimeout(gw, in.callTimeout)
	x := &execution{in: in, gw: gw, res: resolver.New(gw, in.logger)}

	switch c := cmd.(type) {
	case List:
		return x.list(ctx, c)
	case Delete:
		return x.delete(ctx, c)
	case Move:
		return x.move(ctx, c)
	case Summary:
		return x.summary(ctx, c)
	default:
		return failure(unknownMessage(cmd.Keyword()))
	}
}

func (in *Interpreter) auth(ctx context.Context, sess *session.Session) Response {
	if sess != nil {
		return info(MsgAlreadyAuthed)
	}

	if in.authURL == nil {
		return failure("Error: Authentication is not available here.")
	}

	u, err := in.authURL(ctx)
	if err != nil {
		in.logger.Error("building authorization url", slog.String("error", err.Error()))
		return failure("Error: Could not start authentication.")
	}

	return Response{
		Message: "Please visit the following URL to authenticate:\n" + u,
		Kind:    KindAuth,
		AuthURL: u,
	}
}

func (in *Interpreter) logout(ctx context.Context) Response {
	if err := in.sessions.Clear(ctx); err != nil {
		in.logger.Error("clearing session", slog.String("error", err.Error()))
		return failure("Error: Could not log out. Please try again.")
	}

	return info(MsgLoggedOut)
}

// execution holds the per-line collaborators of an authenticated command.
type execution struct {
	in  *Interpreter
	gw  drive.Gateway
	res *resolver.Resolver
}

func (x *execution) list(ctx context.Context, c List) Response {
	folder, err := x.res.ResolveFolder(ctx, c.Path)
	if err != nil {
		return x.errorResponse("list", err)
	}

	items, err := x.res.Children(ctx, folder)
	if err != nil {
		return x.errorResponse("list", err)
	}

	return Response{
		Message: fmt.Sprintf("Contents of %s:", c.Path),
		Items:   items,
		Kind:    KindListing,
	}
}

func (x *execution) delete(ctx context.Context, c Delete) Response {
	if !c.Confirmed {
		return Response{
			Message: fmt.Sprintf("Are you sure you want to delete \"%s\"? Please reply with `DELETE %s confirm` to proceed.",
				c.Path, c.Path),
			Kind: KindConfirm,
		}
	}

	item, err := x.res.Resolve(ctx, c.Path)
	if err != nil {
		return x.errorResponse("delete", err)
	}

	if item.ID == drive.RootID {
		return failure("Error: The root folder cannot be deleted.")
	}

	if err := x.gw.Delete(ctx, item.ID); err != nil {
		return x.errorResponse("delete", err)
	}

	x.in.logger.Info("deleted item", slog.String("path", item.Path), slog.String("id", item.ID))

	return info(fmt.Sprintf("Successfully deleted \"%s\"", c.Path))
}

func (x *execution) move(ctx context.Context, c Move) Response {
	src, err := x.res.Resolve(ctx, c.Source)
	if err != nil {
		return x.errorResponse("move", err)
	}

	if src.ID == drive.RootID {
		return failure("Error: The root folder cannot be moved.")
	}

	dest, err := x.res.ResolveFolder(ctx, c.Dest)
	if errors.Is(err, resolver.ErrNotAFolder) {
		return failure(fmt.Sprintf("Error: Destination \"%s\" is not a folder.", c.Dest))
	}

	if err != nil {
		return x.errorResponse("move", err)
	}

	meta, err := x.gw.GetMetadata(ctx, src.ID)
	if err != nil {
		return x.errorResponse("move", err)
	}

	if err := x.gw.Move(ctx, src.ID, dest.ID, meta.Parents); err != nil {
		return x.errorResponse("move", err)
	}

	x.in.logger.Info("moved item",
		slog.String("source", src.Path),
		slog.String("dest", dest.Path),
		slog.String("id", src.ID),
	)

	return info(fmt.Sprintf("Successfully moved \"%s\" to \"%s\"", c.Source, c.Dest))
}

func (x *execution) summary(ctx context.Context, c Summary) Response {
	if c.Path == "" {
		return x.summaryCandidates(ctx)
	}

	file, err := x.res.ResolveFile(ctx, c.Path)
	if err != nil {
		return x.errorResponse("summary", err)
	}

	if x.in.summarizer == nil {
		return failure("Error: Summarization is not configured.")
	}

	content, err := x.gw.GetContent(ctx, file.ID)
	if err != nil {
		return x.errorResponse("summary", err)
	}

	sctx, cancel := context.WithTimeout(ctx, x.in.callTimeout)
	defer cancel()

	text, err := x.in.summarizer.Summarize(sctx, summarize.Blob{MimeType: content.MimeType, Data: content.Data})
	if err != nil {
		x.in.logger.Error("summarizing file",
			slog.String("path", file.Path),
			slog.String("mime_type", content.MimeType),
			slog.String("error", err.Error()),
		)

		return failure(MsgSummaryFailed)
	}

	return info(fmt.Sprintf("Summary for %s:\n%s", file.Name, text))
}

func (x *execution) summaryCandidates(ctx context.Context) Response {
	files, err := x.res.Files(ctx, resolver.Root())
	if err != nil {
		x.in.logger.Error("listing files for summary", slog.String("error", err.Error()))
		return failure("Which file would you like to summarize? I couldn't list the files.")
	}

	if len(files) == 0 {
		return info("There are no files to summarize.")
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.Path)
	}

	return Response{
		Message: "Which file would you like to summarize? Please use `SUMMARY /path/to/file`. Available files:\n - " +
			strings.Join(paths, "\n - "),
		Items: files,
		Kind:  KindInfo,
	}
}

// errorResponse renders resolver and gateway errors. Anything else is logged
// and reported generically.
func (x *execution) errorResponse(op string, err error) Response {
	var (
		nf *resolver.NotFoundError
		ke *resolver.KindError
		ge *drive.GatewayError
	)

	switch {
	case errors.As(err, &nf):
		return failure(fmt.Sprintf("Error: Path not found at \"%s\"", nf.Prefix))
	case errors.As(err, &ke) && errors.Is(err, resolver.ErrNotAFolder):
		return failure(fmt.Sprintf("Error: Not a folder \"%s\"", ke.Path))
	case errors.As(err, &ke):
		return failure(fmt.Sprintf("Error: Not a file \"%s\"", ke.Path))
	case errors.As(err, &ge):
		x.in.logger.Warn("drive call failed",
			slog.String("command", op),
			slog.String("op", ge.Op),
			slog.String("error", err.Error()),
		)

		return failure(fmt.Sprintf("Error: Drive %s failed: %s", ge.Op, ge.Message))
	default:
		x.in.logger.Error("command failed", slog.String("command", op), slog.String("error", err.Error()))
		return failure("Error: Something went wrong. Please try again.")
	}
}

func unknownMessage(raw string) string {
	return `Unknown command: "` + raw + `". Type "HELP" for a list of commands.`
}
