package command

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/drivewhizz/internal/drive"
	"github.com/tonimelisma/drivewhizz/internal/session"
	"github.com/tonimelisma/drivewhizz/internal/summarize"
)

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// fakeSessions is a Sessions whose state the test controls.
type fakeSessions struct {
	session *session.Session
	err     error
	actives atomic.Int32
	clears  atomic.Int32
}

func (f *fakeSessions) Active(context.Context) (*session.Session, error) {
	f.actives.Add(1)
	return f.session, f.err
}

func (f *fakeSessions) Clear(context.Context) error {
	f.clears.Add(1)
	f.session = nil

	return nil
}

// countingGateway records every call that reaches the wrapped gateway.
type countingGateway struct {
	drive.Gateway
	calls   atomic.Int32
	deletes atomic.Int32
	moves   atomic.Int32
}

func (c *countingGateway) ListChildren(ctx context.Context, id string) ([]drive.Item, error) {
	c.calls.Add(1)
	return c.Gateway.ListChildren(ctx, id)
}

func (c *countingGateway) FindChildren(ctx context.Context, id, name string) ([]drive.Item, error) {
	c.calls.Add(1)
	return c.Gateway.FindChildren(ctx, id, name)
}

func (c *countingGateway) GetMetadata(ctx context.Context, id string) (*drive.Item, error) {
	c.calls.Add(1)
	return c.Gateway.GetMetadata(ctx, id)
}

func (c *countingGateway) GetContent(ctx context.Context, id string) (*drive.Content, error) {
	c.calls.Add(1)
	return c.Gateway.GetContent(ctx, id)
}

func (c *countingGateway) Delete(ctx context.Context, id string) error {
	c.calls.Add(1)
	c.deletes.Add(1)

	return c.Gateway.Delete(ctx, id)
}

func (c *countingGateway) Move(ctx context.Context, id, parent string, old []string) error {
	c.calls.Add(1)
	c.moves.Add(1)

	return c.Gateway.Move(ctx, id, parent, old)
}

// fakeSummarizer counts calls and returns a canned reply or error.
type fakeSummarizer struct {
	calls atomic.Int32
	last  summarize.Blob
	reply string
	err   error
}

func (f *fakeSummarizer) Summarize(_ context.Context, blob summarize.Blob) (string, error) {
	f.calls.Add(1)
	f.last = blob

	return f.reply, f.err
}

type harness struct {
	in        *Interpreter
	sessions  *fakeSessions
	gw        *countingGateway
	mem       *drive.MemoryGateway
	sum       *fakeSummarizer
	factories atomic.Int32
}

func newHarness(t *testing.T, mem *drive.MemoryGateway) *harness {
	t.Helper()

	h := &harness{
		sessions: &fakeSessions{session: &session.Session{AccessToken: "tok", Expiry: time.Now().Add(time.Hour)}},
		mem:      mem,
		sum:      &fakeSummarizer{reply: "- it is a report"},
	}
	h.gw = &countingGateway{Gateway: mem}

	h.in = New(Config{
		Sessions: h.sessions,
		Gateway: func(context.Context, *session.Session) (drive.Gateway, error) {
			h.factories.Add(1)
			return h.gw, nil
		},
		Summarizer:  h.sum,
		AuthURL:     func(context.Context) (string, error) { return "https://accounts.example.com/auth?state=s", nil },
		CallTimeout: time.Second,
		Logger:      testLogger(t),
	})

	return h
}

func TestExecute_Help(t *testing.T) {
	h := newHarness(t, drive.NewDemoGateway())
	h.sessions.session = nil

	resp := h.in.Execute(context.Background(), "help")
	assert.Equal(t, HelpText, resp.Message)
	assert.Equal(t, int32(0), h.sessions.actives.Load(), "HELP bypasses authentication")
}

func TestExecute_Unknown(t *testing.T) {
	h := newHarness(t, drive.NewDemoGateway())

	resp := h.in.Execute(context.Background(), "  frobnicate the drive ")
	assert.Equal(t, `Unknown command: "frobnicate the drive". Type "HELP" for a list of commands.`, resp.Message)
	assert.Equal(t, KindError, resp.Kind)
	assert.Equal(t, int32(0), h.sessions.actives.Load())
}

func TestExecute_InvalidBypassesAuth(t *testing.T) {
	h := newHarness(t, drive.NewDemoGateway())

	resp := h.in.Execute(context.Background(), "MOVE /only-one")
	assert.Equal(t, "Error: Please specify a source and destination for MOVE.", resp.Message)
	assert.Equal(t, int32(0), h.sessions.actives.Load())
}

func TestExecute_UnauthenticatedListTouchesNothing(t *testing.T) {
	h := newHarness(t, drive.NewDemoGateway())
	h.sessions.session = nil

	for _, line := range []string{"list /", "DELETE /notes.txt confirm", "MOVE /a /b", "SUMMARY", "SUMMARY /notes.txt"} {
		resp := h.in.Execute(context.Background(), line)
		assert.Equal(t, MsgNotAuthenticated, resp.Message, line)
	}

	assert.Equal(t, int32(0), h.factories.Load())
	assert.Equal(t, int32(0), h.gw.calls.Load())
	assert.Equal(t, int32(0), h.sum.calls.Load())
}

func TestExecute_SessionStoreError(t *testing.T) {
	h := newHarness(t, drive.NewDemoGateway())
	h.sessions.err = errors.New("disk on fire")

	resp := h.in.Execute(context.Background(), "LIST /")
	assert.Equal(t, MsgSessionError, resp.Message)
	assert.Equal(t, int32(0), h.gw.calls.Load())
}

func TestExecute_ListRoot(t *testing.T) {
	h := newHarness(t, drive.NewDemoGateway())

	resp := h.in.Execute(context.Background(), "LIST")
	assert.Equal(t, "Contents of /:", resp.Message)
	assert.Equal(t, KindListing, resp.Kind)
	require.Len(t, resp.Items, 3)
	assert.Equal(t, "/Archive", resp.Items[0].Path)
	assert.Equal(t, "/ProjectX", resp.Items[1].Path)
	assert.Equal(t, "/notes.txt", resp.Items[2].Path)
	assert.Equal(t, "Contents of /:\n📁 Archive\n📁 ProjectX\n📄 notes.txt", resp.Text())
}

func TestExecute_ListNested(t *testing.T) {
	h := newHarness(t, drive.NewDemoGateway())

	resp := h.in.Execute(context.Background(), "list /ProjectX")
	assert.Equal(t, "Contents of /ProjectX:", resp.Message)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "/ProjectX/data.docx", resp.Items[0].Path)
	assert.Equal(t, "/ProjectX/report.pdf", resp.Items[1].Path)
}

func TestExecute_ListEmptyFolder(t *testing.T) {
	h := newHarness(t, drive.NewDemoGateway())

	resp := h.in.Execute(context.Background(), "LIST /Archive")
	assert.Empty(t, resp.Items)
	assert.Equal(t, "Contents of /Archive:\nThis folder is empty.", resp.Text())
}

func TestExecute_ListErrors(t *testing.T) {
	h := newHarness(t, drive.NewDemoGateway())

	resp := h.in.Execute(context.Background(), "LIST /nope/deeper")
	assert.Equal(t, `Error: Path not found at "/nope"`, resp.Message)

	resp = h.in.Execute(context.Background(), "LIST /notes.txt")
	assert.Equal(t, `Error: Not a folder "/notes.txt"`, resp.Message)
}

func TestExecute_DeleteWithoutConfirmNeverDeletes(t *testing.T) {
	h := newHarness(t, drive.NewDemoGateway())

	resp := h.in.Execute(context.Background(), "delete /notes.txt")
	assert.Contains(t, resp.Message, "DELETE /notes.txt confirm")
	assert.Equal(t, KindConfirm, resp.Kind)
	assert.Equal(t, int32(0), h.gw.deletes.Load())
	assert.Equal(t, int32(0), h.gw.calls.Load(), "no gateway call at all")
	assert.Equal(t, 5, h.mem.Len())
}

func TestExecute_DeleteConfirmedDeletesOnce(t *testing.T) {
	h := newHarness(t, drive.NewDemoGateway())

	resp := h.in.Execute(context.Background(), "DELETE /notes.txt confirm")
	assert.Equal(t, `Successfully deleted "/notes.txt"`, resp.Message)
	assert.Equal(t, int32(1), h.gw.deletes.Load())
	assert.Equal(t, 4, h.mem.Len())

	resp = h.in.Execute(context.Background(), "DELETE /notes.txt confirm")
	assert.Equal(t, `Error: Path not found at "/notes.txt"`, resp.Message)
	assert.Equal(t, int32(1), h.gw.deletes.Load())
}

func TestExecute_DeleteRootRefused(t *testing.T) {
	h := newHarness(t, drive.NewDemoGateway())

	resp := h.in.Execute(context.Background(), "DELETE / confirm")
	assert.Equal(t, KindError, resp.Kind)
	assert.Equal(t, int32(0), h.gw.deletes.Load())
}

func TestExecute_MoveOntoFileFailsWithoutMutation(t *testing.T) {
	h := newHarness(t, drive.NewDemoGateway())

	resp := h.in.Execute(context.Background(), "MOVE /ProjectX/report.pdf /notes.txt")
	assert.Equal(t, `Error: Destination "/notes.txt" is not a folder.`, resp.Message)
	assert.Equal(t, int32(0), h.gw.moves.Load())
	assert.Equal(t, int32(0), h.gw.deletes.Load())
}

func TestExecute_MoveMissingPaths(t *testing.T) {
	h := newHarness(t, drive.NewDemoGateway())

	resp := h.in.Execute(context.Background(), "MOVE /missing.txt /Archive")
	assert.Equal(t, `Error: Path not found at "/missing.txt"`, resp.Message)

	resp = h.in.Execute(context.Background(), "MOVE /notes.txt /Nowhere")
	assert.Equal(t, `Error: Path not found at "/Nowhere"`, resp.Message)

	assert.Equal(t, int32(0), h.gw.moves.Load())
}

func TestExecute_Move(t *testing.T) {
	h := newHarness(t, drive.NewDemoGateway())
	ctx := context.Background()

	resp := h.in.Execute(ctx, "MOVE /notes.txt /Archive")
	assert.Equal(t, `Successfully moved "/notes.txt" to "/Archive"`, resp.Message)
	assert.Equal(t, int32(1), h.gw.moves.Load())

	resp = h.in.Execute(ctx, "LIST /Archive")
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "/Archive/notes.txt", resp.Items[0].Path)

	resp = h.in.Execute(ctx, "LIST /notes.txt")
	assert.Equal(t, `Error: Path not found at "/notes.txt"`, resp.Message)
}

func TestExecute_MoveFolderIntoItself(t *testing.T) {
	h := newHarness(t, drive.NewDemoGateway())

	resp := h.in.Execute(context.Background(), "MOVE /ProjectX /ProjectX")
	assert.Equal(t, KindError, resp.Kind)
	assert.Contains(t, resp.Message, "cannot be moved into itself")
}

func TestExecute_SummaryWithoutPathListsFiles(t *testing.T) {
	mem := drive.NewMemoryGateway()
	mem.MustAdd(drive.RootID, "a.txt", "text/plain", []byte("a"))
	b := mem.MustAdd(drive.RootID, "b", drive.FolderMimeType, nil)
	mem.MustAdd(b, "c.pdf", "application/pdf", []byte("c"))

	h := newHarness(t, mem)

	resp := h.in.Execute(context.Background(), "summary")
	assert.Contains(t, resp.Message, "/a.txt")
	assert.Contains(t, resp.Message, "/b/c.pdf")
	assert.True(t, strings.HasPrefix(resp.Message, "Which file would you like to summarize?"))
	assert.Equal(t,
		"Which file would you like to summarize? Please use `SUMMARY /path/to/file`. Available files:\n - /a.txt\n - /b/c.pdf",
		resp.Message)
	assert.Equal(t, int32(0), h.sum.calls.Load())
}

func TestExecute_SummaryOfFile(t *testing.T) {
	h := newHarness(t, drive.NewDemoGateway())

	resp := h.in.Execute(context.Background(), "SUMMARY /ProjectX/report.pdf")
	assert.Equal(t, "Summary for report.pdf:\n- it is a report", resp.Message)
	assert.Equal(t, int32(1), h.sum.calls.Load())
	assert.Equal(t, "application/pdf", h.sum.last.MimeType)
	assert.Contains(t, string(h.sum.last.Data), "project report")
}

func TestExecute_SummaryOfFolder(t *testing.T) {
	h := newHarness(t, drive.NewDemoGateway())

	resp := h.in.Execute(context.Background(), "SUMMARY /ProjectX")
	assert.Equal(t, `Error: Not a file "/ProjectX"`, resp.Message)
	assert.Equal(t, int32(0), h.sum.calls.Load())
}

func TestExecute_SummarizerFailureIsGeneric(t *testing.T) {
	h := newHarness(t, drive.NewDemoGateway())
	h.sum.err = errors.New("provider exploded: internal details")

	resp := h.in.Execute(context.Background(), "SUMMARY /notes.txt")
	assert.Equal(t, MsgSummaryFailed, resp.Message)
	assert.NotContains(t, resp.Message, "internal details")
}

func TestExecute_AuthWhenLoggedOut(t *testing.T) {
	h := newHarness(t, drive.NewDemoGateway())
	h.sessions.session = nil

	resp := h.in.Execute(context.Background(), "AUTH")
	assert.Equal(t, KindAuth, resp.Kind)
	assert.Equal(t, "https://accounts.example.com/auth?state=s", resp.AuthURL)
	assert.Contains(t, resp.Message, resp.AuthURL)
	assert.Equal(t, int32(1), h.sessions.actives.Load())
}

func TestExecute_AuthWhenLoggedIn(t *testing.T) {
	h := newHarness(t, drive.NewDemoGateway())

	resp := h.in.Execute(context.Background(), "auth")
	assert.Equal(t, MsgAlreadyAuthed, resp.Message)
	assert.Empty(t, resp.AuthURL)
}

func TestExecute_Logout(t *testing.T) {
	h := newHarness(t, drive.NewDemoGateway())

	resp := h.in.Execute(context.Background(), "LOGOUT")
	assert.Equal(t, MsgLoggedOut, resp.Message)
	assert.Equal(t, int32(1), h.sessions.clears.Load())

	resp = h.in.Execute(context.Background(), "LOGOUT")
	assert.Equal(t, MsgLoggedOut, resp.Message, "logout is idempotent")

	resp = h.in.Execute(context.Background(), "LIST /")
	assert.Equal(t, MsgNotAuthenticated, resp.Message)
}

func TestAuthenticated(t *testing.T) {
	h := newHarness(t, drive.NewDemoGateway())

	ok, err := h.in.Authenticated(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	h.sessions.session = nil

	ok, err = h.in.Authenticated(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	h.sessions.err = errors.New("disk on fire")

	_, err = h.in.Authenticated(context.Background())
	require.Error(t, err)
}

// stuckGateway never answers until its context ends.
type stuckGateway struct{ drive.Gateway }

func (stuckGateway) FindChildren(ctx context.Context, _, _ string) ([]drive.Item, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestExecute_GatewayTimeout(t *testing.T) {
	sessions := &fakeSessions{session: &session.Session{AccessToken: "tok"}}
	in := New(Config{
		Sessions: sessions,
		Gateway: func(context.Context, *session.Session) (drive.Gateway, error) {
			return stuckGateway{}, nil
		},
		CallTimeout: 20 * time.Millisecond,
		Logger:      testLogger(t),
	})

	resp := in.Execute(context.Background(), "LIST /ProjectX")
	assert.Equal(t, KindError, resp.Kind)
	assert.Contains(t, resp.Message, "timed out")
}

func TestWelcome(t *testing.T) {
	assert.Contains(t, Welcome(true), "Welcome back")
	assert.Contains(t, Welcome(false), "Please sign in")
}
