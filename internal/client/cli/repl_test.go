package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// stubExec records which commands the REPL dispatched.
type stubExec struct {
	loggedIn bool
	calls    []string
}

func (s *stubExec) record(name string) error {
	s.calls = append(s.calls, name)
	return nil
}

func (s *stubExec) isLoggedIn() bool                  { return s.loggedIn }
func (s *stubExec) Register(ctx context.Context) error { return s.record("register") }
func (s *stubExec) Login(ctx context.Context) error    { return s.record("login") }
func (s *stubExec) Logout(ctx context.Context) error   { return s.record("logout") }
func (s *stubExec) WhoAmI(ctx context.Context) error   { return s.record("whoami") }
func (s *stubExec) List(ctx context.Context) error     { return s.record("list") }
func (s *stubExec) Upload(ctx context.Context) error   { return s.record("upload") }
func (s *stubExec) Delete(ctx context.Context) error   { return s.record("delete") }
func (s *stubExec) Share(ctx context.Context) error    { return s.record("share") }
func (s *stubExec) Shares(ctx context.Context) error   { return s.record("shares") }
func (s *stubExec) Sync(ctx context.Context) error     { return s.record("sync") }

func runScript(t *testing.T, stub *stubExec, script string) []string {
	t.Helper()

	origPrintln := printlnFn
	t.Cleanup(func() { printlnFn = origPrintln })

	var output []string
	printlnFn = func(args ...any) {
		output = append(output, strings.TrimSpace(fmt.Sprintln(args...)))
	}

	scanner := bufio.NewScanner(strings.NewReader(script))
	runREPL(context.Background(), stub, func() string { return "" }, scanner)
	return output
}

func TestRunREPL_DispatchesCommands(t *testing.T) {
	stub := &stubExec{loggedIn: true}

	runScript(t, stub, "list\nupload\nsync\nwhoami\nlogout\nexit\n")

	assert.Equal(t, []string{"list", "upload", "sync", "whoami", "logout"}, stub.calls)
}

func TestRunREPL_ShortListAlias(t *testing.T) {
	stub := &stubExec{loggedIn: true}

	runScript(t, stub, "l\nexit\n")

	assert.Equal(t, []string{"list"}, stub.calls)
}

func TestRunREPL_UnknownCommand(t *testing.T) {
	stub := &stubExec{}

	output := runScript(t, stub, "frobnicate\nexit\n")

	assert.Empty(t, stub.calls)
	assert.Contains(t, output, "Unknown command: frobnicate")
}

func TestRunREPL_HelpDependsOnLoginState(t *testing.T) {
	out := runScript(t, &stubExec{loggedIn: false}, "help\nexit\n")
	assert.Contains(t, strings.Join(out, "\n"), "register, login")

	out = runScript(t, &stubExec{loggedIn: true}, "help\nexit\n")
	assert.Contains(t, strings.Join(out, "\n"), "upload, delete, sync")
}

func TestRunREPL_ExitsOnEOF(t *testing.T) {
	stub := &stubExec{}
	runScript(t, stub, "")
	assert.Empty(t, stub.calls)
}

func TestRunREPL_EmptyLinesIgnored(t *testing.T) {
	stub := &stubExec{loggedIn: true}

	runScript(t, stub, "\n\nlist\n\nexit\n")

	assert.Equal(t, []string{"list"}, stub.calls)
}
