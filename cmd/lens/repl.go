package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"paperlens/internal/session"
)

var (
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	infoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// repl is the interactive reading loop. Plain input is a question; everything
// else is a short command.
type repl struct {
	orch     *session.Orchestrator
	renderer *glamour.TermRenderer
	logger   *zap.Logger

	// index -> node ID mapping from the last `tree` print, for `goto`.
	treeIndex []string
}

func newREPL(orch *session.Orchestrator, logger *zap.Logger) *repl {
	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	return &repl{orch: orch, renderer: renderer, logger: logger}
}

// Run reads commands until exit or context cancellation.
func (r *repl) Run(ctx context.Context) error {
	fmt.Println(titleStyle.Render("paperlens") + infoStyle.Render("  type 'help' for commands"))

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for {
		fmt.Print(r.prompt())
		if !scanner.Scan() {
			return scanner.Err()
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if quit := r.dispatch(ctx, line); quit {
			return nil
		}
	}
}

func (r *repl) prompt() string {
	label := "lens"
	if t := r.orch.Title(); t != "" {
		label = t
	}
	return promptStyle.Render(label + " > ")
}

// dispatch runs one command. It returns true when the loop should exit.
func (r *repl) dispatch(ctx context.Context, line string) bool {
	switch {
	case line == "exit" || line == "quit":
		return true

	case line == "help":
		r.printHelp()

	case strings.HasPrefix(line, "open "):
		r.open(ctx, strings.TrimSpace(strings.TrimPrefix(line, "open ")))

	case strings.HasPrefix(line, "q:"):
		q := strings.TrimSpace(strings.TrimPrefix(line, "q:"))
		if q == "" {
			r.fail("empty question")
			break
		}
		r.orch.Queue().Push(q)
		r.info(fmt.Sprintf("queued (%d pending)", r.orch.Queue().Len()))

	case line == "list":
		pending := r.orch.Queue().Snapshot()
		if len(pending) == 0 {
			r.info("queue is empty")
			break
		}
		for i, q := range pending {
			fmt.Printf("  %d. %s\n", i+1, q)
		}

	case line == "run":
		done, err := r.orch.RunQueue(ctx)
		if err != nil {
			r.fail(err.Error())
			break
		}
		r.info(fmt.Sprintf("%d question(s) answered", done))

	case line == "clear":
		r.orch.Queue().Clear()
		r.info("queue cleared")

	case line == "tree":
		r.printTree()

	case line == "stats":
		r.printStats()

	case line == "save" || line == "s":
		path, err := r.orch.SaveCurrent(ctx)
		if err != nil {
			r.fail(err.Error())
			break
		}
		r.info("saved to " + path)

	case line == "x" || line == "skip":
		if err := r.orch.NewThread(); err != nil {
			r.fail(err.Error())
			break
		}
		r.info("next question starts a new thread")

	case strings.HasPrefix(line, "goto "):
		r.gotoNode(strings.TrimSpace(strings.TrimPrefix(line, "goto ")))

	case strings.HasPrefix(line, "f:") || strings.HasPrefix(line, "follow:"):
		q := strings.TrimSpace(line[strings.Index(line, ":")+1:])
		r.ask(ctx, q)

	default:
		r.ask(ctx, line)
	}
	return false
}

// open loads content: a URL when the argument looks like one, a local file
// otherwise. An optional title follows the path, else it is derived.
func (r *repl) open(ctx context.Context, args string) {
	if args == "" {
		r.fail("usage: open <file-or-url> [title]")
		return
	}
	fields := strings.Fields(args)
	target := fields[0]
	title := strings.Join(fields[1:], " ")

	var err error
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		if title == "" {
			title = target
		}
		r.info("loading link, waiting for the page to read it...")
		err = r.orch.LoadURL(ctx, target, title)
	} else {
		if title == "" {
			title = strings.TrimSuffix(baseName(target), ".pdf")
		}
		r.info("uploading file...")
		err = r.orch.LoadFile(ctx, target, title)
	}
	if err != nil {
		r.fail(err.Error())
		return
	}
	r.info("loaded " + title)
	if n := r.orch.Tree().Len(); n > 0 {
		r.info(fmt.Sprintf("resumed earlier conversation (%d exchanges)", n))
	}
}

// ask submits a question. It threads under the cursor when one is set and
// starts a new root otherwise; `x` clears the cursor.
func (r *repl) ask(ctx context.Context, question string) {
	if question == "" {
		return
	}
	r.info("thinking...")

	node, err := r.orch.FollowUp(ctx, question)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			r.fail("load content first: open <file-or-url>")
			return
		}
		r.fail(err.Error())
		return
	}
	r.printAnswer(node.Answer)
}

func (r *repl) printAnswer(answer string) {
	if r.renderer != nil {
		if out, err := r.renderer.Render(answer); err == nil {
			fmt.Print(out)
			return
		}
	}
	fmt.Println(answer)
}

func (r *repl) printTree() {
	tree := r.orch.Tree()
	if tree == nil || tree.Len() == 0 {
		r.info("no conversation yet")
		return
	}

	current := ""
	if cur, ok := tree.Current(); ok {
		current = cur.ID
	}

	r.treeIndex = r.treeIndex[:0]
	idx := 0
	var walk func(id string, depth int)
	walk = func(id string, depth int) {
		node, ok := tree.Node(id)
		if !ok {
			return
		}
		idx++
		r.treeIndex = append(r.treeIndex, id)
		marker := "  "
		if id == current {
			marker = cursorStyle.Render("* ")
		}
		fmt.Printf("%s%s%d. %s\n", strings.Repeat("   ", depth), marker, idx, node.Summary)
		for _, child := range node.Children() {
			walk(child, depth+1)
		}
	}
	for _, root := range tree.Roots() {
		walk(root, 0)
	}
	r.info("goto <n> moves the follow-up cursor")
}

func (r *repl) gotoNode(arg string) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(r.treeIndex) {
		r.fail("usage: goto <n> (run 'tree' first)")
		return
	}
	if err := r.orch.Follow(r.treeIndex[n-1]); err != nil {
		r.fail(err.Error())
		return
	}
	r.info(fmt.Sprintf("follow-ups now thread under node %d", n))
}

func (r *repl) printStats() {
	tree := r.orch.Tree()
	if tree == nil {
		r.info("no content loaded")
		return
	}
	s := tree.Stats()
	fmt.Printf("exchanges:  %d\n", s.Total)
	fmt.Printf("threads:    %d\n", s.Roots)
	fmt.Printf("follow-ups: %d\n", s.FollowUps)
	fmt.Printf("max depth:  %d\n", s.MaxDepth)
}

func (r *repl) printHelp() {
	help := `
  <question>          ask about the loaded content
  f: <question>       ask as a follow-up to the current node
  x / skip            start a new thread (next question becomes a root)
  q: <question>       add a question to the queue
  list / run / clear  inspect, answer, or drop the queue
  tree                show the conversation tree
  goto <n>            move the follow-up cursor to node n
  stats               show session stats
  save (s)            classify and write the session to the vault
  open <file|url>     load new content (ends the current session)
  exit                quit
`
	fmt.Print(infoStyle.Render(help))
}

func (r *repl) info(msg string) { fmt.Println(infoStyle.Render(msg)) }
func (r *repl) fail(msg string) { fmt.Println(errorStyle.Render(msg)) }

func baseName(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}
