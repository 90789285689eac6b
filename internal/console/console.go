// Package console is an interactive terminal front end for the board. It
// reads commands with readline and drives a dashboard.Board, printing the
// composed view after every change.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"github.com/kr/pretty"

	"alos/internal/dashboard"
	appLog "alos/internal/log"
	"alos/internal/schedule"
)

type commandDescriptor struct {
	name        string
	args        string
	description string
}

// Names must match the cases in handleCommand.
var commandDescriptors = []commandDescriptor{
	{name: "help", description: "Show available commands"},
	{name: "week", description: "List the day-types with their themes"},
	{name: "day", args: "<id>", description: "Switch to a day-type (mon..fri)"},
	{name: "today", description: "Switch back to today"},
	{name: "find", args: "<text>", description: "Filter blocks by text"},
	{name: "clear", description: "Clear the filter"},
	{name: "show", args: "[id]", description: "Show the active block, or make id active"},
	{name: "meeting", args: "<type|n>", description: "Pick the playbook of the active meeting block"},
	{name: "now", description: "Print the current focus"},
	{name: "dump", description: "Pretty-print the composed view"},
	{name: "exit", description: "Stop the console and the service"},
}

// Service runs the console loop. Start and Stop are idempotent.
type Service struct {
	board   *dashboard.Board
	stopApp context.CancelFunc
	out     io.Writer

	rl        *readline.Instance
	stdin     io.ReadCloser
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	onceStart sync.Once
	onceStop  sync.Once
}

// NewService creates a console for board. stopApp is called by "exit" and
// by Ctrl-C on an empty line.
func NewService(board *dashboard.Board, stopApp context.CancelFunc) *Service {
	return &Service{board: board, stopApp: stopApp, out: os.Stdout}
}

// Start sets up readline and runs the command loop in the background.
func (s *Service) Start(ctx context.Context) error {
	var err error
	s.onceStart.Do(func() {
		stdin := readline.NewCancelableStdin(os.Stdin)
		rl, rlErr := readline.NewEx(&readline.Config{
			Prompt:          "alos> ",
			Stdin:           stdin,
			AutoComplete:    s.completer(),
			InterruptPrompt: "^C",
			EOFPrompt:       "exit",
		})
		if rlErr != nil {
			_ = stdin.Close()
			err = fmt.Errorf("console: %w", rlErr)
			return
		}
		s.rl = rl
		s.stdin = stdin
		s.out = rl.Stdout()

		runCtx, cancel := context.WithCancel(ctx)
		s.cancel = cancel
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.run(runCtx)
		}()
	})
	return err
}

// Stop interrupts readline and waits for the loop to return.
func (s *Service) Stop() {
	s.onceStop.Do(func() {
		if s.stdin != nil {
			_ = s.stdin.Close()
		}
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
	})
}

func (s *Service) run(ctx context.Context) {
	appLog.Debug("console started")
	defer func() {
		_ = s.rl.Close()
	}()

	s.println("Console ready. Commands:", commandNames())
	s.render()

	for {
		if ctx.Err() != nil {
			return
		}
		line, err := s.rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if strings.TrimSpace(line) == "" {
				s.requestStop()
				return
			}
			continue
		}
		if err != nil {
			appLog.Debug("console input closed", "reason", err.Error())
			return
		}
		if s.handleCommand(strings.TrimSpace(line)) {
			return
		}
	}
}

func (s *Service) requestStop() {
	if s.stopApp != nil {
		s.stopApp()
	}
}

func (s *Service) completer() readline.AutoCompleter {
	dayIDs := func(string) []string {
		var ids []string
		for _, d := range s.board.Catalog().Week {
			ids = append(ids, d.ID)
		}
		return ids
	}
	blockIDs := func(string) []string {
		var ids []string
		for _, t := range s.board.View().Tiles {
			ids = append(ids, t.Block.ID)
		}
		return ids
	}
	meetingTypes := func(string) []string {
		if a := s.board.View().Active; a != nil {
			return a.MeetingTypes
		}
		return nil
	}

	items := make([]readline.PrefixCompleterInterface, 0, len(commandDescriptors))
	for _, c := range commandDescriptors {
		switch c.name {
		case "day":
			items = append(items, readline.PcItem(c.name, readline.PcItemDynamic(dayIDs)))
		case "show":
			items = append(items, readline.PcItem(c.name, readline.PcItemDynamic(blockIDs)))
		case "meeting":
			items = append(items, readline.PcItem(c.name, readline.PcItemDynamic(meetingTypes)))
		default:
			items = append(items, readline.PcItem(c.name))
		}
	}
	return readline.NewPrefixCompleter(items...)
}

// handleCommand runs one command line. It returns true when the console
// should exit.
func (s *Service) handleCommand(line string) bool {
	if line == "" {
		return false
	}
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "help", "?":
		s.printHelp()
	case "week":
		s.printWeek()
	case "day":
		if arg == "" {
			s.println("usage: day <id>")
			return false
		}
		if err := s.board.SelectDay(arg); err != nil {
			s.println("error:", err)
			return false
		}
		s.render()
	case "today":
		if err := s.board.SelectDay(s.board.View().Today); err != nil {
			s.println("error:", err)
			return false
		}
		s.render()
	case "find":
		if arg == "" {
			s.println("usage: find <text>")
			return false
		}
		s.board.SetQuery(arg)
		s.render()
	case "clear":
		s.board.SetQuery("")
		s.render()
	case "show":
		if arg != "" {
			if err := s.board.SelectBlock(arg); err != nil {
				s.println("error:", err)
				return false
			}
		}
		s.printDetail(s.board.View())
	case "meeting":
		if err := s.selectMeeting(arg); err != nil {
			s.println("error:", err)
			return false
		}
		s.printDetail(s.board.View())
	case "now":
		s.printFocus(s.board.View())
	case "dump":
		fmt.Fprintf(s.out, "%# v\n", pretty.Formatter(s.board.View()))
	case "exit", "quit":
		s.requestStop()
		return true
	default:
		s.println("unknown command:", name, "(type 'help')")
	}
	return false
}

// selectMeeting accepts a type name or its 1-based position.
func (s *Service) selectMeeting(arg string) error {
	if arg == "" {
		return errors.New("usage: meeting <type|n>")
	}
	if n, err := strconv.Atoi(arg); err == nil {
		a := s.board.View().Active
		if a == nil || len(a.MeetingTypes) == 0 {
			return dashboard.ErrNotMeeting
		}
		if n < 1 || n > len(a.MeetingTypes) {
			return fmt.Errorf("%w: #%d", dashboard.ErrUnknownMeetingType, n)
		}
		arg = a.MeetingTypes[n-1]
	}
	return s.board.SelectMeetingType(arg)
}

func (s *Service) println(a ...any) {
	fmt.Fprintln(s.out, a...)
}

func (s *Service) printHelp() {
	for _, c := range commandDescriptors {
		usage := c.name
		if c.args != "" {
			usage += " " + c.args
		}
		fmt.Fprintf(s.out, "  %-18s %s\n", usage, c.description)
	}
}

func (s *Service) printWeek() {
	v := s.board.View()
	for _, d := range s.board.Catalog().Week {
		marker := " "
		if d.ID == v.Day.ID {
			marker = ">"
		}
		today := ""
		if d.ID == v.Today {
			today = " (today)"
		}
		fmt.Fprintf(s.out, "%s %-4s %-4s %s%s\n", marker, d.ID, d.Label, d.Theme, today)
	}
}

func (s *Service) render() {
	v := s.board.View()
	fmt.Fprintf(s.out, "\n%s | %s   %s %s\n", v.Day.Label, v.Day.Theme, v.Instant.In(schedule.LoadZone(v.Zone)).Format("15:04"), v.Zone)
	s.printFocus(v)
	if v.Searching {
		fmt.Fprintf(s.out, "filter %q: %d of %d blocks\n", v.Selection.Query, len(v.Tiles), v.TotalCount)
	}
	if v.NoMatches {
		s.println("  No matches")
	}
	for _, t := range v.Tiles {
		cursor := " "
		if t.Active {
			cursor = ">"
		}
		extra := ""
		if t.Tag != "" {
			extra += " [" + t.Tag + "]"
		}
		if t.Block.Optional {
			extra += " (optional)"
		}
		fmt.Fprintf(s.out, "%s %-13s %s%s\n", cursor, t.Block.Time, t.Block.Title, extra)
	}
}

func (s *Service) printFocus(v dashboard.View) {
	title := ""
	for _, b := range schedule.SequenceFor(s.board.Catalog(), v.Day.ID) {
		if b.ID == v.Focus.BlockID {
			title = b.Title
			break
		}
	}
	if title == "" {
		s.println(v.Focus.Label())
		return
	}
	fmt.Fprintf(s.out, "%s: %s\n", v.Focus.Label(), title)
}

func (s *Service) printDetail(v dashboard.View) {
	d := v.Active
	if d == nil {
		s.println("Nothing scheduled")
		return
	}
	b := d.Block
	fmt.Fprintf(s.out, "\n%s\n%s | %s", b.Title, b.Time, b.Intent)
	if b.Optional {
		fmt.Fprint(s.out, " | optional")
	}
	fmt.Fprintln(s.out)

	if len(d.MeetingTypes) > 0 {
		labels := make([]string, 0, len(d.MeetingTypes))
		for i, t := range d.MeetingTypes {
			if t == d.MeetingType {
				t = "*" + t + "*"
			}
			labels = append(labels, fmt.Sprintf("%d. %s", i+1, t))
		}
		fmt.Fprintf(s.out, "Meeting: %s\n", strings.Join(labels, "  "))
	}
	section := func(name string, items []string) {
		fmt.Fprintf(s.out, "%s:\n", name)
		for _, it := range items {
			fmt.Fprintf(s.out, "  - %s\n", it)
		}
	}
	section("AI", d.Actions.Assistant)
	section("Human", d.Actions.Human)
	section("Outputs", d.Actions.Outputs)
	if len(b.Artifacts) > 0 {
		fmt.Fprintf(s.out, "Artifacts: %s\n", strings.Join(b.Artifacts, ", "))
	}
}

func commandNames() string {
	names := make([]string, 0, len(commandDescriptors))
	for _, c := range commandDescriptors {
		names = append(names, c.name)
	}
	return strings.Join(names, ", ")
}
