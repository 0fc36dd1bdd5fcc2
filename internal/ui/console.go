package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/neonddos/console/internal/stream"
)

// Console is the interactive dashboard loop: it redraws on every model or
// connection change and applies navigation commands read line by line.
type Console struct {
	out    io.Writer
	server string
	nav    *Navigator
	dash   *Dashboard
	state  func() stream.State

	// Clear wipes the terminal before every frame.
	Clear bool

	refresh chan struct{}
	notice  string
}

// NewConsole creates a console. state reports the stream connection state.
func NewConsole(out io.Writer, server string, nav *Navigator, dash *Dashboard, state func() stream.State) *Console {
	return &Console{
		out:     out,
		server:  server,
		nav:     nav,
		dash:    dash,
		state:   state,
		refresh: make(chan struct{}, 1),
	}
}

// Refresh requests a redraw. Safe to call from any goroutine.
func (c *Console) Refresh() {
	select {
	case c.refresh <- struct{}{}:
	default:
	}
}

// Run draws the dashboard until in is exhausted, a quit command is read or
// ctx is cancelled.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	c.draw()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case <-c.dash.Changed():
			c.draw()
		case <-c.refresh:
			c.draw()
		case line := <-lines:
			if c.Exec(line) {
				return nil
			}
			c.draw()
		}
	}
}

// Exec applies one command and reports whether the console should exit.
//
//	<n> | <section>   switch section
//	t | toggle        collapse or expand the sidebar
//	q | quit          leave
//	(empty)           redraw
func (c *Console) Exec(line string) bool {
	cmd := strings.ToLower(strings.TrimSpace(line))
	c.notice = ""

	switch cmd {
	case "":
		return false
	case "q", "quit", "exit":
		return true
	case "t", "toggle":
		c.nav.ToggleSidebar()
		return false
	}

	var err error
	if pos, convErr := strconv.Atoi(cmd); convErr == nil {
		err = c.nav.SelectIndex(pos)
	} else {
		err = c.nav.Select(cmd)
	}
	if err != nil {
		c.notice = err.Error()
	}
	return false
}

func (c *Console) draw() {
	if c.Clear {
		fmt.Fprint(c.out, clearScreen)
	}
	Render(c.out, View{
		Server: c.server,
		State:  c.state(),
		Nav:    c.nav,
		Snap:   c.dash.Snapshot(),
	})
	if c.notice != "" {
		fmt.Fprintf(c.out, "  %s%s%s\n", colorYellow, c.notice, colorReset)
	}
}
