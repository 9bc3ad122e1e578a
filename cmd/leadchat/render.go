package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/wolfman30/sitecraft/internal/dashboard"
	"github.com/wolfman30/sitecraft/internal/messages"
)

// renderer prints each confirmed message once, in timeline order.
type renderer struct {
	mu      sync.Mutex
	out     io.Writer
	printed map[string]bool
	header  bool
	empty   bool

	admin  *color.Color
	client *color.Color
	dim    *color.Color
}

func newRenderer(out io.Writer) *renderer {
	return &renderer{
		out:     out,
		printed: make(map[string]bool),
		admin:   color.New(color.FgCyan, color.Bold),
		client:  color.New(color.FgGreen, color.Bold),
		dim:     color.New(color.Faint),
	}
}

func (r *renderer) render(s *dashboard.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.State() == dashboard.StateDenied {
		msg := "Access denied. Check the link you were sent."
		if s.Redirect() != "" {
			msg = "Lead not found."
		}
		color.New(color.FgRed).Fprintln(r.out, msg)
		return
	}
	if lead := s.Lead(); lead != nil && !r.header {
		r.header = true
		fmt.Fprintf(r.out, "%s (%s)\n", color.New(color.Bold).Sprint(lead.BusinessName), lead.Category)
	}

	entries := s.Entries()
	if len(entries) == 0 {
		if !r.empty {
			r.empty = true
			r.dim.Fprintln(r.out, "No messages yet.")
		}
		return
	}
	for _, e := range entries {
		if e.Message.ID == "" || r.printed[e.Message.ID] {
			continue
		}
		r.printed[e.Message.ID] = true
		r.line(e.Message)
	}
}

func (r *renderer) line(m *dashboard.Message) {
	who := r.client
	label := "Client"
	if m.Sender == messages.SenderAdmin {
		who = r.admin
		label = "Studio"
	}
	fmt.Fprintf(r.out, "%s %s %s\n",
		r.dim.Sprint(m.CreatedAt.Local().Format(time.Kitchen)),
		who.Sprint(label+":"),
		m.Content,
	)
}

func (r *renderer) notice(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dim.Fprintf(r.out, format+"\n", args...)
}
