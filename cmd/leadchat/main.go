// Command leadchat is a terminal view of a lead conversation. It polls the
// thread like the browser dashboard and sends each stdin line as a message.
//
//	leadchat -lead <id> -token <token>          client view
//	leadchat -admin [-lead <id>]                admin view (ADMIN_TOKEN)
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/wolfman30/sitecraft/internal/dashboard"
	"github.com/wolfman30/sitecraft/pkg/logging"
)

var (
	baseURL    = flag.String("base", "http://localhost:8080", "API base URL")
	leadID     = flag.String("lead", "", "lead id")
	token      = flag.String("token", "", "client access token")
	admin      = flag.Bool("admin", false, "use the admin API")
	adminToken = flag.String("admin-token", "", "admin bearer token (defaults to $ADMIN_TOKEN)")
	interval   = flag.Duration("interval", dashboard.DefaultPollInterval, "poll interval (3s-10s)")
)

func main() {
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdin, os.Stdout); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, in io.Reader, out io.Writer) error {
	var opts []dashboard.ClientOption
	if *admin {
		tok := *adminToken
		if tok == "" {
			tok = os.Getenv("ADMIN_TOKEN")
		}
		if tok == "" {
			return errors.New("admin mode needs -admin-token or ADMIN_TOKEN")
		}
		opts = append(opts, dashboard.WithAdminToken(tok))
	}
	api := dashboard.NewAPIClient(*baseURL, opts...)

	var src dashboard.Source
	switch {
	case *admin && *leadID == "":
		return listLeads(ctx, api, out)
	case *admin:
		src = dashboard.AdminSource(api, *leadID)
	case *leadID == "" || *token == "":
		return errors.New("client mode needs -lead and -token")
	default:
		src = dashboard.ClientSource(api, *leadID, *token)
	}

	r := newRenderer(out)
	session := dashboard.NewSession(src,
		dashboard.WithLogger(logging.New("error")),
		dashboard.WithOnChange(r.render),
	)
	if err := session.Load(ctx); err != nil {
		return err
	}
	switch session.State() {
	case dashboard.StateDenied:
		if redirect := session.Redirect(); redirect != "" {
			r.notice("lead not found, back to the list (%s)", redirect)
			return listLeads(ctx, api, out)
		}
		return dashboard.ErrAccessDenied
	case dashboard.StateReady:
	default:
		return errors.New("conversation did not load")
	}

	poller := session.Poller(*interval)
	pollCtx, cancelPoll := context.WithCancel(ctx)
	defer cancelPoll()
	go poller.Run(pollCtx)

	r.notice("polling every %s; type a message and press Enter. /pause, /resume, /quit", poller.Interval())
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			switch strings.TrimSpace(line) {
			case "/quit":
				return nil
			case "/pause":
				poller.SetVisible(false)
				r.notice("polling paused")
				continue
			case "/resume":
				poller.SetVisible(true)
				r.notice("polling resumed")
				continue
			}
			if session.State() != dashboard.StateReady {
				return dashboard.ErrAccessDenied
			}
			_, err := session.Send(ctx, line)
			var sendErr *dashboard.SendError
			switch {
			case err == nil:
			case errors.Is(err, dashboard.ErrEmptyDraft):
			case errors.As(err, &sendErr):
				r.notice("not sent, try again: %s", sendErr.Draft)
			default:
				r.notice("%v", err)
			}
		}
	}
}

func listLeads(ctx context.Context, api *dashboard.APIClient, out io.Writer) error {
	leads, err := api.AdminLeads(ctx)
	if err != nil {
		return err
	}
	bold := color.New(color.Bold).SprintFunc()
	if len(leads) == 0 {
		fmt.Fprintln(out, "No leads yet.")
		return nil
	}
	for _, l := range leads {
		fmt.Fprintf(out, "%s  %s  %s  %s\n", bold(l.BusinessName), l.Category, l.Email, l.ID)
		fmt.Fprintf(out, "    received %s\n", l.CreatedAt.Local().Format(time.DateTime))
	}
	return nil
}
