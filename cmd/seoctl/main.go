// Command seoctl submits websites for analysis and browses the issues of the
// last report.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/seo-optimizer/insights/analyzer"
	"github.com/seo-optimizer/insights/client"
	"github.com/seo-optimizer/insights/remediation"
)

const usage = `usage: seoctl [flags] <command> [args]

commands:
  analyze <url>            analyze a website and store the report
  issues <category>        list stored issues (performance, seo, accessibility, technical)
  fix <category> <n>       ask for a fix for issue n of a category

flags:
`

type options struct {
	server         string
	store          string
	interval       time.Duration
	timeout        time.Duration
	requestTimeout time.Duration
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "seoctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("seoctl", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}

	var opts options
	fs.StringVar(&opts.server, "server", envOr("SEOCTL_SERVER", "http://localhost:8082"), "API base URL")
	fs.StringVar(&opts.store, "store", "", "report store file (default: user config dir)")
	fs.DurationVar(&opts.interval, "poll-interval", 5*time.Second, "status poll interval")
	fs.DurationVar(&opts.timeout, "poll-timeout", 2*time.Minute, "give up polling after this long")
	fs.DurationVar(&opts.requestTimeout, "request-timeout", 30*time.Second, "wait this long for the analyze request before polling")
	if err := fs.Parse(args); err != nil {
		return err
	}

	storePath := opts.store
	if storePath == "" {
		p, err := client.DefaultStorePath()
		if err != nil {
			return err
		}
		storePath = p
	}
	store := client.NewStore(storePath)
	api := client.New(opts.server)

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	switch rest[0] {
	case "analyze":
		if len(rest) != 2 {
			return errors.New("usage: seoctl analyze <url>")
		}
		waiter := client.NewWaiter(api, client.NewPoller(api, opts.interval, opts.timeout), opts.requestTimeout)
		return analyze(ctx, waiter, store, rest[1], out)
	case "issues":
		if len(rest) != 2 {
			return errors.New("usage: seoctl issues <category>")
		}
		return listIssues(store, rest[1], out)
	case "fix":
		if len(rest) != 3 {
			return errors.New("usage: seoctl fix <category> <n>")
		}
		n, err := strconv.Atoi(rest[2])
		if err != nil || n < 1 {
			return fmt.Errorf("invalid issue number %q", rest[2])
		}
		return fix(ctx, api, store, rest[1], n, out)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", rest[0])
	}
}

func analyze(ctx context.Context, waiter *client.Waiter, store *client.Store, website string, out io.Writer) error {
	outcome, err := waiter.Analyze(ctx, website)
	if err != nil {
		return err
	}

	switch outcome.State {
	case client.StateComplete:
	case client.StateTimedOut:
		if outcome.Result == nil {
			return errors.New(client.TimedOutNote)
		}
	default:
		return fmt.Errorf("analysis %s", outcome.Status)
	}

	r := outcome.Result
	if err := store.SaveReport(r); err != nil {
		return err
	}

	fmt.Fprintf(out, "%s\n", r.WebsiteURL)
	fmt.Fprintf(out, "  overall        %3d\n", r.Scores.Overall)
	fmt.Fprintf(out, "  performance    %3d  (%d issues)\n", r.Scores.Performance, len(r.Audits.Performance))
	fmt.Fprintf(out, "  seo            %3d  (%d issues)\n", r.Scores.SEO, len(r.Audits.SEO))
	fmt.Fprintf(out, "  accessibility  %3d  (%d issues)\n", r.Scores.Accessibility, len(r.Audits.Accessibility))
	fmt.Fprintf(out, "  technical      %3d  (%d issues)\n", r.Scores.BestPractices, len(r.Audits.BestPractices))
	if r.Note != "" {
		fmt.Fprintf(out, "note: %s\n", r.Note)
	}
	return nil
}

func listIssues(store *client.Store, category string, out io.Writer) error {
	issues, err := store.Category(category)
	if err != nil {
		return err
	}
	if len(issues) == 0 {
		fmt.Fprintln(out, "no issues")
		return nil
	}
	for i, issue := range issues {
		fmt.Fprintf(out, "%2d. [%-6s] %s (current: %s)\n", i+1, issue.Impact, issue.Title, issue.CurrentValue)
	}
	return nil
}

func fix(ctx context.Context, api *client.Client, store *client.Store, category string, n int, out io.Writer) error {
	issues, err := store.Category(category)
	if err != nil {
		return err
	}
	if n > len(issues) {
		return fmt.Errorf("category %s has %d issues", category, len(issues))
	}
	issue := issues[n-1]

	res, err := api.Solution(ctx, remediation.Request{
		Messages: []remediation.Message{{
			Role:    remediation.RoleUser,
			Content: "How do I fix this issue on my website?",
		}},
		Problem: problemFor(issue),
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(out, issue.Title)
	fmt.Fprintln(out, strings.Repeat("-", len(issue.Title)))
	fmt.Fprintln(out, res.Text)
	return nil
}

func problemFor(issue analyzer.Issue) *remediation.Problem {
	score := issue.Score
	return &remediation.Problem{
		Title:         issue.Title,
		SimpleSummary: issue.SimpleSummary,
		Description:   issue.Description,
		Category:      issue.Category,
		Impact:        string(issue.Impact),
		Score:         &score,
		CurrentValue:  issue.CurrentValue,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
