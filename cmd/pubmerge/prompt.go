package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/matsen/pubmerge/internal/review"
)

// errReviewStopped is returned when the reviewer quits or input ends
// before every group is decided.
var errReviewStopped = errors.New("review stopped")

const promptHelp = `Commands:
  <numbers>   toggle members, e.g. "1 3" or "2,4"
  n / p       next / previous page
  a           keep all selectable members
  c           clear the selection
  s or Enter  submit and move to the next group
  q           stop reviewing (remaining groups stay pending)
  ?           show this help
`

// prompter drives a review session from line-oriented terminal input.
type prompter struct {
	in  *bufio.Scanner
	out io.Writer

	// decided is called after each successful submission.
	decided func(review.Decision)
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewScanner(in), out: out}
}

// review runs until the session is complete or the reviewer stops.
func (p *prompter) review(s *review.Session) error {
	for !s.Complete() {
		sel, err := s.Selection()
		if err != nil {
			return err
		}
		if err := p.group(s, sel); err != nil {
			return err
		}
	}
	return nil
}

func (p *prompter) group(s *review.Session, sel *review.Selection) error {
	for {
		p.render(s, sel)
		fmt.Fprint(p.out, "> ")
		if !p.in.Scan() {
			if err := p.in.Err(); err != nil {
				return err
			}
			return errReviewStopped
		}

		cmd := strings.TrimSpace(p.in.Text())
		switch strings.ToLower(cmd) {
		case "", "s":
			if err := s.SubmitSelection(sel); err != nil {
				return err
			}
			if p.decided != nil {
				ds := s.Decisions()
				p.decided(ds[len(ds)-1])
			}
			return nil
		case "n":
			if !sel.NextPage() {
				fmt.Fprintln(p.out, "Already on the last page.")
			}
		case "p":
			if !sel.PrevPage() {
				fmt.Fprintln(p.out, "Already on the first page.")
			}
		case "a":
			sel.SelectAll()
		case "c":
			sel.Clear()
		case "q":
			return errReviewStopped
		case "?", "h", "help":
			fmt.Fprint(p.out, promptHelp)
		default:
			p.toggle(sel, cmd)
		}
	}
}

// toggle flips each listed member. Numbers are 1-based over the whole group.
func (p *prompter) toggle(sel *review.Selection, cmd string) {
	members := sel.Group().Members
	fields := strings.FieldsFunc(cmd, func(r rune) bool { return r == ',' || r == ' ' })
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 1 || n > len(members) {
			fmt.Fprintf(p.out, "Unknown command or member %q (? for help)\n", f)
			continue
		}
		if err := sel.Toggle(members[n-1].Record.ID); err != nil {
			fmt.Fprintf(p.out, "Cannot keep %d: %v\n", n, err)
		}
	}
}

func (p *prompter) render(s *review.Session, sel *review.Selection) {
	g := sel.Group()
	fmt.Fprintf(p.out, "\nBatch %q, group %d of %d", s.Key(), g.Index+1, s.GroupCount())
	if sel.PageCount() > 1 {
		fmt.Fprintf(p.out, " (page %d of %d)", sel.CurrentPage()+1, sel.PageCount())
	}
	fmt.Fprintln(p.out)

	offset := sel.CurrentPage() * sel.PageSize()
	for i, m := range sel.Visible() {
		mark := "[ ]"
		switch {
		case m.AutoRemoved:
			mark = "[-]"
		case sel.Selected(m.Record.ID):
			mark = "[x]"
		}
		fmt.Fprintf(p.out, "%3d %s %.3f  %-10s %s\n", offset+i+1, mark, m.Similarity,
			m.Record.Source, truncateString(m.Record.Title, PromptTitleMaxLen))
		if m.Record.DOI != "" {
			fmt.Fprintf(p.out, "               doi: %s\n", m.Record.DOI)
		}
	}
}
