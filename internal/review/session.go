// Package review drives human adjudication of ambiguous duplicate groups.
//
// A Session presents one review group at a time and folds each keep/discard
// decision back into the surviving record set. It has no timers and holds no
// external resources, so it can sit idle between submissions indefinitely.
package review

import (
	"errors"
	"fmt"

	"github.com/matsen/pubmerge/internal/dedupe"
	"github.com/matsen/pubmerge/internal/record"
)

var (
	// ErrSessionComplete is returned when a decision arrives after the last group.
	ErrSessionComplete = errors.New("review session is complete")

	// ErrSessionActive is returned when final output is requested too early.
	ErrSessionActive = errors.New("review session still has pending groups")

	// ErrOutOfOrder is returned for a decision on a group other than the current one.
	ErrOutOfOrder = errors.New("decision is not for the current group")

	// ErrNotInGroup is returned when a kept id is not a member of the current group.
	ErrNotInGroup = errors.New("record is not in the current group")

	// ErrAutoRemoved is returned when a kept id was already removed as a duplicate.
	ErrAutoRemoved = errors.New("record was already removed as a duplicate")
)

// Decision records the human verdict on one group.
type Decision struct {
	GroupIndex int      `json:"group_index"`
	Kept       []string `json:"kept"`
	Discarded  []string `json:"discarded"`
}

// Session is the review state machine for one batch.
type Session struct {
	result    *dedupe.Result
	cursor    int // -1 once complete
	decisions []Decision
	kept      []record.Record // Records kept by decisions, in decision order
	pageSize  int
}

// NewSession starts a review over the groups of a batch result.
// With no groups the session is complete immediately.
func NewSession(result *dedupe.Result) *Session {
	s := &Session{
		result:   result,
		cursor:   -1,
		pageSize: DefaultPageSize,
	}
	if len(result.Groups) > 0 {
		s.cursor = 0
	}
	return s
}

// SetPageSize changes the page size used by new selections.
func (s *Session) SetPageSize(n int) {
	if n > 0 {
		s.pageSize = n
	}
}

// Key returns the batch key under review.
func (s *Session) Key() string {
	return s.result.Key
}

// Cursor returns the index of the current group, or -1 when complete.
func (s *Session) Cursor() int {
	return s.cursor
}

// Complete reports whether every group has been decided.
func (s *Session) Complete() bool {
	return s.cursor < 0
}

// GroupCount returns the number of groups in the session.
func (s *Session) GroupCount() int {
	return len(s.result.Groups)
}

// Current returns a copy of the group awaiting a decision.
func (s *Session) Current() (dedupe.Group, error) {
	if s.Complete() {
		return dedupe.Group{}, ErrSessionComplete
	}
	g := s.result.Groups[s.cursor]
	g.Members = append([]dedupe.Member(nil), g.Members...)
	return g, nil
}

// Submit records the decision for group groupIndex, which must be the
// current group. Members listed in keepIDs survive; every other member is
// discarded. Repeated ids are collapsed. On error the session is unchanged.
func (s *Session) Submit(groupIndex int, keepIDs []string) error {
	if s.Complete() {
		return ErrSessionComplete
	}
	if groupIndex != s.cursor {
		return fmt.Errorf("%w: got group %d, current is %d", ErrOutOfOrder, groupIndex, s.cursor)
	}

	g := s.result.Groups[s.cursor]
	keep := make(map[string]bool, len(keepIDs))
	for _, id := range keepIDs {
		m, ok := g.Member(id)
		if !ok {
			return fmt.Errorf("%w: %q (group %d)", ErrNotInGroup, id, groupIndex)
		}
		if m.AutoRemoved {
			return fmt.Errorf("%w: %q", ErrAutoRemoved, id)
		}
		keep[id] = true
	}

	d := Decision{GroupIndex: groupIndex, Kept: []string{}, Discarded: []string{}}
	for _, m := range g.Members {
		if keep[m.Record.ID] {
			d.Kept = append(d.Kept, m.Record.ID)
			s.kept = append(s.kept, m.Record)
		} else {
			d.Discarded = append(d.Discarded, m.Record.ID)
		}
	}
	s.decisions = append(s.decisions, d)

	if s.cursor+1 == len(s.result.Groups) {
		s.cursor = -1
	} else {
		s.cursor++
	}
	return nil
}

// Decisions returns the decisions made so far, in group order.
func (s *Session) Decisions() []Decision {
	return append([]Decision(nil), s.decisions...)
}

// Survivors returns the auto-resolved survivors followed by every record
// kept in review so far.
func (s *Session) Survivors() []record.Record {
	out := make([]record.Record, 0, len(s.result.Survivors)+len(s.kept))
	out = append(out, s.result.Survivors...)
	return append(out, s.kept...)
}

// Final returns the surviving records once every group is decided.
func (s *Session) Final() ([]record.Record, error) {
	if !s.Complete() {
		return nil, fmt.Errorf("%w: %d of %d groups decided", ErrSessionActive, len(s.decisions), len(s.result.Groups))
	}
	return s.Survivors(), nil
}

// Summary returns batch counts reflecting decisions made so far.
func (s *Session) Summary() dedupe.Summary {
	sum := s.result.Summary
	sum.Final = len(s.result.Survivors) + len(s.kept)

	pending := 0
	if !s.Complete() {
		for _, g := range s.result.Groups[s.cursor:] {
			for _, m := range g.Members {
				if !m.AutoRemoved {
					pending++
				}
			}
		}
	}
	sum.PendingReview = pending
	return sum
}
