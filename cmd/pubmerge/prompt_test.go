package main

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsen/pubmerge/internal/dedupe"
	"github.com/matsen/pubmerge/internal/record"
	"github.com/matsen/pubmerge/internal/review"
)

// reviewResult builds a batch result with one review group of n members.
// Members listed in removed are marked auto-removed.
func reviewResult(n int, removed ...int) *dedupe.Result {
	isRemoved := make(map[int]bool, len(removed))
	for _, i := range removed {
		isRemoved[i] = true
	}
	res := &dedupe.Result{Key: "smith", Removed: map[string]bool{}}
	g := dedupe.Group{Index: 0}
	for i := 0; i < n; i++ {
		r := record.Record{
			ID:     fmt.Sprintf("r%02d", i+1),
			Source: record.SourceSecondary,
			Title:  fmt.Sprintf("Title number %d", i+1),
		}
		res.Records = append(res.Records, r)
		g.Members = append(g.Members, dedupe.Member{Record: r, Index: i, Similarity: 0.9, AutoRemoved: isRemoved[i]})
		if isRemoved[i] {
			res.Removed[r.ID] = true
		}
	}
	res.Groups = []dedupe.Group{g}
	return res
}

func runPrompt(t *testing.T, s *review.Session, script string) (string, []review.Decision, error) {
	t.Helper()
	var out bytes.Buffer
	p := newPrompter(strings.NewReader(script), &out)
	var got []review.Decision
	p.decided = func(d review.Decision) { got = append(got, d) }
	err := p.review(s)
	return out.String(), got, err
}

func TestPrompter_SubmitDefault(t *testing.T) {
	s := review.NewSession(reviewResult(3))
	_, decisions, err := runPrompt(t, s, "\n")
	require.NoError(t, err)
	assert.True(t, s.Complete())
	require.Len(t, decisions, 1)
	assert.Equal(t, []string{"r01", "r02", "r03"}, decisions[0].Kept)
}

func TestPrompter_ToggleAndClear(t *testing.T) {
	s := review.NewSession(reviewResult(4))
	_, decisions, err := runPrompt(t, s, "1, 3\nc\n2\ns\n")
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, []string{"r02"}, decisions[0].Kept)
	assert.Equal(t, []string{"r01", "r03", "r04"}, decisions[0].Discarded)
}

func TestPrompter_AutoRemovedMember(t *testing.T) {
	s := review.NewSession(reviewResult(3, 1))
	out, decisions, err := runPrompt(t, s, "2\n9\nfoo\n\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Cannot keep 2")
	assert.Contains(t, out, `Unknown command or member "9"`)
	assert.Contains(t, out, `Unknown command or member "foo"`)
	assert.Contains(t, out, "[-]")
	require.Len(t, decisions, 1)
	assert.Equal(t, []string{"r01", "r03"}, decisions[0].Kept)
}

func TestPrompter_Paging(t *testing.T) {
	s := review.NewSession(reviewResult(8))
	s.SetPageSize(3)
	out, decisions, err := runPrompt(t, s, "p\nn\n8\nn\nn\n\n")
	require.NoError(t, err)
	assert.Contains(t, out, "(page 1 of 3)")
	assert.Contains(t, out, "(page 3 of 3)")
	assert.Contains(t, out, "Already on the first page.")
	assert.Contains(t, out, "Already on the last page.")
	assert.Contains(t, out, "  7 [x]", "numbering continues across pages")
	require.Len(t, decisions, 1)
	assert.NotContains(t, decisions[0].Kept, "r08")
	assert.Equal(t, []string{"r08"}, decisions[0].Discarded)
}

func TestPrompter_StopAndEOF(t *testing.T) {
	s := review.NewSession(reviewResult(2))
	_, decisions, err := runPrompt(t, s, "q\n")
	assert.ErrorIs(t, err, errReviewStopped)
	assert.Empty(t, decisions)
	assert.False(t, s.Complete())

	_, _, err = runPrompt(t, s, "1\n")
	assert.ErrorIs(t, err, errReviewStopped, "end of input stops the review")
	assert.False(t, s.Complete())
}
