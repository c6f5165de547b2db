/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package scores

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func newTestStore(t *testing.T) (*Store, *testClock) {
	t.Helper()

	clock := &testClock{now: time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC)}

	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "scores.db"),
		WithLogger(zaptest.NewLogger(t)),
		WithClock(clock.Now),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s, clock
}

func nameList(n int, prefix string) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s Woman %03d", prefix, i)
	}

	return out
}

func submission(user string, seconds float64, fingerprint string) Submission {
	return Submission{
		Username:          user,
		CompletionSeconds: seconds,
		Names:             nameList(25, "Test"),
		Mode:              25,
		Fingerprint:       fingerprint,
	}
}

func TestNormalizeUsername(t *testing.T) {
	for _, ok := range []string{"ABC", "a1!", "_-@", " xyz "} {
		_, err := NormalizeUsername(ok)
		require.NoError(t, err, ok)
	}

	for _, bad := range []string{"", "AB", "ABCD", "A B", "AÉB", "A%B"} {
		_, err := NormalizeUsername(bad)
		require.ErrorIs(t, err, ErrInvalidUsername, bad)
	}
}

func TestSubmitValidation(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	sub := submission("ABCD", 60, "fp")
	_, err := s.Submit(ctx, sub)
	require.ErrorIs(t, err, ErrInvalidUsername)

	sub = submission("ABC", 60, "fp")
	sub.Mode = 30
	_, err = s.Submit(ctx, sub)
	require.ErrorIs(t, err, ErrInvalidMode)

	sub = submission("ABC", 60, "fp")
	sub.Mode = 50
	_, err = s.Submit(ctx, sub)
	require.ErrorIs(t, err, ErrNameCount)

	sub = submission("ABC", 0, "fp")
	_, err = s.Submit(ctx, sub)
	require.ErrorIs(t, err, ErrInvalidTime)

	sub = submission("ABC", 60, "fp")
	sub.Names[1] = "test woman 000"
	_, err = s.Submit(ctx, sub)
	require.ErrorIs(t, err, ErrNameCount)
}

func TestSubmitAndGet(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	id, err := s.Submit(ctx, submission("abc", 93.5, "fp-1"))
	require.NoError(t, err)
	require.Len(t, id, 26)

	e, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "ABC", e.Username)
	require.Equal(t, 93.5, e.CompletionSeconds)
	require.Equal(t, 25, e.Mode)
	require.Equal(t, nameList(25, "Test"), e.Names)
	require.Equal(t, Colour("fp-1"), e.Colour)
	require.True(t, clock.now.Equal(e.CreatedAt))

	_, err = s.Get(ctx, "01J000000000000000000000")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDuplicateWindow(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	_, err := s.Submit(ctx, submission("ABC", 60, "fp"))
	require.NoError(t, err)

	// Same names in another order and spelling are still the same set.
	dup := submission("XYZ", 50, "fp")
	dup.Names[0], dup.Names[1] = dup.Names[1], dup.Names[0]
	dup.Names[2] = "TEST-WOMAN 002"
	_, err = s.Submit(ctx, dup)
	require.ErrorIs(t, err, ErrDuplicateSubmission)

	// A different player may submit the same list.
	_, err = s.Submit(ctx, submission("ABC", 60, "other"))
	require.NoError(t, err)

	clock.now = clock.now.Add(DefaultDuplicateWindow + time.Second)
	_, err = s.Submit(ctx, submission("ABC", 60, "fp"))
	require.NoError(t, err)
}

func TestLeaderboardAndRecent(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	for i, secs := range []float64{120, 45, 300} {
		clock.now = clock.now.Add(time.Minute)
		sub := submission("P"+fmt.Sprint(i)+"X", secs, fmt.Sprintf("fp-%d", i))
		_, err := s.Submit(ctx, sub)
		require.NoError(t, err)
	}

	top, err := s.Leaderboard(ctx, 25, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	require.Equal(t, []float64{45, 120}, []float64{top[0].CompletionSeconds, top[1].CompletionSeconds})
	require.Empty(t, top[0].Names)

	empty, err := s.Leaderboard(ctx, 100, 10)
	require.NoError(t, err)
	require.Empty(t, empty)

	_, err = s.Leaderboard(ctx, 7, 10)
	require.ErrorIs(t, err, ErrInvalidMode)

	recent, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, []string{"P2X", "P1X", "P0X"}, []string{recent[0].Username, recent[1].Username, recent[2].Username})

	mine, err := s.ByUser(ctx, "p1x", 10)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, 45.0, mine[0].CompletionSeconds)
}

func TestNameStats(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	a := submission("AAA", 60, "a")
	a.Names[0] = "Marie Curie"
	_, err := s.Submit(ctx, a)
	require.NoError(t, err)

	b := submission("BBB", 60, "b")
	b.Names = nameList(25, "Other")
	b.Names[0] = "marie curie"
	_, err = s.Submit(ctx, b)
	require.NoError(t, err)

	stats, err := s.NameStats(ctx, 1)
	require.NoError(t, err)

	want := []NameStat{{Key: "marie curie", Count: 2, Variants: []string{"Marie Curie", "marie curie"}}}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Errorf("NameStats mismatch (-want +got):\n%s", diff)
	}
}

func TestColourIsStable(t *testing.T) {
	require.Equal(t, Colour("abc"), Colour("abc"))
	require.Regexp(t, `^hsl\(\d{1,3}, 65%, 55%\)$`, Colour("abc"))
}
