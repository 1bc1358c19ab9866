package voting

import "github.com/bigdegenenergy/maker-framework/internal/types"

// tally counts equivalent actions within one voting round. It is owned by a
// single goroutine, lives for exactly one round and is discarded once a
// winner is declared, never reused across steps.
type tally struct {
	counts  map[string]int
	actions map[string]types.Action

	// leaderKey tracks the candidate that first reached the current maximum
	// count. It is re-assigned only when another candidate strictly exceeds
	// that maximum, so when several candidates sit at max_count the one that
	// got there first stays the leader. This pins the winner deterministically
	// when more than one key could cross the threshold on the same update.
	leaderKey   string
	leaderCount int
}

func newTally() *tally {
	return &tally{
		counts:  make(map[string]int),
		actions: make(map[string]types.Action),
	}
}

// add records one vote for the action and returns its new count.
func (t *tally) add(a types.Action) int {
	key := a.Key()
	if _, seen := t.counts[key]; !seen {
		t.actions[key] = a
	}
	t.counts[key]++
	n := t.counts[key]
	if n > t.leaderCount {
		t.leaderKey = key
		t.leaderCount = n
	}
	return n
}

// leader returns the current leading action, its count, and the runner-up
// count across the remaining distinct keys (0 when fewer than two keys
// exist).
func (t *tally) leader() (types.Action, int, int) {
	runnerUp := 0
	for key, n := range t.counts {
		if key == t.leaderKey {
			continue
		}
		if n > runnerUp {
			runnerUp = n
		}
	}
	return t.actions[t.leaderKey], t.leaderCount, runnerUp
}

// decided reports whether the leader is ahead of every other candidate by at
// least k votes.
func (t *tally) decided(k int) bool {
	if t.leaderCount == 0 {
		return false
	}
	_, max, runnerUp := t.leader()
	return max >= runnerUp+k
}

// distinct returns the number of distinct candidate keys seen this round.
func (t *tally) distinct() int {
	return len(t.counts)
}
