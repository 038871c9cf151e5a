package rtlist

import (
	"testing"

	"github.com/doismellburning/ssrender/internal/rtcmd"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func drain(q *rtcmd.Queue) {
	q.ProcessCommands(nil)
}

func collect(l *List[int]) []int {
	var got []int
	l.Each(func(v int) { got = append(got, v) })
	return got
}

func TestAddRemClearObservedByRT(t *testing.T) {
	q := rtcmd.NewQueue(32)
	l := New[int](q)

	l.Add(1)
	l.Add(2)
	l.AddRange([]int{3, 4})
	drain(q)
	assert.Equal(t, []int{1, 2, 3, 4}, collect(l))

	var removed []int
	l.Rem(2, func(a, b int) bool { return a == b }, func(v int) { removed = append(removed, v) })
	drain(q)
	assert.Equal(t, []int{1, 3, 4}, collect(l))

	var cleared []int
	l.Clear(func(v int) { cleared = append(cleared, v) })
	drain(q)
	assert.Empty(t, collect(l))
	assert.ElementsMatch(t, []int{1, 3, 4}, cleared)
	assert.Equal(t, []int{2}, removed)
}

// TestRtListMatchesModel asserts that after any finite sequence of NRT
// add/rem/clear commands, once the RT side has processed them, the
// RT-visible list equals the multiset of alive items.
func TestRtListMatchesModel(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		q := rtcmd.NewQueue(64)
		l := New[int](q)
		model := map[int]int{} // value -> alive count, in insertion order not required (multiset)
		var order []int

		ops := rapid.IntRange(1, 40).Draw(t, "ops")
		for i := 0; i < ops; i++ {
			switch rapid.IntRange(0, 2).Draw(t, "op") {
			case 0:
				v := rapid.IntRange(0, 5).Draw(t, "addValue")
				l.Add(v)
				order = append(order, v)
				model[v]++
			case 1:
				if len(order) == 0 {
					continue
				}
				v := order[rapid.IntRange(0, len(order)-1).Draw(t, "remIndex")]
				if model[v] == 0 {
					continue
				}
				l.Rem(v, func(a, b int) bool { return a == b }, nil)
				model[v]--
				// Remove one occurrence from order bookkeeping.
				for idx, o := range order {
					if o == v {
						order = append(order[:idx], order[idx+1:]...)
						break
					}
				}
			case 2:
				l.Clear(nil)
				model = map[int]int{}
				order = nil
			}
			drain(q)
		}

		gotCounts := map[int]int{}
		for _, v := range collect(l) {
			gotCounts[v]++
		}
		for k, v := range model {
			if v == 0 {
				delete(model, k)
			}
		}
		assert.Equal(t, model, gotCounts)
	})
}
