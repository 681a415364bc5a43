package common

import (
	"testing"

	"github.com/bmizerany/assert"
)

func TestStringSet(t *testing.T) {
	ss := StringSet{}
	ss.Add("1")
	ss.Add("2")
	assert.T(t, ss.Contains("1"), "should contain")
	assert.T(t, ss.Contains("2"), "should contain")
	ss.Remove("2")
	assert.T(t, !ss.Contains("2"), "should contain")
}

func TestSplitStringSet(t *testing.T) {
	ss := SplitStringSet(" env:dev, ,role:sim,env:dev")
	assert.Equal(t, []string{"env:dev", "role:sim"}, ss.ToList())
	assert.Equal(t, 0, len(SplitStringSet("")))
}

func TestEntityIDSet(t *testing.T) {
	es := EntityIDSet{}
	es.Add(3)
	es.Add(1)
	es.Add(2)
	assert.Equal(t, []EntityID{1, 2, 3}, es.ToList())
	es.Del(2)
	assert.T(t, !es.Contains(2), "should not contain 2")

	cp := es.Copy()
	cp.Add(9)
	assert.T(t, !es.Contains(9), "copy must not alias")
}
