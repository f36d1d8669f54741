package stringpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmptyStringIsIDZero(t *testing.T) {
	p := New()
	assert.Equal(t, ID(0), p.Intern(""))
}

func TestInternIsStableAndOrdered(t *testing.T) {
	p := New()
	a := p.Intern("Sheet1")
	b := p.Intern("Sheet2")
	aAgain := p.Intern("Sheet1")

	assert.Equal(t, a, aAgain)
	assert.NotEqual(t, a, b)
	assert.Equal(t, "Sheet1", p.Resolve(a))
	assert.Equal(t, []string{"", "Sheet1", "Sheet2"}, p.Strings())
}

func TestIDsAreMonotonic(t *testing.T) {
	p := New()
	var last ID
	for i, s := range []string{"a", "b", "c", "d"} {
		id := p.Intern(s)
		if i > 0 {
			assert.Greater(t, id, last)
		}
		last = id
	}
}
