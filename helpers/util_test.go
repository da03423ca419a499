package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitBefore(t *testing.T) {
	assert.Equal(t, "$10", SplitBefore("$10 to $20", " to "))
	assert.Equal(t, "US $5.99", SplitBefore("US $5.99/ea", "/"))
	assert.Equal(t, "no separator here", SplitBefore("no separator here", " to "))
	assert.Equal(t, "", SplitBefore("", "/"))
	assert.Equal(t, "a", SplitBefore("a/b/c", "/"))
}
