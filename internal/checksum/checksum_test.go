package checksum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSum(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Sum(""))
	assert.NotEqual(t, Sum("<div>a</div>"), Sum("<div>b</div>"))
}

func TestMatches(t *testing.T) {
	sum := Sum("note")
	assert.True(t, Matches(ETag(sum), sum))
	assert.True(t, Matches(`"other", `+ETag(sum), sum))
	assert.True(t, Matches("W/"+ETag(sum), sum))
	assert.True(t, Matches("*", sum))
	assert.False(t, Matches(`"other"`, sum))
	assert.False(t, Matches("", sum))
}
