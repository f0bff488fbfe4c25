package digest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSum(t *testing.T) {
	a := Sum([]byte(`{"xp":100}`))
	assert.Len(t, a, Size*2)
	assert.Equal(t, a, Sum([]byte(`{"xp":100}`)))
	assert.NotEqual(t, a, Sum([]byte(`{"xp":101}`)))
}

func TestETag(t *testing.T) {
	tag := ETag([]byte("x"))
	assert.Equal(t, byte('"'), tag[0])
	assert.Equal(t, byte('"'), tag[len(tag)-1])
	assert.Equal(t, `"`+Sum([]byte("x"))+`"`, tag)
}
