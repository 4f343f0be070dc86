package helpers

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFoldErrors(t *testing.T) {
	t.Parallel()

	assert.NoError(t, FoldErrors(nil))
	assert.NoError(t, FoldErrors([]error{nil, nil}))
	err := FoldErrors([]error{fmt.Errorf("uart"), nil, fmt.Errorf("tele")})
	assert.EqualError(t, err, "uart\ntele")
}

func TestIntDefault(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 16*time.Millisecond, IntMillisecondDefault(0, 16*time.Millisecond))
	assert.Equal(t, 250*time.Millisecond, IntMillisecondDefault(250, 16*time.Millisecond))
	assert.Equal(t, 5*time.Minute, IntSecondDefault(0, 5*time.Minute))
	assert.Equal(t, 30*time.Second, IntSecondDefault(30, 5*time.Minute))
}

func TestMustHex(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []byte{0x02, 0x0a, 0x03}, MustHex("020a03"))
	assert.Panics(t, func() { MustHex("zz") })
}
