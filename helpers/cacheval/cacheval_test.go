package cacheval

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/temoto/mk2pvrouter/helpers"
)

func TestStringValid(t *testing.T) {
	t.Parallel()

	rand := helpers.RandUnix()
	const valid = 100 * time.Millisecond

	cv := String{}
	cv.Init(valid)

	assert.Equal(t, "", cv.Get())
	v, ok := cv.GetFresh()
	assert.Equal(t, "", v)
	assert.False(t, ok)
	assert.True(t, cv.Updated().IsZero())

	expect := strconv.Itoa(rand.Intn(10000))
	cv.Set(expect)
	v, ok = cv.GetFresh()
	assert.Equal(t, expect, v)
	assert.True(t, ok)
	assert.False(t, cv.Updated().IsZero())

	time.Sleep(valid + 10*time.Millisecond)
	v, ok = cv.GetFresh()
	assert.Equal(t, expect, v)
	assert.False(t, ok)
	assert.True(t, cv.Age() > valid)
}

func TestStringNoTimeout(t *testing.T) {
	t.Parallel()

	cv := String{}
	cv.Init(0)
	_, ok := cv.GetFresh()
	assert.False(t, ok)
	cv.Set("1234")
	v, ok := cv.GetFresh()
	assert.Equal(t, "1234", v)
	assert.True(t, ok)
}

func TestStringStress(t *testing.T) {
	const concurrency = 50
	const N = 500

	cv := String{}
	cv.Init(time.Second)

	wg := sync.WaitGroup{}
	wg.Add(concurrency)
	for i := 1; i <= concurrency; i++ {
		go func() {
			defer wg.Done()
			for j := 1; j <= N; j++ {
				v := cv.Get()
				if v != "" {
					if _, err := strconv.Atoi(v); err != nil {
						t.Errorf("torn value=%q", v)
						return
					}
				}
			}
		}()
	}
	for j := 1; j <= N; j++ {
		cv.Set(strconv.Itoa(j))
	}
	wg.Wait()
	assert.Equal(t, strconv.Itoa(N), cv.Get())
}
