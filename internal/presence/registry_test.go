package presence

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectMakesUserOnline(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.IsOnline(7))

	r.Connect(7, "conn-1")
	assert.True(t, r.IsOnline(7))
	assert.ElementsMatch(t, []string{"conn-1"}, r.ConnectionsFor(7))
}

func TestMultiDeviceFanOut(t *testing.T) {
	r := NewRegistry()
	r.Connect(7, "phone")
	r.Connect(7, "laptop")

	assert.ElementsMatch(t, []string{"phone", "laptop"}, r.ConnectionsFor(7))

	r.Disconnect(7, "phone")
	assert.True(t, r.IsOnline(7), "still online on the laptop")
	assert.ElementsMatch(t, []string{"laptop"}, r.ConnectionsFor(7))
}

func TestLastDisconnectRemovesUser(t *testing.T) {
	r := NewRegistry()
	r.Connect(7, "conn-1")
	r.Disconnect(7, "conn-1")

	assert.False(t, r.IsOnline(7))
	assert.Nil(t, r.ConnectionsFor(7))
}

func TestDisconnectUnknownUserIsNoOp(t *testing.T) {
	r := NewRegistry()
	r.Disconnect(99, "ghost")
	assert.False(t, r.IsOnline(99))
}

func TestConcurrentConnectDisconnect(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("conn-%d", i)
			r.Connect(1, id)
			r.IsOnline(1)
			r.Disconnect(1, id)
		}(i)
	}
	wg.Wait()
	assert.False(t, r.IsOnline(1))
}
