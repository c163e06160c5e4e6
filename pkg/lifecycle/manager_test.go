package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerWaitsForServices(t *testing.T) {
	m := NewManager("graceful", nil)
	h, err := m.NewServiceHandle("worker")
	require.NoError(t, err)

	go func() {
		defer h.Close()
		<-h.Done()
	}()

	m.Shutdown()
	assert.Empty(t, m.WaitWithTimeout(time.Second))
}

func TestManagerReportsRemainingServices(t *testing.T) {
	m := NewManager("graceful", nil)
	_, err := m.NewServiceHandle("stuck")
	require.NoError(t, err)

	m.Shutdown()
	assert.Equal(t, []string{"stuck"}, m.WaitWithTimeout(10*time.Millisecond))
}

func TestManagerRejectsDuplicateService(t *testing.T) {
	m := NewManager("graceful", nil)
	_, err := m.NewServiceHandle("worker")
	require.NoError(t, err)
	_, err = m.NewServiceHandle("worker")
	assert.Error(t, err)
}

func TestHandleSleepInterrupted(t *testing.T) {
	m := NewManager("graceful", nil)
	h, err := m.NewServiceHandle("sleeper")
	require.NoError(t, err)
	defer h.Close()

	go m.Shutdown()
	err = h.Sleep(time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}
