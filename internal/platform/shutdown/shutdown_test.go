package shutdown

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Sound58he4/studio-sub000/pkg/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestShutdownStopsServicesThenRunsFinalStep(t *testing.T) {
	graceful := lifecycle.NewManager("graceful", zap.NewNop())
	forceful := lifecycle.NewManager("forceful", zap.NewNop())
	c := NewCoordinator(graceful, forceful, zap.NewNop())

	handle, err := graceful.NewServiceHandle("worker")
	require.NoError(t, err)
	stopped := make(chan struct{})
	go func() {
		defer handle.Close()
		<-handle.Done()
		close(stopped)
	}()

	finalRan := false
	c.Shutdown(&http.Server{}, func(ctx context.Context) error {
		select {
		case <-stopped:
		default:
			t.Error("最终步骤在后台服务退出前执行")
		}
		finalRan = true
		return nil
	})
	assert.True(t, finalRan)
}

func TestShutdownEscalatesToForceful(t *testing.T) {
	graceful := lifecycle.NewManager("graceful", zap.NewNop())
	forceful := lifecycle.NewManager("forceful", zap.NewNop())
	core, logs := observer.New(zap.WarnLevel)
	c := NewCoordinator(graceful, forceful, zap.New(core))
	c.GracefulTimeout = 10 * time.Millisecond

	// 只响应强制信号的服务
	gh, err := graceful.NewServiceHandle("stubborn")
	require.NoError(t, err)
	fh, err := forceful.NewServiceHandle("stubborn")
	require.NoError(t, err)
	go func() {
		defer gh.Close()
		defer fh.Close()
		<-fh.Done()
	}()

	c.Shutdown(&http.Server{}, func(context.Context) error { return errors.New("boom") })
	assert.Equal(t, 1, logs.FilterMessage("第一阶段超时，发送第二停机信号").Len())
	assert.Equal(t, 1, logs.FilterMessage("最后一轮修复失败").Len())
}
