// ABOUTME: Tests for the server-fault modal controller
// ABOUTME: Covers coalescing, concurrent retry, the attempt cap, and toast suppression

package faults

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-one-tech/aione-monihub-sub001/internal/api"
	"github.com/ai-one-tech/aione-monihub-sub001/internal/browser"
)

func serverFault(msg string) error {
	return &api.Error{Kind: api.KindServerFault, Status: 500, Message: msg}
}

type toastRecorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *toastRecorder) Toast(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *toastRecorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

func noRetry(ctx context.Context) error { return nil }

func TestReportFailure_ServerFaultOpensModal(t *testing.T) {
	c := New(browser.NewFakeNavigator("/machines"), nil)

	owned := c.ReportFailure(serverFault("boom"), noRetry)
	assert.True(t, owned)

	state := c.State()
	assert.True(t, state.Open)
	assert.Equal(t, "boom", state.Message)
	assert.Equal(t, 1, state.Pending)
}

func TestReportFailure_ConcurrentFaultsCoalesce(t *testing.T) {
	// Three concurrent 500s: one modal, a retry queue of three.
	c := New(browser.NewFakeNavigator("/"), nil)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.ReportFailure(serverFault("boom"), noRetry)
		}()
	}
	wg.Wait()

	state := c.State()
	assert.True(t, state.Open)
	assert.Equal(t, 3, state.Pending)
}

func TestReportFailure_OtherErrorsToast(t *testing.T) {
	toasts := &toastRecorder{}
	c := New(browser.NewFakeNavigator("/"), toasts)

	owned := c.ReportFailure(&api.Error{Kind: api.KindValidation, Status: 400, Message: "bad input"}, noRetry)
	assert.False(t, owned)
	assert.False(t, c.Open())
	require.Len(t, toasts.Messages(), 1)
	assert.Contains(t, toasts.Messages()[0], "bad input")
}

func TestReportFailure_ToastSuppressedWhileModalOpen(t *testing.T) {
	toasts := &toastRecorder{}
	c := New(browser.NewFakeNavigator("/"), toasts)

	c.ReportFailure(serverFault("boom"), noRetry)
	c.ReportFailure(&api.Error{Kind: api.KindValidation, Status: 400, Message: "bad input"}, noRetry)

	assert.Empty(t, toasts.Messages(), "modal owns the error surface")
}

func TestRetry_AllSucceedClosesModal(t *testing.T) {
	c := New(browser.NewFakeNavigator("/"), nil)

	var ran atomic.Int32
	retry := func(ctx context.Context) error {
		ran.Add(1)
		return nil
	}
	for i := 0; i < 3; i++ {
		c.ReportFailure(serverFault("boom"), retry)
	}

	require.NoError(t, c.Retry(context.Background()))
	assert.Equal(t, int32(3), ran.Load(), "all queued retries must run")

	state := c.State()
	assert.False(t, state.Open)
	assert.Zero(t, state.Pending)
	assert.Zero(t, state.Retries)
}

func TestRetry_AnyFailureKeepsModalOpen(t *testing.T) {
	c := New(browser.NewFakeNavigator("/"), nil)

	c.ReportFailure(serverFault("boom"), func(ctx context.Context) error { return nil })
	c.ReportFailure(serverFault("boom"), func(ctx context.Context) error { return errors.New("still down") })

	err := c.Retry(context.Background())
	require.Error(t, err)

	state := c.State()
	assert.True(t, state.Open)
	assert.Equal(t, 2, state.Pending)
	assert.Equal(t, 1, state.Retries)
}

func TestRetry_CapThenExhausted(t *testing.T) {
	c := New(browser.NewFakeNavigator("/"), nil)
	c.ReportFailure(serverFault("boom"), func(ctx context.Context) error { return errors.New("still down") })

	for i := 0; i < DefaultMaxRetries; i++ {
		require.Error(t, c.Retry(context.Background()))
	}

	assert.True(t, c.State().Exhausted)
	assert.ErrorIs(t, c.Retry(context.Background()), ErrRetriesExhausted)

	// An explicit reset lets the user try again
	c.ResetRetries()
	assert.False(t, c.State().Exhausted)
	require.Error(t, c.Retry(context.Background()))
	assert.Equal(t, 1, c.State().Retries)
}

func TestRetry_NoopWhenClosed(t *testing.T) {
	c := New(browser.NewFakeNavigator("/"), nil)
	assert.NoError(t, c.Retry(context.Background()))
}

func TestDismiss_ClearsEverything(t *testing.T) {
	c := New(browser.NewFakeNavigator("/"), nil)
	c.ReportFailure(serverFault("boom"), noRetry)
	c.ReportFailure(serverFault("boom"), noRetry)

	c.Dismiss()

	state := c.State()
	assert.False(t, state.Open)
	assert.Zero(t, state.Pending)
	assert.Zero(t, state.Retries)
	assert.Empty(t, state.Message)
}

func TestGoHome_NavigatesAndDismisses(t *testing.T) {
	nav := browser.NewFakeNavigator("/machines/42")
	c := New(nav, nil)
	c.ReportFailure(serverFault("boom"), noRetry)

	c.GoHome()

	assert.False(t, c.Open())
	assert.Equal(t, []string{"/"}, nav.Replaced())
}
