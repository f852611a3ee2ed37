package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	first := Get()
	require.NotNil(t, first)
	assert.Same(t, first, Get())
}

func TestCtxRoundTrip(t *testing.T) {
	ctx := WithCtx(context.Background(), Get())
	assert.Same(t, Get(), FromCtx(ctx))

	custom := Get().With("component", "test")
	ctx = WithCtx(ctx, custom)
	assert.Same(t, custom, FromCtx(ctx))
}

func TestWithCtxSameLogger(t *testing.T) {
	ctx := WithCtx(context.Background(), Get())
	assert.Same(t, ctx, WithCtx(ctx, Get()))
}
