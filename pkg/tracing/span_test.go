package tracing

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/logger"
)

func TestSpanTree(t *testing.T) {
	var buf bytes.Buffer
	logger.SetupWriter(&buf, "debug", "text")

	ctx := logger.WithRunID(context.Background(), "run-1")
	ctx, root := Start(ctx, "generate")
	_, load := Start(ctx, "load")
	load.SetAttr("foods", 3)
	load.End()
	Start(ctx, "categorize")

	require.Same(t, root, FromContext(ctx))
	require.Len(t, root.Children(), 2)

	root.Log(ctx)
	out := buf.String()
	require.Equal(t, 3, strings.Count(out, "run_id=run-1"))
	require.Contains(t, out, "span=load")
	require.Contains(t, out, "foods=3")
}
