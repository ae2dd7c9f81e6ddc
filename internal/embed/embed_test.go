package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashEmbedderDeterministic(t *testing.T) {
	e := NewHashEmbedder(64)
	ctx := context.Background()

	a, err := e.Embed(ctx, "Ticket from <Person_1> about billing")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "Ticket from <Person_1> about billing")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.Equal(t, 64, e.Dimensions())
}

func TestHashEmbedderNormalized(t *testing.T) {
	e := NewHashEmbedder(0) // default dims
	vec, err := e.Embed(context.Background(), "some non-empty input text")
	require.NoError(t, err)
	require.Len(t, vec, 256)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestHashEmbedderSharedTokensCloser(t *testing.T) {
	e := NewHashEmbedder(256)
	ctx := context.Background()

	q, _ := e.Embed(ctx, "billing issue for <Person_1>")
	same, _ := e.Embed(ctx, "<Person_1> reported a billing error")
	other, _ := e.Embed(ctx, "dashboard lockout for <Person_2>")

	assert.Less(t, l2(q, same), l2(q, other))
}

func TestHashEmbedderEmptyText(t *testing.T) {
	e := NewHashEmbedder(32)
	vec, err := e.Embed(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, vec, 32)
}

func l2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
