package github_test

import (
	"context"
	"net/http"
	"testing"

	gogithub "github.com/google/go-github/v79/github"
	"github.com/shurcooL/githubv4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hautechai/github-mcp/pkg/buffer"
	"github.com/hautechai/github-mcp/pkg/github"
	"github.com/hautechai/github-mcp/pkg/logs"
)

func TestNewBaseDeps(t *testing.T) {
	t.Parallel()

	client := gogithub.NewClient(nil)
	gqlClient := githubv4.NewClient(http.DefaultClient)
	retriever := logs.NewRetriever(http.DefaultClient)

	deps := github.NewBaseDeps(client, gqlClient, retriever, 200)

	got, err := deps.GetClient(context.Background())
	require.NoError(t, err)
	assert.Same(t, client, got)

	gotGQL, err := deps.GetGQLClient(context.Background())
	require.NoError(t, err)
	assert.Same(t, gqlClient, gotGQL)

	assert.Same(t, retriever, deps.GetLogRetriever())
	assert.Equal(t, 200, deps.GetContentWindowSize())
}

func TestBaseDeps_Defaults(t *testing.T) {
	t.Parallel()

	deps := github.BaseDeps{}

	_, err := deps.GetClient(context.Background())
	assert.Error(t, err, "an unconfigured REST client must fail")

	_, err = deps.GetGQLClient(context.Background())
	assert.Error(t, err, "an unconfigured GraphQL client must fail")

	assert.NotNil(t, deps.GetLogRetriever())
	assert.Equal(t, github.DefaultContentWindowSize, deps.GetContentWindowSize())
}

func TestBaseDeps_ContentWindowSizeBounded(t *testing.T) {
	t.Parallel()

	deps := github.BaseDeps{ContentWindowSize: 150000}
	assert.Equal(t, buffer.MaxRetainedLines, deps.GetContentWindowSize())
}

func TestDepsContext(t *testing.T) {
	t.Parallel()

	_, ok := github.DepsFromContext(context.Background())
	assert.False(t, ok)
	assert.PanicsWithValue(t, github.ErrDepsNotInContext, func() {
		github.MustDepsFromContext(context.Background())
	})

	deps := github.BaseDeps{ContentWindowSize: 7}
	ctx := github.ContextWithDeps(context.Background(), deps)
	got, ok := github.DepsFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, 7, got.GetContentWindowSize())
}
