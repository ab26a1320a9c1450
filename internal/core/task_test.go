package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type classifierFunc func(ctx context.Context, text string) (Label, error)

func (f classifierFunc) Classify(ctx context.Context, text string) (Label, error) {
	return f(ctx, text)
}

func TestRunTask_Success(t *testing.T) {
	clf := classifierFunc(func(_ context.Context, text string) (Label, error) {
		require.Equal(t, "hello", text)
		return LabelScam, nil
	})
	res := RunTask(context.Background(), clf, ClassificationTask{Identity: "alice", Input: "hello"}, 0)
	require.NoError(t, res.Err)
	require.Equal(t, LabelScam, res.Label)
	require.Equal(t, "alice", res.Task.Identity)
}

func TestRunTask_ErrorMapsToErrorLabel(t *testing.T) {
	clf := classifierFunc(func(context.Context, string) (Label, error) {
		return "", errors.New("model exploded")
	})
	res := RunTask(context.Background(), clf, ClassificationTask{Identity: "bob", Input: "x"}, 0)
	require.Equal(t, LabelError, res.Label)
	require.True(t, IsKind(res.Err, KindClassification))
	require.ErrorContains(t, res.Err, "model exploded")
}

func TestRunTask_PanicIsRecovered(t *testing.T) {
	clf := classifierFunc(func(context.Context, string) (Label, error) {
		panic("out of memory")
	})
	res := RunTask(context.Background(), clf, ClassificationTask{Identity: "carol", Input: "x"}, 0)
	require.Equal(t, LabelError, res.Label)
	require.True(t, IsKind(res.Err, KindClassification))
	require.ErrorContains(t, res.Err, "out of memory")
}

func TestRunTask_InvalidLabel(t *testing.T) {
	clf := classifierFunc(func(context.Context, string) (Label, error) {
		return Label("MAYBE"), nil
	})
	res := RunTask(context.Background(), clf, ClassificationTask{Identity: "dave", Input: "x"}, 0)
	require.Equal(t, LabelError, res.Label)
	require.ErrorIs(t, res.Err, ErrInvalidLabel)
}

func TestRunTask_Timeout(t *testing.T) {
	clf := classifierFunc(func(ctx context.Context, _ string) (Label, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	res := RunTask(context.Background(), clf, ClassificationTask{Identity: "erin", Input: "x"}, 10*time.Millisecond)
	require.Equal(t, LabelError, res.Label)
	require.ErrorIs(t, res.Err, context.DeadlineExceeded)
}
