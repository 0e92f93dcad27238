package signup

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestUnwind_LogsFailedStepsAndKeepsGoing(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := &Handler{Log: zap.New(core)}
	id := primitive.NewObjectID()

	var ran []string
	step := func(what string, err error) undoStep {
		return undoStep{what, func(context.Context) error {
			ran = append(ran, what)
			return err
		}}
	}

	h.unwind(context.Background(), id, []undoStep{
		step("identity", nil),
		step("profile", errors.New("mongo: connection reset")),
		step("organization", nil),
	})

	require.Equal(t, []string{"organization", "profile", "identity"}, ran)
	entries := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, entries, 1)
	require.Equal(t, "signup: failed to remove profile", entries[0].Message)
	require.Equal(t, id.Hex(), entries[0].ContextMap()["user_id"])
}
