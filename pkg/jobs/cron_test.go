package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCronRegisterRejectsDuplicates(t *testing.T) {
	c := NewCron(zap.NewNop())
	task := func(ctx context.Context) error { return nil }

	require.NoError(t, c.Register("sweep", "0 2 * * *", task))
	assert.Error(t, c.Register("sweep", "0 3 * * *", task))
}

func TestCronRegisterRejectsInvalidSpec(t *testing.T) {
	c := NewCron(nil)
	err := c.Register("sweep", "every night", func(ctx context.Context) error { return nil })
	assert.Error(t, err)
}

func TestCronRunSwallowsTaskErrors(t *testing.T) {
	c := NewCron(zap.NewNop())
	called := false
	c.run("sweep", func(ctx context.Context) error {
		called = true
		return errors.New("boom")
	})
	assert.True(t, called)
}

func TestCronStartStop(t *testing.T) {
	c := NewCron(zap.NewNop())
	require.NoError(t, c.Register("sweep", "@daily", func(ctx context.Context) error { return nil }))
	c.Start()
	c.Stop()
}
