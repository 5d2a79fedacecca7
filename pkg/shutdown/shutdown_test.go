package shutdown

import (
	"context"
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunExecutesEveryStep(t *testing.T) {
	var order []string
	step := func(name string, err error) Step {
		return Step{Name: name, Stop: func(context.Context) error {
			order = append(order, name)
			return err
		}}
	}
	boom := errors.New("boom")

	err := Run(context.Background(), step("http", nil), step("probe", boom), Step{Name: "noop"}, step("node", nil))
	assert.Equal(t, []string{"http", "probe", "node"}, order)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "probe: boom")
}

func TestRunReportsExpiredContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Run(ctx), context.Canceled)
}

func TestAbortExitsWithOne(t *testing.T) {
	code := -1
	exit = func(c int) { code = c }
	defer func() { exit = os.Exit }()

	Abort("failed to load config", errors.New("missing"))
	assert.Equal(t, 1, code)
}

func TestSignalCancelsContext(t *testing.T) {
	ctx, cancel := SetupSignalHandler(context.Background())
	defer cancel()

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not cancelled by SIGTERM")
	}
}
