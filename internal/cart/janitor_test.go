package cart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNewJanitor_InvalidSpec(t *testing.T) {
	storer := new(MockCartStorer)

	janitor, err := NewJanitor(storer, "not a cron spec", time.Hour)

	require.Error(t, err)
	assert.Nil(t, janitor)
	assert.Contains(t, err.Error(), "invalid janitor spec")
}

func TestJanitor_SweepInvokesStaleDeletion(t *testing.T) {
	storer := new(MockCartStorer)
	swept := make(chan struct{}, 1)
	storer.On("DeleteStaleCarts", mock.Anything, time.Hour).Return(int64(2), nil).Run(func(mock.Arguments) {
		select {
		case swept <- struct{}{}:
		default:
		}
	})

	janitor, err := NewJanitor(storer, "* * * * * *", time.Hour) // every second
	require.NoError(t, err)

	janitor.Start()
	defer janitor.Stop()

	select {
	case <-swept:
	case <-time.After(3 * time.Second):
		t.Fatal("janitor did not run the sweep in time")
	}
}
