package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanSpinnerViewShowsElapsedAfterOneSecond(t *testing.T) {
	start := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	now := start
	model := newScanSpinnerModel("Scanning...", nil, func() time.Time { return now })

	assert.Contains(t, model.View(), "Scanning...")
	assert.NotContains(t, model.View(), "(")

	now = start.Add(3500 * time.Millisecond)
	assert.Contains(t, model.View(), "(3s)")
}

func TestScanSpinnerStopsOnDone(t *testing.T) {
	model := newScanSpinnerModel("Scanning...", nil, time.Now)
	scanErr := errors.New("store offline")

	next, cmd := model.Update(scanDoneMsg{err: scanErr})
	require.NotNil(t, cmd)

	done := next.(scanSpinnerModel)
	assert.True(t, done.done)
	assert.Equal(t, "", done.View())
	assert.ErrorIs(t, done.err, scanErr)
}

func TestRunScanSpinnerReturnsScanResult(t *testing.T) {
	var out bytes.Buffer
	calls := 0

	err := runScanSpinner(context.Background(), &out, "Scanning...", func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	scanErr := errors.New("list accounts: boom")
	err = runScanSpinner(context.Background(), &out, "Scanning...", func(context.Context) error {
		return scanErr
	})
	assert.ErrorIs(t, err, scanErr)
}
