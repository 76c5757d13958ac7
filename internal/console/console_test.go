package console

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockController records calls.
type mockController struct {
	scans int
	sent  []string
}

func (m *mockController) StartScan() { m.scans++ }

func (m *mockController) SendMessage(text string) { m.sent = append(m.sent, text) }

func TestConsoleRoutesLines(t *testing.T) {
	mock := &mockController{}
	in := strings.NewReader("/scan\nhello\r\nこんにちは\n")
	c := New(mock, in, nil)

	err := c.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, mock.scans)
	assert.Equal(t, []string{"hello", "こんにちは"}, mock.sent)
}

func TestConsoleQuitStopsReading(t *testing.T) {
	mock := &mockController{}
	c := New(mock, strings.NewReader("first\n/quit\nsecond\n"), nil)

	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, []string{"first"}, mock.sent)
}

func TestConsoleHelpDoesNotSend(t *testing.T) {
	mock := &mockController{}
	var out bytes.Buffer
	c := New(mock, strings.NewReader("/help\n"), &out)

	require.NoError(t, c.Run(context.Background()))
	assert.Empty(t, mock.sent)
	assert.Contains(t, out.String(), CmdScan)
}

func TestConsoleCancelledContext(t *testing.T) {
	mock := &mockController{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := New(mock, strings.NewReader("hello\n"), nil)

	err := c.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, mock.sent)
}

func TestNewPanicsOnNilController(t *testing.T) {
	assert.Panics(t, func() { New(nil, strings.NewReader(""), nil) })
}

func TestConsoleSkipsOverlongLine(t *testing.T) {
	mock := &mockController{}
	var out bytes.Buffer
	long := strings.Repeat("x", MaxLineBytes+10)
	c := New(mock, strings.NewReader(long+"\nhello\n"), &out)

	err := c.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, mock.sent)
	assert.Contains(t, out.String(), "not sent")
}

func TestConsoleAcceptsLineAtLimit(t *testing.T) {
	mock := &mockController{}
	exact := strings.Repeat("y", MaxLineBytes)
	c := New(mock, strings.NewReader(exact+"\n"), nil)

	require.NoError(t, c.Run(context.Background()))
	require.Len(t, mock.sent, 1)
	assert.Len(t, mock.sent[0], MaxLineBytes)
}

func TestConsoleLastLineWithoutNewline(t *testing.T) {
	mock := &mockController{}
	c := New(mock, strings.NewReader("tail"), nil)

	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, []string{"tail"}, mock.sent)
}
