package stream

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threads-agent/pkg/logger"
)

func testLog() *logger.Logger {
	return logger.New(logger.Config{Level: "disabled", Format: "json"})
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []Event {
	t.Helper()
	var events []Event
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var event Event
		require.NoError(t, json.Unmarshal([]byte(line), &event))
		events = append(events, event)
	}
	return events
}

func TestReporterWritesOneJSONObjectPerLine(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewReporter(&buf, testLog())

	reporter.Stage("initializing", "準備中")
	reporter.Start(5)
	reporter.Progress("generating", 3, 5, 1500*time.Millisecond)
	reporter.Complete(5)

	events := decodeLines(t, &buf)
	require.Len(t, events, 4)

	assert.Equal(t, "stage", events[0].Type)
	assert.Equal(t, "initializing", events[0].Stage)
	assert.Equal(t, "準備中", events[0].Message)

	assert.Equal(t, "start", events[1].Type)
	assert.Equal(t, 5, events[1].Total)

	assert.Equal(t, "progress", events[2].Type)
	assert.Equal(t, 3, events[2].Current)
	assert.EqualValues(t, 1500, events[2].ElapsedMs)

	assert.Equal(t, "complete", events[3].Type)
	assert.Equal(t, 5, events[3].ItemsCount)
}

func TestReporterStampsRFC3339Timestamps(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewReporter(&buf, testLog())
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	reporter.clock = func() time.Time { return fixed }

	reporter.Error("generation failed")

	events := decodeLines(t, &buf)
	require.Len(t, events, 1)
	assert.Equal(t, "error", events[0].Type)
	assert.Equal(t, "generation failed", events[0].Message)
	assert.Equal(t, "2025-01-02T03:04:05Z", events[0].Timestamp)
}

type failingWriter struct {
	writes int
}

func (f *failingWriter) Write(p []byte) (int, error) {
	f.writes++
	return 0, errors.New("client disconnected")
}

func TestReporterStopsWritingToClosedSink(t *testing.T) {
	sink := &failingWriter{}
	reporter := NewReporter(sink, testLog())

	reporter.Stage("generating", "生成中")
	reporter.Progress("generating", 1, 5, 0)
	reporter.Complete(5)

	// The first failed write marks the sink closed; later events are
	// dropped without touching it again.
	assert.Equal(t, 1, sink.writes)
}
