package trainer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantops/forgeml/pkg/errors"
)

func TestJobStreamsEventsThenResult(t *testing.T) {
	job := Start(plantRows(30, 1, 8), plantConfig("linear", "gradient_boosting"), WithParams(fastParams()))

	var events []Progress
	for p := range job.Events() {
		events = append(events, p)
	}
	models, err := job.Wait()
	require.NoError(t, err)
	assert.Len(t, models, 2)

	require.NotEmpty(t, events)
	assert.Equal(t, Progress{Label: DoneLabel, Percent: 100}, events[len(events)-1])
	for i := 1; i < len(events); i++ {
		assert.GreaterOrEqual(t, events[i].Percent, events[i-1].Percent)
	}
}

func TestJobWaitWithoutReadingEvents(t *testing.T) {
	job := Start(plantRows(30, 1, 8), plantConfig("random_forest"), WithParams(fastParams()))
	models, err := job.Wait()
	require.NoError(t, err)
	assert.Len(t, models, 1)
	job.Abandon()
}

func TestJobReportsError(t *testing.T) {
	job := Start(plantRows(4, 1, 8), plantConfig("linear"))
	for range job.Events() {
	}
	models, err := job.Wait()
	assert.Nil(t, models)
	var insufficient *errors.InsufficientDataError
	assert.True(t, errors.As(err, &insufficient))
}

func TestJobAbandonClosesEvents(t *testing.T) {
	job := Start(plantRows(30, 1, 8), plantConfig("gradient_boosting"), WithParams(fastParams()))
	job.Abandon()
	job.Abandon()

	closed := make(chan struct{})
	go func() {
		for range job.Events() {
		}
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(10 * time.Second):
		t.Fatal("events channel was not closed after Abandon")
	}

	select {
	case <-job.Done():
	case <-time.After(30 * time.Second):
		t.Fatal("training did not finish")
	}
	_, err := job.Wait()
	assert.NoError(t, err)
}
