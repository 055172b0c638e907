package job

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/mediaexport/internal/job/id"
)

func TestNew(t *testing.T) {
	job := New(KindVideo, "clip.mp4")

	assert.True(t, id.Valid(job.ID))
	assert.Equal(t, KindVideo, job.Kind)
	assert.Equal(t, "clip.mp4", job.AssetID)
	assert.Equal(t, StatusInQueue, job.Status)
	assert.False(t, job.CreatedAt.IsZero())
	assert.Equal(t, job.CreatedAt, job.UpdatedAt)
}

func TestKind_IsValid(t *testing.T) {
	assert.True(t, KindVideo.IsValid())
	assert.True(t, KindImage.IsValid())
	assert.False(t, Kind("audio").IsValid())
	assert.False(t, Kind("").IsValid())
}

func TestJob_Transitions(t *testing.T) {
	tests := []struct {
		from    Status
		to      Status
		wantErr bool
	}{
		{StatusInQueue, StatusRunning, false},
		{StatusInQueue, StatusCancelled, false},
		{StatusInQueue, StatusTimedOut, false},
		{StatusRunning, StatusCompleted, false},
		{StatusRunning, StatusFailed, false},
		{StatusRunning, StatusCancelled, false},
		{StatusRunning, StatusTimedOut, false},
		{StatusInQueue, StatusCompleted, true},
		{StatusInQueue, StatusFailed, true},
		{StatusRunning, StatusInQueue, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			job := NewWithID("test", KindVideo, "a.mp4")
			job.Status = tt.from

			err := job.TransitionTo(tt.to)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestJob_TerminalStatesAreFinal(t *testing.T) {
	terminal := []Status{StatusCompleted, StatusFailed, StatusCancelled, StatusTimedOut}
	all := append([]Status{StatusInQueue, StatusRunning}, terminal...)

	for _, from := range terminal {
		for _, to := range all {
			job := NewWithID("test", KindImage, "a.png")
			job.Status = from
			assert.ErrorIs(t, job.TransitionTo(to), ErrInvalidTransition, "%s -> %s", from, to)
		}
	}
}

func TestJob_Lifecycle(t *testing.T) {
	job := New(KindVideo, "clip.mp4")
	before := time.Now()

	require.NoError(t, job.Start())
	assert.Equal(t, StatusRunning, job.GetStatus())
	assert.False(t, job.StartedAt.Before(before))

	job.SetRenderSize(640, 800)
	job.SetOutput("/tmp/640x800_resized.mp4", "https://cdn/x.mp4")
	require.NoError(t, job.Complete())

	assert.True(t, job.IsTerminal())
	assert.Equal(t, 640, job.RenderWidth)
	assert.Equal(t, 800, job.RenderHeight)
	assert.Equal(t, "/tmp/640x800_resized.mp4", job.OutputPath)
	assert.Equal(t, "https://cdn/x.mp4", job.OutputURL)
	assert.False(t, job.CompletedAt.IsZero())
}

func TestJob_FailureRecordsCode(t *testing.T) {
	tests := []struct {
		name     string
		finish   func(*Job) error
		status   Status
		wantCode string
	}{
		{"fail", func(j *Job) error { return j.Fail("no_source_track", "no video") }, StatusFailed, "no_source_track"},
		{"cancel", func(j *Job) error { return j.Cancel("stopped") }, StatusCancelled, "cancelled"},
		{"timeout", func(j *Job) error { return j.Timeout("too slow") }, StatusTimedOut, "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := New(KindVideo, "clip.mp4")
			require.NoError(t, job.Start())

			require.NoError(t, tt.finish(job))
			assert.Equal(t, tt.status, job.GetStatus())
			assert.Equal(t, tt.wantCode, job.ErrorCode)
			assert.NotEmpty(t, job.Error)
		})
	}
}

func TestJob_FailFromQueueIsRejected(t *testing.T) {
	job := New(KindVideo, "clip.mp4")

	assert.ErrorIs(t, job.Fail("internal", "x"), ErrInvalidTransition)
	assert.Empty(t, job.Error)
	assert.Empty(t, job.ErrorCode)
}

func TestJob_Clone(t *testing.T) {
	job := New(KindImage, "pic.png")
	job.Preset = "userpic"
	job.Publish = true
	job.SetRenderSize(161, 161)

	clone := job.Clone()
	assert.Equal(t, job.ID, clone.ID)
	assert.Equal(t, "userpic", clone.Preset)
	assert.True(t, clone.Publish)
	assert.Equal(t, 161, clone.RenderWidth)

	clone.Status = StatusCompleted
	assert.Equal(t, StatusInQueue, job.GetStatus())
}

func TestJob_GetStatus_ThreadSafe(t *testing.T) {
	job := New(KindVideo, "clip.mp4")

	done := make(chan bool)
	go func() {
		for range 100 {
			_ = job.GetStatus()
		}
		done <- true
	}()

	go func() {
		for range 100 {
			_ = job.Start()
		}
		done <- true
	}()

	<-done
	<-done
}
