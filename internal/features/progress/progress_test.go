package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/iamabdullah-dev/EdTech/internal/features/course"
	"github.com/iamabdullah-dev/EdTech/internal/features/video"
	"github.com/iamabdullah-dev/EdTech/pkg/database/dbtest"
)

type enrollmentRow struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	StudentID          uuid.UUID `gorm:"type:uuid"`
	CourseID           uuid.UUID `gorm:"type:uuid"`
	ProgressPercentage int
}

func (enrollmentRow) TableName() string { return "enrollments" }

type fixture struct {
	db         *gorm.DB
	tracker    *Tracker
	course     course.Course
	videos     []video.Video
	enrollment enrollmentRow
}

func newFixture(t *testing.T, videoCount int) *fixture {
	t.Helper()
	ctx := context.Background()
	db := dbtest.Open(t, &course.Course{}, &video.Video{}, &enrollmentRow{}, &CourseProgress{}, &VideoProgress{})

	crs, err := course.Create(ctx, db, course.CreateInput{TutorID: uuid.New(), Title: "Testing in Go"})
	require.NoError(t, err)

	f := &fixture{
		db:      db,
		tracker: &Tracker{now: func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }},
		course:  crs,
	}
	for i := 0; i < videoCount; i++ {
		f.addVideo(t)
	}

	f.enrollment = enrollmentRow{ID: uuid.New(), StudentID: uuid.New(), CourseID: crs.ID}
	require.NoError(t, db.Create(&f.enrollment).Error)
	_, err = Initialize(ctx, db, f.enrollment.ID, videoCount)
	require.NoError(t, err)
	return f
}

func (f *fixture) addVideo(t *testing.T) video.Video {
	t.Helper()
	v, err := video.Create(context.Background(), f.db, video.CreateInput{
		CourseID: f.course.ID, Title: "Lesson", VideoURL: "https://cdn/v", Duration: 300,
	})
	require.NoError(t, err)
	f.videos = append(f.videos, v)
	return v
}

func (f *fixture) complete(t *testing.T, v video.Video) VideoProgress {
	t.Helper()
	done := true
	vp, err := f.tracker.Report(context.Background(), f.db, f.enrollment.ID, v.ID, Patch{IsCompleted: &done})
	require.NoError(t, err)
	return vp
}

func (f *fixture) aggregate(t *testing.T) CourseProgress {
	t.Helper()
	cp, err := Get(context.Background(), f.db, f.enrollment.ID)
	require.NoError(t, err)
	return cp
}

func (f *fixture) mirrored(t *testing.T) int {
	t.Helper()
	var e enrollmentRow
	require.NoError(t, f.db.First(&e, "id = ?", f.enrollment.ID).Error)
	return e.ProgressPercentage
}

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int { return &i }

func TestPercentage(t *testing.T) {
	cases := []struct {
		completed, total, want int
	}{
		{0, 0, 0},
		{3, 0, 0},
		{0, 3, 0},
		{1, 3, 33},
		{2, 3, 67},
		{3, 3, 100},
		{1, 8, 13},
		{3, 4, 75},
		{5, 3, 100},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Percentage(tc.completed, tc.total), "%d/%d", tc.completed, tc.total)
	}
}

func TestPatchAssignments(t *testing.T) {
	now := time.Now()

	updates, err := Patch{IsCompleted: boolPtr(false)}.Assignments(VideoProgress{IsCompleted: true}, now)
	require.NoError(t, err)
	assert.Empty(t, updates, "false never clears completion")

	updates, err = Patch{IsCompleted: boolPtr(true)}.Assignments(VideoProgress{IsCompleted: true}, now)
	require.NoError(t, err)
	assert.Empty(t, updates)

	updates, err = Patch{IsCompleted: boolPtr(true), LastPosition: intPtr(42)}.Assignments(VideoProgress{}, now)
	require.NoError(t, err)
	assert.Equal(t, true, updates["is_completed"])
	assert.Equal(t, now, updates["completed_at"])
	assert.Equal(t, 42, updates["last_position"])

	updates, err = Patch{}.Assignments(VideoProgress{LastPosition: 10}, now)
	require.NoError(t, err)
	assert.Empty(t, updates)

	_, err = Patch{LastPosition: intPtr(-1)}.Assignments(VideoProgress{}, now)
	assert.ErrorIs(t, err, ErrInvalidPosition)
}

func TestReportRejectsNegativePosition(t *testing.T) {
	f := newFixture(t, 1)

	_, err := f.tracker.Report(context.Background(), f.db, f.enrollment.ID, f.videos[0].ID, Patch{IsCompleted: boolPtr(true), LastPosition: intPtr(-5)})
	assert.ErrorIs(t, err, ErrInvalidPosition)

	var rows int64
	require.NoError(t, f.db.Model(&VideoProgress{}).Count(&rows).Error)
	assert.Zero(t, rows)
	assert.Equal(t, 0, f.aggregate(t).VideosCompleted)
}

func TestConcurrentReportsKeepAggregateConsistent(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, len(f.videos))
	for _, v := range f.videos {
		wg.Add(1)
		go func(videoID uuid.UUID) {
			defer wg.Done()
			if _, err := f.tracker.Report(ctx, f.db, f.enrollment.ID, videoID, Patch{IsCompleted: boolPtr(true)}); err != nil {
				errs <- err
			}
		}(v.ID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("unexpected report error: %v", err)
	}

	cp := f.aggregate(t)
	assert.Equal(t, 3, cp.VideosCompleted)
	assert.Equal(t, 3, cp.TotalVideos)
	assert.Equal(t, 100, cp.ProgressPercentage)
	require.NotNil(t, cp.CompletedAt)
	assert.Equal(t, 100, f.mirrored(t))

	_, err := f.tracker.Report(ctx, f.db, f.enrollment.ID, f.videos[1].ID, Patch{IsCompleted: boolPtr(false)})
	require.NoError(t, err)
	after := f.aggregate(t)
	assert.Equal(t, 3, after.VideosCompleted)
	assert.Equal(t, 100, after.ProgressPercentage)
	assert.Equal(t, cp.CompletedAt.Unix(), after.CompletedAt.Unix())
}

func TestInitializeStartsAtZero(t *testing.T) {
	f := newFixture(t, 3)

	cp := f.aggregate(t)
	assert.Equal(t, 0, cp.VideosCompleted)
	assert.Equal(t, 3, cp.TotalVideos)
	assert.Equal(t, 0, cp.ProgressPercentage)
	assert.Nil(t, cp.CompletedAt)
}

func TestCompletingVideosAdvancesAggregate(t *testing.T) {
	f := newFixture(t, 3)

	f.complete(t, f.videos[0])
	assert.Equal(t, 33, f.aggregate(t).ProgressPercentage)
	assert.Equal(t, 33, f.mirrored(t))

	f.complete(t, f.videos[1])
	assert.Equal(t, 67, f.aggregate(t).ProgressPercentage)

	vp := f.complete(t, f.videos[2])
	assert.True(t, vp.IsCompleted)
	require.NotNil(t, vp.CompletedAt)

	cp := f.aggregate(t)
	assert.Equal(t, 3, cp.VideosCompleted)
	assert.Equal(t, 100, cp.ProgressPercentage)
	require.NotNil(t, cp.CompletedAt)
	assert.Equal(t, 100, f.mirrored(t))
}

func TestCompletionTimestampSurvivesNewVideos(t *testing.T) {
	f := newFixture(t, 3)
	for _, v := range f.videos {
		f.complete(t, v)
	}
	finished := f.aggregate(t).CompletedAt
	require.NotNil(t, finished)

	f.addVideo(t)
	f.tracker.now = func() time.Time { return time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC) }
	f.complete(t, f.videos[0])

	cp := f.aggregate(t)
	assert.Equal(t, 4, cp.TotalVideos)
	assert.Equal(t, 3, cp.VideosCompleted)
	assert.Equal(t, 75, cp.ProgressPercentage)
	require.NotNil(t, cp.CompletedAt)
	assert.True(t, finished.Equal(*cp.CompletedAt))
}

func TestPositionOnlyReportSkipsRecompute(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	vp, err := f.tracker.Report(ctx, f.db, f.enrollment.ID, f.videos[0].ID, Patch{LastPosition: intPtr(95)})
	require.NoError(t, err)
	assert.Equal(t, 95, vp.LastPosition)
	assert.False(t, vp.IsCompleted)

	vp, err = f.tracker.Report(ctx, f.db, f.enrollment.ID, f.videos[0].ID, Patch{LastPosition: intPtr(120)})
	require.NoError(t, err)
	assert.Equal(t, 120, vp.LastPosition)

	var rows int64
	require.NoError(t, f.db.Model(&VideoProgress{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
	assert.Equal(t, 0, f.aggregate(t).ProgressPercentage)
}

func TestCompletionIsSticky(t *testing.T) {
	f := newFixture(t, 2)
	f.complete(t, f.videos[0])

	vp, err := f.tracker.Report(context.Background(), f.db, f.enrollment.ID, f.videos[0].ID, Patch{IsCompleted: boolPtr(false), LastPosition: intPtr(3)})
	require.NoError(t, err)
	assert.True(t, vp.IsCompleted)
	assert.Equal(t, 3, vp.LastPosition)
	assert.Equal(t, 50, f.aggregate(t).ProgressPercentage)
}

func TestReportRejectsUnknownTargets(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	other, err := course.Create(ctx, f.db, course.CreateInput{TutorID: uuid.New(), Title: "Other"})
	require.NoError(t, err)
	foreign, err := video.Create(ctx, f.db, video.CreateInput{CourseID: other.ID, Title: "x", VideoURL: "u", Duration: 10})
	require.NoError(t, err)

	_, err = f.tracker.Report(ctx, f.db, f.enrollment.ID, foreign.ID, Patch{IsCompleted: boolPtr(true)})
	assert.ErrorIs(t, err, ErrVideoNotFound)

	_, err = f.tracker.Report(ctx, f.db, f.enrollment.ID, uuid.New(), Patch{IsCompleted: boolPtr(true)})
	assert.ErrorIs(t, err, ErrVideoNotFound)

	_, err = f.tracker.Report(ctx, f.db, uuid.New(), f.videos[0].ID, Patch{IsCompleted: boolPtr(true)})
	assert.ErrorIs(t, err, ErrEnrollmentNotFound)

	var rows int64
	require.NoError(t, f.db.Model(&VideoProgress{}).Count(&rows).Error)
	assert.Zero(t, rows)
}

func TestRecomputeCreatesMissingAggregate(t *testing.T) {
	f := newFixture(t, 2)
	require.NoError(t, f.db.Where("enrollment_id = ?", f.enrollment.ID).Delete(&CourseProgress{}).Error)

	cp, err := f.tracker.Recompute(context.Background(), f.db, f.enrollment.ID, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, cp.TotalVideos)
	assert.Equal(t, 0, cp.ProgressPercentage)
}
