package course

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/iamabdullah-dev/EdTech/internal/access"
	"github.com/iamabdullah-dev/EdTech/internal/middleware"
	"github.com/iamabdullah-dev/EdTech/pkg/cache"
	"github.com/iamabdullah-dev/EdTech/pkg/database/dbtest"
	"github.com/iamabdullah-dev/EdTech/pkg/logger"
	"github.com/iamabdullah-dev/EdTech/pkg/pagination"
	"github.com/iamabdullah-dev/EdTech/pkg/request"
	"github.com/iamabdullah-dev/EdTech/pkg/types"
	"github.com/iamabdullah-dev/EdTech/pkg/validation"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := validation.Register(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type userRow struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	FullName string
}

func (userRow) TableName() string { return "users" }

type videoRow struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	CourseID      uuid.UUID `gorm:"type:uuid"`
	Title         string
	Description   string
	Duration      int
	SequenceOrder int
	CreatedAt     time.Time
}

func (videoRow) TableName() string { return "videos" }

type enrollmentRow struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CourseID  uuid.UUID `gorm:"type:uuid"`
	StudentID uuid.UUID `gorm:"type:uuid"`
}

func (enrollmentRow) TableName() string { return "enrollments" }

type courseProgressRow struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	EnrollmentID uuid.UUID `gorm:"type:uuid"`
}

func (courseProgressRow) TableName() string { return "course_progress" }

type videoProgressRow struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	EnrollmentID uuid.UUID `gorm:"type:uuid"`
	VideoID      uuid.UUID `gorm:"type:uuid"`
}

func (videoProgressRow) TableName() string { return "video_progress" }

func setupDB(t *testing.T) *gorm.DB {
	return dbtest.Open(t, &Course{}, &userRow{}, &videoRow{}, &enrollmentRow{}, &courseProgressRow{}, &videoProgressRow{})
}

func seedCourse(t *testing.T, db *gorm.DB, tutorID uuid.UUID, price string, published bool) Course {
	t.Helper()
	amount, err := types.NewMoneyFromString(price)
	require.NoError(t, err)

	c, err := Create(context.Background(), db, CreateInput{TutorID: tutorID, Title: "Go in Practice", Price: amount})
	require.NoError(t, err)
	if published {
		c, err = Update(context.Background(), db, c.ID, Patch{Published: boolPtr(true)})
		require.NoError(t, err)
	}
	return c
}

func addVideo(t *testing.T, db *gorm.DB, courseID uuid.UUID, order, seconds int) videoRow {
	t.Helper()
	v := videoRow{ID: uuid.New(), CourseID: courseID, Title: "Video", Duration: seconds, SequenceOrder: order, CreatedAt: time.Now()}
	require.NoError(t, db.Create(&v).Error)
	return v
}

func boolPtr(b bool) *bool { return &b }
func strPtr(s string) *string { return &s }
func moneyPtr(m types.Money) *types.Money { return &m }

func TestFormatDuration(t *testing.T) {
	cases := map[int64]string{
		0:    "0h 0m",
		59:   "0h 0m",
		3599: "0h 59m",
		3600: "1h 0m",
		5430: "1h 30m",
		7325: "2h 2m",
	}
	for seconds, want := range cases {
		assert.Equal(t, want, FormatDuration(seconds), "seconds=%d", seconds)
	}

	f := NewFacts(3, 5430, 7)
	assert.Equal(t, int64(1), f.TotalHours)
	assert.Equal(t, int64(30), f.TotalMinutes)
	assert.Equal(t, int64(7), f.StudentsEnrolled)
}

func TestPatchAssignments(t *testing.T) {
	updates, err := Patch{}.Assignments()
	require.NoError(t, err)
	assert.Empty(t, updates)

	_, err = Patch{Title: strPtr("   ")}.Assignments()
	assert.ErrorIs(t, err, ErrTitleRequired)

	_, err = Patch{Price: moneyPtr(types.NewMoney(-1))}.Assignments()
	assert.ErrorIs(t, err, ErrNegativePrice)

	for price, want := range map[string]error{
		"19.999":      ErrPriceTooPrecise,
		"100000000":   ErrPriceTooLarge,
		"99999999.99": nil,
		"12.500":      nil,
	} {
		m, err := types.NewMoneyFromString(price)
		require.NoError(t, err)
		_, err = Patch{Price: &m}.Assignments()
		if want == nil {
			assert.NoError(t, err, price)
		} else {
			assert.ErrorIs(t, err, want, price)
		}
	}

	updates, err = Patch{Title: strPtr(" Intro "), ThumbnailURL: strPtr(""), Published: boolPtr(false)}.Assignments()
	require.NoError(t, err)
	assert.Equal(t, "Intro", updates["title"])
	assert.Nil(t, updates["thumbnail_url"])
	assert.Contains(t, updates, "thumbnail_url")
	assert.Equal(t, false, updates["is_published"])
	assert.NotContains(t, updates, "description")
	assert.NotContains(t, updates, "price")
}

func TestCreateStartsAsDraft(t *testing.T) {
	db := setupDB(t)

	c := seedCourse(t, db, uuid.New(), "29.99", false)
	stored, err := Get(context.Background(), db, c.ID)
	require.NoError(t, err)

	assert.False(t, stored.Published)
	assert.Equal(t, "29.99", stored.Price.String())
	assert.False(t, stored.IsFree())

	_, err = Create(context.Background(), db, CreateInput{TutorID: uuid.New(), Title: "x", Price: types.NewMoney(-5)})
	assert.ErrorIs(t, err, ErrNegativePrice)
}

func TestUpdateLeavesOmittedFieldsAlone(t *testing.T) {
	db := setupDB(t)
	c := seedCourse(t, db, uuid.New(), "10", false)

	updated, err := Update(context.Background(), db, c.ID, Patch{Description: strPtr("Hands-on")})
	require.NoError(t, err)
	assert.Equal(t, "Go in Practice", updated.Title)
	assert.Equal(t, "Hands-on", updated.Description)
	assert.Equal(t, "10.00", updated.Price.String())

	_, err = Update(context.Background(), db, uuid.New(), Patch{Description: strPtr("x")})
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestListPublishedHidesDrafts(t *testing.T) {
	db := setupDB(t)
	tutor := userRow{ID: uuid.New(), FullName: "Ada Tutor"}
	require.NoError(t, db.Create(&tutor).Error)

	published := seedCourse(t, db, tutor.ID, "0", true)
	seedCourse(t, db, tutor.ID, "0", false)

	listings, total, err := ListPublished(context.Background(), db, pagination.Params{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, listings, 1)
	assert.Equal(t, published.ID, listings[0].ID)
	assert.Equal(t, "Ada Tutor", listings[0].TutorName)
}

func TestFactsStoreCachesUntilInvalidated(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	c := seedCourse(t, db, uuid.New(), "0", true)

	addVideo(t, db, c.ID, 1, 600)
	addVideo(t, db, c.ID, 2, 1200)
	require.NoError(t, db.Create(&enrollmentRow{ID: uuid.New(), CourseID: c.ID, StudentID: uuid.New()}).Error)

	store := NewFactsStore(cache.NewMemoryCache(), time.Minute, logger.Discard())
	facts, err := store.Load(ctx, db, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), facts[c.ID].VideoCount)
	assert.Equal(t, int64(1800), facts[c.ID].TotalDuration)
	assert.Equal(t, "0h 30m", facts[c.ID].FormattedDuration)
	assert.Equal(t, int64(1), facts[c.ID].StudentsEnrolled)

	addVideo(t, db, c.ID, 3, 1800)

	facts, err = store.Load(ctx, db, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), facts[c.ID].VideoCount, "served from cache")

	store.Invalidate(ctx, c.ID)
	facts, err = store.Load(ctx, db, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), facts[c.ID].VideoCount)
	assert.Equal(t, "1h 0m", facts[c.ID].FormattedDuration)

	empty := uuid.New()
	facts, err = store.Load(ctx, db, empty)
	require.NoError(t, err)
	assert.Equal(t, "0h 0m", facts[empty].FormattedDuration)
}

func TestDeleteRemovesDependentRows(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	c := seedCourse(t, db, uuid.New(), "0", true)
	v := addVideo(t, db, c.ID, 1, 60)

	enrollment := enrollmentRow{ID: uuid.New(), CourseID: c.ID, StudentID: uuid.New()}
	require.NoError(t, db.Create(&enrollment).Error)
	require.NoError(t, db.Create(&courseProgressRow{ID: uuid.New(), EnrollmentID: enrollment.ID}).Error)
	require.NoError(t, db.Create(&videoProgressRow{ID: uuid.New(), EnrollmentID: enrollment.ID, VideoID: v.ID}).Error)

	require.NoError(t, Delete(ctx, db, c.ID))

	for _, model := range []any{&Course{}, &videoRow{}, &enrollmentRow{}, &courseProgressRow{}, &videoProgressRow{}} {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		assert.Zero(t, n, "%T", model)
	}

	assert.ErrorIs(t, Delete(ctx, db, c.ID), ErrCourseNotFound)
}

func TestGetByIDHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupDB(t)

	tutor := userRow{ID: uuid.New(), FullName: "Ada Tutor"}
	require.NoError(t, db.Create(&tutor).Error)
	published := seedCourse(t, db, tutor.ID, "29.99", true)
	draft := seedCourse(t, db, tutor.ID, "0", false)

	second := addVideo(t, db, published.ID, 2, 1200)
	first := addVideo(t, db, published.ID, 1, 600)

	h := NewHandler(db, NewFactsStore(cache.NewMemoryCache(), time.Minute, logger.Discard()), logger.Discard())
	r := gin.New()
	r.Use(request.Handler(logger.Discard()))
	r.GET("/courses/:courseId", h.GetByID)

	serve := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	w := serve("/courses/" + published.ID.String())
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Title             string         `json:"title"`
			TutorName         string         `json:"tutorName"`
			FormattedDuration string         `json:"formattedDuration"`
			Videos            []VideoSummary `json:"videos"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "Ada Tutor", body.Data.TutorName)
	assert.Equal(t, "0h 30m", body.Data.FormattedDuration)
	require.Len(t, body.Data.Videos, 2)
	assert.Equal(t, first.ID, body.Data.Videos[0].ID)
	assert.Equal(t, second.ID, body.Data.Videos[1].ID)

	assert.Equal(t, http.StatusNotFound, serve("/courses/"+draft.ID.String()).Code)
	assert.Equal(t, http.StatusNotFound, serve("/courses/"+uuid.NewString()).Code)
	assert.Equal(t, http.StatusBadRequest, serve("/courses/not-a-uuid").Code)
}

func TestByTutorHandler(t *testing.T) {
	db := setupDB(t)
	tutorID := uuid.New()
	live := seedCourse(t, db, tutorID, "15", true)
	seedCourse(t, db, tutorID, "0", false)
	seedCourse(t, db, uuid.New(), "0", true)

	h := NewHandler(db, NewFactsStore(cache.NewMemoryCache(), time.Minute, logger.Discard()), logger.Discard())
	list := func(actor *access.Identity, tutor string) (int, []TutorCourse) {
		r := gin.New()
		r.Use(request.Handler(logger.Discard()), func(c *gin.Context) {
			if actor != nil {
				middleware.SetIdentity(c, *actor)
			}
		})
		r.GET("/courses/tutor/:tutorId", h.ByTutor)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/courses/tutor/"+tutor, nil))
		var body struct {
			Data []TutorCourse `json:"data"`
		}
		if w.Code == http.StatusOK {
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		}
		return w.Code, body.Data
	}

	code, courses := list(nil, tutorID.String())
	require.Equal(t, http.StatusOK, code)
	require.Len(t, courses, 1)
	assert.Equal(t, live.ID, courses[0].ID)

	stranger := access.Identity{UserID: uuid.New(), Role: access.RoleTutor}
	_, courses = list(&stranger, tutorID.String())
	assert.Len(t, courses, 1)

	owner := access.Identity{UserID: tutorID, Role: access.RoleTutor}
	_, courses = list(&owner, tutorID.String())
	assert.Len(t, courses, 2, "owner sees drafts")

	code, courses = list(nil, uuid.NewString())
	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, courses)

	code, _ = list(nil, "not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, code)
}
