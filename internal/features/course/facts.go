package course

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iamabdullah-dev/EdTech/pkg/cache"
	"github.com/iamabdullah-dev/EdTech/pkg/metrics"
)

// Facts are the values derived from a course's videos and enrollments.
type Facts struct {
	VideoCount        int64  `json:"videoCount"`
	TotalDuration     int64  `json:"totalDuration"`
	TotalHours        int64  `json:"totalHours"`
	TotalMinutes      int64  `json:"totalMinutes"`
	FormattedDuration string `json:"formattedDuration"`
	StudentsEnrolled  int64  `json:"studentsEnrolled"`
}

// NewFacts fills in the duration breakdown for totalSeconds.
func NewFacts(videoCount, totalSeconds, studentsEnrolled int64) Facts {
	hours, minutes := totalSeconds/3600, (totalSeconds%3600)/60
	return Facts{
		VideoCount:        videoCount,
		TotalDuration:     totalSeconds,
		TotalHours:        hours,
		TotalMinutes:      minutes,
		FormattedDuration: FormatDuration(totalSeconds),
		StudentsEnrolled:  studentsEnrolled,
	}
}

// FormatDuration renders seconds as "Xh Ym", dropping leftover seconds.
func FormatDuration(totalSeconds int64) string {
	if totalSeconds < 0 {
		totalSeconds = 0
	}
	return fmt.Sprintf("%dh %dm", totalSeconds/3600, (totalSeconds%3600)/60)
}

const factsKeyPrefix = "course:facts:"

// FactsStore computes course facts and keeps them in the cache for ttl.
type FactsStore struct {
	cache  cache.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewFactsStore creates a facts store. A nil cache disables caching.
func NewFactsStore(c cache.Client, ttl time.Duration, logger *slog.Logger) *FactsStore {
	return &FactsStore{cache: c, ttl: ttl, logger: logger}
}

// Load returns facts for every requested course. Courses without videos or
// enrollments get zero facts.
func (s *FactsStore) Load(ctx context.Context, db *gorm.DB, ids ...uuid.UUID) (map[uuid.UUID]Facts, error) {
	result := make(map[uuid.UUID]Facts, len(ids))
	missing := make([]uuid.UUID, 0, len(ids))

	for _, id := range ids {
		if _, seen := result[id]; seen {
			continue
		}
		if facts, ok := s.cached(ctx, id); ok {
			result[id] = facts
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return result, nil
	}

	computed, err := ComputeFacts(ctx, db, missing...)
	if err != nil {
		return nil, err
	}
	for id, facts := range computed {
		result[id] = facts
		s.store(ctx, id, facts)
	}
	return result, nil
}

// Invalidate drops cached facts after a video or enrollment change.
func (s *FactsStore) Invalidate(ctx context.Context, ids ...uuid.UUID) {
	if s == nil || s.cache == nil || len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = factsKey(id)
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("failed to invalidate course facts", slog.String("error", err.Error()))
	}
}

func (s *FactsStore) cached(ctx context.Context, id uuid.UUID) (Facts, bool) {
	if s == nil || s.cache == nil {
		return Facts{}, false
	}
	var facts Facts
	err := cache.GetJSON(ctx, s.cache, factsKey(id), &facts)
	metrics.RecordCacheLookup(err == nil)
	if err != nil && !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn("course facts cache read failed", slog.String("courseId", id.String()), slog.String("error", err.Error()))
	}
	return facts, err == nil
}

func (s *FactsStore) store(ctx context.Context, id uuid.UUID, facts Facts) {
	if s == nil || s.cache == nil {
		return
	}
	if err := cache.SetJSON(ctx, s.cache, factsKey(id), facts, s.ttl); err != nil {
		s.logger.Warn("course facts cache write failed", slog.String("courseId", id.String()), slog.String("error", err.Error()))
	}
}

func factsKey(id uuid.UUID) string {
	return factsKeyPrefix + id.String()
}

type videoTotals struct {
	CourseID     uuid.UUID
	VideoCount   int64
	TotalSeconds int64
}

type enrollmentTotals struct {
	CourseID uuid.UUID
	Students int64
}

// ComputeFacts reads facts straight from the database.
func ComputeFacts(ctx context.Context, db *gorm.DB, ids ...uuid.UUID) (map[uuid.UUID]Facts, error) {
	result := make(map[uuid.UUID]Facts, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var videos []videoTotals
	if err := db.WithContext(ctx).Raw(
		`SELECT course_id, COUNT(*) AS video_count, COALESCE(SUM(duration), 0) AS total_seconds
		 FROM videos WHERE course_id IN ? GROUP BY course_id`, ids,
	).Scan(&videos).Error; err != nil {
		return nil, fmt.Errorf("count videos: %w", err)
	}

	var enrollments []enrollmentTotals
	if err := db.WithContext(ctx).Raw(
		`SELECT course_id, COUNT(*) AS students FROM enrollments WHERE course_id IN ? GROUP BY course_id`, ids,
	).Scan(&enrollments).Error; err != nil {
		return nil, fmt.Errorf("count enrollments: %w", err)
	}

	byVideo := make(map[uuid.UUID]videoTotals, len(videos))
	for _, v := range videos {
		byVideo[v.CourseID] = v
	}
	byStudents := make(map[uuid.UUID]int64, len(enrollments))
	for _, e := range enrollments {
		byStudents[e.CourseID] = e.Students
	}

	for _, id := range ids {
		v := byVideo[id]
		result[id] = NewFacts(v.VideoCount, v.TotalSeconds, byStudents[id])
	}
	return result, nil
}
