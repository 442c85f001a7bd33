// Package staging reshapes consolidated raw datasets into a snowflake set
// of staged dimension and fact tables, masking student identities.
package staging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"

	"coursemetrics/lib/pagestore"
	"coursemetrics/lib/platforms/udemy"
	"coursemetrics/lib/pseudonym"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("services/staging")

// ErrMissingUpstream means a required consolidated dataset has not been
// extracted yet.
var ErrMissingUpstream = errors.New("missing consolidated dataset")

type Transformer struct {
	store    pagestore.Store
	resolver *pseudonym.Resolver
}

// NewTransformer reads consolidated datasets from `store` and builds staged
// tables. The single resolver instance is shared by every table that
// references a student, so joins on student_hash always resolve.
func NewTransformer(store pagestore.Store, anonymize bool) *Transformer {
	return &Transformer{
		store:    store,
		resolver: pseudonym.NewResolver(anonymize),
	}
}

func (tr *Transformer) Transform(ctx context.Context) (*Tables, error) {
	ctx, span := tracer.Start(ctx, "transform")
	defer span.End()

	courses, err := readDataset[udemy.Course](tr.store, udemy.ResourceCourses)
	if err != nil {
		return nil, err
	}
	progress, err := readDataset[udemy.UserCourseActivity](tr.store, udemy.ResourceCourseProgress)
	if err != nil {
		return nil, err
	}
	items, err := readDataset[udemy.UserActivityItem](tr.store, udemy.ResourceActivityItems)
	if err != nil {
		return nil, err
	}

	tables := &Tables{}
	tr.transformCourses(ctx, tables, courses)
	// progress before items so the masked-name sequence follows the
	// progress dataset's first-occurrence order, as the report expects
	tr.transformProgress(ctx, tables, progress)
	tr.transformItems(ctx, tables, items)

	span.SetAttributes(
		attribute.Int("custom.students", len(tables.Students)),
		attribute.Int("custom.courses", len(tables.Courses)),
		attribute.Int("custom.progress_rows", len(tables.CourseProgress)),
		attribute.Int("custom.activity_rows", len(tables.ActivityItems)),
	)
	slog.InfoContext(
		ctx, "staged tables built",
		"students", len(tables.Students),
		"courses", len(tables.Courses),
		"progress_rows", len(tables.CourseProgress),
		"activity_rows", len(tables.ActivityItems),
	)
	return tables, nil
}

func readDataset[T any](store pagestore.Store, res udemy.Resource) ([]T, error) {
	path := store.DatasetPath(res.Name)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrMissingUpstream, res.Name)
	}
	if err != nil {
		return nil, err
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return out, nil
}

func (tr *Transformer) transformCourses(ctx context.Context, out *Tables, courses []udemy.Course) {
	languages := map[string]bool{}
	levels := map[string]bool{}
	categories := map[string]bool{}
	subCategories := map[string]bool{}
	instructors := map[string]bool{}

	for _, c := range courses {
		instructor := ""
		if len(c.VisibleInstructors) > 0 {
			instructor = c.VisibleInstructors[0].DisplayName
		}
		levelCode := slug(c.InstructionalLevel)

		out.Courses = append(out.Courses, Course{
			CourseID:      c.ID,
			Title:         c.Title,
			Headline:      c.Headline,
			Url:           c.Url,
			LanguageCode:  c.Locale.Locale,
			LevelCode:     levelCode,
			Category:      c.PrimaryCategory.Title,
			SubCategory:   c.PrimarySubcategory.Title,
			Instructor:    instructor,
			DurationHours: math.Round(float64(c.EstimatedContentLength)/60*100) / 100,
			NumLectures:   c.NumLectures,
			NumQuizzes:    c.NumQuizzes,
			Rating:        c.AvgRating,
		})

		if c.Locale.Locale != "" && !languages[c.Locale.Locale] {
			languages[c.Locale.Locale] = true
			out.Languages = append(out.Languages, Language{
				Code: c.Locale.Locale,
				Name: c.Locale.Title,
			})
		}
		if levelCode != "" && !levels[levelCode] {
			levels[levelCode] = true
			out.Levels = append(out.Levels, Level{
				Code: levelCode,
				Name: c.InstructionalLevel,
			})
		}
		if c.PrimaryCategory.Title != "" && !categories[c.PrimaryCategory.Title] {
			categories[c.PrimaryCategory.Title] = true
			out.Categories = append(out.Categories, Category{Name: c.PrimaryCategory.Title})
		}
		if c.PrimarySubcategory.Title != "" && !subCategories[c.PrimarySubcategory.Title] {
			subCategories[c.PrimarySubcategory.Title] = true
			out.SubCategories = append(out.SubCategories, SubCategory{
				Name:     c.PrimarySubcategory.Title,
				Category: c.PrimaryCategory.Title,
			})
		}
		for _, ins := range c.VisibleInstructors {
			if ins.DisplayName != "" && !instructors[ins.DisplayName] {
				instructors[ins.DisplayName] = true
				out.Instructors = append(out.Instructors, Instructor{Name: ins.DisplayName})
			}
		}
	}
}

func (tr *Transformer) transformProgress(ctx context.Context, out *Tables, progress []udemy.UserCourseActivity) {
	seen := map[string]bool{}

	for _, p := range progress {
		id := tr.resolver.Resolve(p.UserEmail)

		if p.UserEmail != "" && !seen[id.ID] {
			seen[id.ID] = true
			out.Students = append(out.Students, Student{
				StudentID:     id.ID,
				MaskedName:    id.Label,
				Role:          p.UserRole,
				IsDeactivated: p.UserIsDeactivated,
			})
		}

		if p.CompletionRatio < 0 || p.CompletionRatio > 100 {
			slog.WarnContext(
				ctx, "completion ratio out of range",
				"course_id", p.CourseID,
				"ratio", p.CompletionRatio,
			)
		}

		out.CourseProgress = append(out.CourseProgress, CourseProgress{
			StudentID:        id.ID,
			CourseID:         p.CourseID,
			CompletionRatio:  p.CompletionRatio,
			VideoMinutes:     p.NumVideoConsumedMinutes,
			EnrollDate:       p.CourseEnrollDate,
			StartDate:        p.CourseStartDate,
			CompletionDate:   p.CourseCompletionDate,
			LastAccessedDate: p.LastAccessedDate,
			IsAssigned:       p.IsAssigned,
		})
	}
}

func (tr *Transformer) transformItems(ctx context.Context, out *Tables, items []udemy.UserActivityItem) {
	for _, it := range items {
		id := tr.resolver.Resolve(it.UserEmail)
		out.ActivityItems = append(out.ActivityItems, ActivityItem{
			StudentID:      id.ID,
			CourseID:       it.CourseID,
			ItemID:         it.ItemID,
			ItemType:       it.ItemType,
			ItemTitle:      it.ItemTitle,
			FinalResult:    it.ItemFinalResult,
			MarkedComplete: it.ItemMarkedComplete,
			CompletionTime: it.ItemCompletionTime,
		})
	}
}

func slug(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
}
