package mart

import (
	"context"
	"testing"
	"time"

	"coursemetrics/lib/testutil"
	"coursemetrics/services/mart/db"
	"coursemetrics/services/staging"

	"github.com/stretchr/testify/require"
)

func testTables() *staging.Tables {
	return &staging.Tables{
		Students: []staging.Student{
			{StudentID: "hash-a", MaskedName: "Aluno 01", Role: "student"},
			{StudentID: "hash-b", MaskedName: "Aluno 02", Role: "student", IsDeactivated: true},
		},
		Courses: []staging.Course{
			{CourseID: 101, Title: "Go do zero", LanguageCode: "pt_BR", LevelCode: "beginner_level"},
		},
		CourseProgress: []staging.CourseProgress{
			{StudentID: "hash-a", CourseID: 101, CompletionRatio: 80},
			{StudentID: "hash-b", CourseID: 101, CompletionRatio: 15},
		},
		ActivityItems: []staging.ActivityItem{
			{StudentID: "hash-a", CourseID: 101, ItemID: 9001, ItemType: "lecture", MarkedComplete: true},
		},
		Languages:     []staging.Language{{Code: "pt_BR", Name: "Português"}},
		Levels:        []staging.Level{{Code: "beginner_level", Name: "Beginner Level"}},
		Categories:    []staging.Category{{Name: "Development"}},
		SubCategories: []staging.SubCategory{{Name: "Databases", Category: "Development"}},
		Instructors:   []staging.Instructor{{Name: "Marina Costa"}},
	}
}

func TestLoad(t *testing.T) {
	database := testutil.SetupDB(t, db.Schema)
	store := NewStore(database)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	require.NoError(t, store.Load(ctx, testTables()))

	n, err := store.Count(ctx, "stg_students")
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	// a fact row joins back to its dimension
	var masked string
	err = database.QueryRowContext(ctx, `
		SELECT s.full_name_masked
		FROM stg_course_progress p
		JOIN stg_students s ON s.student_hash = p.student_hash
		WHERE p.completion_ratio = 80
	`).Scan(&masked)
	require.NoError(t, err)
	require.Equal(t, "Aluno 01", masked)
}

func TestLoadIsFullReplace(t *testing.T) {
	database := testutil.SetupDB(t, db.Schema)
	store := NewStore(database)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	require.NoError(t, store.Load(ctx, testTables()))
	require.NoError(t, store.Load(ctx, testTables()))

	n, err := store.Count(ctx, "stg_course_progress")
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
}
