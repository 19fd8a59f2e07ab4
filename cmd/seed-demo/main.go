// Command seed-demo populates a development database with demo users,
// terms, sections, enrollments, attendance facts and results.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sims-core-api/internal/models"
	"github.com/noah-isme/sims-core-api/internal/repository"
	"github.com/noah-isme/sims-core-api/pkg/config"
	"github.com/noah-isme/sims-core-api/pkg/database"
)

const demoPassword = "demo1234"

type demoUser struct {
	ID       string
	Email    string
	FullName string
	Role     models.UserRole
}

func main() {
	var wipe bool
	flag.BoolVar(&wipe, "wipe", false, "truncate all tables before seeding")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	if wipe {
		if err := truncate(ctx, db); err != nil {
			log.Fatalf("failed to truncate: %v", err)
		}
	}

	if err := seed(ctx, db); err != nil {
		log.Fatalf("seeding failed: %v", err)
	}
	log.Println("demo data seeded")
}

func truncate(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `TRUNCATE audit_logs, change_requests, results, attendance_facts, enrollments, sections, terms, users`)
	return err
}

func seed(ctx context.Context, db *sqlx.DB) error {
	users := []demoUser{
		{ID: uuid.NewString(), Email: "admin@sims.local", FullName: "Ada Admin", Role: models.RoleAdmin},
		{ID: uuid.NewString(), Email: "registrar@sims.local", FullName: "Rae Registrar", Role: models.RoleRegistrar},
		{ID: uuid.NewString(), Email: "faculty@sims.local", FullName: "Frank Faculty", Role: models.RoleFaculty},
	}
	students := make([]demoUser, 0, 8)
	for i := 1; i <= 8; i++ {
		students = append(students, demoUser{
			ID:       uuid.NewString(),
			Email:    fmt.Sprintf("student%d@sims.local", i),
			FullName: fmt.Sprintf("Student %d", i),
			Role:     models.RoleStudent,
		})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	for _, u := range append(users, students...) {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO users (id, email, full_name, role, password_hash) VALUES ($1, $2, $3, $4, $5)
             ON CONFLICT (email) DO NOTHING`,
			u.ID, u.Email, u.FullName, string(u.Role), string(hash)); err != nil {
			return fmt.Errorf("insert user %s: %w", u.Email, err)
		}
	}

	faculty := users[2]

	sectionRepo := repository.NewSectionRepository(db)
	if err := sectionRepo.CreateTerm(ctx, &models.Term{
		Name:      "2026-FALL",
		Status:    models.TermStatusOpen,
		StartDate: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 12, 18, 0, 0, 0, 0, time.UTC),
	}); err != nil && err != repository.ErrTermExists {
		return fmt.Errorf("create term: %w", err)
	}
	if err := sectionRepo.CreateTerm(ctx, &models.Term{
		Name:      "2026-SPRING",
		Status:    models.TermStatusClosed,
		StartDate: time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 5, 15, 0, 0, 0, 0, time.UTC),
	}); err != nil && err != repository.ErrTermExists {
		return fmt.Errorf("create term: %w", err)
	}

	sections := []*models.Section{
		{CourseCode: "CS101", CourseTitle: "Intro to Computing", Term: "2026-FALL", TeacherID: &faculty.ID, TeacherName: faculty.FullName, Capacity: 5},
		{CourseCode: "MA201", CourseTitle: "Linear Algebra", Term: "2026-FALL", TeacherID: &faculty.ID, TeacherName: faculty.FullName, Capacity: 30},
		{CourseCode: "PH110", CourseTitle: "Mechanics", Term: "2026-SPRING", TeacherID: &faculty.ID, TeacherName: faculty.FullName, Capacity: 30},
	}
	for _, s := range sections {
		if err := sectionRepo.Create(ctx, s); err != nil && err != repository.ErrSectionExists {
			return fmt.Errorf("create section %s: %w", s.CourseCode, err)
		}
	}

	enrollmentRepo := repository.NewEnrollmentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	resultRepo := repository.NewResultRepository(db)

	start := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	for i, student := range students {
		section := sections[i%2]
		enrollment := &models.Enrollment{StudentID: student.ID, SectionID: section.ID}
		if err := enrollmentRepo.CreateWithCapacityCheck(ctx, enrollment); err != nil {
			if err == repository.ErrSectionFull || err == repository.ErrActiveEnrollmentExists {
				continue
			}
			return fmt.Errorf("enroll %s: %w", student.Email, err)
		}

		// Ten class days, student index drives how many were missed.
		for day := 0; day < 10; day++ {
			fact := &models.AttendanceFact{
				StudentID: student.ID,
				SectionID: section.ID,
				Date:      start.AddDate(0, 0, day),
				Present:   day >= i,
			}
			if err := attendanceRepo.Create(ctx, fact); err != nil && err != repository.ErrDuplicateFact {
				return fmt.Errorf("attendance for %s: %w", student.Email, err)
			}
		}

		score := 92 - 5*i
		grade := letterGrade(float64(score))
		result := &models.Result{StudentID: student.ID, SectionID: section.ID, Grade: &grade}
		if err := resultRepo.Create(ctx, result); err != nil {
			if err == repository.ErrResultExists {
				continue
			}
			return fmt.Errorf("result for %s: %w", student.Email, err)
		}
		// Publish every other result so both lifecycle states are present.
		if i%2 == 0 {
			if err := resultRepo.Publish(ctx, result.ID, faculty.ID, time.Now().UTC()); err != nil {
				return fmt.Errorf("publish result for %s: %w", student.Email, err)
			}
		}
	}

	return nil
}

func letterGrade(score float64) string {
	switch {
	case score >= 90:
		return "A+"
	case score >= 85:
		return "A"
	case score >= 80:
		return "A-"
	case score >= 75:
		return "B+"
	case score >= 70:
		return "B"
	case score >= 65:
		return "B-"
	case score >= 60:
		return "C+"
	case score >= 55:
		return "C"
	case score >= 50:
		return "C-"
	default:
		return "F"
	}
}
