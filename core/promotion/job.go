// Package promotion runs the annual grade promotion: on the cutover day every student moves up one
// grade and top-grade students graduate (are deleted). A persisted year marker makes it run once a year.
package promotion

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/libkiosk/core"
	"github.com/trezcool/libkiosk/core/student"
)

type (
	// MarkerStore persists the year of the last completed promotion.
	MarkerStore interface {
		// LastPromotionYear returns 0 when the promotion never ran.
		LastPromotionYear(ctx context.Context) (int, error)
		SetLastPromotionYear(ctx context.Context, year int) error
	}

	Result struct {
		Ran       bool `json:"ran"`
		Year      int  `json:"year"`
		Promoted  int  `json:"promoted"`
		Graduated int  `json:"graduated"`
	}

	// BatchError lists the students a run failed to promote or graduate.
	// Students handled before and after a failure keep their new grade.
	BatchError struct {
		Result Result
		Failed map[string]error
	}

	Job struct {
		students student.Repository
		marker   MarkerStore
		logger   core.Logger
		loc      *time.Location
		month    time.Month
		day      int
		onRun    []func(Result, error)

		mu     sync.Mutex // held while running
		halted int        // year of a failed run; Check skips it until Force succeeds
	}
)

func (err BatchError) Error() string {
	lrns := make([]string, 0, len(err.Failed))
	for lrn := range err.Failed {
		lrns = append(lrns, lrn)
	}
	sort.Strings(lrns)
	msgs := make([]string, 0, len(lrns))
	for _, lrn := range lrns {
		msgs = append(msgs, fmt.Sprintf("%s: %v", lrn, err.Failed[lrn]))
	}
	return fmt.Sprintf("grade promotion failed for %d student(s): %s", len(lrns), strings.Join(msgs, "; "))
}

func NewJob(students student.Repository, marker MarkerStore, logger core.Logger, conf *core.Config) *Job {
	return &Job{
		students: students,
		marker:   marker,
		logger:   logger,
		loc:      conf.Location(),
		month:    conf.Promotion.Month,
		day:      conf.Promotion.Day,
	}
}

// IsCutover reports whether t falls on the cutover day in the job's location.
func (j *Job) IsCutover(t time.Time) bool {
	t = t.In(j.loc)
	return t.Month() == j.month && t.Day() == j.day
}

// Due reports whether the promotion must run at now.
func (j *Job) Due(ctx context.Context, now time.Time) (bool, error) {
	if !j.IsCutover(now) {
		return false, nil
	}
	last, err := j.marker.LastPromotionYear(ctx)
	if err != nil {
		return false, errors.Wrap(err, "reading promotion marker")
	}
	return last != now.In(j.loc).Year(), nil
}

// Check runs the promotion if it is due.
func (j *Job) Check(ctx context.Context) (Result, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := core.NowFunc().In(j.loc)
	due, err := j.Due(ctx, now)
	if err != nil || !due || j.halted == now.Year() {
		return Result{Year: now.Year()}, err
	}
	return j.run(ctx, now.Year())
}

// Force runs the promotion now, whatever the date, and records the current year.
func (j *Job) Force(ctx context.Context) (Result, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.logger.Warn("Forcing grade promotion")
	return j.run(ctx, core.NowFunc().In(j.loc).Year())
}

// OnRun registers f to be called after every run, whatever its outcome. Not safe to call
// while the job may be running.
func (j *Job) OnRun(f func(Result, error)) {
	j.onRun = append(j.onRun, f)
}

func (j *Job) run(ctx context.Context, year int) (Result, error) {
	res, err := j.batch(ctx, year)
	var bErr *BatchError
	if errors.As(err, &bErr) {
		j.halted = year
	} else if err == nil {
		j.halted = 0
	}
	for _, f := range j.onRun {
		f(res, err)
	}
	return res, err
}

func (j *Job) batch(ctx context.Context, year int) (Result, error) {
	res := Result{Ran: true, Year: year}
	j.logger.Info(fmt.Sprintf("Grade promotion %d started", year))

	students, err := j.students.GetAllStudents(ctx)
	if err != nil {
		return res, errors.Wrap(err, "listing students")
	}

	failed := make(map[string]error)
	for _, s := range students {
		if err := ctx.Err(); err != nil {
			return res, errors.Wrap(err, "grade promotion interrupted")
		}
		if s.Grade.IsTop() {
			if err := j.students.DeleteStudent(ctx, s.LRN); err != nil {
				failed[s.LRN] = err
				continue
			}
			res.Graduated++
			continue
		}
		next, ok := s.Grade.Next()
		if !ok {
			failed[s.LRN] = errors.Wrapf(student.ErrInvalidGrade, "%q", s.Grade)
			continue
		}
		s.Grade = next
		if err := j.students.UpdateStudent(ctx, s); err != nil {
			failed[s.LRN] = err
			continue
		}
		res.Promoted++
	}

	if len(failed) > 0 {
		err := &BatchError{Result: res, Failed: failed}
		j.logger.Error("Grade promotion incomplete", err, map[string]interface{}{
			"promoted":  res.Promoted,
			"graduated": res.Graduated,
		})
		return res, err
	}

	if err := j.marker.SetLastPromotionYear(ctx, year); err != nil {
		return res, errors.Wrap(err, "writing promotion marker")
	}
	j.logger.Info(fmt.Sprintf(
		"Grade promotion %d done: %d promoted, %d graduated", year, res.Promoted, res.Graduated,
	))
	return res, nil
}
