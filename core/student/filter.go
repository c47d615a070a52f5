package student

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/tutordesk/core"
)

// FilterAll matches every status / course.
const FilterAll = "all"

var errInvalidStatusFilter = errors.New("status must be one of all, ACTIVE or INACTIVE")

// Criteria is an immutable set of dashboard filters.
// Empty Status or Course are the same as FilterAll.
type Criteria struct {
	Search string `query:"search"`
	Status string `query:"status"`
	Course string `query:"course"` // case-sensitive
}

func NewCriteria(search, status, course string) Criteria {
	return Criteria{Search: search, Status: status, Course: course}
}

// Clean returns a copy of `c` with the status trimmed & upper-cased.
// The search term is matched as given, whitespace included.
func (c Criteria) Clean() Criteria {
	c.Status = core.CleanString(c.Status)
	if c.Status != "" && !strings.EqualFold(c.Status, FilterAll) {
		c.Status = strings.ToUpper(c.Status)
	}
	return c
}

func (c Criteria) Validate() error {
	if c.Status == "" || strings.EqualFold(c.Status, FilterAll) {
		return nil
	}
	if !Status(c.Status).IsValid() {
		return core.NewFieldValidationError("status", errInvalidStatusFilter)
	}
	return nil
}

func (c Criteria) IsEmpty() bool {
	return c.Search == "" && c.allStatuses() && c.allCourses()
}

func (c Criteria) allStatuses() bool {
	return c.Status == "" || strings.EqualFold(c.Status, FilterAll)
}

func (c Criteria) allCourses() bool {
	return c.Course == "" || c.Course == FilterAll
}

// Match reports whether `s` satisfies the three predicates of `c`:
// case-insensitive search on name or email, exact status & exact course.
func (c Criteria) Match(s Student) bool {
	if c.Search != "" {
		term := strings.ToLower(c.Search)
		if !strings.Contains(strings.ToLower(s.Name), term) && !strings.Contains(strings.ToLower(s.Email), term) {
			return false
		}
	}
	if !c.allStatuses() && string(s.Status) != c.Status {
		return false
	}
	if !c.allCourses() && s.Course != c.Course {
		return false
	}
	return true
}

// Filter returns the students matching `c`, preserving their original order.
func Filter(students []Student, c Criteria) []Student {
	filtered := make([]Student, 0, len(students))
	for _, s := range students {
		if c.Match(s) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

// Summarize computes the dashboard aggregates of `students`.
func Summarize(students []Student) Summary {
	sum := Summary{
		Total:   len(students),
		Courses: make([]string, 0),
	}
	seen := make(map[string]struct{})
	for _, s := range students {
		switch s.Status {
		case StatusActive:
			sum.Active++
		case StatusInactive:
			sum.Inactive++
		}
		if _, ok := seen[s.Course]; !ok {
			seen[s.Course] = struct{}{}
			sum.Courses = append(sum.Courses, s.Course)
		}
	}
	return sum
}

// BuildDashboard computes the summary of all `students` and the filtered list from the same snapshot.
func BuildDashboard(students []Student, c Criteria) Dashboard {
	return Dashboard{
		Summary:  Summarize(students),
		Students: Filter(students, c),
	}
}
