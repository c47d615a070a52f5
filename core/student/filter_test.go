package student

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newStudent(id, name, email, course string, status Status) Student {
	return Student{ID: id, Name: name, Email: email, Course: course, Status: status}
}

func TestFilter(t *testing.T) {
	john := newStudent("1", "John Doe", "john@example.com", "Mathematics", StatusActive)
	jane := newStudent("2", "Jane Smith", "jane@example.com", "English", StatusInactive)
	mary := newStudent("3", "Mary Jones", "mary@test.cd", "English", StatusActive)
	nocourse := newStudent("4", "No Course", "nocourse@test.cd", "", StatusInactive)
	all := []Student{john, jane, mary, nocourse}

	tests := []struct {
		name string
		c    Criteria
		want []Student
	}{
		{name: "empty criteria", c: Criteria{}, want: all},
		{name: "all", c: NewCriteria("", FilterAll, FilterAll), want: all},
		{name: "search=jane", c: NewCriteria("jane", "", ""), want: []Student{jane}},
		{name: "search keeps whitespace", c: NewCriteria(" ", "", ""), want: []Student{john, jane, mary, nocourse}},
		{name: "search keeps padding", c: NewCriteria("  jane  ", "", ""), want: []Student{}},
		{name: "search with inner space", c: NewCriteria("n d", "", ""), want: []Student{john}},
		{name: "search is case insensitive", c: NewCriteria("DOE", "", ""), want: []Student{john}},
		{name: "search on email", c: NewCriteria("example.COM", "", ""), want: []Student{john, jane}},
		{name: "search (unknown)", c: NewCriteria("lol", "", ""), want: []Student{}},
		{name: "status=ACTIVE", c: NewCriteria("", "ACTIVE", ""), want: []Student{john, mary}},
		{name: "status=inactive", c: NewCriteria("", "inactive", ""), want: []Student{jane, nocourse}},
		{name: "status=All", c: NewCriteria("", "All", ""), want: all},
		{name: "course=English", c: NewCriteria("", "", "English"), want: []Student{jane, mary}},
		{name: "course is case sensitive", c: NewCriteria("", "", "english"), want: []Student{}},
		{name: "combo", c: NewCriteria("j", "ACTIVE", "English"), want: []Student{mary}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(all, tt.c.Clean())
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCriteria_Validate(t *testing.T) {
	for _, status := range []string{"", "all", "ALL", "ACTIVE", "inactive"} {
		assert.NoError(t, NewCriteria("", status, "").Clean().Validate(), status)
	}
	assert.Error(t, NewCriteria("", "PAUSED", "").Clean().Validate())
}

func TestCriteria_IsEmpty(t *testing.T) {
	assert.True(t, Criteria{}.IsEmpty())
	assert.True(t, NewCriteria("", " all ", "all").Clean().IsEmpty())
	assert.False(t, NewCriteria(" ", "all", "all").Clean().IsEmpty())
	assert.False(t, NewCriteria("a", "", "").IsEmpty())
	assert.False(t, NewCriteria("", "ACTIVE", "").IsEmpty())
	assert.False(t, NewCriteria("", "", "Math").IsEmpty())
}

func TestSummarize(t *testing.T) {
	students := []Student{
		newStudent("1", "John Doe", "john@example.com", "Mathematics", StatusActive),
		newStudent("2", "Jane Smith", "jane@example.com", "English", StatusInactive),
		newStudent("3", "Mary Jones", "mary@test.cd", "Mathematics", StatusActive),
		newStudent("4", "No Course", "nocourse@test.cd", "", StatusActive),
	}

	sum := Summarize(students)
	assert.Equal(t, Summary{Total: 4, Active: 3, Inactive: 1, Courses: []string{"Mathematics", "English", ""}}, sum)
	assert.Equal(t, sum.Total, sum.Active+sum.Inactive)
	assert.Len(t, Filter(students, NewCriteria("", "ACTIVE", "")), sum.Active)

	empty := Summarize(nil)
	assert.Equal(t, Summary{Courses: []string{}}, empty)
}

func TestBuildDashboard(t *testing.T) {
	john := newStudent("1", "John Doe", "john@example.com", "Mathematics", StatusActive)
	jane := newStudent("2", "Jane Smith", "jane@example.com", "English", StatusInactive)

	dash := BuildDashboard([]Student{john, jane}, NewCriteria("jane", "", "").Clean())
	assert.Equal(t, 2, dash.Summary.Total)
	assert.Equal(t, []Student{jane}, dash.Students)
}
