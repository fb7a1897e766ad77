package catalog

import (
	"fmt"
	"strings"
)

// Wire shapes for the course explorer XML. The same section shape is
// used for the CRN endpoint root and for detailedSection elements in a
// course document; enrollmentStatus is a pointer so a missing element
// is distinguishable from an empty one.

type refXML struct {
	ID   string `xml:"id,attr"`
	Name string `xml:",chardata"`
}

type parentsXML struct {
	Subject refXML `xml:"subject"`
	Course  refXML `xml:"course"`
}

type meetingXML struct {
	Type          string   `xml:"type"`
	Start         string   `xml:"start"`
	End           string   `xml:"end"`
	DaysOfTheWeek string   `xml:"daysOfTheWeek"`
	RoomNumber    string   `xml:"roomNumber"`
	BuildingName  string   `xml:"buildingName"`
	Instructors   []string `xml:"instructors>instructor"`
}

type sectionXML struct {
	ID               string       `xml:"id,attr"`
	SectionNumber    string       `xml:"sectionNumber"`
	EnrollmentStatus *string      `xml:"enrollmentStatus"`
	SectionNotes     string       `xml:"sectionNotes"`
	SectionText      string       `xml:"sectionText"`
	Parents          parentsXML   `xml:"parents"`
	Meetings         []meetingXML `xml:"meetings>meeting"`
}

type courseXML struct {
	ID               string       `xml:"id,attr"`
	Label            string       `xml:"label"`
	Description      string       `xml:"description"`
	DegreeAttributes string       `xml:"sectionDegreeAttributes"`
	SectionInfo      string       `xml:"courseSectionInformation"`
	ScheduleInfo     string       `xml:"classScheduleInformation"`
	Sections         []sectionXML `xml:"detailedSections>detailedSection"`
}

type subjectXML struct {
	ID      string   `xml:"id,attr"`
	Label   string   `xml:"label"`
	Courses []refXML `xml:"courses>course"`
}

// Meeting describes when and where a section meets.
type Meeting struct {
	Type        string
	Start       string
	End         string
	Days        string
	Room        string
	Building    string
	Instructors []string
}

// Section is the snapshot of one scheduled section (CRN). Produced
// fresh on every fetch and never mutated afterward.
type Section struct {
	CRN    string
	Title  string
	Number string
	// Status is the raw enrollment status text. HasStatus is false when
	// the element was absent, which callers must treat as unknown rather
	// than open or missing.
	Status    string
	HasStatus bool
	Meeting   Meeting
	Notes     string
}

// Open reports whether the enrollment status indicates open seats.
func (s *Section) Open() bool { return strings.Contains(s.Status, "Open") }

// Restricted reports whether the section is open with restrictions.
func (s *Section) Restricted() bool { return strings.Contains(s.Status, "Restricted") }

// Course is a course document: descriptive fields plus its sections.
type Course struct {
	ID               string
	Label            string
	Description      string
	DegreeAttributes string
	SectionInfo      string
	ScheduleInfo     string
	Sections         []Section
}

// CourseRef is one course line in a department listing.
type CourseRef struct {
	ID   string
	Name string
}

// Subject is a department document with its course listing.
type Subject struct {
	ID      string
	Label   string
	Courses []CourseRef
}

func newSection(x *sectionXML) *Section {
	s := &Section{
		CRN:    x.ID,
		Number: strings.TrimSpace(x.SectionNumber),
	}
	if x.Parents.Subject.ID != "" {
		s.Title = fmt.Sprintf("%s %s: %s",
			x.Parents.Subject.ID, x.Parents.Course.ID,
			strings.TrimSpace(x.Parents.Course.Name))
	}
	if x.EnrollmentStatus != nil {
		s.Status = strings.TrimSpace(*x.EnrollmentStatus)
		s.HasStatus = true
	}
	if len(x.Meetings) > 0 {
		m := x.Meetings[0]
		s.Meeting = Meeting{
			Type:     strings.TrimSpace(m.Type),
			Start:    strings.TrimSpace(m.Start),
			End:      strings.TrimSpace(m.End),
			Days:     strings.TrimSpace(m.DaysOfTheWeek),
			Room:     strings.TrimSpace(m.RoomNumber),
			Building: strings.TrimSpace(m.BuildingName),
		}
		for _, in := range m.Instructors {
			s.Meeting.Instructors = append(s.Meeting.Instructors, strings.TrimSpace(in))
		}
	}
	s.Notes = sectionNotes(x)
	return s
}

// sectionNotes prefers the specific notes field, then the free-text
// field, then a literal placeholder.
func sectionNotes(x *sectionXML) string {
	if n := strings.TrimSpace(x.SectionNotes); n != "" {
		return n
	}
	if n := strings.TrimSpace(x.SectionText); n != "" {
		return n
	}
	return "None provided."
}

func newCourse(x *courseXML) *Course {
	c := &Course{
		ID:               x.ID,
		Label:            strings.TrimSpace(x.Label),
		Description:      strings.TrimSpace(x.Description),
		DegreeAttributes: strings.TrimSpace(x.DegreeAttributes),
		SectionInfo:      strings.TrimSpace(x.SectionInfo),
		ScheduleInfo:     strings.TrimSpace(x.ScheduleInfo),
	}
	for i := range x.Sections {
		c.Sections = append(c.Sections, *newSection(&x.Sections[i]))
	}
	return c
}

func newSubject(x *subjectXML) *Subject {
	s := &Subject{
		ID:    x.ID,
		Label: strings.TrimSpace(x.Label),
	}
	for _, c := range x.Courses {
		s.Courses = append(s.Courses, CourseRef{ID: c.ID, Name: strings.TrimSpace(c.Name)})
	}
	return s
}
