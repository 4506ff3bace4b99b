package catalog

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	plainClassCode  = regexp.MustCompile(`^(\d{1,2})([A-Z])$`)
	highSchoolClass = regexp.MustCompile(`^([1-3])EM-?([A-Z])$`)
)

// ResolveClassCode decomposes a teacher's assigned class code into a grade id
// and class letter. "3A" yields (3, "A"). High school codes such as "1EM-C"
// resolve to the grade whose name and class list match, so "1EM-A" is grade 10
// and "1EM-C" is grade 11.
func ResolveClassCode(code string) (int, string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return 0, "", false
	}

	if m := highSchoolClass.FindStringSubmatch(code); m != nil {
		name := m[1] + "° EM"
		for _, g := range grades {
			if g.Name == name && g.HasClass(m[2]) {
				return g.ID, m[2], true
			}
		}
		return 0, "", false
	}

	m := plainClassCode.FindStringSubmatch(code)
	if m == nil {
		return 0, "", false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", false
	}
	return id, m[2], true
}

// ClassCode formats a grade id and class letter the way assigned classes are stored.
func ClassCode(gradeID int, class string) string {
	return strconv.Itoa(gradeID) + strings.ToUpper(class)
}
