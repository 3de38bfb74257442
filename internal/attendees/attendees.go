// Package attendees turns free-text attendee lists into email addresses
// and resolves the names shown for them.
package attendees

import (
	"regexp"
	"strings"
	"unicode"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Directory maps attendee emails to display names.
type Directory map[string]string

// Parse reads attendees separated by newlines or commas, each either a bare
// address or "Name <address>". Invalid entries are dropped. Repeated
// addresses, compared without case, are kept once in their first spelling.
// Names given in the input are returned in the directory.
func Parse(input string) ([]string, Directory) {
	var emails []string
	names := make(Directory)
	first := make(map[string]string)

	for _, line := range strings.Split(input, "\n") {
		for _, entry := range splitEntries(line) {
			name, email := splitEntry(entry)
			if !IsValidEmail(email) {
				continue
			}
			key := strings.ToLower(email)
			if kept, ok := first[key]; ok {
				email = kept
			} else {
				first[key] = email
				emails = append(emails, email)
			}
			if name != "" {
				names[email] = name
			}
		}
	}
	return emails, names
}

// splitEntries splits a line on commas that are not inside angle brackets.
func splitEntries(line string) []string {
	var entries []string
	var current strings.Builder
	inBrackets := false

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			entries = append(entries, s)
		}
		current.Reset()
	}
	for _, r := range line {
		switch {
		case r == '<':
			inBrackets = true
		case r == '>':
			inBrackets = false
		case r == ',' && !inBrackets:
			flush()
			continue
		}
		current.WriteRune(r)
	}
	flush()
	return entries
}

func splitEntry(entry string) (name, email string) {
	open := strings.Index(entry, "<")
	closing := strings.LastIndex(entry, ">")
	if open >= 0 && closing > open {
		return strings.TrimSpace(entry[:open]), strings.TrimSpace(entry[open+1 : closing])
	}
	return "", strings.TrimSpace(entry)
}

// IsValidEmail applies a loose local@domain.tld check.
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// Merge returns a directory with the entries of all dirs; earlier dirs win.
func Merge(dirs ...map[string]string) Directory {
	out := make(Directory)
	for i := len(dirs) - 1; i >= 0; i-- {
		for email, name := range dirs[i] {
			out[email] = name
		}
	}
	return out
}

// Name returns the display name for email, deriving one from the local
// part when none is known: "john.smith@x" becomes "John Smith".
func (d Directory) Name(email string) string {
	if name, ok := d[email]; ok && name != "" {
		return name
	}
	if name, ok := d[strings.ToLower(email)]; ok && name != "" {
		return name
	}
	local, _, _ := strings.Cut(email, "@")
	parts := strings.Split(local, ".")
	for i, p := range parts {
		parts[i] = capitalize(p)
	}
	return strings.Join(parts, " ")
}

func capitalize(s string) string {
	for i, r := range s {
		return string(unicode.ToUpper(r)) + s[i+len(string(r)):]
	}
	return s
}

// Names resolves several emails at once.
func (d Directory) Names(emails []string) []string {
	out := make([]string, len(emails))
	for i, e := range emails {
		out[i] = d.Name(e)
	}
	return out
}
