package toolexec

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"
)

// ErrEmptyTemplate is returned when a command template has no program.
var ErrEmptyTemplate = errors.New("empty command template")

// Template is a command line with {placeholder} variables, such as
// "ping -n -c 1 -W {timeout_s} {host}".
type Template struct {
	raw  string
	argv []string
}

// ParseTemplate splits s with shell quoting rules.
func ParseTemplate(s string) (Template, error) {
	argv, err := shellquote.Split(s)
	if err != nil {
		return Template{}, fmt.Errorf("invalid command template %q: %w", s, err)
	}
	if len(argv) == 0 {
		return Template{}, ErrEmptyTemplate
	}
	return Template{raw: s, argv: argv}, nil
}

// MustParseTemplate is ParseTemplate for built-in templates.
func MustParseTemplate(s string) Template {
	t, err := ParseTemplate(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Expand substitutes vars into every argument and returns the program
// name and its arguments. Placeholders without a value are left as is.
func (t Template) Expand(vars map[string]string) (string, []string) {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	r := strings.NewReplacer(pairs...)

	out := make([]string, len(t.argv))
	for i, arg := range t.argv {
		out[i] = r.Replace(arg)
	}
	return out[0], out[1:]
}

// String returns the template as written.
func (t Template) String() string {
	return t.raw
}
