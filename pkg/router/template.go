package router

import (
	"strings"

	"github.com/dlclark/regexp2"
)

// catchAll matches one path segment: anything except a slash
const catchAll = "[^/]+"

// Normalize strips one leading and one trailing slash. Paths of two characters
// or fewer are returned unchanged, so "/" and "//" stay as they are.
func Normalize(path string) string {
	if len(path) <= 2 {
		return path
	}
	path = strings.TrimPrefix(path, "/")
	return strings.TrimSuffix(path, "/")
}

func isParam(segment string) bool {
	return len(segment) > 2 && strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}")
}

// FindParams maps the position of every {name} segment of template to its name
func FindParams(template string) map[int]string {
	params := make(map[int]string)
	for pos, segment := range strings.Split(Normalize(template), "/") {
		if isParam(segment) {
			params[pos] = segment[1 : len(segment)-1]
		}
	}
	return params
}

// Pattern builds the anchored expression matching template.
// Parameter segments become [^/]+, every other segment is matched literally,
// and the anchors keep the template's own leading and trailing slash.
func Pattern(template string) string {
	params := FindParams(template)
	segments := strings.Split(Normalize(template), "/")
	last := len(segments) - 1

	parts := make([]string, 0, len(segments))
	for pos, segment := range segments {
		item := regexp2.Escape(segment)
		if _, ok := params[pos]; ok {
			item = catchAll
		}
		if pos == 0 {
			if strings.HasPrefix(template, "/") {
				item = "^/" + item
			} else {
				item = "^" + item
			}
		}
		if pos == last {
			if strings.HasSuffix(template, "/") {
				item += "/$"
			} else {
				item += "$"
			}
		}
		parts = append(parts, item)
	}
	return strings.Join(parts, "/")
}
