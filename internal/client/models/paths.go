package models

import (
	"path"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/gophnotes/internal/common"
)

// SystemPath is the interchange file name of an item.
func SystemPath(id string) string {
	return id + ".md"
}

// IsSystemPath reports whether p names an interchange file, i.e. its base
// name is a 32 character id followed by ".md".
func IsSystemPath(p string) bool {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	parts := strings.Split(base, ".")
	return len(parts) == 2 && len(parts[0]) == common.IDLength && parts[1] == "md"
}

// PathToID strips directories and the extension from p.
func PathToID(p string) string {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	if i := strings.Index(base, "."); i >= 0 {
		return base[:i]
	}
	return base
}

var linkRe = regexp.MustCompile(`:/([a-zA-Z0-9]{32})`)

// LinkedItemIDs returns the distinct ids referenced from body with the
// ":/<id>" syntax, in order of first appearance.
func LinkedItemIDs(body string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range linkRe.FindAllStringSubmatch(body, -1) {
		id := strings.ToLower(m[1])
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ItemURL is the in-body link to an item.
func ItemURL(id string) string {
	return ":/" + id
}

// IsItemURL reports whether s is exactly a ":/<id>" link.
func IsItemURL(s string) bool {
	return strings.HasPrefix(s, ":/") && common.IsValidID(strings.ToLower(s[2:]))
}

// URLToID extracts the id from a ":/<id>" link.
func URLToID(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, ":/"))
}

// MarkdownTag renders a markdown link to the item. Images get the inline
// image syntax.
func MarkdownTag(it Item) string {
	title := DisplayTitle(it)
	if r, ok := it.(*Resource); ok {
		if title == "" {
			title = r.Filename
		}
		if IsSupportedImageMime(r.Mime) {
			return "![" + escapeLinkText(title) + "](" + ItemURL(r.ID) + ")"
		}
	}
	return "[" + escapeLinkText(title) + "](" + ItemURL(it.Base().ID) + ")"
}

// IsSupportedImageMime reports whether mime is rendered inline as an image.
func IsSupportedImageMime(mime string) bool {
	switch strings.ToLower(mime) {
	case "image/jpg", "image/jpeg", "image/png", "image/gif":
		return true
	}
	return false
}

func escapeLinkText(s string) string {
	s = strings.ReplaceAll(s, "[", "\\[")
	return strings.ReplaceAll(s, "]", "\\]")
}
