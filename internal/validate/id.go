package validate

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// recordIDPattern matches "{unixSeconds}-{kind}-{slug}" ids for
// task/cycle/feedback/execution/changelog records.
var recordIDPattern = regexp.MustCompile(`^[0-9]{10,}-(task|cycle|feedback|exec|changelog)-[a-z0-9-]+$`)

// actorIDPattern matches "{human|agent}:{slug}[-v{N}]" ids.
var actorIDPattern = regexp.MustCompile(`^(human|agent):[a-z0-9-]+(-v[0-9]+)?$`)

// recordKindToken maps a record.Kind-like domain word to the token used in
// the id grammar (executions use "exec", not "execution").
var recordKindToken = map[string]string{
	"task":      "task",
	"cycle":     "cycle",
	"feedback":  "feedback",
	"execution": "exec",
	"changelog": "changelog",
}

// GenerateID builds a "{unixSeconds}-{kind}-{slug}" record id for kind
// (one of task/cycle/feedback/execution/changelog) from a human title and a
// timestamp.
func GenerateID(kind string, title string, ts time.Time) (string, error) {
	token, ok := recordKindToken[kind]
	if !ok {
		return "", fmt.Errorf("validate: unknown record kind %q", kind)
	}
	slug := Slugify(title)
	if slug == "" {
		slug = "untitled"
	}
	return fmt.Sprintf("%d-%s-%s", ts.Unix(), token, slug), nil
}

// IsValidRecordID reports whether id matches the record id grammar.
func IsValidRecordID(id string) bool {
	return recordIDPattern.MatchString(id)
}

// IsValidActorID reports whether id matches the actor/agent id grammar.
func IsValidActorID(id string) bool {
	return actorIDPattern.MatchString(id)
}

var slugNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s and replaces runs of non-alphanumeric characters
// with a single hyphen, trimming leading/trailing hyphens.
func Slugify(s string) string {
	lower := strings.ToLower(s)
	slug := slugNonAlnum.ReplaceAllString(lower, "-")
	return strings.Trim(slug, "-")
}

// NextActorVersion computes "{baseID}-v{n}" for key rotation, where baseID
// is the actor id stripped of any existing "-vN" suffix.
func NextActorVersion(currentID string, n int) string {
	base := StripVersionSuffix(currentID)
	return fmt.Sprintf("%s-v%d", base, n)
}

var versionSuffix = regexp.MustCompile(`-v[0-9]+$`)

// StripVersionSuffix removes a trailing "-vN" from an actor id, if present.
func StripVersionSuffix(id string) string {
	return versionSuffix.ReplaceAllString(id, "")
}
