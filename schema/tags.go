package schema

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// IndexURL lists every published version of the release schema.
const IndexURL = "https://standard.open-contracting.org/schema/"

var tagPattern = regexp.MustCompile(`"(\d+__\d+__\d+)/`)

// ReleaseSchemaURL returns the URL of the release schema for tag, e.g.
// "1__1__5".
func ReleaseSchemaURL(tag string) string {
	return fmt.Sprintf("%s%s/release-schema.json", IndexURL, tag)
}

// Tags lists the published schema tags found in the index page, oldest first.
func (l *Loader) Tags(ctx context.Context, index string) ([]string, error) {
	if index == "" {
		index = IndexURL
	}
	data, err := l.fs.DownloadWithURL(ctx, index)
	if err != nil {
		return nil, fmt.Errorf("schema: download %s: %w", index, err)
	}
	seen := map[string]bool{}
	var tags []string
	for _, match := range tagPattern.FindAllSubmatch(data, -1) {
		tag := string(match[1])
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	sort.Slice(tags, func(i, j int) bool {
		return tagLess(tags[i], tags[j])
	})
	return tags, nil
}

// tagLess compares tags such as "1__1__10" numerically per component.
func tagLess(a, b string) bool {
	left, right := strings.Split(a, "__"), strings.Split(b, "__")
	for i := 0; i < len(left) && i < len(right); i++ {
		l, _ := strconv.Atoi(left[i])
		r, _ := strconv.Atoi(right[i])
		if l != r {
			return l < r
		}
	}
	return len(left) < len(right)
}

// LatestReleaseSchemaURL returns the release schema URL of the last tag listed
// in the index.
func (l *Loader) LatestReleaseSchemaURL(ctx context.Context, index string) (string, error) {
	tags, err := l.Tags(ctx, index)
	if err != nil {
		return "", err
	}
	if len(tags) == 0 {
		return "", fmt.Errorf("schema: no tags found in %s", index)
	}
	return ReleaseSchemaURL(tags[len(tags)-1]), nil
}
