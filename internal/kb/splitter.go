package kb

import (
	"regexp"
	"strings"
)

// Article is one knowledge-base article cut out of a raw export file.
type Article struct {
	Index   int
	Title   string
	Content string
}

var (
	articleHeaderRe = regexp.MustCompile(`Article\s+\d+:\s+Title:`)
	titleRe         = regexp.MustCompile(`Title:\s*(.+?)\s*Content:`)
	invalidCharsRe  = regexp.MustCompile(`[<>:"/\\|?*']`)
	spacesRe        = regexp.MustCompile(`\s+`)
	underscoresRe   = regexp.MustCompile(`_+`)
)

// SplitArticles cuts a raw export at every "Article NN: Title:" header. Text
// before the first header is discarded.
func SplitArticles(text string) []Article {
	headers := articleHeaderRe.FindAllStringIndex(text, -1)
	if len(headers) == 0 {
		return nil
	}

	articles := make([]Article, 0, len(headers))
	for i, loc := range headers {
		end := len(text)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}
		raw := strings.TrimSpace(text[loc[0]:end])

		title := ""
		if m := titleRe.FindStringSubmatch(raw); m != nil {
			title = m[1]
		}
		articles = append(articles, Article{
			Index:   i + 1,
			Title:   title,
			Content: raw,
		})
	}
	return articles
}

// CleanFilename turns an article title into a safe snake_case file stem.
func CleanFilename(title string) string {
	s := invalidCharsRe.ReplaceAllString(title, "")
	s = spacesRe.ReplaceAllString(s, "_")
	s = underscoresRe.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	return strings.ToLower(s)
}
