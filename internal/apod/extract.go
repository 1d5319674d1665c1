package apod

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Field extractors. Each one runs an ordered chain of strategies over
// the parsed document: the newest known layout first, then older ones.
// A strategy failure is not an error; exhausting the chain is.

// explanationLabel prefixes the explanation block on most pages.
const explanationLabel = "Explanation:"

// explanationCutMarkers introduce boilerplate that trails the
// explanation text and must be cut off.
var explanationCutMarkers = []string{" Tomorrow's picture", "digg_url"}

// trailingURLPattern matches two concatenated absolute URLs, a known
// upstream inconsistency in media attributes. Only the trailing
// well-formed URL is kept.
var trailingURLPattern = regexp.MustCompile(`(https?://.*?)(https?://.*)`)

// titleStrategy extracts a candidate title; ok is false when the
// layout this strategy targets is not present.
type titleStrategy func(doc *goquery.Document) (title string, ok bool)

var titleStrategies = []titleStrategy{
	titleFromCenterBold,
	titleFromHeadTitle,
}

// ExtractTitle returns the page title, trying the modern centered-bold
// layout before falling back to the document <title>.
func ExtractTitle(doc *goquery.Document) (string, error) {
	for _, strategy := range titleStrategies {
		if title, ok := strategy(doc); ok {
			return repairText(title), nil
		}
	}
	return "", &SchemaError{Field: "title"}
}

// titleFromCenterBold handles later entries: the second center-aligned
// block holds the title in its first bold element.
func titleFromCenterBold(doc *goquery.Document) (string, bool) {
	centers := doc.Find("center")
	if centers.Length() < 2 {
		return "", false
	}

	title := strings.TrimSpace(centers.Eq(1).Find("b").First().Text())
	if title == "" {
		return "", false
	}
	return title, true
}

// titleFromHeadTitle handles early entries: the document title reads
// "APOD: <date> - <title>", so everything after the last separator is
// the title.
func titleFromHeadTitle(doc *goquery.Document) (string, bool) {
	text := doc.Find("title").First().Text()
	if text == "" {
		return "", false
	}

	parts := strings.Split(text, " - ")
	title := strings.TrimSpace(parts[len(parts)-1])
	if title == "" {
		return "", false
	}
	return title, true
}

// ExtractExplanation returns the explanation text. Later entries keep
// it in the third paragraph element; early entries require scanning the
// page's visible text line by line.
func ExtractExplanation(doc *goquery.Document) (string, error) {
	if s := explanationFromParagraph(doc); s != "" {
		return repairText(s), nil
	}
	if s := explanationFromLines(doc); s != "" {
		return repairText(s), nil
	}
	return "", &SchemaError{Field: "explanation"}
}

// explanationFromParagraph takes the third paragraph, collapses
// whitespace, strips the label, and cuts trailing boilerplate.
func explanationFromParagraph(doc *goquery.Document) string {
	paragraphs := doc.Find("p")
	if paragraphs.Length() < 3 {
		return ""
	}

	s := collapseWhitespace(paragraphs.Eq(2).Text())
	s = strings.TrimSpace(strings.TrimPrefix(s, explanationLabel))
	for _, marker := range explanationCutMarkers {
		if idx := strings.Index(s, marker); idx >= 0 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}

// explanationFromLines handles early entries: find the line holding the
// "Explanation:" label and join the following non-empty lines.
func explanationFromLines(doc *goquery.Document) string {
	lines := visibleLines(doc)

	begin := -1
	for i, line := range lines {
		if line == explanationLabel {
			begin = i + 1
			break
		}
	}

	if begin == -1 {
		// Rare case where the label is not on its own line. Only a
		// unique match is trusted; strip the label prefix in place.
		matches := make([]int, 0, 1)
		for i, line := range lines {
			if strings.Contains(line, explanationLabel) {
				matches = append(matches, i)
			}
		}
		if len(matches) != 1 {
			return ""
		}
		begin = matches[0]
		lines[begin] = strings.TrimSpace(lines[begin][len(explanationLabel):])
	}

	var parts []string
	for _, line := range lines[begin:] {
		if line == "" {
			break
		}
		parts = append(parts, line)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// ExtractCopyright returns the copyright holder, or empty when the page
// carries none: most APOD images are public-domain NASA imagery, so
// absence is a legitimate terminal state, not an error. A page that
// marks a copyright it then fails to attribute is a schema error.
func ExtractCopyright(doc *goquery.Document) (string, error) {
	marker := false

	// Later entries: the anchor after the "Copyright" anchor names the
	// holder.
	if holder, found := copyrightFromAnchorPair(doc); found {
		if holder != "" {
			return holder, nil
		}
		marker = true
	}

	// Older entries: the holder follows the marker element as loose
	// sibling text.
	if holder, found := copyrightFromSiblings(doc); found {
		if holder != "" {
			return holder, nil
		}
		marker = true
	}

	if marker {
		return "", &SchemaError{Field: "copyright"}
	}
	return "", nil
}

func copyrightFromAnchorPair(doc *goquery.Document) (holder string, found bool) {
	useNext := false
	doc.Find("a").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if useNext {
			holder = strings.TrimSpace(sel.Text())
			return false
		}
		if strings.Contains(sel.Text(), "Copyright") {
			found = true
			useNext = true
		}
		return true
	})
	return holder, found
}

func copyrightFromSiblings(doc *goquery.Document) (holder string, found bool) {
	doc.Find("b, a").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if !strings.Contains(sel.Text(), "Copyright") {
			return true
		}
		found = true

		var sb strings.Builder
		for node := sel.Get(0).NextSibling; node != nil; node = node.NextSibling {
			sb.WriteString(nodeText(node))
		}
		holder = strings.TrimSpace(sb.String())
		return holder == ""
	})
	return holder, found
}

// nodeText returns the concatenated text content of a node subtree.
func nodeText(node *html.Node) string {
	if node.Type == html.TextNode {
		return node.Data
	}

	var sb strings.Builder
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		sb.WriteString(nodeText(child))
	}
	return sb.String()
}

// Media is the extracted media URL pair and its classification.
type Media struct {
	Type  MediaType
	URL   string
	HDURL string
}

// ExtractMedia classifies the page media. An inline image yields type
// image with the src resolved against the site base; a same-directory
// "image..." link upgrades the HD URL. An embedded frame yields type
// video. Neither yields type other with no URL.
func ExtractMedia(doc *goquery.Document, baseURL string) Media {
	if src, ok := doc.Find("img").First().Attr("src"); ok {
		media := Media{Type: MediaTypeImage}
		media.URL = resolveRef(baseURL, lastURL(src))
		media.HDURL = media.URL

		doc.Find("a").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			href, exists := sel.Attr("href")
			if exists && strings.HasPrefix(href, "image") {
				media.HDURL = resolveRef(baseURL, lastURL(href))
				return false
			}
			return true
		})
		return media
	}

	if src, ok := doc.Find("iframe").First().Attr("src"); ok {
		return Media{Type: MediaTypeVideo, URL: lastURL(src)}
	}

	return Media{Type: MediaTypeOther}
}

// lastURL keeps only the trailing well-formed URL when multiple
// absolute URLs are concatenated in one attribute value.
func lastURL(raw string) string {
	for {
		m := trailingURLPattern.FindStringSubmatch(raw)
		if m == nil {
			return raw
		}
		raw = m[2]
	}
}

// resolveRef resolves a possibly-relative media reference against the
// site base URL.
func resolveRef(baseURL, ref string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return ref
	}
	target, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(target).String()
}

// ExtractPageDate scans the page's visible text for the publication
// date line, used when the request did not name a date (latest mode).
// Lines starting with the current or previous year are tried, the
// previous year tolerating a day-boundary crossing just after midnight
// UTC. No match is fatal.
func ExtractPageDate(doc *goquery.Document, now time.Time) (time.Time, error) {
	currentYear := now.UTC().Format("2006")
	previousYear := now.UTC().AddDate(-1, 0, 0).Format("2006")

	for _, line := range visibleLines(doc) {
		if !strings.HasPrefix(line, currentYear) && !strings.HasPrefix(line, previousYear) {
			continue
		}
		if dt, err := time.ParseInLocation("2006 January 2", line, time.UTC); err == nil {
			return dt, nil
		}
	}

	return time.Time{}, ErrDateNotFound
}

// visibleLines returns the document's visible text split into
// whitespace-trimmed lines.
func visibleLines(doc *goquery.Document) []string {
	lines := strings.Split(doc.Text(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return lines
}

// collapseWhitespace flattens newlines and repeated spaces into single
// spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
