// Package pdf fills missing record metadata from the PDF each record points to.
package pdf

import (
	"errors"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNoDOIFound is returned when a PDF has no recognizable DOI.
var ErrNoDOIFound = errors.New("no DOI found in PDF")

// MaxScanPages bounds how many leading pages are searched.
const MaxScanPages = 3

// DOI pattern: 10.XXXX/... where XXXX is 4-9 digits
var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

// ExtractDOI returns the first DOI on the leading pages of a PDF.
func ExtractDOI(filePath string) (string, error) {
	var doi string
	err := eachPage(filePath, MaxScanPages, func(text string) bool {
		doi = findDOI(text)
		return doi != ""
	})
	if err != nil {
		return "", err
	}
	if doi == "" {
		return "", ErrNoDOIFound
	}
	return doi, nil
}

// ExtractTitle guesses the title as the first substantial line of page one.
// An empty result is not an error.
func ExtractTitle(filePath string) (string, error) {
	var title string
	err := eachPage(filePath, 1, func(text string) bool {
		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			if len(line) > 20 && !isHeaderLine(line) {
				title = line
				return true
			}
		}
		return false
	})
	return title, err
}

// eachPage feeds the plain text of up to maxPages pages to fn until it
// returns true. Pages that fail to decode are skipped.
func eachPage(filePath string, maxPages int, fn func(text string) bool) error {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	n := min(maxPages, r.NumPage())
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if fn(text) {
			return nil
		}
	}
	return nil
}

// findDOI finds a DOI in text.
func findDOI(text string) string {
	for _, match := range doiPattern.FindAllString(text, -1) {
		match = strings.TrimRight(match, ".,;:)")
		if isValidDOI(match) {
			return match
		}
	}
	return ""
}

// isValidDOI performs basic validation on a DOI.
func isValidDOI(doi string) bool {
	if len(doi) < 10 || !strings.HasPrefix(doi, "10.") {
		return false
	}
	slashIdx := strings.Index(doi, "/")
	return slashIdx != -1 && slashIdx < len(doi)-1
}

// isHeaderLine checks if a line is likely a header/footer.
func isHeaderLine(line string) bool {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "journal"), strings.Contains(lower, "copyright"):
		return true
	case strings.Contains(lower, "volume") && strings.Contains(lower, "issue"):
		return true
	case strings.Contains(lower, "article") && strings.Contains(lower, "published"):
		return true
	}
	return false
}
