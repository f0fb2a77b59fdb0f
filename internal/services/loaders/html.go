package loaders

import (
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
)

// htmlToMarkdown converts HTML content to markdown. When conversion fails or
// produces empty output despite non-empty input, the tags are stripped with
// goquery so the text content still survives.
func htmlToMarkdown(htmlContent, baseURL string, logger arbor.ILogger) string {
	if htmlContent == "" {
		return ""
	}

	converter := md.NewConverter(baseURL, true, nil)
	converted, err := converter.ConvertString(htmlContent)
	if err != nil {
		logger.Warn().Err(err).Msg("HTML to markdown conversion failed, stripping tags")
		return stripHTMLTags(htmlContent)
	}

	if strings.TrimSpace(converted) == "" {
		logger.Warn().Int("html_length", len(htmlContent)).Msg("HTML to markdown conversion produced empty output, stripping tags")
		return stripHTMLTags(htmlContent)
	}

	return converted
}

// stripHTMLTags extracts the plain text content of an HTML document
func stripHTMLTags(htmlContent string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}
	doc.Find("script, style").Remove()
	return strings.TrimSpace(doc.Text())
}
