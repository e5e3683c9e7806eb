package document

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	htmlTagPattern = regexp.MustCompile(`(?i)<(html|body|div|p|br|span|h[1-6]|ul|ol|li|table|tr|td|strong|em|a)\b[^>]*>`)
	blankLines     = regexp.MustCompile(`\n{3,}`)
)

// blockSelectors 转换为文本时换行的块级元素
const blockSelectors = "p, div, li, tr, h1, h2, h3, h4, h5, h6, blockquote, pre"

// LooksLikeHTML 是否包含常见 HTML 标签
func LooksLikeHTML(s string) bool {
	return htmlTagPattern.MatchString(s)
}

// NormalizeContent HTML 转纯文本，其他内容只去除首尾空白
func NormalizeContent(content string) (string, error) {
	if !LooksLikeHTML(content) {
		return strings.TrimSpace(content), nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, head").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find(blockSelectors).Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml("\n")
	})

	lines := strings.Split(doc.Text(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text := blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(text), nil
}
