package knowledge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// maxChunkChars bounds article content so a single answer stays spoken-length.
const maxChunkChars = 800

// LoadMarkdownDir parses every markdown file under dir into articles, one
// article per heading section, splitting long sections into chunks.
func LoadMarkdownDir(dir string) ([]Article, error) {
	var articles []Article

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(path), ".md") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			rel = path
		}

		articles = append(articles, parseMarkdown(data, rel)...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}

	return articles, nil
}

// parseMarkdown walks the goldmark AST and splits the document into sections
// at each heading, extracting plain text from the nodes in between.
func parseMarkdown(source []byte, sourceName string) []Article {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(source))

	var articles []Article
	title := strings.TrimSuffix(filepath.Base(sourceName), ".md")
	var body strings.Builder

	flush := func() {
		content := strings.TrimSpace(body.String())
		body.Reset()
		if content == "" {
			return
		}
		for i, chunk := range splitChunks(content, maxChunkChars) {
			articles = append(articles, Article{
				ID:      fmt.Sprintf("%s#%d-%d", sourceName, len(articles), i),
				Title:   title,
				Content: chunk,
				Source:  sourceName,
			})
		}
	}

	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if h, ok := node.(*ast.Heading); ok {
			flush()
			title = nodeText(h, source)
			continue
		}
		if txt := nodeText(node, source); txt != "" {
			if body.Len() > 0 {
				body.WriteString("\n")
			}
			body.WriteString(txt)
		}
	}
	flush()

	return articles
}

// nodeText collects the plain text of all text leaves under n.
func nodeText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := node.(*ast.Text); ok {
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

// splitChunks breaks content into pieces no longer than max characters,
// preferring sentence boundaries.
func splitChunks(content string, max int) []string {
	if len(content) <= max {
		return []string{content}
	}

	var chunks []string
	var cur strings.Builder
	for _, sentence := range splitSentences(content) {
		if cur.Len() > 0 && cur.Len()+len(sentence)+1 > max {
			chunks = append(chunks, strings.TrimSpace(cur.String()))
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(sentence)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(cur.String()))
	}
	return chunks
}

func splitSentences(content string) []string {
	var sentences []string
	start := 0
	for i, r := range content {
		if r == '.' || r == '!' || r == '?' {
			if i+1 >= len(content) || content[i+1] == ' ' || content[i+1] == '\n' {
				sentences = append(sentences, strings.TrimSpace(content[start:i+1]))
				start = i + 1
			}
		}
	}
	if rest := strings.TrimSpace(content[start:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}
