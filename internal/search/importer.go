package search

import (
	"bufio"
	"io"
	"strings"
)

// Entry is one reference item parsed from Markdown.
type Entry struct {
	Title string
	Body  string
}

// ParseReferenceMarkdown splits a Markdown document into entries. Every
// "## " heading starts a new entry; the lines up to the next such heading
// form its body. Table rows are flattened into one line of cells joined by
// " | ", and separator rows are dropped.
//
// Notes:
//   - Text before the first "## " heading (a "# " title, intro prose) is ignored.
//   - Runs of blank lines collapse to one; bodies are trimmed.
//   - Headings with an empty title are skipped along with their body.
func ParseReferenceMarkdown(r io.Reader) ([]Entry, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		out     []Entry
		cur     *Entry
		body    strings.Builder
		blankOK bool
	)
	flush := func() {
		if cur != nil && cur.Title != "" {
			cur.Body = strings.TrimSpace(body.String())
			out = append(out, *cur)
		}
		cur = nil
		body.Reset()
		blankOK = false
	}

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())

		if line == "##" || strings.HasPrefix(line, "## ") {
			flush()
			cur = &Entry{Title: strings.TrimSpace(strings.TrimPrefix(line, "##"))}
			continue
		}
		if cur == nil {
			continue
		}

		if line == "" {
			if blankOK {
				body.WriteByte('\n')
				blankOK = false
			}
			continue
		}

		// table row: "| ... |"
		if strings.HasPrefix(line, "|") && strings.HasSuffix(line, "|") {
			row, ok := flattenRow(line)
			if !ok {
				continue
			}
			line = row
		}
		body.WriteString(line)
		body.WriteByte('\n')
		blankOK = true
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	flush()
	return out, nil
}

// flattenRow turns "| a | b |" into "a | b". Separator rows ("|---|:-:|")
// and empty rows report false.
func flattenRow(line string) (string, bool) {
	cols := strings.Split(strings.Trim(line, "|"), "|")

	allSep := true
	cleaned := make([]string, 0, len(cols))
	for _, c := range cols {
		cell := strings.TrimSpace(c)
		if cell != "" {
			cleaned = append(cleaned, cell)
		}
		tmp := strings.ReplaceAll(cell, ":", "")
		tmp = strings.ReplaceAll(tmp, "-", "")
		if strings.TrimSpace(tmp) != "" {
			allSep = false
		}
	}
	if allSep || len(cleaned) == 0 {
		return "", false
	}
	return strings.Join(cleaned, " | "), true
}
