package output

import (
	"bufio"
	"os"
)

// SnippetLine is a single rendered line of source context.
type SnippetLine struct {
	Number      int
	Content     string
	IsHighlight bool
}

// Snippet is a window of source lines around a finding, the Tuple-based
// formatters' replacement for the teacher's Enricher.extractSnippet.
type Snippet struct {
	StartLine int
	Lines     []SnippetLine
}

// SnippetReader reads and caches file contents for snippet extraction.
// Grounded on the teacher's output.Enricher: readFileLines's per-path
// bufio.Scanner cache and extractSnippet's context-line windowing, adapted
// because query.Tuple nodes already carry a resolved file/line (no FQN
// lookup step is needed first).
type SnippetReader struct {
	contextLines int
	cache        map[string][]string
}

func NewSnippetReader(contextLines int) *SnippetReader {
	if contextLines <= 0 {
		contextLines = 3
	}
	return &SnippetReader{contextLines: contextLines, cache: make(map[string][]string)}
}

// For returns the source window around line in file. Returns a zero-value
// Snippet (no error) when the file can't be read — callers render findings
// without source context rather than failing the whole report.
func (r *SnippetReader) For(file string, line int) Snippet {
	if file == "" || line <= 0 {
		return Snippet{}
	}
	lines, err := r.readLines(file)
	if err != nil {
		return Snippet{}
	}

	start := line - r.contextLines
	if start < 1 {
		start = 1
	}
	end := line + r.contextLines
	if end > len(lines) {
		end = len(lines)
	}

	snippet := Snippet{StartLine: start}
	for i := start; i <= end; i++ {
		snippet.Lines = append(snippet.Lines, SnippetLine{
			Number:      i,
			Content:     lines[i-1],
			IsHighlight: i == line,
		})
	}
	return snippet
}

func (r *SnippetReader) readLines(file string) ([]string, error) {
	if lines, ok := r.cache[file]; ok {
		return lines, nil
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	r.cache[file] = lines
	return lines, nil
}
