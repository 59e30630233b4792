package git

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

type ChangedFile struct {
	Path         string // relative to the directory git ran in
	ChangedLines []int
	Deleted      bool
}

// Regex for chunk header: @@ -oldStart,oldLen +newStart,newLen @@
var chunkHeader = regexp.MustCompile(`^@@ \-\d+(?:,\d+)? \+(\d+)(?:,(\d+))? @@`)

// GetChangedFiles runs git diff in dir and returns the changed files with their new line numbers.
// Paths are relative to dir; changes outside of it are left out.
func GetChangedFiles(ctx context.Context, dir, baseRef string) ([]ChangedFile, error) {
	cmd := exec.CommandContext(ctx, "git", "diff", "--relative", "--no-color", "-U0", baseRef)
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git diff failed: %w", err)
	}

	return parseDiff(output)
}

func parseDiff(output []byte) ([]ChangedFile, error) {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var changes []ChangedFile
	var currentFile *ChangedFile

	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, "diff --git") {
			parts := strings.Fields(line)
			if len(parts) >= 4 {
				// a/path/to/file b/path/to/file; the b/ path is the new version
				path := strings.TrimPrefix(parts[3], "b/")

				if currentFile != nil {
					changes = append(changes, *currentFile)
				}
				currentFile = &ChangedFile{Path: path, ChangedLines: []int{}}
			}
			continue
		}

		if currentFile == nil {
			continue
		}

		if line == "+++ /dev/null" {
			currentFile.Deleted = true
			continue
		}

		if strings.HasPrefix(line, "@@") {
			matches := chunkHeader.FindStringSubmatch(line)
			if len(matches) > 1 {
				startLine, _ := strconv.Atoi(matches[1])
				count := 1 // Default length is 1 if omitted
				if len(matches) > 2 && matches[2] != "" {
					count, _ = strconv.Atoi(matches[2])
				}

				// a pure deletion (count 0) changes nothing in the new file but still
				// touches whatever encloses the position
				if count == 0 {
					currentFile.ChangedLines = append(currentFile.ChangedLines, startLine)
				}
				for i := 0; i < count; i++ {
					currentFile.ChangedLines = append(currentFile.ChangedLines, startLine+i)
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read diff: %w", err)
	}

	if currentFile != nil {
		changes = append(changes, *currentFile)
	}

	return changes, nil
}

// GoFiles filters changes down to Go source files.
func GoFiles(changes []ChangedFile) []ChangedFile {
	var out []ChangedFile
	for _, c := range changes {
		if strings.HasSuffix(c.Path, ".go") {
			out = append(out, c)
		}
	}
	return out
}
