package buffer

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// maxLineSize is the maximum size for a single log line (10MB).
// GitHub Actions logs can contain extremely long lines (base64 content, minified JS, etc.)
const maxLineSize = 10 * 1024 * 1024

// MaxRetainedLines caps the ring buffer allocation. Callers asking for more
// lines get the last MaxRetainedLines.
const MaxRetainedLines = 100000

// ProcessAsRingBufferToEnd reads r line by line, storing only the last
// maxLines lines using a ring buffer (sliding window). Lines may end in "\n",
// "\r\n" or a lone "\r". A trailing line break does not start an extra empty
// line.
//
// Returns:
//
//	string:  The retained lines, separated by "\n".
//	int:     The total number of lines read.
//	error:   Any error encountered during reading.
//
// maxLines <= 0 retains every line. Lines exceeding maxLineSize are truncated
// with a marker.
func ProcessAsRingBufferToEnd(r io.Reader, maxLines int) (string, int, error) {
	unbounded := maxLines <= 0
	if maxLines > MaxRetainedLines {
		maxLines = MaxRetainedLines
	}

	var lines []string
	if !unbounded {
		lines = make([]string, maxLines)
	}
	totalLines := 0
	writeIndex := 0

	const readBufferSize = 64 * 1024 // 64KB read buffer
	const maxDisplayLength = 1000    // Keep first 1000 chars of truncated lines

	readBuf := make([]byte, readBufferSize)
	var currentLine strings.Builder
	lineTruncated := false
	// pendingCR is set after a "\r" so that a following "\n" is absorbed.
	pendingCR := false

	// storeLine saves the current line to the ring buffer and resets state
	storeLine := func() {
		line := currentLine.String()
		if lineTruncated && len(line) > maxDisplayLength {
			line = line[:maxDisplayLength]
		}
		if lineTruncated {
			line += "... [TRUNCATED]"
		}
		if unbounded {
			lines = append(lines, line)
		} else {
			lines[writeIndex] = line
			writeIndex = (writeIndex + 1) % maxLines
		}
		totalLines++
		currentLine.Reset()
		lineTruncated = false
	}

	// accumulate adds bytes to currentLine up to maxLineSize, sets lineTruncated if exceeded
	accumulate := func(data []byte) {
		if lineTruncated {
			return
		}
		remaining := maxLineSize - currentLine.Len()
		if remaining <= 0 {
			lineTruncated = true
			return
		}
		if remaining > len(data) {
			remaining = len(data)
		}
		currentLine.Write(data[:remaining])
		if currentLine.Len() >= maxLineSize {
			lineTruncated = true
		}
	}

	for {
		n, err := r.Read(readBuf)
		if n > 0 {
			chunk := readBuf[:n]
			for len(chunk) > 0 {
				if pendingCR {
					pendingCR = false
					if chunk[0] == '\n' {
						chunk = chunk[1:]
						continue
					}
				}
				breakIdx := bytes.IndexAny(chunk, "\r\n")
				if breakIdx < 0 {
					accumulate(chunk)
					break
				}
				accumulate(chunk[:breakIdx])
				storeLine()
				pendingCR = chunk[breakIdx] == '\r'
				chunk = chunk[breakIdx+1:]
			}
		}

		if err == io.EOF {
			if currentLine.Len() > 0 || lineTruncated {
				storeLine()
			}
			break
		}
		if err != nil {
			return "", 0, fmt.Errorf("failed to read log content: %w", err)
		}
	}

	if unbounded {
		return strings.Join(lines, "\n"), totalLines, nil
	}

	linesInBuffer := min(totalLines, maxLines)
	startIndex := 0
	if totalLines > maxLines {
		startIndex = writeIndex
	}

	result := make([]string, 0, linesInBuffer)
	for i := 0; i < linesInBuffer; i++ {
		result = append(result, lines[(startIndex+i)%maxLines])
	}

	return strings.Join(result, "\n"), totalLines, nil
}
