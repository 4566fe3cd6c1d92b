package probe

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// readWebVTT parses a WebVTT subtitle file: the literal WEBVTT header on line
// one, then cues of a "start --> end" timestamp pair followed by text lines
// until a blank line. Duration is the end timestamp of the last cue.
func readWebVTT(r io.ReadSeeker) (*Result, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	if !scanner.Scan() {
		return nil, ErrNotThisFormat
	}
	header := strings.TrimPrefix(scanner.Text(), "\uFEFF")
	if header != "WEBVTT" && !strings.HasPrefix(header, "WEBVTT ") {
		return nil, ErrNotThisFormat
	}

	meta := &SubtitleMeta{}
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, "-->") {
			continue
		}

		parts := strings.SplitN(line, "-->", 2)
		start, err := parseVTTTimestamp(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, ErrNotThisFormat
		}
		// Cue settings may trail the end timestamp.
		endField := strings.Fields(strings.TrimSpace(parts[1]))
		if len(endField) == 0 {
			return nil, ErrNotThisFormat
		}
		end, err := parseVTTTimestamp(endField[0])
		if err != nil {
			return nil, ErrNotThisFormat
		}

		cue := Cue{StartMS: start, DurationMS: end - start}
		for scanner.Scan() {
			text := scanner.Text()
			if text == "" {
				break
			}
			cue.Lines = append(cue.Lines, text)
		}

		meta.Cues = append(meta.Cues, cue)
		meta.DurationMS = end
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return &Result{
		Facet:      FacetSubtitle,
		MIME:       "text/vtt",
		DurationMS: meta.DurationMS,
		Subtitle:   meta,
	}, nil
}

// parseVTTTimestamp parses "HH:MM:SS.mmm" (or "MM:SS.mmm") into milliseconds.
func parseVTTTimestamp(s string) (int64, error) {
	fields := strings.Split(s, ":")
	if len(fields) < 2 || len(fields) > 3 {
		return 0, ErrNotThisFormat
	}

	secPart := fields[len(fields)-1]
	secFields := strings.SplitN(secPart, ".", 2)
	if len(secFields) != 2 || len(secFields[1]) != 3 {
		return 0, ErrNotThisFormat
	}

	var total int64
	for _, f := range fields[:len(fields)-1] {
		n, err := strconv.Atoi(f)
		if err != nil {
			return 0, err
		}
		total = total*60 + int64(n)
	}

	secs, err := strconv.Atoi(secFields[0])
	if err != nil {
		return 0, err
	}
	millis, err := strconv.Atoi(secFields[1])
	if err != nil {
		return 0, err
	}

	return (total*60+int64(secs))*1000 + int64(millis), nil
}
