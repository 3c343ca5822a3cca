package app

import (
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	ansiReset   = "\x1b[0m"
	ansiDim     = "\x1b[2m"
	ansiBright  = "\x1b[1m"
	ansiRed     = "\x1b[31m"
	ansiGreen   = "\x1b[32m"
	ansiYellow  = "\x1b[33m"
	ansiBlue    = "\x1b[34m"
	ansiMagenta = "\x1b[35m"
	ansiCyan    = "\x1b[36m"
)

const (
	defaultLogWidth = 100
	minLogWidth     = 40
)

// stripANSI removes CSI escape sequences so width math sees only
// printable characters.
func stripANSI(s string) string {
	if !strings.Contains(s, "\x1b[") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		if s[i] == 0x1b && i+1 < len(s) && s[i+1] == '[' {
			i += 2
			for i < len(s) {
				c := s[i]
				i++
				if c >= '@' && c <= '~' {
					break
				}
			}
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

func visualLen(s string) int {
	return utf8.RuneCountInString(stripANSI(s))
}

// wrapSegments packs segments greedily into lines no wider than width.
// Continuation lines are prefixed with cont. A single segment that
// cannot fit on its own line is truncated with an ellipsis rather than
// split mid-token.
func wrapSegments(segments []string, sep string, width int, cont string) []string {
	if width < minLogWidth {
		width = minLogWidth
	}

	var lines []string
	var cur strings.Builder
	curLen := 0
	sepLen := visualLen(sep)
	contLen := visualLen(cont)

	flush := func() {
		if curLen == 0 {
			return
		}
		lines = append(lines, cur.String())
		cur.Reset()
		curLen = 0
	}

	for _, seg := range segments {
		segLen := visualLen(seg)

		if curLen > 0 && curLen+sepLen+segLen <= width {
			cur.WriteString(sep)
			cur.WriteString(seg)
			curLen += sepLen + segLen
			continue
		}

		flush()
		if len(lines) > 0 {
			cur.WriteString(cont)
			curLen = contLen
		}
		if curLen+segLen > width {
			seg = truncateVisual(seg, width-curLen)
			segLen = visualLen(seg)
		}
		cur.WriteString(seg)
		curLen += segLen
	}
	flush()
	return lines
}

// truncateVisual shortens s to at most max printable characters,
// keeping escape sequences intact and ending with an ellipsis.
func truncateVisual(s string, max int) string {
	if max <= 1 {
		return "…"
	}
	if visualLen(s) <= max {
		return s
	}
	var b strings.Builder
	visible := 0
	for i := 0; i < len(s); {
		if s[i] == 0x1b && i+1 < len(s) && s[i+1] == '[' {
			j := i + 2
			for j < len(s) {
				c := s[j]
				j++
				if c >= '@' && c <= '~' {
					break
				}
			}
			b.WriteString(s[i:j])
			i = j
			continue
		}
		if visible == max-1 {
			break
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		_ = r
		b.WriteString(s[i : i+size])
		visible++
		i += size
	}
	b.WriteString("…")
	return b.String()
}

// terminalWidth resolves the output width for wrapped log lines.
// VOWS_LOG_WIDTH wins over the COLUMNS the shell exports; values
// below the minimum fall back to the default.
func (h *prettyHandler) terminalWidth() int {
	if n, ok := envWidth("VOWS_LOG_WIDTH"); ok {
		return n
	}
	if n, ok := envWidth("COLUMNS"); ok {
		return n
	}
	return defaultLogWidth
}

func colorizeHTTPMethod(method string, color bool) string {
	if !color {
		return method
	}
	switch method {
	case "GET", "HEAD", "OPTIONS":
		return ansiGreen + method + ansiReset
	case "POST", "PUT", "PATCH":
		return ansiYellow + method + ansiReset
	case "DELETE":
		return ansiRed + method + ansiReset
	default:
		return method
	}
}

func colorizeStatusCode(status int, color bool) string {
	s := strconv.Itoa(status)
	if !color {
		return s
	}
	switch {
	case status >= 500:
		return ansiRed + s + ansiReset
	case status >= 400:
		return ansiYellow + s + ansiReset
	case status >= 300:
		return ansiCyan + s + ansiReset
	case status >= 200:
		return ansiGreen + s + ansiReset
	default:
		return s
	}
}

func colorizeStatusClass(class string, color bool) string {
	if !color {
		return class
	}
	switch class {
	case "5xx":
		return ansiRed + class + ansiReset
	case "4xx":
		return ansiYellow + class + ansiReset
	case "3xx":
		return ansiCyan + class + ansiReset
	case "2xx":
		return ansiGreen + class + ansiReset
	default:
		return class
	}
}

func colorizeDurationMS(ms int64, color bool) string {
	s := strconv.FormatInt(ms, 10) + "ms"
	if !color {
		return s
	}
	switch {
	case ms >= 1000:
		return ansiRed + s + ansiReset
	case ms >= 250:
		return ansiYellow + s + ansiReset
	default:
		return ansiDim + s + ansiReset
	}
}

func colorizeResult(result string, color bool) string {
	if !color {
		return result
	}
	switch result {
	case "ok", "success":
		return ansiGreen + result + ansiReset
	case "error", "failed", "denied":
		return ansiRed + result + ansiReset
	default:
		return result
	}
}

func valueToInt64(v slog.Value) (int64, bool) {
	switch v.Kind() {
	case slog.KindInt64:
		return v.Int64(), true
	case slog.KindUint64:
		u := v.Uint64()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	case slog.KindFloat64:
		return int64(v.Float64()), true
	default:
		return 0, false
	}
}

func envWidth(key string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < minLogWidth {
		return 0, false
	}
	return n, true
}
