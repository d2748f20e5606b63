package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// StripCodeFences removes a ```json ... ``` wrapper some models add around JSON.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(strings.TrimPrefix(s, "json"), "JSON")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ClampRunes ensures a string does not exceed max runes.
func ClampRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func SHA256Hex(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

// Preview keeps the first lines of s (sentences when s is a single line) and
// caps the result at maxRunes, adding "…" when anything was cut.
func Preview(s string, lines, maxRunes int) string {
	s = strings.TrimSpace(s)
	var parts []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			parts = append(parts, l)
		}
	}
	if len(parts) == 1 {
		parts = splitSentences(parts[0])
	}
	cut := false
	if len(parts) > lines {
		parts = parts[:lines]
		cut = true
	}
	out := strings.Join(parts, "\n")
	if clamped := ClampRunes(out, maxRunes); clamped != out {
		out, cut = strings.TrimSpace(clamped), true
	}
	if cut {
		out += "…"
	}
	return out
}

func splitSentences(s string) []string {
	var out []string
	for {
		i := strings.Index(s, ". ")
		if i < 0 {
			break
		}
		out = append(out, s[:i+1])
		s = strings.TrimSpace(s[i+2:])
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}

// Bar renders pct (0-100) as a bar of width cells.
func Bar(pct, width int, full, empty string) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	n := (pct*width + 50) / 100
	return strings.Repeat(full, n) + strings.Repeat(empty, width-n)
}
