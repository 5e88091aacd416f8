package detect

import (
	"math"
	"strings"

	"github.com/pierrelecouillard-ui/ffe-pre-engage/internal/domain"
)

// Keyword sets are matched as case-insensitive substrings, in strict
// priority order. A stale page can carry both "ouvert" and "complet"
// copy at once; FULL must win or we raise false open alerts.
var (
	fullKeys   = []string{"complet", "complète", "plus de place", "liste d'attente", "full"}
	openKeys   = []string{"engager", "engagement ouvert", "ouvert", "inscription ouverte", "inscriptions ouvertes"}
	closedKeys = []string{"engagement fermé", "fermé", "ouverture le", "ouvre le", "pas encore ouvert"}
)

// Status classifies a registration page body. It never returns
// StatusError; that value is reserved for transport failures and is
// assigned by the caller.
func Status(html string) domain.Status {
	h := strings.ToLower(html)

	if containsAny(h, fullKeys) {
		return domain.StatusFull
	}
	if containsAny(h, openKeys) {
		return domain.StatusOpen
	}
	if containsAny(h, closedKeys) {
		return domain.StatusClosed
	}
	return domain.StatusUnknown
}

func containsAny(h string, keys []string) bool {
	for _, k := range keys {
		if strings.Contains(h, k) {
			return true
		}
	}
	return false
}

// Slots extracts "slots remaining" from the first X / Y ratio on the
// page, typically rendered as "engagés 52 / 60". The result is Y-X.
// ok is false when no acceptable ratio is found.
func Slots(html string) (slots int, ok bool) {
	h := strings.ToLower(html)

	// Prefer a ratio following the "engag" stem (engagé, engagés,
	// engagements) over an earlier unrelated one.
	if idx := strings.Index(h, "engag"); idx >= 0 {
		if v, found := firstRatio(h[idx:]); found {
			return v, true
		}
	}
	return firstRatio(h)
}

// firstRatio scans s for the first `X / Y` pattern with Y >= X and
// returns Y-X. Candidates with Y < X are skipped, not fatal.
func firstRatio(s string) (int, bool) {
	b := []byte(s)
	n := len(b)
	i := 0

	for i < n {
		if !isDigit(b[i]) {
			i++
			continue
		}
		x, j, ok := readInt(b, i)
		if !ok {
			return 0, false
		}
		i = j

		for i < n && isSpace(b[i]) {
			i++
		}
		if i >= n || b[i] != '/' {
			continue
		}
		i++
		for i < n && isSpace(b[i]) {
			i++
		}
		if i >= n || !isDigit(b[i]) {
			continue
		}
		y, k, ok := readInt(b, i)
		if !ok {
			return 0, false
		}
		i = k

		if y >= x {
			return y - x, true
		}
	}
	return 0, false
}

// readInt parses a run of ASCII digits starting at i. ok is false when
// the accumulated value would not fit a 32-bit signed integer.
func readInt(b []byte, i int) (val, next int, ok bool) {
	var v int64
	for i < len(b) && isDigit(b[i]) {
		v = v*10 + int64(b[i]-'0')
		if v > math.MaxInt32 {
			return 0, 0, false
		}
		i++
	}
	return int(v), i, true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}
