// Package codes generates the human-readable identifiers used across
// resources: equipment UIDs, wire-drop UIDs and gap-filling sequence numbers.
//
// Gap-filling is computed client-side from a live listing of existing codes
// and is NOT safe under concurrent creation: two callers can both observe the
// same gap and allocate the same number. Resources where duplicates are
// unacceptable (interconnect labels, service PO numbers) allocate through a
// server-side procedure instead; see store/pg.
package codes

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

var trailingDigits = regexp.MustCompile(`(\d+)\s*$`)

// NextGapFill returns the smallest unused positive integer given the numbers
// already embedded in existing codes, falling back to max+1 when the sequence
// has no gap. Codes without a trailing number are ignored.
func NextGapFill(existing []string) int {
	used := make(map[int]bool, len(existing))
	for _, code := range existing {
		if n, ok := TrailingNumber(code); ok {
			used[n] = true
		}
	}
	if len(used) == 0 {
		return 1
	}
	nums := make([]int, 0, len(used))
	for n := range used {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	next := 1
	for _, n := range nums {
		if n > next {
			return next
		}
		if n == next {
			next++
		}
	}
	return next
}

// TrailingNumber extracts the numeric suffix of a code, if any.
func TrailingNumber(code string) (int, bool) {
	m := trailingDigits.FindStringSubmatch(strings.TrimSpace(code))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// EquipmentUID formats the nth equipment code for a project: EQ-001, EQ-002...
func EquipmentUID(n int) string {
	return fmt.Sprintf("EQ-%03d", n)
}

// WireDropUID builds <ROOM6><DROP6>-<4-digit-ms-suffix> from the room and drop
// names. Names are uppercased, stripped of non-alphanumerics and truncated to
// six characters; the suffix is the low four digits of the current clock in
// milliseconds.
func WireDropUID(room, drop string, now time.Time) string {
	return fmt.Sprintf("%s%s-%04d", sanitize6(room), sanitize6(drop), now.UnixMilli()%10000)
}

func sanitize6(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() == 6 {
				break
			}
		}
	}
	if b.Len() == 0 {
		return "UNKNWN"
	}
	return b.String()
}
