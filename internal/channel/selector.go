// Package channel holds the per-channel include flags used to filter exports.
package channel

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrSelector = errors.New("channel: invalid selection")

// Selector is one include flag per channel, in channel order.
type Selector []bool

// All selects every one of n channels. Exports use it when no selection is given.
func All(n int) Selector {
	s := make(Selector, n)
	for i := range s {
		s[i] = true
	}
	return s
}

func None(n int) Selector {
	return make(Selector, n)
}

// Selected reports whether channel i is included. Indices outside the
// selector are never selected.
func (s Selector) Selected(i int) bool {
	return i >= 0 && i < len(s) && s[i]
}

func (s Selector) Count() int {
	n := 0
	for _, v := range s {
		if v {
			n++
		}
	}
	return n
}

// Indices returns the selected channel numbers in ascending order.
func (s Selector) Indices() []int {
	idx := make([]int, 0, len(s))
	for i, v := range s {
		if v {
			idx = append(idx, i)
		}
	}
	return idx
}

func (s Selector) String() string {
	parts := make([]string, 0, len(s))
	for _, i := range s.Indices() {
		parts = append(parts, strconv.Itoa(i))
	}
	return strings.Join(parts, ",")
}

// Parse builds a selector for n channels from "all", "none" or a comma
// separated list of indices and inclusive ranges such as "0,2,5-7".
func Parse(spec string, n int) (Selector, error) {
	spec = strings.TrimSpace(spec)
	switch strings.ToLower(spec) {
	case "", "all":
		return All(n), nil
	case "none":
		return None(n), nil
	}

	s := None(n)
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, err := parseRange(part)
		if err != nil {
			return nil, err
		}
		if lo > hi || hi >= n {
			return nil, fmt.Errorf("%w: %q outside 0-%d", ErrSelector, part, n-1)
		}
		for i := lo; i <= hi; i++ {
			s[i] = true
		}
	}
	return s, nil
}

func parseRange(part string) (int, int, error) {
	from, to, isRange := strings.Cut(part, "-")
	lo, err := strconv.Atoi(strings.TrimSpace(from))
	if err != nil || lo < 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrSelector, part)
	}
	if !isRange {
		return lo, lo, nil
	}
	hi, err := strconv.Atoi(strings.TrimSpace(to))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrSelector, part)
	}
	return lo, hi, nil
}
