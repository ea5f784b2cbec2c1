// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_clipstore

import (
	"fmt"
	"regexp"
	"strconv"
)

var clipNumberPattern = regexp.MustCompile(`^Clip (\d+)$`)

// NextClipNumber derives the default title for a new clip by scanning
// existing titles of the form "Clip NNN" and taking the highest plus one.
// Custom titles are ignored, so deleting the highest-numbered clip frees
// its number for reuse.
func NextClipNumber(clips []Clip) string {
	highest := 0
	for _, clip := range clips {
		match := clipNumberPattern.FindStringSubmatch(clip.Title)
		if match == nil {
			continue
		}
		n, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("Clip %03d", highest+1)
}

// IsPlaceholderTitle reports whether a title is still the sequential
// default rather than one the user or the title generator set.
func IsPlaceholderTitle(title string) bool {
	return clipNumberPattern.MatchString(title)
}
