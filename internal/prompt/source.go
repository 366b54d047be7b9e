// Package prompt supplies randomly chosen text prompts for art generation.
package prompt

import (
	"math/rand"
	"os"
	"strings"
)

// FallbackPrompt is returned whenever the prompt file cannot be read or
// contains no usable lines. Next never fails.
const FallbackPrompt = "Magical NFT in ethereal landscape, digital art style"

// Source picks a random prompt from a newline-separated prompt file.
// The file is read once at construction; Source is safe for concurrent use.
type Source struct {
	prompts []string
}

// NewSource loads prompts from path. A missing or empty file is not an error:
// the source degrades to the fixed fallback prompt.
func NewSource(path string) *Source {
	s := &Source{}

	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			s.prompts = append(s.prompts, line)
		}
	}
	return s
}

// NewStaticSource builds a source over a fixed prompt list. Used in tests and
// as the embedded default set.
func NewStaticSource(prompts []string) *Source {
	s := &Source{}
	for _, p := range prompts {
		p = strings.TrimSpace(p)
		if p != "" {
			s.prompts = append(s.prompts, p)
		}
	}
	return s
}

// Next returns a uniformly random prompt, or the fallback when none are loaded.
func (s *Source) Next() string {
	if len(s.prompts) == 0 {
		return FallbackPrompt
	}
	return s.prompts[rand.Intn(len(s.prompts))]
}

// Len reports how many prompts are loaded.
func (s *Source) Len() int {
	return len(s.prompts)
}
