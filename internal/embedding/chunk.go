package embedding

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// cl100kEncoding is the fixed tokenizer shared across every provider, so
// token counts and chunk boundaries are identical regardless of which
// provider ultimately embeds the text (spec §4.6).
const cl100kEncoding = "cl100k_base"

// Tokenizer wraps a single tiktoken encoding instance. Building one is
// non-trivial (it loads a BPE rank table), so callers should build one
// Tokenizer and share it, matching the tiktoken.Tiktoken object the pack's
// engine.go keeps on its struct rather than re-resolving per call.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTokenizer builds the shared cl100k_base tokenizer.
func NewTokenizer() (*Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(cl100kEncoding)
	if err != nil {
		return nil, err
	}
	return &Tokenizer{enc: enc}, nil
}

// CountTokens returns the token count tiktoken assigns text.
func (t *Tokenizer) CountTokens(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// Chunk splits text into pieces whose token count is at most maxTokens
// each, breaking at the last newline within a piece when one exists so
// chunk boundaries tend to land on declaration or statement edges rather
// than mid-token.
func (t *Tokenizer) Chunk(text string, maxTokens int) []string {
	if maxTokens <= 0 {
		return []string{text}
	}
	ids := t.enc.Encode(text, nil, nil)
	if len(ids) <= maxTokens {
		return []string{text}
	}

	var chunks []string
	for len(ids) > 0 {
		end := maxTokens
		if end > len(ids) {
			end = len(ids)
		}
		piece := t.enc.Decode(ids[:end])
		if end < len(ids) {
			if lastNewline := strings.LastIndex(piece, "\n"); lastNewline > 0 {
				// Roll the boundary back to the newline and re-encode the
				// remainder so token accounting stays exact.
				remainder := piece[lastNewline+1:] + t.enc.Decode(ids[end:])
				piece = piece[:lastNewline+1]
				ids = t.enc.Encode(remainder, nil, nil)
				chunks = append(chunks, piece)
				continue
			}
		}
		chunks = append(chunks, piece)
		ids = ids[end:]
	}
	return chunks
}
