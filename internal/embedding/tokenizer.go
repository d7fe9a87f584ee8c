package embedding

import (
	"hash/fnv"
	"strings"
)

// BERT special token IDs.
const (
	clsTokenID = 101
	sepTokenID = 102
	vocabSize  = 30522
)

// Tokenizer produces token IDs for BERT-style models (input_ids, attention_mask, token_type_ids).
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// HashingTokenizer maps analyzed terms to vocabulary slots by hashing. It has no
// vocabulary file, so IDs only line up with a model exported with the same hashing.
type HashingTokenizer struct {
	analyzer *Analyzer
}

// NewHashingTokenizer returns a tokenizer over bleve-analyzed terms.
func NewHashingTokenizer() *HashingTokenizer {
	return &HashingTokenizer{analyzer: NewAnalyzer()}
}

// Tokenize wraps the analyzed terms in [CLS] ... [SEP] and pads to maxTokens.
func (t *HashingTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 2 {
		maxTokens = 256
	}
	terms, err := t.analyzer.Terms(text)
	if err != nil {
		terms = SplitWords(strings.ToLower(text))
	}

	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0] = clsTokenID
	attentionMask[0] = 1
	pos := 1
	for _, term := range terms {
		if pos >= maxTokens-1 {
			break
		}
		inputIDs[pos] = TermID(term)
		attentionMask[pos] = 1
		pos++
	}
	inputIDs[pos] = sepTokenID
	attentionMask[pos] = 1
	return inputIDs, attentionMask, tokenTypeIDs
}

// TermID hashes a term into the non-special part of the vocabulary.
func TermID(term string) int64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(term))
	return int64(1000 + h.Sum32()%(vocabSize-1000))
}

// SplitWords splits text on whitespace and returns non-empty words.
func SplitWords(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	return words
}
