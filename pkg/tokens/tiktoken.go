package tokens

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// EncodingCl100kBase is the encoding used by GPT-4 era models.
const EncodingCl100kBase = "cl100k_base"

// NewTiktokenEstimator returns an Estimator backed by a real BPE tokenizer
// for the given encoding. Use it when exact counts matter more than speed;
// Estimate remains the right choice for hot paths.
func NewTiktokenEstimator(encoding string) (Estimator, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("loading %s encoding: %w", encoding, err)
	}
	return func(text string) int {
		return len(enc.Encode(text, nil, nil))
	}, nil
}
