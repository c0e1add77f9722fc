package providers

import "unicode"

// emitError marks a failure raised by the consumer's emit callback. The
// failover loop aborts on it immediately: retrying the provider cannot help a
// consumer that stopped accepting chunks.
type emitError struct{ err error }

func (e emitError) Error() string { return e.err.Error() }
func (e emitError) Unwrap() error { return e.err }

// chunkWords splits text into word-sized chunks with their trailing
// whitespace attached, so that concatenating the chunks reproduces the input
// exactly. Used to fake a stream from a full response when the real stream
// fails before producing anything.
func chunkWords(text string) []string {
	if text == "" {
		return nil
	}

	var chunks []string
	start := 0
	inSpace := false
	for i, r := range text {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace {
			chunks = append(chunks, text[start:i])
			start = i
			inSpace = false
		}
	}
	chunks = append(chunks, text[start:])
	return chunks
}
