package raw

// Package raw reads raw format files
// raw files contain a sentence per line, tokens separated by whitespace

import (
	nlp "github.com/smarthi/MMT/nlp/types"

	"bufio"
	"context"
	"io"
	"os"
)

const MAX_LINE_BYTES = 1 << 20

// Read returns the sentences of reader numbered from firstID on. Empty lines
// are kept as empty sentences so that ids stay aligned with input lines.
func Read(reader io.Reader, limit, firstID int, delimiter string) ([]*nlp.Sentence, error) {
	var sentences []*nlp.Sentence
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), MAX_LINE_BYTES)

	id := firstID
	for scanner.Scan() {
		sentences = append(sentences, nlp.NewSentence(id, scanner.Text(), delimiter))
		id++
		if limit > 0 && len(sentences) >= limit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return sentences, nil
}

func ReadFile(filename string, limit int, delimiter string) ([]*nlp.Sentence, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Read(file, limit, 0, delimiter)
}

// Stream sends sentences to out as they are read and closes out when done.
// It stops with ctx's error once ctx is done and a sentence cannot be
// handed over.
func Stream(ctx context.Context, reader io.Reader, firstID int, delimiter string, out chan<- *nlp.Sentence) error {
	defer close(out)
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), MAX_LINE_BYTES)
	id := firstID
	for scanner.Scan() {
		select {
		case out <- nlp.NewSentence(id, scanner.Text(), delimiter):
		case <-ctx.Done():
			return ctx.Err()
		}
		id++
	}
	return scanner.Err()
}

func Write(writer io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := io.WriteString(writer, line); err != nil {
			return err
		}
		if _, err := writer.Write([]byte{'\n'}); err != nil {
			return err
		}
	}
	return nil
}

func WriteFile(filename string, lines []string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()
	return Write(file, lines)
}
