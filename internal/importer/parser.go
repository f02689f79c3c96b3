// Package importer reads questions from the plain-text authoring format.
//
// Blocks are separated by blank lines. Each block holds the statement, the four
// options in canonical order and the correct option number (1-4). Extra lines are ignored.
//
//	What is 2+2?
//	1
//	2
//	3
//	4
//	4
package importer

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"quizmaster-service/internal/domain"
)

// DefaultPoints is assigned to every imported question.
const DefaultPoints = 1.0

const blockLines = 1 + domain.OptionCount + 1

// BlockError describes a block that could not be turned into a question.
type BlockError struct {
	Block  int // 1-based
	Line   int // first line of the block in the input
	Reason string
}

func (e BlockError) Error() string {
	return fmt.Sprintf("block %d (line %d): %s", e.Block, e.Line, e.Reason)
}

// Result holds the parsed questions and the blocks that were skipped.
type Result struct {
	Blocks    int
	Questions []domain.Question
	Skipped   []BlockError
}

type block struct {
	line  int
	lines []string
}

// Parse reads every block from r. Malformed blocks are reported in Result.Skipped;
// only read errors are returned.
func Parse(r io.Reader) (Result, error) {
	blocks, err := splitBlocks(r)
	if err != nil {
		return Result{}, err
	}

	res := Result{Blocks: len(blocks)}
	for i, b := range blocks {
		q, err := parseBlock(b)
		if err != nil {
			res.Skipped = append(res.Skipped, BlockError{Block: i + 1, Line: b.line, Reason: err.Error()})
			continue
		}
		res.Questions = append(res.Questions, q)
	}
	return res, nil
}

func splitBlocks(r io.Reader) ([]block, error) {
	var (
		blocks  []block
		current block
		lineNo  int
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lineNo++
		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			if len(current.lines) > 0 {
				blocks = append(blocks, current)
				current = block{}
			}
			continue
		}
		if len(current.lines) == 0 {
			current.line = lineNo
		}
		current.lines = append(current.lines, text)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}
	if len(current.lines) > 0 {
		blocks = append(blocks, current)
	}
	return blocks, nil
}

func parseBlock(b block) (domain.Question, error) {
	if len(b.lines) < blockLines {
		return domain.Question{}, fmt.Errorf("block must have at least %d non-empty lines, got %d", blockLines, len(b.lines))
	}
	var options [domain.OptionCount]string
	for i := range options {
		options[i] = strings.TrimSpace(b.lines[1+i])
	}
	correct, err := strconv.Atoi(strings.TrimSpace(b.lines[blockLines-1]))
	if err != nil {
		return domain.Question{}, fmt.Errorf("correct option must be an integer 1-%d", domain.OptionCount)
	}
	q, err := domain.NewQuestion(0, 0, strings.TrimSpace(b.lines[0]), options, correct, DefaultPoints)
	if err != nil {
		return domain.Question{}, err
	}
	return q, nil
}
