package replay

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"radiswap/internal/model"
)

// ReadInstructions loads an instruction JSONL file. Blank lines are skipped.
// An instruction without a seq gets one more than its predecessor; seq values
// must be strictly increasing.
func ReadInstructions(path string) ([]model.Instruction, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var (
		out    []model.Instruction
		lineNo int
		last   uint64
	)
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var ins model.Instruction
		if err := json.Unmarshal(line, &ins); err != nil {
			return nil, fmt.Errorf("line %d: decode instruction: %w", lineNo, err)
		}
		if ins.Seq == 0 {
			ins.Seq = last + 1
		}
		if ins.Seq <= last {
			return nil, fmt.Errorf("line %d: seq %d is not after %d", lineNo, ins.Seq, last)
		}
		last = ins.Seq
		out = append(out, ins)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan input: %w", err)
	}
	return out, nil
}
