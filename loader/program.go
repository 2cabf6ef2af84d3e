// Package loader reads a hex-text program image into instruction memory.
package loader

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/archsim/rv5pipe/emu"
)

// LoadHex reads the program at path into instrMem, one 32-bit word per
// line. A '#' begins a comment that runs to the end of the line; all
// whitespace, leading, trailing, and interior, is stripped before parsing,
// so a grouped line like "0050 0093" reads the same as "00500093"; blank
// and comment-only lines are skipped. Each remaining line must parse as a
// hexadecimal instruction word, with or without a leading "0x". Words are
// placed at successive word indices starting at 0; words beyond instrMem's
// capacity are silently dropped.
func LoadHex(path string, instrMem *emu.InstructionMemory) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("loader: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	index := 0
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if hash := strings.IndexByte(line, '#'); hash >= 0 {
			line = line[:hash]
		}
		line = stripWhitespace(line)
		if line == "" {
			continue
		}

		if index >= instrMem.Words() {
			break
		}

		word, err := strconv.ParseUint(strings.TrimPrefix(line, "0x"), 16, 32)
		if err != nil {
			return fmt.Errorf("loader: %s:%d: invalid instruction word %q: %w", path, lineNo, line, err)
		}

		instrMem.WriteWord(index, uint32(word))
		index++
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("loader: read %s: %w", path, err)
	}

	return nil
}

// stripWhitespace removes every whitespace character from s, not just
// leading and trailing runs.
func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
