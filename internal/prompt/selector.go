// Package prompt implements the interactive numbered scene menu.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mmcdole/scenedl/internal/domain"
)

// Prompt is printed before every read.
const Prompt = "Choose scene to download: "

// Menu is the catalog view the selector needs.
type Menu interface {
	List() []domain.Scene
	Len() int
	At(n int) (domain.Scene, error)
}

// PrintMenu writes one "[n] name: url" line per scene.
func PrintMenu(w io.Writer, menu Menu) {
	for i, s := range menu.List() {
		fmt.Fprintf(w, "[%d] %s: %s\n", i+1, s.Name, s.URL)
	}
}

// ParseSelection converts one line of input into a 1-based index within
// [1, size].
func ParseSelection(input string, size int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", domain.ErrNotANumber, strings.TrimSpace(input))
	}
	if n < 1 || n > size {
		return 0, fmt.Errorf("%w: %d", domain.ErrInvalidSelection, n)
	}
	return n, nil
}

// Select prints the menu and reads lines from r until one names a valid
// scene. Bad lines print an error and prompt again. It fails only when r is
// exhausted or broken before a valid selection arrives.
func Select(r io.Reader, w io.Writer, menu Menu) (domain.Scene, error) {
	if menu.Len() == 0 {
		return domain.Scene{}, errors.New("no scenes to choose from")
	}

	PrintMenu(w, menu)

	reader := bufio.NewReader(r)
	for {
		fmt.Fprint(w, Prompt)

		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(w)
				return domain.Scene{}, fmt.Errorf("no selection made: %w", io.ErrUnexpectedEOF)
			}
			return domain.Scene{}, fmt.Errorf("failed to read input: %w", err)
		}

		n, perr := ParseSelection(line, menu.Len())
		switch {
		case errors.Is(perr, domain.ErrNotANumber):
			fmt.Fprintln(w, "[ERROR] Please input a number!")
			continue
		case perr != nil:
			fmt.Fprintln(w, "[ERROR] The number you input is invalid!")
			continue
		}

		return menu.At(n)
	}
}
