package decision

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"tripvoucher/internal"
)

// Terminal asks an operator on a text stream. Reads are not interrupted by
// ctx; it is checked between prompts.
type Terminal struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

func (t *Terminal) Decide(ctx context.Context, excursion string) (internal.Category, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	categories := internal.Categories()
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		fmt.Fprintf(t.out, "\nCategory for excursion %q:\n", excursion)
		for i, c := range categories {
			fmt.Fprintf(t.out, "  %d) %s\n", i+1, c)
		}
		fmt.Fprint(t.out, "Choice: ")

		line, err := t.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		answer := strings.TrimSpace(line)
		if n, convErr := strconv.Atoi(answer); convErr == nil && n >= 1 && n <= len(categories) {
			return categories[n-1], nil
		}
		if category, parseErr := internal.ParseCategory(answer); parseErr == nil {
			return category, nil
		}
		if err != nil {
			return "", fmt.Errorf("terminal closed: %w", io.ErrUnexpectedEOF)
		}
		fmt.Fprintf(t.out, "Unknown choice %q, enter 1-%d or a category name.\n", answer, len(categories))
	}
}
