package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chative/appointment-assistant/internal/agent/model"
)

// TerminalReviewer asks a human at the terminal to approve, edit or reject a draft.
type TerminalReviewer struct {
	in  *bufio.Reader
	out io.Writer
}

func NewTerminalReviewer(in *bufio.Reader, out io.Writer) *TerminalReviewer {
	return &TerminalReviewer{in: in, out: out}
}

func (r *TerminalReviewer) Review(ctx context.Context, p model.PendingReview) (model.ReviewDecision, error) {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, rule)
	fmt.Fprintln(r.out, "  HUMAN REVIEW REQUIRED")
	fmt.Fprintln(r.out, rule)
	fmt.Fprintf(r.out, "\nDraft response:\n\n%s\n\n", p.Draft)

	for {
		if err := ctx.Err(); err != nil {
			return model.ReviewDecision{}, err
		}
		fmt.Fprint(r.out, "Approve (a), edit (e) or reject (r)? ")
		line, err := r.readLine()
		if err != nil {
			return model.ReviewDecision{}, err
		}

		switch strings.ToLower(line) {
		case "a", "approve", "y", "yes":
			return model.ReviewDecision{Action: model.ReviewApprove}, nil
		case "r", "reject", "n", "no":
			return model.ReviewDecision{Action: model.ReviewReject}, nil
		case "e", "edit":
			fmt.Fprintln(r.out, "Enter the new response (finish with an empty line):")
			text, err := r.readEdit()
			if err != nil {
				return model.ReviewDecision{}, err
			}
			if text == "" {
				fmt.Fprintln(r.out, "The edited response cannot be empty.")
				continue
			}
			return model.ReviewDecision{Action: model.ReviewEdit, Text: text}, nil
		default:
			fmt.Fprintln(r.out, "Please answer a, e or r.")
		}
	}
}

func (r *TerminalReviewer) readLine() (string, error) {
	line, err := r.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readEdit collects lines up to the first empty line or end of input.
func (r *TerminalReviewer) readEdit() (string, error) {
	var lines []string
	for {
		line, err := r.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) && len(lines) > 0 {
				break
			}
			return "", err
		}
		if line == "" {
			break
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}
